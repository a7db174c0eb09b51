// Package token models the canonical fungible-token program to the extent
// the messaging program needs it: the token-account layout and read-only
// deserialization for token-gate checks. No CPI is ever made into it.
package token

import (
	"encoding/binary"
	"fmt"

	"github.com/mukon-labs/mukon/internal/runtime"
)

// ProgramID is the canonical fungible-token program.
var ProgramID = runtime.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

// AccountLen is the serialized size of a token account.
const AccountLen = 165

// Token-account field offsets.
const (
	mintOffset   = 0
	ownerOffset  = 32
	amountOffset = 64
	stateOffset  = 108
)

// Account state tags.
const (
	StateUninitialized uint8 = 0
	StateInitialized   uint8 = 1
	StateFrozen        uint8 = 2
)

// Account is the deserialized view of a fungible-token holding account.
type Account struct {
	Mint   runtime.PublicKey
	Owner  runtime.PublicKey
	Amount uint64
	State  uint8
}

// UnpackAccount deserializes a token account from raw account data.
func UnpackAccount(data []byte) (*Account, error) {
	if len(data) != AccountLen {
		return nil, fmt.Errorf("invalid token account length: %d", len(data))
	}

	var acct Account
	copy(acct.Mint[:], data[mintOffset:mintOffset+32])
	copy(acct.Owner[:], data[ownerOffset:ownerOffset+32])
	acct.Amount = binary.LittleEndian.Uint64(data[amountOffset : amountOffset+8])
	acct.State = data[stateOffset]

	if acct.State == StateUninitialized {
		return nil, fmt.Errorf("token account is uninitialized")
	}
	return &acct, nil
}

// PackAccount serializes a token account into the canonical layout.
// Fields the messaging program never reads are left zeroed.
func PackAccount(acct *Account) []byte {
	data := make([]byte, AccountLen)
	copy(data[mintOffset:], acct.Mint[:])
	copy(data[ownerOffset:], acct.Owner[:])
	binary.LittleEndian.PutUint64(data[amountOffset:], acct.Amount)
	data[stateOffset] = acct.State
	return data
}
