// Package runtime implements the deterministic account ledger that hosts
// the Mukon messaging program: accounts, lamports and rent, program-derived
// addresses, and atomic transaction execution.
package runtime

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// PublicKey is a 32-byte ed25519 public key or program-derived address.
type PublicKey [32]byte

// ZeroKey is the all-zero public key. It doubles as the system owner of
// accounts that have not been assigned to a program.
var ZeroKey PublicKey

// PublicKeyFromBytes builds a PublicKey from a 32-byte slice.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != len(pk) {
		return pk, fmt.Errorf("invalid public key length: %d", len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// PublicKeyFromBase58 parses a base58-encoded public key.
func PublicKeyFromBase58(s string) (PublicKey, error) {
	decoded := base58.Decode(s)
	return PublicKeyFromBytes(decoded)
}

// MustPublicKeyFromBase58 parses a base58 public key and panics on failure.
// Intended for package-level constants.
func MustPublicKeyFromBase58(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// String returns the base58 text form of the key.
func (p PublicKey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns the key as a byte slice.
func (p PublicKey) Bytes() []byte {
	return p[:]
}

// IsZero reports whether the key is all zeroes.
func (p PublicKey) IsZero() bool {
	return p == ZeroKey
}

// Equal reports whether two keys are identical.
func (p PublicKey) Equal(q PublicKey) bool {
	return p == q
}

// Less reports whether p sorts before q lexicographically.
func (p PublicKey) Less(q PublicKey) bool {
	return bytes.Compare(p[:], q[:]) < 0
}

// SortPair returns the two keys in lexicographic order.
func SortPair(a, b PublicKey) (PublicKey, PublicKey) {
	if b.Less(a) {
		return b, a
	}
	return a, b
}
