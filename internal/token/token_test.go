package token

import (
	"testing"

	"github.com/mukon-labs/mukon/internal/runtime"
)

func testKey(b byte) runtime.PublicKey {
	var pk runtime.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func TestPackUnpackAccount(t *testing.T) {
	acct := &Account{
		Mint:   testKey(0x11),
		Owner:  testKey(0x22),
		Amount: 1500,
		State:  StateInitialized,
	}

	data := PackAccount(acct)
	if len(data) != AccountLen {
		t.Fatalf("PackAccount() length = %d, want %d", len(data), AccountLen)
	}

	got, err := UnpackAccount(data)
	if err != nil {
		t.Fatalf("UnpackAccount() error = %v", err)
	}
	if got.Mint != acct.Mint {
		t.Errorf("Mint = %s, want %s", got.Mint, acct.Mint)
	}
	if got.Owner != acct.Owner {
		t.Errorf("Owner = %s, want %s", got.Owner, acct.Owner)
	}
	if got.Amount != acct.Amount {
		t.Errorf("Amount = %d, want %d", got.Amount, acct.Amount)
	}
	if got.State != StateInitialized {
		t.Errorf("State = %d, want %d", got.State, StateInitialized)
	}
}

func TestUnpackAccountRejectsBadLength(t *testing.T) {
	if _, err := UnpackAccount(make([]byte, 64)); err == nil {
		t.Error("UnpackAccount(short data) should fail")
	}
	if _, err := UnpackAccount(make([]byte, AccountLen+1)); err == nil {
		t.Error("UnpackAccount(long data) should fail")
	}
}

func TestUnpackAccountRejectsUninitialized(t *testing.T) {
	data := make([]byte, AccountLen)
	if _, err := UnpackAccount(data); err == nil {
		t.Error("UnpackAccount(uninitialized) should fail")
	}
}
