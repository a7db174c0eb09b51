package runtime

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
)

type testWallet struct {
	priv ed25519.PrivateKey
	pub  PublicKey
}

func newTestWallet(t *testing.T) *testWallet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	pk, err := PublicKeyFromBytes(pub)
	if err != nil {
		t.Fatalf("PublicKeyFromBytes() error = %v", err)
	}
	return &testWallet{priv: priv, pub: pk}
}

var errBoom = errors.New("boom")

// newTestLedger builds a ledger with a pinned clock and registers handler
// under a fixed test program id.
func newTestLedger(t *testing.T, handler Handler) (*Ledger, PublicKey) {
	t.Helper()
	programID := testProgramID(0xAB)
	ledger := NewLedger()
	ledger.SetClock(func() int64 { return 1700000000 })
	ledger.RegisterProgram(programID, handler)
	return ledger, programID
}

func signedTx(t *testing.T, w *testWallet, ixs ...Instruction) *Transaction {
	t.Helper()
	tx := &Transaction{Instructions: ixs}
	if err := tx.Sign(w.priv); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return tx
}

func TestExecuteRejectsUnsignedSigner(t *testing.T) {
	ledger, programID := newTestLedger(t, func(ctx *ExecContext) error { return nil })
	w := newTestWallet(t)
	other := newTestWallet(t)

	// The flagged signer never signed.
	tx := signedTx(t, w, Instruction{
		ProgramID: programID,
		Accounts:  []AccountMeta{SignerMeta(other.pub)},
	})

	if _, err := ledger.Execute(tx); !errors.Is(err, ErrSignatureVerification) {
		t.Errorf("Execute() error = %v, want ErrSignatureVerification", err)
	}
}

func TestExecuteRejectsNoSigners(t *testing.T) {
	ledger, programID := newTestLedger(t, func(ctx *ExecContext) error { return nil })

	tx := &Transaction{Instructions: []Instruction{{ProgramID: programID}}}
	if _, err := ledger.Execute(tx); !errors.Is(err, ErrNoSigners) {
		t.Errorf("Execute() error = %v, want ErrNoSigners", err)
	}
}

func TestExecuteRejectsBadSignature(t *testing.T) {
	ledger, programID := newTestLedger(t, func(ctx *ExecContext) error { return nil })
	w := newTestWallet(t)

	tx := signedTx(t, w, Instruction{ProgramID: programID})
	tx.Signatures[0][0] ^= 0xFF

	if _, err := ledger.Execute(tx); !errors.Is(err, ErrSignatureVerification) {
		t.Errorf("Execute() error = %v, want ErrSignatureVerification", err)
	}
}

func TestExecuteUnknownProgram(t *testing.T) {
	ledger, _ := newTestLedger(t, func(ctx *ExecContext) error { return nil })
	w := newTestWallet(t)

	tx := signedTx(t, w, Instruction{ProgramID: testProgramID(0xFF)})
	if _, err := ledger.Execute(tx); !errors.Is(err, ErrUnknownProgram) {
		t.Errorf("Execute() error = %v, want ErrUnknownProgram", err)
	}
}

func TestExecuteRollbackOnFailure(t *testing.T) {
	// Two instructions: the first writes, the second fails. Nothing may
	// commit.
	calls := 0
	ledger, programID := newTestLedger(t, func(ctx *ExecContext) error {
		calls++
		target, err := ctx.Account(0)
		if err != nil {
			return err
		}
		signer, err := ctx.Account(1)
		if err != nil {
			return err
		}
		if !target.Acct.Exists() {
			if err := ctx.CreateAccount(target, signer, 8); err != nil {
				return err
			}
		}
		target.Acct.Data[0] = byte(calls)
		if calls == 2 {
			return errBoom
		}
		return nil
	})

	w := newTestWallet(t)
	ledger.Fund(w.pub, 100_000_000_000)

	var target PublicKey
	target[0] = 0x42

	ix := Instruction{
		ProgramID: programID,
		Accounts:  []AccountMeta{WritableMeta(target), SignerMeta(w.pub)},
	}

	if _, err := ledger.Execute(signedTx(t, w, ix, ix)); !errors.Is(err, errBoom) {
		t.Fatalf("Execute() error = %v, want errBoom", err)
	}

	if acct := ledger.Account(target); acct != nil {
		t.Error("failed transaction must not leave partial state")
	}
	balance := ledger.Account(w.pub)
	if balance == nil || balance.Lamports != 100_000_000_000 {
		t.Error("payer balance must roll back on failure")
	}
}

func TestExecuteCommitsOnSuccess(t *testing.T) {
	ledger, programID := newTestLedger(t, func(ctx *ExecContext) error {
		target, _ := ctx.Account(0)
		signer, _ := ctx.Account(1)
		if err := ctx.CreateAccount(target, signer, 4); err != nil {
			return err
		}
		copy(target.Acct.Data, []byte("mukn"))
		ctx.Emit(Event{Kind: "created", Wallets: []PublicKey{signer.Key}})
		return nil
	})

	w := newTestWallet(t)
	ledger.Fund(w.pub, 100_000_000_000)

	var target PublicKey
	target[0] = 0x43

	result, err := ledger.Execute(signedTx(t, w, Instruction{
		ProgramID: programID,
		Accounts:  []AccountMeta{WritableMeta(target), SignerMeta(w.pub)},
	}))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Events) != 1 || result.Events[0].Kind != "created" {
		t.Errorf("Events = %+v, want one 'created'", result.Events)
	}

	acct := ledger.Account(target)
	if acct == nil {
		t.Fatal("account should exist after commit")
	}
	if string(acct.Data) != "mukn" {
		t.Errorf("Data = %q, want %q", acct.Data, "mukn")
	}
	if acct.Owner != programID {
		t.Errorf("Owner = %s, want program", acct.Owner)
	}
	if acct.Lamports != ledger.Rent().MinimumBalance(4) {
		t.Errorf("Lamports = %d, want rent-exempt minimum %d", acct.Lamports, ledger.Rent().MinimumBalance(4))
	}
}

func TestExecuteRejectsReadonlyModification(t *testing.T) {
	ledger, programID := newTestLedger(t, func(ctx *ExecContext) error {
		info, _ := ctx.Account(0)
		info.Acct.Data[0] = 0xEE
		return nil
	})

	var target PublicKey
	target[0] = 0x44
	ledger.SetAccount(target, &Account{Lamports: 1, Data: []byte{0}})

	w := newTestWallet(t)
	tx := signedTx(t, w, Instruction{
		ProgramID: programID,
		Accounts:  []AccountMeta{Meta(target), SignerMeta(w.pub)},
	})

	if _, err := ledger.Execute(tx); !errors.Is(err, ErrReadonlyModified) {
		t.Errorf("Execute() error = %v, want ErrReadonlyModified", err)
	}
}

func TestCloseAccountRefundsExactly(t *testing.T) {
	ledger, programID := newTestLedger(t, func(ctx *ExecContext) error {
		target, _ := ctx.Account(0)
		beneficiary, _ := ctx.Account(1)
		return ctx.CloseAccount(target, beneficiary)
	})

	var target PublicKey
	target[0] = 0x45
	ledger.SetAccount(target, &Account{Lamports: 123456, Owner: programID, Data: []byte{1, 2, 3}})

	w := newTestWallet(t)
	ledger.Fund(w.pub, 1000)

	if _, err := ledger.Execute(signedTx(t, w, Instruction{
		ProgramID: programID,
		Accounts:  []AccountMeta{WritableMeta(target), SignerMeta(w.pub)},
	})); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if acct := ledger.Account(target); acct != nil {
		t.Error("closed account should be gone")
	}
	got := ledger.Account(w.pub).Lamports
	if got != 1000+123456 {
		t.Errorf("beneficiary balance = %d, want %d", got, 1000+123456)
	}
}

func TestReallocZeroFillsGrowth(t *testing.T) {
	ledger, programID := newTestLedger(t, func(ctx *ExecContext) error {
		target, _ := ctx.Account(0)
		payer, _ := ctx.Account(1)
		if err := ctx.CreateAccount(target, payer, 2); err != nil {
			return err
		}
		target.Acct.Data[0] = 0xAA
		target.Acct.Data[1] = 0xBB
		if err := ctx.Realloc(target, payer, 6); err != nil {
			return err
		}
		for _, b := range target.Acct.Data[2:] {
			if b != 0 {
				return errBoom
			}
		}
		return nil
	})

	w := newTestWallet(t)
	ledger.Fund(w.pub, 100_000_000_000)

	var target PublicKey
	target[0] = 0x46

	if _, err := ledger.Execute(signedTx(t, w, Instruction{
		ProgramID: programID,
		Accounts:  []AccountMeta{WritableMeta(target), SignerMeta(w.pub)},
	})); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	acct := ledger.Account(target)
	if len(acct.Data) != 6 {
		t.Errorf("Data length = %d, want 6", len(acct.Data))
	}
	if acct.Lamports != ledger.Rent().MinimumBalance(6) {
		t.Errorf("Lamports = %d, want %d", acct.Lamports, ledger.Rent().MinimumBalance(6))
	}
}

func TestTimestampMonotonic(t *testing.T) {
	times := []int64{100, 50, 200}
	i := 0
	ledger, programID := newTestLedger(t, func(ctx *ExecContext) error { return nil })
	ledger.SetClock(func() int64 {
		ts := times[i%len(times)]
		i++
		return ts
	})

	w := newTestWallet(t)
	var last int64
	for range times {
		result, err := ledger.Execute(signedTx(t, w, Instruction{ProgramID: programID}))
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if result.Timestamp < last {
			t.Errorf("timestamp went backwards: %d after %d", result.Timestamp, last)
		}
		last = result.Timestamp
	}
}
