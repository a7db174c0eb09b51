package client

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mukon-labs/mukon/internal/program"
	"github.com/mukon-labs/mukon/internal/runtime"
)

func TestWalletFromMnemonicDeterministic(t *testing.T) {
	_, mnemonic, err := GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}

	w1, err := NewWallet(mnemonic, "")
	if err != nil {
		t.Fatalf("NewWallet() error = %v", err)
	}
	w2, err := NewWallet(mnemonic, "")
	if err != nil {
		t.Fatalf("NewWallet() error = %v", err)
	}

	if w1.PublicKey() != w2.PublicKey() {
		t.Error("same mnemonic must derive the same wallet")
	}

	w3, err := NewWallet(mnemonic, "different")
	if err != nil {
		t.Fatalf("NewWallet() error = %v", err)
	}
	if w1.PublicKey() == w3.PublicKey() {
		t.Error("different passphrase must derive a different wallet")
	}
}

func TestWalletRejectsInvalidMnemonic(t *testing.T) {
	if _, err := NewWallet("not a real mnemonic", ""); err == nil {
		t.Error("NewWallet(garbage) should fail")
	}
}

func TestWalletAddressRoundtrip(t *testing.T) {
	w, _, err := GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}
	decoded, err := runtime.PublicKeyFromBase58(w.Address())
	if err != nil {
		t.Fatalf("PublicKeyFromBase58() error = %v", err)
	}
	if decoded != w.PublicKey() {
		t.Error("address must decode back to the public key")
	}
}

func TestWalletSignsVerifiableTransactions(t *testing.T) {
	w, _, err := GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}

	ix, err := CloseProfile(w.PublicKey())
	if err != nil {
		t.Fatalf("builder error = %v", err)
	}
	tx := &runtime.Transaction{Instructions: []runtime.Instruction{ix}}
	if err := w.SignTransaction(tx); err != nil {
		t.Fatalf("SignTransaction() error = %v", err)
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Errorf("VerifySignatures() error = %v", err)
	}
}

func TestSealOpenGroupKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	encPub, encPriv, err := EncryptionKeyFromWallet(priv)
	if err != nil {
		t.Fatalf("EncryptionKeyFromWallet() error = %v", err)
	}

	groupKey := bytes.Repeat([]byte{0x5A}, 32)
	sealed, err := SealGroupKey(groupKey, encPub)
	if err != nil {
		t.Fatalf("SealGroupKey() error = %v", err)
	}
	if len(sealed.EncryptedKey) > program.MaxEncryptedKey {
		t.Fatalf("sealed payload %d bytes exceeds the program bound", len(sealed.EncryptedKey))
	}

	opened, err := OpenGroupKey(sealed, encPriv)
	if err != nil {
		t.Fatalf("OpenGroupKey() error = %v", err)
	}
	if !bytes.Equal(opened, groupKey) {
		t.Error("opened key must equal the original")
	}
}

func TestOpenGroupKeyWrongRecipientFails(t *testing.T) {
	_, alicePriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	_, evePriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	alicePub, _, err := EncryptionKeyFromWallet(alicePriv)
	if err != nil {
		t.Fatalf("EncryptionKeyFromWallet() error = %v", err)
	}
	_, eveSecret, err := EncryptionKeyFromWallet(evePriv)
	if err != nil {
		t.Fatalf("EncryptionKeyFromWallet() error = %v", err)
	}

	sealed, err := SealGroupKey([]byte("the group key"), alicePub)
	if err != nil {
		t.Fatalf("SealGroupKey() error = %v", err)
	}
	if _, err := OpenGroupKey(sealed, eveSecret); err == nil {
		t.Error("a different recipient must not open the box")
	}
}

func TestNewGroupIDUnique(t *testing.T) {
	a, err := NewGroupID()
	if err != nil {
		t.Fatalf("NewGroupID() error = %v", err)
	}
	b, err := NewGroupID()
	if err != nil {
		t.Fatalf("NewGroupID() error = %v", err)
	}
	if a == b {
		t.Error("two group ids should not collide")
	}
}

func TestBuilderDerivationsMatchSeeds(t *testing.T) {
	w, _, err := GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}
	peer, _, err := GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}

	ix, err := Invite(w.PublicKey(), peer.PublicKey())
	if err != nil {
		t.Fatalf("Invite builder error = %v", err)
	}

	// The builder's conversation account must match an independent
	// derivation from the documented seeds.
	conv, _, err := program.ConversationAddress(program.ChatHash(peer.PublicKey(), w.PublicKey()))
	if err != nil {
		t.Fatalf("ConversationAddress() error = %v", err)
	}
	if ix.Accounts[5].Pubkey != conv {
		t.Error("builder conversation PDA must match seed derivation regardless of pair order")
	}

	if !ix.Accounts[0].IsSigner || !ix.Accounts[0].IsWritable {
		t.Error("signer account must be writable signer")
	}
	if ix.Accounts[1].IsSigner || ix.Accounts[1].IsWritable {
		t.Error("peer account must be read-only")
	}
}
