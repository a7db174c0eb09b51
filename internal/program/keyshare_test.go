package program_test

import (
	"bytes"
	"testing"

	"github.com/mukon-labs/mukon/internal/client"
	"github.com/mukon-labs/mukon/internal/program"
)

// memberOfGroup sets up a group with bob as a joined member.
func memberOfGroup(t *testing.T) (*bench, *wallet, *wallet, [32]byte) {
	t.Helper()
	b := newBench(t)
	alice := b.newWallet()
	bob := b.newWallet()
	groupID := testKey32(0x50)

	if err := b.createGroup(alice, groupID, "vault", nil); err != nil {
		t.Fatalf("CreateGroup error = %v", err)
	}
	if err := b.inviteToGroup(alice, bob, groupID); err != nil {
		t.Fatalf("InviteToGroup error = %v", err)
	}
	if err := b.acceptGroupInvite(bob, groupID, nil); err != nil {
		t.Fatalf("Accept error = %v", err)
	}
	return b, alice, bob, groupID
}

func (b *bench) storeKey(w *wallet, groupID [32]byte, key, nonce []byte) error {
	b.t.Helper()
	ix, err := client.StoreGroupKey(w.pub, groupID, key, nonce)
	if err != nil {
		b.t.Fatalf("StoreGroupKey builder error = %v", err)
	}
	_, execErr := b.exec([]*wallet{w}, ix)
	return execErr
}

func TestStoreAndCloseGroupKey(t *testing.T) {
	b, _, bob, groupID := memberOfGroup(t)

	key := bytes.Repeat([]byte{0xAA}, 48)
	nonce := bytes.Repeat([]byte{0xBB}, 24)

	if err := b.storeKey(bob, groupID, key, nonce); err != nil {
		t.Fatalf("StoreGroupKey error = %v", err)
	}

	share := b.keyShare(groupID, bob.pub)
	if share == nil {
		t.Fatal("key share should exist")
	}
	if !bytes.Equal(share.EncryptedKey, key) {
		t.Error("stored encrypted key should be byte-exact")
	}
	if !bytes.Equal(share.Nonce, nonce) {
		t.Error("stored nonce should be byte-exact")
	}
	if share.Recipient != bob.pub {
		t.Error("recipient should be the signer")
	}

	shareAddr, _, err := program.GroupKeyShareAddress(groupID, bob.pub)
	if err != nil {
		t.Fatalf("derive key share: %v", err)
	}
	shareRent := b.balance(shareAddr)
	before := b.balance(bob.pub)

	ixClose, err := client.CloseGroupKey(bob.pub, groupID)
	if err != nil {
		t.Fatalf("builder error = %v", err)
	}
	b.mustExec([]*wallet{bob}, ixClose)

	if b.keyShare(groupID, bob.pub) != nil {
		t.Error("key share should be gone after close")
	}
	after := b.balance(bob.pub)
	if after != before+shareRent {
		t.Errorf("rent refund = %d, want %d", after-before, shareRent)
	}
}

func TestStoreGroupKeyIdempotentOnIdenticalPayload(t *testing.T) {
	b, _, bob, groupID := memberOfGroup(t)

	key := bytes.Repeat([]byte{0xCC}, 32)
	nonce := bytes.Repeat([]byte{0xDD}, 24)

	if err := b.storeKey(bob, groupID, key, nonce); err != nil {
		t.Fatalf("first store error = %v", err)
	}
	if err := b.storeKey(bob, groupID, key, nonce); err != nil {
		t.Fatalf("identical second store should be a no-op, error = %v", err)
	}
}

func TestStoreGroupKeyRejectsChangedPayload(t *testing.T) {
	b, _, bob, groupID := memberOfGroup(t)

	if err := b.storeKey(bob, groupID, bytes.Repeat([]byte{1}, 32), bytes.Repeat([]byte{2}, 24)); err != nil {
		t.Fatalf("first store error = %v", err)
	}
	err := b.storeKey(bob, groupID, bytes.Repeat([]byte{3}, 32), bytes.Repeat([]byte{2}, 24))
	b.expectErr(err, program.ErrInvalidStateTransition)
}

func TestStoreGroupKeyRequiresMembership(t *testing.T) {
	b, _, _, groupID := memberOfGroup(t)
	outsider := b.newWallet()

	err := b.storeKey(outsider, groupID, bytes.Repeat([]byte{1}, 32), bytes.Repeat([]byte{2}, 24))
	b.expectErr(err, program.ErrNotMember)
}

func TestStoreGroupKeyBoundsPayload(t *testing.T) {
	b, _, bob, groupID := memberOfGroup(t)

	tooBig := make([]byte, program.MaxEncryptedKey+1)
	err := b.storeKey(bob, groupID, tooBig, []byte{1})
	b.expectErr(err, program.ErrInputTooLong)

	err = b.storeKey(bob, groupID, nil, []byte{1})
	b.expectErr(err, program.ErrInputMalformed)
}

func TestCloseGroupKeyRequiresRecipient(t *testing.T) {
	b, alice, bob, groupID := memberOfGroup(t)

	if err := b.storeKey(bob, groupID, bytes.Repeat([]byte{1}, 32), bytes.Repeat([]byte{2}, 24)); err != nil {
		t.Fatalf("store error = %v", err)
	}

	// Alice cannot close bob's share: her derivation points elsewhere, so
	// the supplied account does not match her (group, wallet) PDA.
	ix, err := client.CloseGroupKey(alice.pub, groupID)
	if err != nil {
		t.Fatalf("builder error = %v", err)
	}
	shareAddr, _, err := program.GroupKeyShareAddress(groupID, bob.pub)
	if err != nil {
		t.Fatalf("derive key share: %v", err)
	}
	ix.Accounts[1].Pubkey = shareAddr

	_, execErr := b.exec([]*wallet{alice}, ix)
	b.expectErr(execErr, program.ErrUnexpectedAccount)

	if b.keyShare(groupID, bob.pub) == nil {
		t.Error("bob's share must survive alice's attempt")
	}
}
