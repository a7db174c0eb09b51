package program_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/mukon-labs/mukon/internal/client"
	"github.com/mukon-labs/mukon/internal/program"
	"github.com/mukon-labs/mukon/internal/runtime"
	"github.com/mukon-labs/mukon/internal/token"
)

// bench wires a fresh ledger with the messaging program installed and a
// deterministic clock, and funds wallets on demand.
type bench struct {
	t      *testing.T
	ledger *runtime.Ledger
}

type wallet struct {
	priv ed25519.PrivateKey
	pub  runtime.PublicKey
}

const walletFunding = 1_000_000_000_000

func newBench(t *testing.T) *bench {
	t.Helper()
	ledger := runtime.NewLedger()
	ledger.RegisterProgram(program.ProgramID, program.Process)

	now := int64(1700000000)
	ledger.SetClock(func() int64 {
		now++
		return now
	})
	return &bench{t: t, ledger: ledger}
}

func (b *bench) newWallet() *wallet {
	b.t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		b.t.Fatalf("GenerateKey() error = %v", err)
	}
	pk, err := runtime.PublicKeyFromBytes(pub)
	if err != nil {
		b.t.Fatalf("PublicKeyFromBytes() error = %v", err)
	}
	b.ledger.Fund(pk, walletFunding)
	return &wallet{priv: priv, pub: pk}
}

// exec signs the instructions with the given wallets and executes them as
// one transaction.
func (b *bench) exec(signers []*wallet, ixs ...runtime.Instruction) (*runtime.Result, error) {
	b.t.Helper()
	tx := &runtime.Transaction{Instructions: ixs}
	for _, w := range signers {
		if err := tx.Sign(w.priv); err != nil {
			b.t.Fatalf("Sign() error = %v", err)
		}
	}
	return b.ledger.Execute(tx)
}

func (b *bench) mustExec(signers []*wallet, ixs ...runtime.Instruction) *runtime.Result {
	b.t.Helper()
	result, err := b.exec(signers, ixs...)
	if err != nil {
		b.t.Fatalf("Execute() error = %v", err)
	}
	return result
}

// expectErr asserts that the execution failed with the given program error.
func (b *bench) expectErr(err error, want *program.Error) {
	b.t.Helper()
	if err == nil {
		b.t.Fatalf("expected %s, got success", want.Name)
	}
	var perr *program.Error
	if !errors.As(err, &perr) || perr != want {
		b.t.Fatalf("error = %v, want %s", err, want.Name)
	}
}

// register is the common first step for most scenarios.
func (b *bench) register(w *wallet, name, avatar string, encKey [32]byte) {
	b.t.Helper()
	ix, err := client.Register(w.pub, name, avatar, encKey)
	if err != nil {
		b.t.Fatalf("Register builder error = %v", err)
	}
	b.mustExec([]*wallet{w}, ix)
}

// Account readers.

func (b *bench) profile(w runtime.PublicKey) *program.UserProfile {
	b.t.Helper()
	addr, _, err := program.UserProfileAddress(w)
	if err != nil {
		b.t.Fatalf("derive profile: %v", err)
	}
	acct := b.ledger.Account(addr)
	if acct == nil {
		return nil
	}
	p, err := program.DecodeUserProfile(acct.Data)
	if err != nil {
		b.t.Fatalf("DecodeUserProfile() error = %v", err)
	}
	return p
}

func (b *bench) descriptor(w runtime.PublicKey) *program.WalletDescriptor {
	b.t.Helper()
	addr, _, err := program.WalletDescriptorAddress(w)
	if err != nil {
		b.t.Fatalf("derive descriptor: %v", err)
	}
	acct := b.ledger.Account(addr)
	if acct == nil {
		return nil
	}
	d, err := program.DecodeWalletDescriptor(acct.Data)
	if err != nil {
		b.t.Fatalf("DecodeWalletDescriptor() error = %v", err)
	}
	return d
}

func (b *bench) conversation(a, c runtime.PublicKey) *program.Conversation {
	b.t.Helper()
	addr, _, err := program.ConversationAddress(program.ChatHash(a, c))
	if err != nil {
		b.t.Fatalf("derive conversation: %v", err)
	}
	acct := b.ledger.Account(addr)
	if acct == nil {
		return nil
	}
	conv, err := program.DecodeConversation(acct.Data)
	if err != nil {
		b.t.Fatalf("DecodeConversation() error = %v", err)
	}
	return conv
}

func (b *bench) group(groupID [32]byte) *program.Group {
	b.t.Helper()
	addr, _, err := program.GroupAddress(groupID)
	if err != nil {
		b.t.Fatalf("derive group: %v", err)
	}
	acct := b.ledger.Account(addr)
	if acct == nil {
		return nil
	}
	g, err := program.DecodeGroup(acct.Data)
	if err != nil {
		b.t.Fatalf("DecodeGroup() error = %v", err)
	}
	return g
}

func (b *bench) invite(groupID [32]byte, invitee runtime.PublicKey) *program.GroupInvite {
	b.t.Helper()
	addr, _, err := program.GroupInviteAddress(groupID, invitee)
	if err != nil {
		b.t.Fatalf("derive invite: %v", err)
	}
	acct := b.ledger.Account(addr)
	if acct == nil {
		return nil
	}
	inv, err := program.DecodeGroupInvite(acct.Data)
	if err != nil {
		b.t.Fatalf("DecodeGroupInvite() error = %v", err)
	}
	return inv
}

func (b *bench) keyShare(groupID [32]byte, recipient runtime.PublicKey) *program.GroupKeyShare {
	b.t.Helper()
	addr, _, err := program.GroupKeyShareAddress(groupID, recipient)
	if err != nil {
		b.t.Fatalf("derive key share: %v", err)
	}
	acct := b.ledger.Account(addr)
	if acct == nil {
		return nil
	}
	share, err := program.DecodeGroupKeyShare(acct.Data)
	if err != nil {
		b.t.Fatalf("DecodeGroupKeyShare() error = %v", err)
	}
	return share
}

func (b *bench) balance(w runtime.PublicKey) uint64 {
	b.t.Helper()
	acct := b.ledger.Account(w)
	if acct == nil {
		return 0
	}
	return acct.Lamports
}

// peerState reads one descriptor's entry for a peer; -1 means absent.
func (b *bench) peerState(owner, peer runtime.PublicKey) int {
	b.t.Helper()
	d := b.descriptor(owner)
	if d == nil {
		return -1
	}
	i := d.Entry(peer)
	if i < 0 {
		return -1
	}
	return int(d.Peers[i].State)
}

// mintTokenAccount installs a token-program-owned holding account.
func (b *bench) mintTokenAccount(owner runtime.PublicKey, mint runtime.PublicKey, amount uint64) runtime.PublicKey {
	b.t.Helper()
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		b.t.Fatalf("rand: %v", err)
	}
	addr, err := runtime.PublicKeyFromBytes(raw)
	if err != nil {
		b.t.Fatalf("PublicKeyFromBytes() error = %v", err)
	}

	data := token.PackAccount(&token.Account{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
		State:  token.StateInitialized,
	})
	b.ledger.SetAccount(addr, &runtime.Account{
		Lamports: b.ledger.Rent().MinimumBalance(len(data)),
		Owner:    token.ProgramID,
		Data:     data,
	})
	return addr
}

func testKey32(v byte) [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = v
	}
	return k
}
