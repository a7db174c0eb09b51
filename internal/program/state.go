package program

import (
	"bytes"
	"crypto/sha256"
	"reflect"

	"github.com/near/borsh-go"

	"github.com/mukon-labs/mukon/internal/runtime"
)

// Every account begins with an 8-byte type tag derived from the account
// name, then the borsh-encoded body: strings are u32-LE length-prefixed,
// enums one byte, fixed arrays raw. Clients decode by these exact layouts.

// DiscriminatorLen is the size of the account type tag.
const DiscriminatorLen = 8

func accountDiscriminator(name string) [8]byte {
	h := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], h[:8])
	return d
}

var (
	UserProfileDiscriminator      = accountDiscriminator("UserProfile")
	WalletDescriptorDiscriminator = accountDiscriminator("WalletDescriptor")
	ConversationDiscriminator     = accountDiscriminator("Conversation")
	GroupDiscriminator            = accountDiscriminator("Group")
	GroupInviteDiscriminator      = accountDiscriminator("GroupInvite")
	GroupKeyShareDiscriminator    = accountDiscriminator("GroupKeyShare")
)

// UserProfile is a wallet's registered identity: display name, avatar, and
// the long-lived encryption public key peers encrypt to. One per wallet.
type UserProfile struct {
	Owner         runtime.PublicKey
	DisplayName   string
	AvatarKind    AvatarKind
	AvatarPayload string
	EncryptionKey [32]byte
}

// PeerEntry is one row of a wallet's peer list.
type PeerEntry struct {
	Wallet runtime.PublicKey
	State  PeerState
}

// WalletDescriptor is a wallet's own view of the peer graph. Entries are
// unique per peer and kept in insertion order; lookups are linear.
type WalletDescriptor struct {
	Owner runtime.PublicKey
	Peers []PeerEntry
}

// Entry returns the index of the entry for the given peer, or -1.
func (d *WalletDescriptor) Entry(peer runtime.PublicKey) int {
	for i := range d.Peers {
		if d.Peers[i].Wallet == peer {
			return i
		}
	}
	return -1
}

// Conversation witnesses that a bilateral channel may exist. Created once on
// the first invite between a pair and never mutated afterwards.
type Conversation struct {
	Participants [2]runtime.PublicKey
	CreatedAt    int64
}

// TokenGate is an admission rule: joining requires holding at least
// MinBalance of Mint at accept time.
type TokenGate struct {
	Mint       runtime.PublicKey
	MinBalance uint64
}

// Group is a named member set with a creator/admin and an optional token
// gate. The creator is always members[0] while the group lives.
type Group struct {
	GroupID   [32]byte
	Creator   runtime.PublicKey
	Name      string
	Members   []runtime.PublicKey
	TokenGate *TokenGate
	CreatedAt int64
}

// MemberIndex returns the index of the wallet in the member list, or -1.
func (g *Group) MemberIndex(wallet runtime.PublicKey) int {
	for i := range g.Members {
		if g.Members[i] == wallet {
			return i
		}
	}
	return -1
}

// IsMember reports whether the wallet belongs to the group.
func (g *Group) IsMember(wallet runtime.PublicKey) bool {
	return g.MemberIndex(wallet) >= 0
}

// GroupInvite records one invitation of a wallet into a group. It persists
// after resolution as an on-chain record; rent is borne by the inviter.
type GroupInvite struct {
	GroupID   [32]byte
	Inviter   runtime.PublicKey
	Invitee   runtime.PublicKey
	Status    InviteStatus
	CreatedAt int64
}

// GroupKeyShare is a member's encrypted backup of a group's symmetric key.
// The payload is opaque to the program; only the recipient may write or
// close the account.
type GroupKeyShare struct {
	GroupID      [32]byte
	Recipient    runtime.PublicKey
	EncryptedKey []byte
	Nonce        []byte
	CreatedAt    int64
}

// marshalAccount serializes discriminator || borsh(body).
func marshalAccount(disc [8]byte, body interface{}) ([]byte, error) {
	// borsh encodes a pointer as an Option; the body is the struct itself.
	encoded, err := borsh.Serialize(reflect.Indirect(reflect.ValueOf(body)).Interface())
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, DiscriminatorLen+len(encoded))
	out = append(out, disc[:]...)
	out = append(out, encoded...)
	return out, nil
}

// unmarshalAccount checks the discriminator and decodes the body.
func unmarshalAccount(disc [8]byte, data []byte, body interface{}) error {
	if len(data) < DiscriminatorLen || !bytes.Equal(data[:DiscriminatorLen], disc[:]) {
		return ErrUnexpectedAccount
	}
	if err := borsh.Deserialize(body, data[DiscriminatorLen:]); err != nil {
		return ErrInputMalformed
	}
	return nil
}

// Marshal serializes the profile with its type tag.
func (p *UserProfile) Marshal() ([]byte, error) {
	return marshalAccount(UserProfileDiscriminator, p)
}

// DecodeUserProfile deserializes a UserProfile account.
func DecodeUserProfile(data []byte) (*UserProfile, error) {
	var p UserProfile
	if err := unmarshalAccount(UserProfileDiscriminator, data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Marshal serializes the descriptor with its type tag.
func (d *WalletDescriptor) Marshal() ([]byte, error) {
	return marshalAccount(WalletDescriptorDiscriminator, d)
}

// DecodeWalletDescriptor deserializes a WalletDescriptor account.
func DecodeWalletDescriptor(data []byte) (*WalletDescriptor, error) {
	var d WalletDescriptor
	if err := unmarshalAccount(WalletDescriptorDiscriminator, data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Marshal serializes the conversation with its type tag.
func (c *Conversation) Marshal() ([]byte, error) {
	return marshalAccount(ConversationDiscriminator, c)
}

// DecodeConversation deserializes a Conversation account.
func DecodeConversation(data []byte) (*Conversation, error) {
	var c Conversation
	if err := unmarshalAccount(ConversationDiscriminator, data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Marshal serializes the group with its type tag.
func (g *Group) Marshal() ([]byte, error) {
	return marshalAccount(GroupDiscriminator, g)
}

// DecodeGroup deserializes a Group account.
func DecodeGroup(data []byte) (*Group, error) {
	var g Group
	if err := unmarshalAccount(GroupDiscriminator, data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Marshal serializes the invite with its type tag.
func (i *GroupInvite) Marshal() ([]byte, error) {
	return marshalAccount(GroupInviteDiscriminator, i)
}

// DecodeGroupInvite deserializes a GroupInvite account.
func DecodeGroupInvite(data []byte) (*GroupInvite, error) {
	var i GroupInvite
	if err := unmarshalAccount(GroupInviteDiscriminator, data, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

// Marshal serializes the key share with its type tag.
func (k *GroupKeyShare) Marshal() ([]byte, error) {
	return marshalAccount(GroupKeyShareDiscriminator, k)
}

// DecodeGroupKeyShare deserializes a GroupKeyShare account.
func DecodeGroupKeyShare(data []byte) (*GroupKeyShare, error) {
	var k GroupKeyShare
	if err := unmarshalAccount(GroupKeyShareDiscriminator, data, &k); err != nil {
		return nil, err
	}
	return &k, nil
}
