package program

import (
	"bytes"
	"crypto/sha256"
	"reflect"

	"github.com/near/borsh-go"
)

// Instruction wire format: 8-byte discriminator || borsh-encoded args.
// Discriminators are derived from the instruction's snake-case name and are
// stable across program and clients.

func instructionDiscriminator(name string) [8]byte {
	h := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], h[:8])
	return d
}

var (
	ixRegister          = instructionDiscriminator("register")
	ixUpdateProfile     = instructionDiscriminator("update_profile")
	ixCloseProfile      = instructionDiscriminator("close_profile")
	ixInvite            = instructionDiscriminator("invite")
	ixAccept            = instructionDiscriminator("accept")
	ixReject            = instructionDiscriminator("reject")
	ixBlock             = instructionDiscriminator("block")
	ixUnblock           = instructionDiscriminator("unblock")
	ixCreateGroup       = instructionDiscriminator("create_group")
	ixUpdateGroup       = instructionDiscriminator("update_group")
	ixInviteToGroup     = instructionDiscriminator("invite_to_group")
	ixAcceptGroupInvite = instructionDiscriminator("accept_group_invite")
	ixRejectGroupInvite = instructionDiscriminator("reject_group_invite")
	ixLeaveGroup        = instructionDiscriminator("leave_group")
	ixKickMember        = instructionDiscriminator("kick_member")
	ixCloseGroup        = instructionDiscriminator("close_group")
	ixStoreGroupKey     = instructionDiscriminator("store_group_key")
	ixCloseGroupKey     = instructionDiscriminator("close_group_key")
)

// RegisterArgs creates the signer's UserProfile (and WalletDescriptor if
// absent). The avatar kind defaults to emoji; UpdateProfile can retag it.
type RegisterArgs struct {
	DisplayName      string
	Avatar           string
	EncryptionPubkey [32]byte
}

// UpdateProfileArgs mutates the signer's profile. Absent fields are kept.
type UpdateProfileArgs struct {
	DisplayName      *string
	AvatarKind       *uint8
	Avatar           *string
	EncryptionPubkey *[32]byte
}

// InviteArgs opens (or re-opens) a DM invitation. ChatHash must equal the
// canonical hash of the sorted pair; it pins the conversation PDA.
type InviteArgs struct {
	ChatHash [32]byte
}

// CreateGroupArgs creates a group with the signer as admin and sole member.
// AdminEncPub rides along for indexers assembling the initial key fan-out;
// the profile remains the canonical source of the admin's encryption key.
type CreateGroupArgs struct {
	GroupID     [32]byte
	Name        string
	AdminEncPub [32]byte
	TokenGate   *TokenGate
}

// UpdateGroupArgs mutates group metadata. Absent fields are kept; a gate
// with a zero mint clears the gate.
type UpdateGroupArgs struct {
	Name      *string
	TokenGate *TokenGate
}

// InviteToGroupArgs invites the wallet passed in the account list.
type InviteToGroupArgs struct {
	GroupID [32]byte
}

// AcceptGroupInviteArgs joins the signer to the group, passing the token
// gate if one is set.
type AcceptGroupInviteArgs struct {
	GroupID [32]byte
}

// RejectGroupInviteArgs declines a pending invite.
type RejectGroupInviteArgs struct {
	GroupID [32]byte
}

// LeaveGroupArgs removes the signer from the member list.
type LeaveGroupArgs struct {
	GroupID [32]byte
}

// KickMemberArgs removes the member passed in the account list. Admin only.
type KickMemberArgs struct {
	GroupID [32]byte
	Member  [32]byte
}

// CloseGroupArgs destroys the group and refunds rent to the creator.
type CloseGroupArgs struct {
	GroupID [32]byte
}

// StoreGroupKeyArgs persists the signer's encrypted group-key backup.
type StoreGroupKeyArgs struct {
	GroupID      [32]byte
	EncryptedKey []byte
	Nonce        []byte
}

// CloseGroupKeyArgs destroys the signer's key share and refunds rent.
type CloseGroupKeyArgs struct {
	GroupID [32]byte
}

// encodeInstruction builds discriminator || borsh(args).
func encodeInstruction(disc [8]byte, args interface{}) ([]byte, error) {
	// borsh encodes a pointer as an Option; the body is the struct itself.
	body, err := borsh.Serialize(reflect.Indirect(reflect.ValueOf(args)).Interface())
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(disc)+len(body))
	out = append(out, disc[:]...)
	out = append(out, body...)
	return out, nil
}

// decodeArgs strips the discriminator and decodes the args. The payload must
// be consumed exactly; trailing bytes are malformed input.
func decodeArgs(data []byte, args interface{}) error {
	if err := borsh.Deserialize(args, data[DiscriminatorLen:]); err != nil {
		return ErrInputMalformed
	}
	reencoded, err := borsh.Serialize(reflect.Indirect(reflect.ValueOf(args)).Interface())
	if err != nil || !bytes.Equal(reencoded, data[DiscriminatorLen:]) {
		return ErrInputMalformed
	}
	return nil
}

// Encoders used by the client builders and tests.

func EncodeRegister(args *RegisterArgs) ([]byte, error) {
	return encodeInstruction(ixRegister, args)
}

func EncodeUpdateProfile(args *UpdateProfileArgs) ([]byte, error) {
	return encodeInstruction(ixUpdateProfile, args)
}

func EncodeCloseProfile() ([]byte, error) {
	return encodeInstruction(ixCloseProfile, &struct{}{})
}

func EncodeInvite(args *InviteArgs) ([]byte, error) {
	return encodeInstruction(ixInvite, args)
}

func EncodeAccept() ([]byte, error) {
	return encodeInstruction(ixAccept, &struct{}{})
}

func EncodeReject() ([]byte, error) {
	return encodeInstruction(ixReject, &struct{}{})
}

func EncodeBlock() ([]byte, error) {
	return encodeInstruction(ixBlock, &struct{}{})
}

func EncodeUnblock() ([]byte, error) {
	return encodeInstruction(ixUnblock, &struct{}{})
}

func EncodeCreateGroup(args *CreateGroupArgs) ([]byte, error) {
	return encodeInstruction(ixCreateGroup, args)
}

func EncodeUpdateGroup(args *UpdateGroupArgs) ([]byte, error) {
	return encodeInstruction(ixUpdateGroup, args)
}

func EncodeInviteToGroup(args *InviteToGroupArgs) ([]byte, error) {
	return encodeInstruction(ixInviteToGroup, args)
}

func EncodeAcceptGroupInvite(args *AcceptGroupInviteArgs) ([]byte, error) {
	return encodeInstruction(ixAcceptGroupInvite, args)
}

func EncodeRejectGroupInvite(args *RejectGroupInviteArgs) ([]byte, error) {
	return encodeInstruction(ixRejectGroupInvite, args)
}

func EncodeLeaveGroup(args *LeaveGroupArgs) ([]byte, error) {
	return encodeInstruction(ixLeaveGroup, args)
}

func EncodeKickMember(args *KickMemberArgs) ([]byte, error) {
	return encodeInstruction(ixKickMember, args)
}

func EncodeCloseGroup(args *CloseGroupArgs) ([]byte, error) {
	return encodeInstruction(ixCloseGroup, args)
}

func EncodeStoreGroupKey(args *StoreGroupKeyArgs) ([]byte, error) {
	return encodeInstruction(ixStoreGroupKey, args)
}

func EncodeCloseGroupKey(args *CloseGroupKeyArgs) ([]byte, error) {
	return encodeInstruction(ixCloseGroupKey, args)
}
