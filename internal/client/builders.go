// Package client builds program instructions, derives the program's
// addresses, and provides the wallet and key-sealing helpers a messaging
// client needs. Everything here mirrors the on-chain layouts exactly.
package client

import (
	"fmt"

	"github.com/mukon-labs/mukon/internal/program"
	"github.com/mukon-labs/mukon/internal/runtime"
	"github.com/mukon-labs/mukon/pkg/helpers"
)

// NewGroupID draws a fresh random 32-byte group id. The id is a nonce: the
// group PDA derives from it, so collisions simply fail creation.
func NewGroupID() ([32]byte, error) {
	var id [32]byte
	raw, err := helpers.GenerateSecureRandom(len(id))
	if err != nil {
		return id, fmt.Errorf("generate group id: %w", err)
	}
	copy(id[:], raw)
	return id, nil
}

// Register builds the instruction creating the signer's profile and, if
// absent, their descriptor.
func Register(signer runtime.PublicKey, displayName, avatar string, encryptionKey [32]byte) (runtime.Instruction, error) {
	data, err := program.EncodeRegister(&program.RegisterArgs{
		DisplayName:      displayName,
		Avatar:           avatar,
		EncryptionPubkey: encryptionKey,
	})
	if err != nil {
		return runtime.Instruction{}, err
	}

	profile, _, err := program.UserProfileAddress(signer)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive profile: %w", err)
	}
	descriptor, _, err := program.WalletDescriptorAddress(signer)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive descriptor: %w", err)
	}

	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.WritableMeta(profile),
			runtime.WritableMeta(descriptor),
		},
		Data: data,
	}, nil
}

// UpdateProfile builds a partial profile update; nil fields are preserved.
func UpdateProfile(signer runtime.PublicKey, args *program.UpdateProfileArgs) (runtime.Instruction, error) {
	data, err := program.EncodeUpdateProfile(args)
	if err != nil {
		return runtime.Instruction{}, err
	}
	profile, _, err := program.UserProfileAddress(signer)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive profile: %w", err)
	}
	// The signer is writable: a resize settles the rent delta against it.
	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.WritableMeta(profile),
		},
		Data: data,
	}, nil
}

// CloseProfile builds the instruction returning the profile's rent to the
// signer.
func CloseProfile(signer runtime.PublicKey) (runtime.Instruction, error) {
	data, err := program.EncodeCloseProfile()
	if err != nil {
		return runtime.Instruction{}, err
	}
	profile, _, err := program.UserProfileAddress(signer)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive profile: %w", err)
	}
	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.WritableMeta(profile),
		},
		Data: data,
	}, nil
}

// peerGraphAccounts assembles the descriptor pair shared by every
// peer-graph instruction.
func peerGraphAccounts(signer, peer runtime.PublicKey) ([]runtime.AccountMeta, error) {
	signerDesc, _, err := program.WalletDescriptorAddress(signer)
	if err != nil {
		return nil, fmt.Errorf("derive descriptor: %w", err)
	}
	peerDesc, _, err := program.WalletDescriptorAddress(peer)
	if err != nil {
		return nil, fmt.Errorf("derive peer descriptor: %w", err)
	}
	return []runtime.AccountMeta{
		runtime.SignerMeta(signer),
		runtime.Meta(peer),
		runtime.WritableMeta(signerDesc),
		runtime.WritableMeta(peerDesc),
	}, nil
}

// Invite builds the DM invitation from signer to peer, creating descriptors
// and the conversation marker as needed.
func Invite(signer, peer runtime.PublicKey) (runtime.Instruction, error) {
	chatHash := program.ChatHash(signer, peer)
	data, err := program.EncodeInvite(&program.InviteArgs{ChatHash: chatHash})
	if err != nil {
		return runtime.Instruction{}, err
	}

	profile, _, err := program.UserProfileAddress(signer)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive profile: %w", err)
	}
	signerDesc, _, err := program.WalletDescriptorAddress(signer)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive descriptor: %w", err)
	}
	peerDesc, _, err := program.WalletDescriptorAddress(peer)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive peer descriptor: %w", err)
	}
	conversation, _, err := program.ConversationAddress(chatHash)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive conversation: %w", err)
	}

	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.Meta(peer),
			runtime.Meta(profile),
			runtime.WritableMeta(signerDesc),
			runtime.WritableMeta(peerDesc),
			runtime.WritableMeta(conversation),
		},
		Data: data,
	}, nil
}

func peerGraphInstruction(signer, peer runtime.PublicKey, encode func() ([]byte, error)) (runtime.Instruction, error) {
	data, err := encode()
	if err != nil {
		return runtime.Instruction{}, err
	}
	accounts, err := peerGraphAccounts(signer, peer)
	if err != nil {
		return runtime.Instruction{}, err
	}
	return runtime.Instruction{ProgramID: program.ProgramID, Accounts: accounts, Data: data}, nil
}

// Accept builds the acceptance of peer's pending invitation.
func Accept(signer, peer runtime.PublicKey) (runtime.Instruction, error) {
	return peerGraphInstruction(signer, peer, program.EncodeAccept)
}

// Reject builds the rejection of the relationship with peer.
func Reject(signer, peer runtime.PublicKey) (runtime.Instruction, error) {
	return peerGraphInstruction(signer, peer, program.EncodeReject)
}

// Block builds the block of peer by signer.
func Block(signer, peer runtime.PublicKey) (runtime.Instruction, error) {
	return peerGraphInstruction(signer, peer, program.EncodeBlock)
}

// Unblock builds the unblock of peer by signer.
func Unblock(signer, peer runtime.PublicKey) (runtime.Instruction, error) {
	return peerGraphInstruction(signer, peer, program.EncodeUnblock)
}

// CreateGroup builds the group creation instruction. The signer becomes
// admin and sole initial member.
func CreateGroup(signer runtime.PublicKey, groupID [32]byte, name string, adminEncKey [32]byte, gate *program.TokenGate) (runtime.Instruction, error) {
	data, err := program.EncodeCreateGroup(&program.CreateGroupArgs{
		GroupID:     groupID,
		Name:        name,
		AdminEncPub: adminEncKey,
		TokenGate:   gate,
	})
	if err != nil {
		return runtime.Instruction{}, err
	}
	group, _, err := program.GroupAddress(groupID)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive group: %w", err)
	}
	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.WritableMeta(group),
		},
		Data: data,
	}, nil
}

// UpdateGroup builds a partial group-metadata update. Admin only.
func UpdateGroup(signer runtime.PublicKey, groupID [32]byte, args *program.UpdateGroupArgs) (runtime.Instruction, error) {
	data, err := program.EncodeUpdateGroup(args)
	if err != nil {
		return runtime.Instruction{}, err
	}
	group, _, err := program.GroupAddress(groupID)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive group: %w", err)
	}
	// The signer is writable: a resize settles the rent delta against it.
	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.WritableMeta(group),
		},
		Data: data,
	}, nil
}

// InviteToGroup builds the invitation of invitee into the group.
func InviteToGroup(signer, invitee runtime.PublicKey, groupID [32]byte) (runtime.Instruction, error) {
	data, err := program.EncodeInviteToGroup(&program.InviteToGroupArgs{GroupID: groupID})
	if err != nil {
		return runtime.Instruction{}, err
	}
	group, _, err := program.GroupAddress(groupID)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive group: %w", err)
	}
	invite, _, err := program.GroupInviteAddress(groupID, invitee)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive invite: %w", err)
	}
	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.Meta(invitee),
			runtime.Meta(group),
			runtime.WritableMeta(invite),
		},
		Data: data,
	}, nil
}

// AcceptGroupInvite builds the join. For token-gated groups, tokenAccount
// must point at a holding account satisfying the gate; pass nil otherwise.
func AcceptGroupInvite(signer runtime.PublicKey, groupID [32]byte, tokenAccount *runtime.PublicKey) (runtime.Instruction, error) {
	data, err := program.EncodeAcceptGroupInvite(&program.AcceptGroupInviteArgs{GroupID: groupID})
	if err != nil {
		return runtime.Instruction{}, err
	}
	group, _, err := program.GroupAddress(groupID)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive group: %w", err)
	}
	invite, _, err := program.GroupInviteAddress(groupID, signer)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive invite: %w", err)
	}
	accounts := []runtime.AccountMeta{
		runtime.SignerMeta(signer),
		runtime.WritableMeta(group),
		runtime.WritableMeta(invite),
	}
	if tokenAccount != nil {
		accounts = append(accounts, runtime.Meta(*tokenAccount))
	}
	return runtime.Instruction{ProgramID: program.ProgramID, Accounts: accounts, Data: data}, nil
}

// RejectGroupInvite builds the decline of a pending group invite.
func RejectGroupInvite(signer runtime.PublicKey, groupID [32]byte) (runtime.Instruction, error) {
	data, err := program.EncodeRejectGroupInvite(&program.RejectGroupInviteArgs{GroupID: groupID})
	if err != nil {
		return runtime.Instruction{}, err
	}
	invite, _, err := program.GroupInviteAddress(groupID, signer)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive invite: %w", err)
	}
	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.ReadonlySignerMeta(signer),
			runtime.WritableMeta(invite),
		},
		Data: data,
	}, nil
}

// LeaveGroup builds the signer's departure from the group.
func LeaveGroup(signer runtime.PublicKey, groupID [32]byte) (runtime.Instruction, error) {
	data, err := program.EncodeLeaveGroup(&program.LeaveGroupArgs{GroupID: groupID})
	if err != nil {
		return runtime.Instruction{}, err
	}
	group, _, err := program.GroupAddress(groupID)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive group: %w", err)
	}
	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.WritableMeta(group),
		},
		Data: data,
	}, nil
}

// KickMember builds the removal of member by the group creator.
func KickMember(signer, member runtime.PublicKey, groupID [32]byte) (runtime.Instruction, error) {
	data, err := program.EncodeKickMember(&program.KickMemberArgs{GroupID: groupID, Member: member})
	if err != nil {
		return runtime.Instruction{}, err
	}
	group, _, err := program.GroupAddress(groupID)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive group: %w", err)
	}
	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.Meta(member),
			runtime.WritableMeta(group),
		},
		Data: data,
	}, nil
}

// CloseGroup builds the group teardown, refunding rent to the creator.
func CloseGroup(signer runtime.PublicKey, groupID [32]byte) (runtime.Instruction, error) {
	data, err := program.EncodeCloseGroup(&program.CloseGroupArgs{GroupID: groupID})
	if err != nil {
		return runtime.Instruction{}, err
	}
	group, _, err := program.GroupAddress(groupID)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive group: %w", err)
	}
	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.WritableMeta(group),
		},
		Data: data,
	}, nil
}

// StoreGroupKey builds the persistence of the signer's encrypted group-key
// backup.
func StoreGroupKey(signer runtime.PublicKey, groupID [32]byte, encryptedKey, nonce []byte) (runtime.Instruction, error) {
	data, err := program.EncodeStoreGroupKey(&program.StoreGroupKeyArgs{
		GroupID:      groupID,
		EncryptedKey: encryptedKey,
		Nonce:        nonce,
	})
	if err != nil {
		return runtime.Instruction{}, err
	}
	group, _, err := program.GroupAddress(groupID)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive group: %w", err)
	}
	share, _, err := program.GroupKeyShareAddress(groupID, signer)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive key share: %w", err)
	}
	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.Meta(group),
			runtime.WritableMeta(share),
		},
		Data: data,
	}, nil
}

// CloseGroupKey builds the teardown of the signer's key share.
func CloseGroupKey(signer runtime.PublicKey, groupID [32]byte) (runtime.Instruction, error) {
	data, err := program.EncodeCloseGroupKey(&program.CloseGroupKeyArgs{GroupID: groupID})
	if err != nil {
		return runtime.Instruction{}, err
	}
	share, _, err := program.GroupKeyShareAddress(groupID, signer)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("derive key share: %w", err)
	}
	return runtime.Instruction{
		ProgramID: program.ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.SignerMeta(signer),
			runtime.WritableMeta(share),
		},
		Data: data,
	}, nil
}
