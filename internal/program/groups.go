package program

import (
	"unicode/utf8"

	"github.com/mukon-labs/mukon/internal/runtime"
)

// Group registry: creation, metadata updates, the invite lifecycle, and
// member churn with exact-size realloc on every add/remove.
//
// Account order:
//   CreateGroup:       0 signer (w, payer)  1 group (w)
//   UpdateGroup:       0 signer             1 group (w)
//   InviteToGroup:     0 signer (w, payer)  1 invitee  2 group  3 invite (w)
//   AcceptGroupInvite: 0 signer (w, payer)  1 group (w)  2 invite (w)
//                      3 token account (only when the group is gated)
//   RejectGroupInvite: 0 signer             1 invite (w)
//   LeaveGroup:        0 signer (w)         1 group (w)
//   KickMember:        0 signer (w)         1 member  2 group (w)
//   CloseGroup:        0 signer (w)         1 group (w)

func validGroupName(name string) error {
	if len(name) > MaxGroupNameLen {
		return ErrInputTooLong
	}
	if !utf8.ValidString(name) {
		return ErrInputMalformed
	}
	return nil
}

// loadGroup verifies the account is the group PDA for groupID and decodes it.
func loadGroup(ctx *runtime.ExecContext, info *runtime.AccountInfo, groupID [32]byte) (*Group, error) {
	addr, _, derr := GroupAddress(groupID)
	if err := expectAddress(info.Key, addr, derr); err != nil {
		return nil, err
	}
	if !info.Acct.Exists() || info.Acct.Owner != ctx.ProgramID {
		return nil, ErrAccountOwnerMismatch
	}
	g, err := DecodeGroup(info.Acct.Data)
	if err != nil {
		return nil, err
	}
	if g.GroupID != groupID {
		return nil, ErrUnexpectedAccount
	}
	return g, nil
}

// loadInvite verifies the account is the invite PDA for (groupID, invitee)
// and decodes it. A non-existent account yields nil.
func loadInvite(ctx *runtime.ExecContext, info *runtime.AccountInfo, groupID [32]byte, invitee runtime.PublicKey) (*GroupInvite, error) {
	addr, _, derr := GroupInviteAddress(groupID, invitee)
	if err := expectAddress(info.Key, addr, derr); err != nil {
		return nil, err
	}
	if !info.Acct.Exists() {
		return nil, nil
	}
	if info.Acct.Owner != ctx.ProgramID {
		return nil, ErrAccountOwnerMismatch
	}
	return DecodeGroupInvite(info.Acct.Data)
}

func processCreateGroup(ctx *runtime.ExecContext) error {
	var args CreateGroupArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}
	if err := validGroupName(args.Name); err != nil {
		return err
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	groupInfo, err := requireAccount(ctx, 1)
	if err != nil {
		return err
	}
	addr, _, derr := GroupAddress(args.GroupID)
	if err := expectAddress(groupInfo.Key, addr, derr); err != nil {
		return err
	}
	if groupInfo.Acct.Exists() {
		return ErrAlreadyRegistered
	}

	group := &Group{
		GroupID:   args.GroupID,
		Creator:   signer.Key,
		Name:      args.Name,
		Members:   []runtime.PublicKey{signer.Key},
		TokenGate: args.TokenGate,
		CreatedAt: ctx.UnixTimestamp,
	}
	data, err := group.Marshal()
	if err != nil {
		return ErrInputMalformed
	}
	if err := ctx.CreateAccount(groupInfo, signer, len(data)); err != nil {
		return err
	}
	copy(groupInfo.Acct.Data, data)

	emitGroup(ctx, EventGroupCreated, args.GroupID, signer.Key)
	return nil
}

func processUpdateGroup(ctx *runtime.ExecContext) error {
	var args UpdateGroupArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	groupInfo, err := requireOwned(ctx, 1)
	if err != nil {
		return err
	}
	group, err := DecodeGroup(groupInfo.Acct.Data)
	if err != nil {
		return err
	}
	if group.Creator != signer.Key {
		return ErrNotAdmin
	}

	if args.Name != nil {
		if err := validGroupName(*args.Name); err != nil {
			return err
		}
		group.Name = *args.Name
	}
	if args.TokenGate != nil {
		if args.TokenGate.Mint.IsZero() {
			group.TokenGate = nil
		} else {
			gate := *args.TokenGate
			group.TokenGate = &gate
		}
	}

	data, err := group.Marshal()
	if err != nil {
		return ErrInputMalformed
	}
	if err := writeAccount(ctx, groupInfo, signer, data); err != nil {
		return err
	}

	emitGroup(ctx, EventGroupUpdated, group.GroupID, signer.Key)
	return nil
}

func processInviteToGroup(ctx *runtime.ExecContext) error {
	var args InviteToGroupArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	inviteeInfo, err := requireAccount(ctx, 1)
	if err != nil {
		return err
	}
	invitee := inviteeInfo.Key
	groupInfo, err := requireAccount(ctx, 2)
	if err != nil {
		return err
	}
	inviteInfo, err := requireAccount(ctx, 3)
	if err != nil {
		return err
	}

	group, err := loadGroup(ctx, groupInfo, args.GroupID)
	if err != nil {
		return err
	}

	if inviteRequiresAdmin {
		if group.Creator != signer.Key {
			return ErrNotAdmin
		}
	} else if !group.IsMember(signer.Key) {
		return ErrNotMember
	}
	if group.IsMember(invitee) {
		return ErrAlreadyMember
	}

	invite, err := loadInvite(ctx, inviteInfo, args.GroupID, invitee)
	if err != nil {
		return err
	}

	if invite != nil {
		if invite.Status != InviteRejected {
			return ErrAlreadyInvited
		}
		// Re-invite after rejection reuses the record.
		invite.Inviter = signer.Key
		invite.Status = InvitePending
		invite.CreatedAt = ctx.UnixTimestamp
		data, err := invite.Marshal()
		if err != nil {
			return ErrInputMalformed
		}
		if err := writeAccount(ctx, inviteInfo, signer, data); err != nil {
			return err
		}
	} else {
		invite = &GroupInvite{
			GroupID:   args.GroupID,
			Inviter:   signer.Key,
			Invitee:   invitee,
			Status:    InvitePending,
			CreatedAt: ctx.UnixTimestamp,
		}
		data, err := invite.Marshal()
		if err != nil {
			return ErrInputMalformed
		}
		if err := ctx.CreateAccount(inviteInfo, signer, len(data)); err != nil {
			return err
		}
		copy(inviteInfo.Acct.Data, data)
	}

	emitGroup(ctx, EventGroupInvited, args.GroupID, signer.Key, invitee)
	return nil
}

func processAcceptGroupInvite(ctx *runtime.ExecContext) error {
	var args AcceptGroupInviteArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	groupInfo, err := requireAccount(ctx, 1)
	if err != nil {
		return err
	}
	inviteInfo, err := requireAccount(ctx, 2)
	if err != nil {
		return err
	}

	group, err := loadGroup(ctx, groupInfo, args.GroupID)
	if err != nil {
		return err
	}
	invite, err := loadInvite(ctx, inviteInfo, args.GroupID, signer.Key)
	if err != nil {
		return err
	}
	if invite == nil {
		return ErrInviteNotFound
	}
	if invite.Invitee != signer.Key {
		return ErrUnexpectedAccount
	}
	if invite.Status != InvitePending {
		return ErrInviteNotPending
	}
	if group.IsMember(signer.Key) {
		return ErrAlreadyMember
	}
	if len(group.Members)+1 > MaxGroupMembers {
		return ErrMemberLimitExceeded
	}

	if group.TokenGate != nil {
		if err := checkTokenGate(ctx, 3, signer.Key, group.TokenGate); err != nil {
			return err
		}
	}

	group.Members = append(group.Members, signer.Key)
	data, err := group.Marshal()
	if err != nil {
		return ErrInputMalformed
	}
	if err := writeAccount(ctx, groupInfo, signer, data); err != nil {
		return err
	}

	invite.Status = InviteAccepted
	inviteData, err := invite.Marshal()
	if err != nil {
		return ErrInputMalformed
	}
	if err := writeAccount(ctx, inviteInfo, signer, inviteData); err != nil {
		return err
	}

	emitGroup(ctx, EventMemberJoined, args.GroupID, signer.Key)
	return nil
}

func processRejectGroupInvite(ctx *runtime.ExecContext) error {
	var args RejectGroupInviteArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	inviteInfo, err := requireAccount(ctx, 1)
	if err != nil {
		return err
	}
	invite, err := loadInvite(ctx, inviteInfo, args.GroupID, signer.Key)
	if err != nil {
		return err
	}
	if invite == nil {
		return ErrInviteNotFound
	}
	if invite.Invitee != signer.Key {
		return ErrUnexpectedAccount
	}
	if invite.Status != InvitePending {
		return ErrInviteNotPending
	}

	invite.Status = InviteRejected
	data, err := invite.Marshal()
	if err != nil {
		return ErrInputMalformed
	}
	if err := writeAccount(ctx, inviteInfo, signer, data); err != nil {
		return err
	}

	emitGroup(ctx, EventInviteRejected, args.GroupID, signer.Key)
	return nil
}

// removeMember drops the wallet from the member list and rewrites the group
// at its exact new size, refunding the rent delta to payer.
func removeMember(ctx *runtime.ExecContext, groupInfo, payer *runtime.AccountInfo, group *Group, wallet runtime.PublicKey) error {
	i := group.MemberIndex(wallet)
	if i < 0 {
		return ErrNotMember
	}
	group.Members = append(group.Members[:i], group.Members[i+1:]...)
	data, err := group.Marshal()
	if err != nil {
		return ErrInputMalformed
	}
	return writeAccount(ctx, groupInfo, payer, data)
}

func processLeaveGroup(ctx *runtime.ExecContext) error {
	var args LeaveGroupArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	groupInfo, err := requireAccount(ctx, 1)
	if err != nil {
		return err
	}
	group, err := loadGroup(ctx, groupInfo, args.GroupID)
	if err != nil {
		return err
	}

	if group.Creator == signer.Key {
		return ErrCreatorCannotLeave
	}
	if err := removeMember(ctx, groupInfo, signer, group, signer.Key); err != nil {
		return err
	}

	emitGroup(ctx, EventMemberLeft, args.GroupID, signer.Key)
	return nil
}

func processKickMember(ctx *runtime.ExecContext) error {
	var args KickMemberArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	memberInfo, err := requireAccount(ctx, 1)
	if err != nil {
		return err
	}
	member := memberInfo.Key
	if [32]byte(member) != args.Member {
		return ErrUnexpectedAccount
	}
	groupInfo, err := requireAccount(ctx, 2)
	if err != nil {
		return err
	}
	group, err := loadGroup(ctx, groupInfo, args.GroupID)
	if err != nil {
		return err
	}

	if group.Creator != signer.Key {
		return ErrNotAdmin
	}
	if member == group.Creator {
		return ErrCreatorCannotLeave
	}
	if err := removeMember(ctx, groupInfo, signer, group, member); err != nil {
		return err
	}

	// Key rotation after a kick happens off-chain: remaining members
	// regenerate and redistribute the symmetric key.
	emitGroup(ctx, EventMemberKicked, args.GroupID, signer.Key, member)
	return nil
}

func processCloseGroup(ctx *runtime.ExecContext) error {
	var args CloseGroupArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	groupInfo, err := requireAccount(ctx, 1)
	if err != nil {
		return err
	}
	group, err := loadGroup(ctx, groupInfo, args.GroupID)
	if err != nil {
		return err
	}
	if group.Creator != signer.Key {
		return ErrNotAdmin
	}

	// Invites and key shares stay behind; their holders reclaim rent
	// individually.
	if err := ctx.CloseAccount(groupInfo, signer); err != nil {
		return err
	}

	emitGroup(ctx, EventGroupClosed, args.GroupID, signer.Key)
	return nil
}
