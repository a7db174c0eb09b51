package program

import (
	"github.com/mukon-labs/mukon/internal/runtime"
	"github.com/mukon-labs/mukon/pkg/helpers"
)

// Group-key vault: per-(group, recipient) encrypted backups of a group's
// symmetric key. The program never interprets the payload; the recipient
// pays and recovers their own rent so the admin's per-invite cost stays
// bounded.
//
// Account order:
//   StoreGroupKey: 0 signer (w, payer)  1 group  2 key share (w)
//   CloseGroupKey: 0 signer (w)         1 key share (w)

func processStoreGroupKey(ctx *runtime.ExecContext) error {
	var args StoreGroupKeyArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}
	if len(args.EncryptedKey) > MaxEncryptedKey || len(args.Nonce) > MaxNonceLen {
		return ErrInputTooLong
	}
	if len(args.EncryptedKey) == 0 {
		return ErrInputMalformed
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	groupInfo, err := requireAccount(ctx, 1)
	if err != nil {
		return err
	}
	shareInfo, err := requireAccount(ctx, 2)
	if err != nil {
		return err
	}

	group, err := loadGroup(ctx, groupInfo, args.GroupID)
	if err != nil {
		return err
	}
	if !group.IsMember(signer.Key) {
		return ErrNotMember
	}

	addr, _, derr := GroupKeyShareAddress(args.GroupID, signer.Key)
	if err := expectAddress(shareInfo.Key, addr, derr); err != nil {
		return err
	}

	share := &GroupKeyShare{
		GroupID:      args.GroupID,
		Recipient:    signer.Key,
		EncryptedKey: args.EncryptedKey,
		Nonce:        args.Nonce,
		CreatedAt:    ctx.UnixTimestamp,
	}
	data, err := share.Marshal()
	if err != nil {
		return ErrInputMalformed
	}

	if shareInfo.Acct.Exists() {
		if shareInfo.Acct.Owner != ctx.ProgramID {
			return ErrAccountOwnerMismatch
		}
		existing, err := DecodeGroupKeyShare(shareInfo.Acct.Data)
		if err != nil {
			return err
		}
		// Idempotent only for a byte-identical payload; any other
		// rewrite requires an explicit close first.
		if helpers.BytesEqual(existing.EncryptedKey, args.EncryptedKey) && helpers.BytesEqual(existing.Nonce, args.Nonce) {
			return nil
		}
		return ErrInvalidStateTransition
	}

	if err := ctx.CreateAccount(shareInfo, signer, len(data)); err != nil {
		return err
	}
	copy(shareInfo.Acct.Data, data)

	emitGroup(ctx, EventKeyStored, args.GroupID, signer.Key)
	return nil
}

func processCloseGroupKey(ctx *runtime.ExecContext) error {
	var args CloseGroupKeyArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	shareInfo, err := requireOwned(ctx, 1)
	if err != nil {
		return err
	}

	addr, _, derr := GroupKeyShareAddress(args.GroupID, signer.Key)
	if err := expectAddress(shareInfo.Key, addr, derr); err != nil {
		return err
	}
	share, err := DecodeGroupKeyShare(shareInfo.Acct.Data)
	if err != nil {
		return err
	}
	if share.Recipient != signer.Key {
		return ErrAccountOwnerMismatch
	}

	if err := ctx.CloseAccount(shareInfo, signer); err != nil {
		return err
	}

	emitGroup(ctx, EventKeyClosed, args.GroupID, signer.Key)
	return nil
}
