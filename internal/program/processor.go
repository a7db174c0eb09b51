package program

import (
	"bytes"

	"github.com/mukon-labs/mukon/internal/runtime"
)

// Process is the program entry point: it dispatches on the 8-byte
// instruction discriminator. Register it with the ledger under ProgramID.
func Process(ctx *runtime.ExecContext) error {
	if len(ctx.Data) < DiscriminatorLen {
		return ErrInputMalformed
	}
	disc := ctx.Data[:DiscriminatorLen]

	switch {
	case bytes.Equal(disc, ixRegister[:]):
		return processRegister(ctx)
	case bytes.Equal(disc, ixUpdateProfile[:]):
		return processUpdateProfile(ctx)
	case bytes.Equal(disc, ixCloseProfile[:]):
		return processCloseProfile(ctx)
	case bytes.Equal(disc, ixInvite[:]):
		return processInvite(ctx)
	case bytes.Equal(disc, ixAccept[:]):
		return processAccept(ctx)
	case bytes.Equal(disc, ixReject[:]):
		return processReject(ctx)
	case bytes.Equal(disc, ixBlock[:]):
		return processBlock(ctx)
	case bytes.Equal(disc, ixUnblock[:]):
		return processUnblock(ctx)
	case bytes.Equal(disc, ixCreateGroup[:]):
		return processCreateGroup(ctx)
	case bytes.Equal(disc, ixUpdateGroup[:]):
		return processUpdateGroup(ctx)
	case bytes.Equal(disc, ixInviteToGroup[:]):
		return processInviteToGroup(ctx)
	case bytes.Equal(disc, ixAcceptGroupInvite[:]):
		return processAcceptGroupInvite(ctx)
	case bytes.Equal(disc, ixRejectGroupInvite[:]):
		return processRejectGroupInvite(ctx)
	case bytes.Equal(disc, ixLeaveGroup[:]):
		return processLeaveGroup(ctx)
	case bytes.Equal(disc, ixKickMember[:]):
		return processKickMember(ctx)
	case bytes.Equal(disc, ixCloseGroup[:]):
		return processCloseGroup(ctx)
	case bytes.Equal(disc, ixStoreGroupKey[:]):
		return processStoreGroupKey(ctx)
	case bytes.Equal(disc, ixCloseGroupKey[:]):
		return processCloseGroupKey(ctx)
	}
	return ErrInputMalformed
}

// requireSigner returns the account at index i, failing unless it signed.
func requireSigner(ctx *runtime.ExecContext, i int) (*runtime.AccountInfo, error) {
	info, err := ctx.Account(i)
	if err != nil {
		return nil, ErrUnexpectedAccount
	}
	if !info.Signer {
		return nil, ErrMissingSigner
	}
	return info, nil
}

// requireAccount returns the account at index i.
func requireAccount(ctx *runtime.ExecContext, i int) (*runtime.AccountInfo, error) {
	info, err := ctx.Account(i)
	if err != nil {
		return nil, ErrUnexpectedAccount
	}
	return info, nil
}

// requireOwned returns the account at index i, failing unless it exists and
// is owned by this program.
func requireOwned(ctx *runtime.ExecContext, i int) (*runtime.AccountInfo, error) {
	info, err := requireAccount(ctx, i)
	if err != nil {
		return nil, err
	}
	if !info.Acct.Exists() || info.Acct.Owner != ctx.ProgramID {
		return nil, ErrAccountOwnerMismatch
	}
	return info, nil
}

// writeAccount serializes the body and rewrites the account to the exact new
// size, settling the rent delta against payer.
func writeAccount(ctx *runtime.ExecContext, info, payer *runtime.AccountInfo, data []byte) error {
	if len(data) != len(info.Acct.Data) {
		if err := ctx.Realloc(info, payer, len(data)); err != nil {
			return err
		}
	}
	copy(info.Acct.Data, data)
	return nil
}
