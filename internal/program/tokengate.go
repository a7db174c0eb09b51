package program

import (
	"github.com/mukon-labs/mukon/internal/runtime"
	"github.com/mukon-labs/mukon/internal/token"
)

// Token-gate oracle: a read-only, point-in-time check of a supplied token
// account against a group's gate. No CPI; continued holding after join is
// not guaranteed.
func checkTokenGate(ctx *runtime.ExecContext, accountIdx int, signer runtime.PublicKey, gate *TokenGate) error {
	info, err := ctx.Account(accountIdx)
	if err != nil {
		ctx.Logf("token gate: no token account supplied")
		return ErrTokenGateFailed
	}

	if info.Acct.Owner != token.ProgramID {
		ctx.Logf("token gate: account %s owned by %s, not the token program", info.Key, info.Acct.Owner)
		return ErrTokenGateFailed
	}

	acct, err := token.UnpackAccount(info.Acct.Data)
	if err != nil {
		ctx.Logf("token gate: %v", err)
		return ErrTokenGateFailed
	}

	if acct.Owner != signer {
		ctx.Logf("token gate: token account owner %s is not the signer", acct.Owner)
		return ErrTokenGateFailed
	}
	if acct.Mint != gate.Mint {
		ctx.Logf("token gate: mint %s does not match gate mint %s", acct.Mint, gate.Mint)
		return ErrTokenGateFailed
	}
	if acct.Amount < gate.MinBalance {
		ctx.Logf("token gate: balance %d below threshold %d", acct.Amount, gate.MinBalance)
		return ErrTokenGateFailed
	}
	return nil
}
