package runtime

import "fmt"

// AccountInfo is an instruction's view of one account: the declared flags
// plus a working copy of the account state. Mutations become visible on the
// ledger only when the whole transaction commits.
type AccountInfo struct {
	Key      PublicKey
	Signer   bool
	Writable bool
	Acct     *Account
}

// ExecContext is the execution environment handed to a program for a single
// instruction. It carries the instruction input, the clock, and the rent
// schedule, and collects emitted events and log lines.
type ExecContext struct {
	ProgramID     PublicKey
	Accounts      []*AccountInfo
	Data          []byte
	Slot          uint64
	UnixTimestamp int64

	rent   Rent
	events []Event
	logs   []string
}

// Account returns the account at the given instruction index.
func (ctx *ExecContext) Account(i int) (*AccountInfo, error) {
	if i < 0 || i >= len(ctx.Accounts) {
		return nil, fmt.Errorf("%w: %d of %d", ErrAccountIndex, i, len(ctx.Accounts))
	}
	return ctx.Accounts[i], nil
}

// MinimumBalance returns the rent-exempt minimum for the given data length.
func (ctx *ExecContext) MinimumBalance(dataLen int) uint64 {
	return ctx.rent.MinimumBalance(dataLen)
}

// CreateAccount allocates a new program-owned account at target, funded to
// the rent-exempt minimum from payer. The target must be empty and both
// accounts must be writable; the payer must have signed.
func (ctx *ExecContext) CreateAccount(target, payer *AccountInfo, space int) error {
	if !target.Writable || !payer.Writable {
		return ErrAccountNotWritable
	}
	if !payer.Signer {
		return fmt.Errorf("payer %s must sign account creation", payer.Key)
	}
	if target.Acct.Exists() {
		return fmt.Errorf("%w: %s", ErrAccountInUse, target.Key)
	}

	min := ctx.rent.MinimumBalance(space)
	if payer.Acct.Lamports < min {
		return fmt.Errorf("%w: payer %s has %d, needs %d", ErrInsufficientFunds, payer.Key, payer.Acct.Lamports, min)
	}

	payer.Acct.Lamports -= min
	target.Acct.Lamports = min
	target.Acct.Owner = ctx.ProgramID
	target.Acct.Data = make([]byte, space)
	return nil
}

// Realloc resizes a program-owned account to exactly newLen bytes. Grown
// bytes are zero-filled. The rent delta settles against payer: growth debits
// it, shrinkage refunds it.
func (ctx *ExecContext) Realloc(target, payer *AccountInfo, newLen int) error {
	if !target.Writable || !payer.Writable {
		return ErrAccountNotWritable
	}
	if target.Acct.Owner != ctx.ProgramID {
		return fmt.Errorf("cannot realloc %s: not owned by program", target.Key)
	}

	oldMin := ctx.rent.MinimumBalance(len(target.Acct.Data))
	newMin := ctx.rent.MinimumBalance(newLen)

	if newMin > oldMin {
		delta := newMin - oldMin
		if payer.Acct.Lamports < delta {
			return fmt.Errorf("%w: payer %s has %d, needs %d for realloc", ErrInsufficientFunds, payer.Key, payer.Acct.Lamports, delta)
		}
		payer.Acct.Lamports -= delta
		target.Acct.Lamports += delta
	} else if newMin < oldMin {
		delta := oldMin - newMin
		if target.Acct.Lamports < delta {
			delta = target.Acct.Lamports
		}
		target.Acct.Lamports -= delta
		payer.Acct.Lamports += delta
	}

	data := make([]byte, newLen)
	copy(data, target.Acct.Data)
	target.Acct.Data = data
	return nil
}

// CloseAccount drains the target into beneficiary and clears it. The ledger
// drops zero-lamport accounts when the transaction commits.
func (ctx *ExecContext) CloseAccount(target, beneficiary *AccountInfo) error {
	if !target.Writable || !beneficiary.Writable {
		return ErrAccountNotWritable
	}
	if target.Acct.Owner != ctx.ProgramID {
		return fmt.Errorf("cannot close %s: not owned by program", target.Key)
	}

	beneficiary.Acct.Lamports += target.Acct.Lamports
	target.Acct.Lamports = 0
	target.Acct.Data = nil
	target.Acct.Owner = ZeroKey
	return nil
}

// Emit records a structured event for external indexers.
func (ctx *ExecContext) Emit(ev Event) {
	ctx.events = append(ctx.events, ev)
}

// Logf records a free-form program log line.
func (ctx *ExecContext) Logf(format string, args ...interface{}) {
	ctx.logs = append(ctx.logs, fmt.Sprintf(format, args...))
}
