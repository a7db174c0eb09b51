package runtime

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/mukon-labs/mukon/pkg/logging"
)

// Handler executes one instruction for a registered program.
type Handler func(ctx *ExecContext) error

// Result summarizes a committed transaction.
type Result struct {
	Slot      uint64   `json:"slot"`
	Timestamp int64    `json:"timestamp"`
	Events    []Event  `json:"events"`
	Logs      []string `json:"logs"`
}

// Ledger is the replicated state machine: a key-addressed account store with
// per-transaction atomicity. Execution is serialized; parallelism across
// disjoint account sets is an optimization the interface deliberately does
// not expose.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[PublicKey]*Account
	programs map[PublicKey]Handler
	rent     Rent
	slot     uint64
	lastTime int64
	nowFn    func() int64
	log      *logging.Logger
}

// NewLedger creates an empty ledger with the default rent schedule.
func NewLedger() *Ledger {
	return &Ledger{
		accounts: make(map[PublicKey]*Account),
		programs: make(map[PublicKey]Handler),
		rent:     DefaultRent(),
		nowFn:    func() int64 { return time.Now().Unix() },
		log:      logging.GetDefault().Component("ledger"),
	}
}

// RegisterProgram installs the handler invoked for instructions targeting
// the given program id.
func (l *Ledger) RegisterProgram(id PublicKey, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.programs[id] = h
}

// SetClock overrides the wall-clock source. Tests use this to pin
// timestamps; the ledger still enforces monotonicity.
func (l *Ledger) SetClock(now func() int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nowFn = now
}

// Rent returns the ledger's rent schedule.
func (l *Ledger) Rent() Rent {
	return l.rent
}

// Slot returns the current slot height.
func (l *Ledger) Slot() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.slot
}

// Account returns a copy of the account at the given address, or nil if it
// does not exist.
func (l *Ledger) Account(pk PublicKey) *Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[pk]
	if !ok {
		return nil
	}
	return acct.Clone()
}

// SetAccount installs an account directly, bypassing transaction execution.
// Used for genesis funding, token-account fixtures, and snapshot restore.
func (l *Ledger) SetAccount(pk PublicKey, acct *Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct == nil || !acct.Exists() {
		delete(l.accounts, pk)
		return
	}
	l.accounts[pk] = acct.Clone()
}

// Fund credits lamports to an address, creating the account if needed.
func (l *Ledger) Fund(pk PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[pk]
	if !ok {
		acct = &Account{}
		l.accounts[pk] = acct
	}
	acct.Lamports += lamports
}

// Accounts returns a copy of every live account. Used for snapshots.
func (l *Ledger) Accounts() map[PublicKey]*Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[PublicKey]*Account, len(l.accounts))
	for pk, acct := range l.accounts {
		out[pk] = acct.Clone()
	}
	return out
}

// Execute runs a transaction to completion. All instruction effects commit
// together or not at all; a failed transaction leaves the ledger untouched.
func (l *Ledger) Execute(tx *Transaction) (*Result, error) {
	if err := tx.VerifySignatures(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.slot++
	ts := l.nowFn()
	if ts < l.lastTime {
		ts = l.lastTime
	}
	l.lastTime = ts

	// Copy-on-write view of every account the transaction touches.
	working := make(map[PublicKey]*Account)
	fetch := func(pk PublicKey) *Account {
		if acct, ok := working[pk]; ok {
			return acct
		}
		var acct *Account
		if live, ok := l.accounts[pk]; ok {
			acct = live.Clone()
		} else {
			acct = &Account{}
		}
		working[pk] = acct
		return acct
	}

	signed := make(map[PublicKey]bool, len(tx.Signers))
	for _, s := range tx.Signers {
		signed[s] = true
	}

	result := &Result{Slot: l.slot, Timestamp: ts}

	for i, ix := range tx.Instructions {
		handler, ok := l.programs[ix.ProgramID]
		if !ok {
			return nil, fmt.Errorf("%w: %s (instruction %d)", ErrUnknownProgram, ix.ProgramID, i)
		}

		infos := make([]*AccountInfo, len(ix.Accounts))
		readonlySnap := make(map[int][]byte)
		readonlyLamports := make(map[int]uint64)
		for j, meta := range ix.Accounts {
			acct := fetch(meta.Pubkey)
			infos[j] = &AccountInfo{
				Key:      meta.Pubkey,
				Signer:   meta.IsSigner && signed[meta.Pubkey],
				Writable: meta.IsWritable,
				Acct:     acct,
			}
			if !meta.IsWritable {
				readonlySnap[j] = append([]byte(nil), acct.Data...)
				readonlyLamports[j] = acct.Lamports
			}
		}

		ctx := &ExecContext{
			ProgramID:     ix.ProgramID,
			Accounts:      infos,
			Data:          ix.Data,
			Slot:          l.slot,
			UnixTimestamp: ts,
			rent:          l.rent,
		}

		if err := handler(ctx); err != nil {
			l.slot--
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}

		for j, snap := range readonlySnap {
			if !bytes.Equal(infos[j].Acct.Data, snap) || infos[j].Acct.Lamports != readonlyLamports[j] {
				l.slot--
				return nil, fmt.Errorf("%w: %s (instruction %d)", ErrReadonlyModified, infos[j].Key, i)
			}
		}

		result.Events = append(result.Events, ctx.events...)
		result.Logs = append(result.Logs, ctx.logs...)
	}

	// Commit.
	for pk, acct := range working {
		if !acct.Exists() {
			delete(l.accounts, pk)
			continue
		}
		l.accounts[pk] = acct
	}

	l.log.Debug("Transaction committed", "slot", result.Slot, "instructions", len(tx.Instructions), "events", len(result.Events))
	return result, nil
}
