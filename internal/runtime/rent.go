package runtime

// Rent computes the minimum balance an account must hold to persist.
// The model is the flat rent-exempt scheme: a fixed per-byte price over the
// data length plus a constant metadata overhead.
type Rent struct {
	// LamportsPerByte is the price of one byte of account data.
	LamportsPerByte uint64

	// OverheadBytes is the metadata overhead charged to every account.
	OverheadBytes uint64
}

// DefaultRent returns the ledger's default rent schedule.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByte: 6960,
		OverheadBytes:   128,
	}
}

// MinimumBalance returns the rent-exempt minimum for an account with the
// given data length.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	return (r.OverheadBytes + uint64(dataLen)) * r.LamportsPerByte
}
