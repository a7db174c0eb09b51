package runtime

import "errors"

// Ledger-level failures. Program-level failures are typed by the program
// itself; Execute wraps them with the failing instruction's index, so
// errors.Is and errors.As still reach the program's error.
var (
	ErrNoSigners             = errors.New("transaction has no signers")
	ErrSignatureVerification = errors.New("signature verification failed")
	ErrUnknownProgram        = errors.New("no program registered for id")
	ErrAccountInUse          = errors.New("account already in use")
	ErrAccountNotWritable    = errors.New("account is not writable")
	ErrReadonlyModified      = errors.New("instruction modified a read-only account")
	ErrInsufficientFunds     = errors.New("insufficient lamports")
	ErrAccountIndex          = errors.New("instruction account index out of range")
)
