package runtime

// Account is the on-ledger state addressed by a public key.
type Account struct {
	// Lamports is the account balance in the smallest native unit.
	Lamports uint64

	// Owner is the program that may mutate the account's data.
	Owner PublicKey

	// Data is the account's opaque payload.
	Data []byte
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := &Account{
		Lamports: a.Lamports,
		Owner:    a.Owner,
	}
	if a.Data != nil {
		c.Data = make([]byte, len(a.Data))
		copy(c.Data, a.Data)
	}
	return c
}

// Exists reports whether the account holds any lamports or data.
// Accounts that never existed and accounts that were closed look identical.
func (a *Account) Exists() bool {
	return a.Lamports > 0 || len(a.Data) > 0
}

// AccountMeta declares how an instruction uses an account.
type AccountMeta struct {
	Pubkey     PublicKey `json:"pubkey"`
	IsSigner   bool      `json:"is_signer"`
	IsWritable bool      `json:"is_writable"`
}

// Meta builds a read-only, non-signer account meta.
func Meta(pk PublicKey) AccountMeta {
	return AccountMeta{Pubkey: pk}
}

// WritableMeta builds a writable, non-signer account meta.
func WritableMeta(pk PublicKey) AccountMeta {
	return AccountMeta{Pubkey: pk, IsWritable: true}
}

// SignerMeta builds a writable signer account meta.
func SignerMeta(pk PublicKey) AccountMeta {
	return AccountMeta{Pubkey: pk, IsSigner: true, IsWritable: true}
}

// ReadonlySignerMeta builds a read-only signer account meta.
func ReadonlySignerMeta(pk PublicKey) AccountMeta {
	return AccountMeta{Pubkey: pk, IsSigner: true}
}
