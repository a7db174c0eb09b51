package runtime

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Instruction is one program invocation: the target program, the full set of
// accounts it may touch with signer/writable flags, and opaque input data.
type Instruction struct {
	ProgramID PublicKey     `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}

// Signature is an ed25519 signature over the transaction message hash.
type Signature [64]byte

// Transaction is an ordered list of instructions authorized by one or more
// wallet signatures. Execution is atomic: either every instruction commits
// or none do.
type Transaction struct {
	Instructions []Instruction
	Signers      []PublicKey
	Signatures   []Signature
}

// MessageHash returns the canonical digest the signers sign. The encoding is
// length-delimited so no two distinct messages share a digest.
func (tx *Transaction) MessageHash() [32]byte {
	h := sha256.New()
	var n [4]byte

	binary.LittleEndian.PutUint32(n[:], uint32(len(tx.Instructions)))
	h.Write(n[:])

	for _, ix := range tx.Instructions {
		h.Write(ix.ProgramID[:])

		binary.LittleEndian.PutUint32(n[:], uint32(len(ix.Accounts)))
		h.Write(n[:])
		for _, meta := range ix.Accounts {
			h.Write(meta.Pubkey[:])
			h.Write([]byte{boolByte(meta.IsSigner), boolByte(meta.IsWritable)})
		}

		binary.LittleEndian.PutUint32(n[:], uint32(len(ix.Data)))
		h.Write(n[:])
		h.Write(ix.Data)
	}

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// Sign appends a signature from the given ed25519 private key.
func (tx *Transaction) Sign(priv ed25519.PrivateKey) error {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("private key has no ed25519 public key")
	}
	signer, err := PublicKeyFromBytes(pub)
	if err != nil {
		return err
	}

	digest := tx.MessageHash()
	var sig Signature
	copy(sig[:], ed25519.Sign(priv, digest[:]))

	tx.Signers = append(tx.Signers, signer)
	tx.Signatures = append(tx.Signatures, sig)
	return nil
}

// VerifySignatures checks every attached signature against the message hash
// and confirms that every account flagged as a signer actually signed.
func (tx *Transaction) VerifySignatures() error {
	if len(tx.Signers) == 0 {
		return ErrNoSigners
	}
	if len(tx.Signers) != len(tx.Signatures) {
		return fmt.Errorf("%w: %d signers, %d signatures", ErrSignatureVerification, len(tx.Signers), len(tx.Signatures))
	}

	digest := tx.MessageHash()
	signed := make(map[PublicKey]bool, len(tx.Signers))
	for i, signer := range tx.Signers {
		if !ed25519.Verify(ed25519.PublicKey(signer[:]), digest[:], tx.Signatures[i][:]) {
			return fmt.Errorf("%w: signature %d from %s", ErrSignatureVerification, i, signer)
		}
		signed[signer] = true
	}

	for _, ix := range tx.Instructions {
		for _, meta := range ix.Accounts {
			if meta.IsSigner && !signed[meta.Pubkey] {
				return fmt.Errorf("%w: account %s flagged signer but did not sign", ErrSignatureVerification, meta.Pubkey)
			}
		}
	}
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
