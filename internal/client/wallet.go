package client

import (
	"crypto/ed25519"
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"github.com/mukon-labs/mukon/internal/runtime"
)

// Wallet is an ed25519 signing identity. Addresses are the base58 form of
// the public key.
type Wallet struct {
	priv ed25519.PrivateKey
	pub  runtime.PublicKey
}

// NewWallet derives a wallet from a BIP-39 mnemonic and passphrase. The
// ed25519 seed is the first 32 bytes of the BIP-39 seed.
func NewWallet(mnemonic, passphrase string) (*Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	return walletFromSeed(seed[:ed25519.SeedSize])
}

// GenerateWallet creates a fresh wallet and returns it with its mnemonic.
func GenerateWallet() (*Wallet, string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", fmt.Errorf("generate mnemonic: %w", err)
	}
	w, err := NewWallet(mnemonic, "")
	if err != nil {
		return nil, "", err
	}
	return w, mnemonic, nil
}

func walletFromSeed(seed []byte) (*Wallet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed length: %d", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub, err := runtime.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: pub}, nil
}

// PublicKey returns the wallet's public key.
func (w *Wallet) PublicKey() runtime.PublicKey {
	return w.pub
}

// Address returns the base58 text form of the public key.
func (w *Wallet) Address() string {
	return w.pub.String()
}

// PrivateKey returns the underlying ed25519 private key.
func (w *Wallet) PrivateKey() ed25519.PrivateKey {
	return w.priv
}

// SignTransaction appends this wallet's signature to the transaction.
func (w *Wallet) SignTransaction(tx *runtime.Transaction) error {
	return tx.Sign(w.priv)
}
