package client

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/mukon-labs/mukon/internal/program"
)

// Key vault client: seals a group's symmetric key to a recipient's
// long-lived encryption public key using NaCl box with an ephemeral sender
// key. The program stores the output as opaque bytes; only the recipient
// can open it.

// SealedKey is the ciphertext pair StoreGroupKey persists. The ephemeral
// public key is prepended to the ciphertext so the recipient can open the
// box with only their own secret.
type SealedKey struct {
	EncryptedKey []byte
	Nonce        []byte
}

// SealGroupKey encrypts groupKey to the recipient's X25519 encryption
// public key (the 32 bytes stored in their UserProfile).
func SealGroupKey(groupKey []byte, recipientEncKey [32]byte) (*SealedKey, error) {
	if len(groupKey) == 0 {
		return nil, fmt.Errorf("empty group key")
	}

	ephemeralPub, ephemeralPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := box.Seal(nil, groupKey, &nonce, &recipientEncKey, ephemeralPriv)

	// ephemeral pub || ciphertext, bounded by the program's payload cap.
	payload := make([]byte, 0, 32+len(sealed))
	payload = append(payload, ephemeralPub[:]...)
	payload = append(payload, sealed...)
	if len(payload) > program.MaxEncryptedKey {
		return nil, fmt.Errorf("sealed key too large: %d bytes", len(payload))
	}

	return &SealedKey{EncryptedKey: payload, Nonce: nonce[:]}, nil
}

// OpenGroupKey decrypts a stored key share with the recipient's X25519
// private key.
func OpenGroupKey(sealed *SealedKey, recipientPriv [32]byte) ([]byte, error) {
	if len(sealed.EncryptedKey) <= 32 {
		return nil, fmt.Errorf("sealed payload too short")
	}
	if len(sealed.Nonce) != 24 {
		return nil, fmt.Errorf("invalid nonce length: %d", len(sealed.Nonce))
	}

	var ephemeralPub [32]byte
	copy(ephemeralPub[:], sealed.EncryptedKey[:32])
	var nonce [24]byte
	copy(nonce[:], sealed.Nonce)

	plaintext, ok := box.Open(nil, sealed.EncryptedKey[32:], &nonce, &ephemeralPub, &recipientPriv)
	if !ok {
		return nil, fmt.Errorf("decryption failed")
	}
	return plaintext, nil
}

// EncryptionKeyFromWallet derives the X25519 key pair a wallet publishes in
// its profile. The private scalar is the clamped SHA-512 of the ed25519
// seed; the public key is the Montgomery form of the ed25519 point.
func EncryptionKeyFromWallet(priv ed25519.PrivateKey) (pub [32]byte, secret [32]byte, err error) {
	if len(priv) != ed25519.PrivateKeySize {
		return pub, secret, fmt.Errorf("invalid private key length: %d", len(priv))
	}

	h := sha512.Sum512(priv.Seed())
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	copy(secret[:], h[:32])

	edPub := priv.Public().(ed25519.PublicKey)
	point, err := new(edwards25519.Point).SetBytes(edPub)
	if err != nil {
		return pub, secret, fmt.Errorf("invalid ed25519 public key: %w", err)
	}
	copy(pub[:], point.BytesMontgomery())
	return pub, secret, nil
}
