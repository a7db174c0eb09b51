package runtime

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
)

// pdaMarker is appended to the seed hash so program-derived addresses can
// never collide with hashes produced outside address derivation.
var pdaMarker = []byte("ProgramDerivedAddress")

// CreateProgramAddress derives the address for the given seeds and bump.
// It fails if the candidate lies on the ed25519 curve, since such an address
// would have a usable private key.
func CreateProgramAddress(seeds [][]byte, bump uint8, programID PublicKey) (PublicKey, error) {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(programID[:])
	h.Write(pdaMarker)

	var candidate PublicKey
	copy(candidate[:], h.Sum(nil))

	if isOnCurve(candidate) {
		return ZeroKey, fmt.Errorf("derived address for bump %d is on the ed25519 curve", bump)
	}
	return candidate, nil
}

// FindProgramAddress searches bumps downward from 255 for the first
// off-curve address. Derivation is deterministic: the same seeds and program
// always yield the same address and bump.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateProgramAddress(seeds, uint8(bump), programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
	}
	return ZeroKey, 0, fmt.Errorf("no viable bump for seeds")
}

// isOnCurve reports whether the candidate decodes as a valid edwards25519
// point, i.e. whether a private key could exist for it.
func isOnCurve(pk PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}
