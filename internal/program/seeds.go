package program

import (
	"crypto/sha256"

	"github.com/mukon-labs/mukon/internal/runtime"
)

// Every PDA seed ends with a version byte so a future layout can migrate to
// new addresses without colliding with v1 accounts. Handlers only ever
// derive version 1; anything else is refused at derivation time.
const SeedVersion = 1

var versionSeed = []byte{SeedVersion}

// Seed prefixes.
var (
	seedUserProfile      = []byte("user_profile")
	seedWalletDescriptor = []byte("wallet_descriptor")
	seedConversation     = []byte("conversation")
	seedGroup            = []byte("group")
	seedGroupInvite      = []byte("group_invite")
	seedGroupKeyShare    = []byte("group_key_share")
)

// ChatHash is the canonical identifier for the unordered wallet pair (a, b):
// SHA-256 over the sorted concatenation, so both directions agree.
func ChatHash(a, b runtime.PublicKey) [32]byte {
	lo, hi := runtime.SortPair(a, b)
	h := sha256.New()
	h.Write(lo[:])
	h.Write(hi[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// UserProfileAddress derives the profile PDA for a wallet.
func UserProfileAddress(owner runtime.PublicKey) (runtime.PublicKey, uint8, error) {
	return runtime.FindProgramAddress([][]byte{seedUserProfile, owner[:], versionSeed}, ProgramID)
}

// WalletDescriptorAddress derives the peer-list PDA for a wallet.
func WalletDescriptorAddress(owner runtime.PublicKey) (runtime.PublicKey, uint8, error) {
	return runtime.FindProgramAddress([][]byte{seedWalletDescriptor, owner[:], versionSeed}, ProgramID)
}

// ConversationAddress derives the conversation-marker PDA for a chat hash.
func ConversationAddress(chatHash [32]byte) (runtime.PublicKey, uint8, error) {
	return runtime.FindProgramAddress([][]byte{seedConversation, chatHash[:], versionSeed}, ProgramID)
}

// GroupAddress derives the group PDA for a group id.
func GroupAddress(groupID [32]byte) (runtime.PublicKey, uint8, error) {
	return runtime.FindProgramAddress([][]byte{seedGroup, groupID[:], versionSeed}, ProgramID)
}

// GroupInviteAddress derives the invite PDA for a (group, invitee) pair.
func GroupInviteAddress(groupID [32]byte, invitee runtime.PublicKey) (runtime.PublicKey, uint8, error) {
	return runtime.FindProgramAddress([][]byte{seedGroupInvite, groupID[:], invitee[:], versionSeed}, ProgramID)
}

// GroupKeyShareAddress derives the key-share PDA for a (group, recipient) pair.
func GroupKeyShareAddress(groupID [32]byte, recipient runtime.PublicKey) (runtime.PublicKey, uint8, error) {
	return runtime.FindProgramAddress([][]byte{seedGroupKeyShare, groupID[:], recipient[:], versionSeed}, ProgramID)
}

// expectAddress verifies that a supplied account sits at the PDA its seeds
// demand. Any mismatch means the client attached the wrong account.
func expectAddress(got runtime.PublicKey, want runtime.PublicKey, err error) error {
	if err != nil {
		return ErrUnexpectedAccount
	}
	if got != want {
		return ErrUnexpectedAccount
	}
	return nil
}
