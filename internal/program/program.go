// Package program implements the Mukon messaging-identity program: identity
// registration, the bidirectional peer graph, conversation markers, group
// membership with optional token gates, and the per-member group-key vault.
// All authority and state live in program-owned accounts; the program is the
// single source of truth for who may talk to whom.
package program

import (
	"crypto/sha256"

	"github.com/mukon-labs/mukon/internal/runtime"
)

// ProgramID is the messaging program's address. Derived from a fixed tag so
// every build agrees on it without a deployed keypair.
var ProgramID = deriveProgramID("mukon-messaging-program-v1")

func deriveProgramID(tag string) runtime.PublicKey {
	h := sha256.Sum256([]byte(tag))
	var pk runtime.PublicKey
	copy(pk[:], h[:])
	return pk
}

// Input bounds. Payload bytes are opaque; only lengths are enforced.
const (
	MaxDisplayNameLen = 64
	MaxAvatarLen      = 256
	MaxGroupNameLen   = 64
	MaxEncryptedKey   = 256
	MaxNonceLen       = 64
)

// Growth caps. Every list search is linear, so membership is bounded to keep
// a single instruction inside the compute budget.
const (
	MaxGroupMembers = 256
	MaxPeers        = 1024
)

// inviteRequiresAdmin selects the group-invite policy at compile time.
// false: any member may invite (the default); true: admin only.
const inviteRequiresAdmin = false

// AvatarKind tags how the avatar payload should be interpreted by clients.
type AvatarKind = uint8

const (
	AvatarEmoji    AvatarKind = 0
	AvatarExternal AvatarKind = 1
)

// PeerState is one wallet's view of a peer relationship.
type PeerState = uint8

const (
	PeerInvited   PeerState = 0
	PeerRequested PeerState = 1
	PeerAccepted  PeerState = 2
	PeerRejected  PeerState = 3
	PeerBlocked   PeerState = 4
)

// InviteStatus is the lifecycle state of a group invite.
type InviteStatus = uint8

const (
	InvitePending  InviteStatus = 0
	InviteAccepted InviteStatus = 1
	InviteRejected InviteStatus = 2
)
