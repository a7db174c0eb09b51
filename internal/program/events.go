package program

import "github.com/mukon-labs/mukon/internal/runtime"

// Event kinds, one per observable state transition. External indexers
// reconstruct any user's view from this stream without scanning accounts.
const (
	EventRegistered     = "registered"
	EventProfileUpdated = "profile_updated"
	EventProfileClosed  = "profile_closed"

	EventPeerInvited   = "peer_invited"
	EventPeerAccepted  = "peer_accepted"
	EventPeerRejected  = "peer_rejected"
	EventPeerBlocked   = "peer_blocked"
	EventPeerUnblocked = "peer_unblocked"

	EventGroupCreated   = "group_created"
	EventGroupUpdated   = "group_updated"
	EventGroupClosed    = "group_closed"
	EventGroupInvited   = "group_invited"
	EventInviteRejected = "group_invite_rejected"
	EventMemberJoined   = "member_joined"
	EventMemberLeft     = "member_left"
	EventMemberKicked   = "member_kicked"

	EventKeyStored = "key_stored"
	EventKeyClosed = "key_closed"
)

func emitWallets(ctx *runtime.ExecContext, kind string, wallets ...runtime.PublicKey) {
	ctx.Emit(runtime.Event{Kind: kind, Wallets: wallets})
}

func emitGroup(ctx *runtime.ExecContext, kind string, groupID [32]byte, wallets ...runtime.PublicKey) {
	gid := groupID
	ctx.Emit(runtime.Event{Kind: kind, Wallets: wallets, GroupID: &gid})
}
