package program

import (
	"github.com/mukon-labs/mukon/internal/runtime"
)

// Peer graph: the DM invitation state machine. Every instruction takes both
// endpoints' descriptors and updates them together so the pair-state stays
// consistent; symmetry is enforced at the transition, not in the data model.
// Unblock rewrites only the signer's descriptor, and Reject leaves an absent
// peer descriptor uncreated.
//
// Account order:
//   Invite:  0 signer (w, payer)  1 peer  2 signer profile  3 signer descriptor (w)
//            4 peer descriptor (w)  5 conversation (w)
//   Accept / Reject / Unblock:
//            0 signer  1 peer  2 signer descriptor (w)  3 peer descriptor (w)
//   Block:   0 signer (w, payer)  1 peer  2 signer descriptor (w)  3 peer descriptor (w)

// loadDescriptor verifies the account sits at the descriptor PDA for owner
// and decodes it. A non-existent account yields nil.
func loadDescriptor(ctx *runtime.ExecContext, info *runtime.AccountInfo, owner runtime.PublicKey) (*WalletDescriptor, error) {
	addr, _, derr := WalletDescriptorAddress(owner)
	if err := expectAddress(info.Key, addr, derr); err != nil {
		return nil, err
	}
	if !info.Acct.Exists() {
		return nil, nil
	}
	if info.Acct.Owner != ctx.ProgramID {
		return nil, ErrAccountOwnerMismatch
	}
	d, err := DecodeWalletDescriptor(info.Acct.Data)
	if err != nil {
		return nil, err
	}
	if d.Owner != owner {
		return nil, ErrUnexpectedAccount
	}
	return d, nil
}

// storeDescriptor writes the descriptor back, creating the account if this
// is the owner's first entry.
func storeDescriptor(ctx *runtime.ExecContext, info, payer *runtime.AccountInfo, d *WalletDescriptor) error {
	if len(d.Peers) > MaxPeers {
		return ErrInputTooLong
	}
	data, err := d.Marshal()
	if err != nil {
		return ErrInputMalformed
	}
	if !info.Acct.Exists() {
		if err := ctx.CreateAccount(info, payer, len(data)); err != nil {
			return err
		}
		copy(info.Acct.Data, data)
		return nil
	}
	return writeAccount(ctx, info, payer, data)
}

// setPeerState updates the entry for peer in place, appending if absent.
// Duplicate entries never occur: the linear search hits first or appends.
func setPeerState(d *WalletDescriptor, peer runtime.PublicKey, state PeerState) {
	if i := d.Entry(peer); i >= 0 {
		d.Peers[i].State = state
		return
	}
	d.Peers = append(d.Peers, PeerEntry{Wallet: peer, State: state})
}

// peerPair holds the common account set of a peer-graph instruction and both
// decoded descriptors; loadPeerPair resolves it.
type peerPair struct {
	signer         *runtime.AccountInfo
	peer           runtime.PublicKey
	signerDescInfo *runtime.AccountInfo
	peerDescInfo   *runtime.AccountInfo
	signerDesc     *WalletDescriptor
	peerDesc       *WalletDescriptor
}

func loadPeerPair(ctx *runtime.ExecContext, signerDescIdx, peerDescIdx int) (*peerPair, error) {
	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return nil, err
	}
	peerInfo, err := requireAccount(ctx, 1)
	if err != nil {
		return nil, err
	}
	if peerInfo.Key == signer.Key {
		return nil, ErrInputMalformed
	}

	signerDescInfo, err := requireAccount(ctx, signerDescIdx)
	if err != nil {
		return nil, err
	}
	peerDescInfo, err := requireAccount(ctx, peerDescIdx)
	if err != nil {
		return nil, err
	}

	signerDesc, err := loadDescriptor(ctx, signerDescInfo, signer.Key)
	if err != nil {
		return nil, err
	}
	peerDesc, err := loadDescriptor(ctx, peerDescInfo, peerInfo.Key)
	if err != nil {
		return nil, err
	}

	return &peerPair{
		signer:         signer,
		peer:           peerInfo.Key,
		signerDescInfo: signerDescInfo,
		peerDescInfo:   peerDescInfo,
		signerDesc:     signerDesc,
		peerDesc:       peerDesc,
	}, nil
}

// entryState returns the descriptor's state for a peer, or -1 if absent.
func entryState(d *WalletDescriptor, peer runtime.PublicKey) int {
	if d == nil {
		return -1
	}
	i := d.Entry(peer)
	if i < 0 {
		return -1
	}
	return int(d.Peers[i].State)
}

func processInvite(ctx *runtime.ExecContext) error {
	var args InviteArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}

	pair, err := loadPeerPair(ctx, 3, 4)
	if err != nil {
		return err
	}

	// The inviter must be registered; the invitee need not be yet.
	profileInfo, err := requireOwned(ctx, 2)
	if err != nil {
		if err == ErrAccountOwnerMismatch {
			return ErrNotRegistered
		}
		return err
	}
	profileAddr, _, derr := UserProfileAddress(pair.signer.Key)
	if err := expectAddress(profileInfo.Key, profileAddr, derr); err != nil {
		return err
	}

	convInfo, err := requireAccount(ctx, 5)
	if err != nil {
		return err
	}
	if args.ChatHash != ChatHash(pair.signer.Key, pair.peer) {
		return ErrInputMalformed
	}
	convAddr, _, derr := ConversationAddress(args.ChatHash)
	if err := expectAddress(convInfo.Key, convAddr, derr); err != nil {
		return err
	}

	// A blocked wallet may not touch the blocker's descriptor.
	if entryState(pair.peerDesc, pair.signer.Key) == int(PeerBlocked) {
		return ErrBlockedByPeer
	}

	switch entryState(pair.signerDesc, pair.peer) {
	case -1, int(PeerRejected):
		// Fresh invite or re-invite after rejection.
	default:
		return ErrAlreadyInvited
	}

	if pair.signerDesc == nil {
		pair.signerDesc = &WalletDescriptor{Owner: pair.signer.Key}
	}
	if pair.peerDesc == nil {
		pair.peerDesc = &WalletDescriptor{Owner: pair.peer}
	}
	setPeerState(pair.signerDesc, pair.peer, PeerInvited)
	setPeerState(pair.peerDesc, pair.signer.Key, PeerRequested)

	if err := storeDescriptor(ctx, pair.signerDescInfo, pair.signer, pair.signerDesc); err != nil {
		return err
	}
	if err := storeDescriptor(ctx, pair.peerDescInfo, pair.signer, pair.peerDesc); err != nil {
		return err
	}

	// Conversation allocation is idempotent: re-invites after rejection
	// reuse the PDA created by the first invite.
	if !convInfo.Acct.Exists() {
		lo, hi := runtime.SortPair(pair.signer.Key, pair.peer)
		conv := &Conversation{
			Participants: [2]runtime.PublicKey{lo, hi},
			CreatedAt:    ctx.UnixTimestamp,
		}
		data, err := conv.Marshal()
		if err != nil {
			return ErrInputMalformed
		}
		if err := ctx.CreateAccount(convInfo, pair.signer, len(data)); err != nil {
			return err
		}
		copy(convInfo.Acct.Data, data)
	} else if _, err := DecodeConversation(convInfo.Acct.Data); err != nil {
		return err
	}

	emitWallets(ctx, EventPeerInvited, pair.signer.Key, pair.peer)
	return nil
}

func processAccept(ctx *runtime.ExecContext) error {
	pair, err := loadPeerPair(ctx, 2, 3)
	if err != nil {
		return err
	}

	if entryState(pair.peerDesc, pair.signer.Key) == int(PeerBlocked) {
		return ErrBlockedByPeer
	}

	switch entryState(pair.signerDesc, pair.peer) {
	case -1:
		return ErrNotInvited
	case int(PeerRequested):
		// The only accepting position: the peer invited us.
	default:
		return ErrInvalidStateTransition
	}
	if entryState(pair.peerDesc, pair.signer.Key) != int(PeerInvited) {
		return ErrInvalidStateTransition
	}

	setPeerState(pair.signerDesc, pair.peer, PeerAccepted)
	setPeerState(pair.peerDesc, pair.signer.Key, PeerAccepted)

	if err := storeDescriptor(ctx, pair.signerDescInfo, pair.signer, pair.signerDesc); err != nil {
		return err
	}
	if err := storeDescriptor(ctx, pair.peerDescInfo, pair.signer, pair.peerDesc); err != nil {
		return err
	}

	emitWallets(ctx, EventPeerAccepted, pair.signer.Key, pair.peer)
	return nil
}

func processReject(ctx *runtime.ExecContext) error {
	pair, err := loadPeerPair(ctx, 2, 3)
	if err != nil {
		return err
	}

	switch entryState(pair.signerDesc, pair.peer) {
	case -1:
		return ErrNotInvited
	case int(PeerInvited), int(PeerRequested), int(PeerAccepted):
		// Rejectable from either direction and from an accepted pair.
	default:
		return ErrInvalidStateTransition
	}

	setPeerState(pair.signerDesc, pair.peer, PeerRejected)
	// The other side also drops to Rejected, except a Blocked entry is
	// never overwritten.
	if s := entryState(pair.peerDesc, pair.signer.Key); s >= 0 && s != int(PeerBlocked) {
		setPeerState(pair.peerDesc, pair.signer.Key, PeerRejected)
	}

	if err := storeDescriptor(ctx, pair.signerDescInfo, pair.signer, pair.signerDesc); err != nil {
		return err
	}
	if pair.peerDesc != nil {
		if err := storeDescriptor(ctx, pair.peerDescInfo, pair.signer, pair.peerDesc); err != nil {
			return err
		}
	}

	emitWallets(ctx, EventPeerRejected, pair.signer.Key, pair.peer)
	return nil
}

func processBlock(ctx *runtime.ExecContext) error {
	pair, err := loadPeerPair(ctx, 2, 3)
	if err != nil {
		return err
	}

	if entryState(pair.signerDesc, pair.peer) == int(PeerBlocked) {
		return ErrInvalidStateTransition
	}

	if pair.signerDesc == nil {
		pair.signerDesc = &WalletDescriptor{Owner: pair.signer.Key}
	}
	if pair.peerDesc == nil {
		pair.peerDesc = &WalletDescriptor{Owner: pair.peer}
	}

	setPeerState(pair.signerDesc, pair.peer, PeerBlocked)
	// A mutual block leaves the peer's own Blocked entry untouched.
	if entryState(pair.peerDesc, pair.signer.Key) != int(PeerBlocked) {
		setPeerState(pair.peerDesc, pair.signer.Key, PeerRejected)
	}

	if err := storeDescriptor(ctx, pair.signerDescInfo, pair.signer, pair.signerDesc); err != nil {
		return err
	}
	if err := storeDescriptor(ctx, pair.peerDescInfo, pair.signer, pair.peerDesc); err != nil {
		return err
	}

	emitWallets(ctx, EventPeerBlocked, pair.signer.Key, pair.peer)
	return nil
}

func processUnblock(ctx *runtime.ExecContext) error {
	pair, err := loadPeerPair(ctx, 2, 3)
	if err != nil {
		return err
	}

	if entryState(pair.signerDesc, pair.peer) != int(PeerBlocked) {
		return ErrInvalidStateTransition
	}

	setPeerState(pair.signerDesc, pair.peer, PeerRejected)

	if err := storeDescriptor(ctx, pair.signerDescInfo, pair.signer, pair.signerDesc); err != nil {
		return err
	}

	emitWallets(ctx, EventPeerUnblocked, pair.signer.Key, pair.peer)
	return nil
}
