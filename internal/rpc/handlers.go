package rpc

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mukon-labs/mukon/internal/program"
	"github.com/mukon-labs/mukon/internal/runtime"
)

// errorData surfaces the stable program error code alongside the message so
// clients can translate without string matching.
func errorData(err error) interface{} {
	var perr *program.Error
	if errors.As(err, &perr) {
		return map[string]interface{}{"code": perr.Code, "name": perr.Name}
	}
	return nil
}

// nodeStatus reports ledger height and connection counts.
func (s *Server) nodeStatus(ctx context.Context, params json.RawMessage) (interface{}, error) {
	accountCount, err := s.store.AccountCount()
	if err != nil {
		return nil, err
	}
	eventCount, err := s.store.EventCount()
	if err != nil {
		return nil, err
	}
	clients := 0
	if s.wsHub != nil {
		clients = s.wsHub.ClientCount()
	}
	return map[string]interface{}{
		"slot":       s.ledger.Slot(),
		"program_id": program.ProgramID.String(),
		"accounts":   accountCount,
		"events":     eventCount,
		"ws_clients": clients,
	}, nil
}

// txInstruction is the wire form of one instruction.
type txInstruction struct {
	ProgramID string `json:"program_id"`
	Accounts  []struct {
		Pubkey     string `json:"pubkey"`
		IsSigner   bool   `json:"is_signer"`
		IsWritable bool   `json:"is_writable"`
	} `json:"accounts"`
	Data string `json:"data"` // base64
}

// txSubmitParams is the wire form of a signed transaction.
type txSubmitParams struct {
	Instructions []txInstruction `json:"instructions"`
	Signers      []string        `json:"signers"`    // base58
	Signatures   []string        `json:"signatures"` // base64
}

// txSubmit executes a signed transaction against the ledger, persists the
// results, and broadcasts emitted events.
func (s *Server) txSubmit(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p txSubmitParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	tx := &runtime.Transaction{}
	for _, ix := range p.Instructions {
		programID, err := runtime.PublicKeyFromBase58(ix.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("invalid program id: %w", err)
		}
		data, err := base64.StdEncoding.DecodeString(ix.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid instruction data: %w", err)
		}
		metas := make([]runtime.AccountMeta, 0, len(ix.Accounts))
		for _, a := range ix.Accounts {
			pk, err := runtime.PublicKeyFromBase58(a.Pubkey)
			if err != nil {
				return nil, fmt.Errorf("invalid account pubkey: %w", err)
			}
			metas = append(metas, runtime.AccountMeta{Pubkey: pk, IsSigner: a.IsSigner, IsWritable: a.IsWritable})
		}
		tx.Instructions = append(tx.Instructions, runtime.Instruction{
			ProgramID: programID,
			Accounts:  metas,
			Data:      data,
		})
	}

	for _, signer := range p.Signers {
		pk, err := runtime.PublicKeyFromBase58(signer)
		if err != nil {
			return nil, fmt.Errorf("invalid signer: %w", err)
		}
		tx.Signers = append(tx.Signers, pk)
	}
	for _, encoded := range p.Signatures {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil || len(raw) != 64 {
			return nil, fmt.Errorf("invalid signature encoding")
		}
		var sig runtime.Signature
		copy(sig[:], raw)
		tx.Signatures = append(tx.Signatures, sig)
	}

	result, err := s.ledger.Execute(tx)
	if err != nil {
		return nil, err
	}

	emittedAt := time.Unix(result.Timestamp, 0)
	for _, ev := range result.Events {
		rec, err := s.store.AppendEvent(ev, result.Slot, emittedAt)
		if err != nil {
			s.log.Error("Failed to persist event", "kind", ev.Kind, "error", err)
			continue
		}
		if s.wsHub != nil {
			s.wsHub.Broadcast(EventType(ev.Kind), rec)
		}
	}

	if err := s.store.SaveSnapshot(s.ledger.Accounts(), s.ledger.Slot()); err != nil {
		s.log.Error("Failed to persist ledger snapshot", "error", err)
	}

	return result, nil
}

// accountGetParams selects an account by base58 address.
type accountGetParams struct {
	Address string `json:"address"`
}

// accountGet returns the raw account plus a decoded view when the data
// carries a known discriminator.
func (s *Server) accountGet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p accountGetParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	addr, err := runtime.PublicKeyFromBase58(p.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	acct := s.ledger.Account(addr)
	if acct == nil {
		return nil, fmt.Errorf("account %s not found", p.Address)
	}

	resp := map[string]interface{}{
		"address":  p.Address,
		"owner":    acct.Owner.String(),
		"lamports": acct.Lamports,
		"data":     base64.StdEncoding.EncodeToString(acct.Data),
	}
	if decoded := decodeKnownAccount(acct.Data); decoded != nil {
		resp["decoded"] = decoded
	}
	return resp, nil
}

// decodeKnownAccount tries every known account layout.
func decodeKnownAccount(data []byte) interface{} {
	if p, err := program.DecodeUserProfile(data); err == nil {
		return map[string]interface{}{
			"type":           "user_profile",
			"owner":          p.Owner.String(),
			"display_name":   p.DisplayName,
			"avatar_kind":    p.AvatarKind,
			"avatar":         p.AvatarPayload,
			"encryption_key": hex.EncodeToString(p.EncryptionKey[:]),
		}
	}
	if d, err := program.DecodeWalletDescriptor(data); err == nil {
		peers := make([]map[string]interface{}, 0, len(d.Peers))
		for _, entry := range d.Peers {
			peers = append(peers, map[string]interface{}{
				"wallet": entry.Wallet.String(),
				"state":  entry.State,
			})
		}
		return map[string]interface{}{
			"type":  "wallet_descriptor",
			"owner": d.Owner.String(),
			"peers": peers,
		}
	}
	if c, err := program.DecodeConversation(data); err == nil {
		return map[string]interface{}{
			"type":         "conversation",
			"participants": []string{c.Participants[0].String(), c.Participants[1].String()},
			"created_at":   c.CreatedAt,
		}
	}
	if g, err := program.DecodeGroup(data); err == nil {
		members := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			members = append(members, m.String())
		}
		out := map[string]interface{}{
			"type":       "group",
			"group_id":   hex.EncodeToString(g.GroupID[:]),
			"creator":    g.Creator.String(),
			"name":       g.Name,
			"members":    members,
			"created_at": g.CreatedAt,
		}
		if g.TokenGate != nil {
			out["token_gate"] = map[string]interface{}{
				"mint":        g.TokenGate.Mint.String(),
				"min_balance": g.TokenGate.MinBalance,
			}
		}
		return out
	}
	if i, err := program.DecodeGroupInvite(data); err == nil {
		return map[string]interface{}{
			"type":       "group_invite",
			"group_id":   hex.EncodeToString(i.GroupID[:]),
			"inviter":    i.Inviter.String(),
			"invitee":    i.Invitee.String(),
			"status":     i.Status,
			"created_at": i.CreatedAt,
		}
	}
	if k, err := program.DecodeGroupKeyShare(data); err == nil {
		return map[string]interface{}{
			"type":          "group_key_share",
			"group_id":      hex.EncodeToString(k.GroupID[:]),
			"recipient":     k.Recipient.String(),
			"encrypted_key": hex.EncodeToString(k.EncryptedKey),
			"nonce":         hex.EncodeToString(k.Nonce),
			"created_at":    k.CreatedAt,
		}
	}
	return nil
}

// pdaDeriveParams selects the PDA family and its seed inputs.
type pdaDeriveParams struct {
	Kind    string `json:"kind"`
	Wallet  string `json:"wallet,omitempty"`
	Peer    string `json:"peer,omitempty"`
	GroupID string `json:"group_id,omitempty"` // hex
}

// pdaDerive computes a program address from its documented seeds.
func (s *Server) pdaDerive(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p pdaDeriveParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	wallet := func() (runtime.PublicKey, error) {
		return runtime.PublicKeyFromBase58(p.Wallet)
	}
	groupID := func() ([32]byte, error) {
		var gid [32]byte
		raw, err := hex.DecodeString(p.GroupID)
		if err != nil || len(raw) != 32 {
			return gid, fmt.Errorf("invalid group id")
		}
		copy(gid[:], raw)
		return gid, nil
	}

	var addr runtime.PublicKey
	var err error

	switch p.Kind {
	case "user_profile":
		w, werr := wallet()
		if werr != nil {
			return nil, werr
		}
		addr, _, err = program.UserProfileAddress(w)
	case "wallet_descriptor":
		w, werr := wallet()
		if werr != nil {
			return nil, werr
		}
		addr, _, err = program.WalletDescriptorAddress(w)
	case "conversation":
		w, werr := wallet()
		if werr != nil {
			return nil, werr
		}
		peer, perr := runtime.PublicKeyFromBase58(p.Peer)
		if perr != nil {
			return nil, perr
		}
		addr, _, err = program.ConversationAddress(program.ChatHash(w, peer))
	case "group":
		gid, gerr := groupID()
		if gerr != nil {
			return nil, gerr
		}
		addr, _, err = program.GroupAddress(gid)
	case "group_invite":
		gid, gerr := groupID()
		if gerr != nil {
			return nil, gerr
		}
		w, werr := wallet()
		if werr != nil {
			return nil, werr
		}
		addr, _, err = program.GroupInviteAddress(gid, w)
	case "group_key_share":
		gid, gerr := groupID()
		if gerr != nil {
			return nil, gerr
		}
		w, werr := wallet()
		if werr != nil {
			return nil, werr
		}
		addr, _, err = program.GroupKeyShareAddress(gid, w)
	default:
		return nil, fmt.Errorf("unknown pda kind: %s", p.Kind)
	}
	if err != nil {
		return nil, err
	}

	return map[string]string{"address": addr.String()}, nil
}

// eventsSinceParams pages the event log by slot.
type eventsSinceParams struct {
	Slot  uint64 `json:"slot"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Server) eventsSince(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p eventsSinceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return s.store.ListEventsSince(p.Slot, p.Limit)
}

// eventsByWalletParams filters the event log by principal wallet.
type eventsByWalletParams struct {
	Wallet string `json:"wallet"`
	Limit  int    `json:"limit,omitempty"`
}

func (s *Server) eventsByWallet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p eventsByWalletParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if _, err := runtime.PublicKeyFromBase58(p.Wallet); err != nil {
		return nil, fmt.Errorf("invalid wallet: %w", err)
	}
	return s.store.ListEventsByWallet(p.Wallet, p.Limit)
}

// faucetAirdropParams funds a wallet on dev networks.
type faucetAirdropParams struct {
	Address string `json:"address"`
}

func (s *Server) faucetAirdrop(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.cfg.Ledger.FaucetLamports == 0 {
		return nil, fmt.Errorf("faucet is disabled")
	}
	var p faucetAirdropParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	addr, err := runtime.PublicKeyFromBase58(p.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	s.ledger.Fund(addr, s.cfg.Ledger.FaucetLamports)
	if err := s.store.SaveSnapshot(s.ledger.Accounts(), s.ledger.Slot()); err != nil {
		s.log.Error("Failed to persist ledger snapshot", "error", err)
	}

	return map[string]interface{}{
		"address":  p.Address,
		"lamports": s.cfg.Ledger.FaucetLamports,
	}, nil
}
