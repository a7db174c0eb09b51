package rpc

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/mukon-labs/mukon/internal/client"
	"github.com/mukon-labs/mukon/internal/config"
	"github.com/mukon-labs/mukon/internal/program"
	"github.com/mukon-labs/mukon/internal/runtime"
	"github.com/mukon-labs/mukon/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "mukon-rpc-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := storage.New(&storage.Config{DataDir: tmpDir})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ledger := runtime.NewLedger()
	ledger.RegisterProgram(program.ProgramID, program.Process)
	ledger.SetClock(func() int64 { return 1700000000 })

	cfg := config.DefaultConfig()
	return NewServer(ledger, store, cfg)
}

// call posts one JSON-RPC request directly to the handler.
func call(t *testing.T, s *Server, method string, params interface{}) *Response {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	body, err := json.Marshal(&Request{JSONRPC: "2.0", Method: method, Params: raw, ID: 1})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleRPC(rec, req)

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &resp
}

// submitTx signs and submits instructions through the JSON interface.
func submitTx(t *testing.T, s *Server, w *client.Wallet, ixs ...runtime.Instruction) *Response {
	t.Helper()
	tx := &runtime.Transaction{Instructions: ixs}
	if err := w.SignTransaction(tx); err != nil {
		t.Fatalf("SignTransaction() error = %v", err)
	}

	params := txSubmitParams{}
	for _, ix := range tx.Instructions {
		wire := txInstruction{
			ProgramID: ix.ProgramID.String(),
			Data:      base64.StdEncoding.EncodeToString(ix.Data),
		}
		for _, meta := range ix.Accounts {
			wire.Accounts = append(wire.Accounts, struct {
				Pubkey     string `json:"pubkey"`
				IsSigner   bool   `json:"is_signer"`
				IsWritable bool   `json:"is_writable"`
			}{meta.Pubkey.String(), meta.IsSigner, meta.IsWritable})
		}
		params.Instructions = append(params.Instructions, wire)
	}
	for _, signer := range tx.Signers {
		params.Signers = append(params.Signers, signer.String())
	}
	for _, sig := range tx.Signatures {
		params.Signatures = append(params.Signatures, base64.StdEncoding.EncodeToString(sig[:]))
	}

	return call(t, s, "tx_submit", &params)
}

func TestTxSubmitRegister(t *testing.T) {
	s := newTestServer(t)
	w, _, err := client.GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}
	s.ledger.Fund(w.PublicKey(), 1_000_000_000_000)

	ix, err := client.Register(w.PublicKey(), "Alice", "🦊", [32]byte{0xA1})
	if err != nil {
		t.Fatalf("builder error = %v", err)
	}

	resp := submitTx(t, s, w, ix)
	if resp.Error != nil {
		t.Fatalf("tx_submit error = %+v", resp.Error)
	}

	// The profile account must be readable and decoded.
	profileAddr, _, err := program.UserProfileAddress(w.PublicKey())
	if err != nil {
		t.Fatalf("derive profile: %v", err)
	}
	getResp := call(t, s, "account_get", map[string]string{"address": profileAddr.String()})
	if getResp.Error != nil {
		t.Fatalf("account_get error = %+v", getResp.Error)
	}
	result := getResp.Result.(map[string]interface{})
	decoded, ok := result["decoded"].(map[string]interface{})
	if !ok {
		t.Fatal("account_get should include a decoded view")
	}
	if decoded["type"] != "user_profile" || decoded["display_name"] != "Alice" {
		t.Errorf("decoded = %+v", decoded)
	}

	// The event should be persisted.
	count, err := s.store.EventCount()
	if err != nil {
		t.Fatalf("EventCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("EventCount = %d, want 1", count)
	}
}

func TestTxSubmitSurfacesProgramErrorCode(t *testing.T) {
	s := newTestServer(t)
	w, _, err := client.GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}
	s.ledger.Fund(w.PublicKey(), 1_000_000_000_000)

	ix, err := client.Register(w.PublicKey(), "Alice", "🦊", [32]byte{1})
	if err != nil {
		t.Fatalf("builder error = %v", err)
	}
	if resp := submitTx(t, s, w, ix); resp.Error != nil {
		t.Fatalf("first register error = %+v", resp.Error)
	}

	resp := submitTx(t, s, w, ix)
	if resp.Error == nil {
		t.Fatal("second register should fail")
	}
	data, ok := resp.Error.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("error data = %+v, want program code", resp.Error.Data)
	}
	if data["name"] != "AlreadyRegistered" {
		t.Errorf("error name = %v, want AlreadyRegistered", data["name"])
	}
}

func TestPdaDeriveMatchesProgram(t *testing.T) {
	s := newTestServer(t)
	w, _, err := client.GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}

	resp := call(t, s, "pda_derive", map[string]string{
		"kind":   "user_profile",
		"wallet": w.Address(),
	})
	if resp.Error != nil {
		t.Fatalf("pda_derive error = %+v", resp.Error)
	}
	want, _, err := program.UserProfileAddress(w.PublicKey())
	if err != nil {
		t.Fatalf("derive profile: %v", err)
	}
	got := resp.Result.(map[string]interface{})["address"]
	if got != want.String() {
		t.Errorf("pda_derive = %v, want %s", got, want)
	}
}

func TestFaucetAirdrop(t *testing.T) {
	s := newTestServer(t)
	w, _, err := client.GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}

	resp := call(t, s, "faucet_airdrop", map[string]string{"address": w.Address()})
	if resp.Error != nil {
		t.Fatalf("faucet_airdrop error = %+v", resp.Error)
	}

	acct := s.ledger.Account(w.PublicKey())
	if acct == nil || acct.Lamports != s.cfg.Ledger.FaucetLamports {
		t.Error("faucet should fund the wallet")
	}
}

func TestUnknownMethod(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, "no_such_method", nil)
	if resp.Error == nil || resp.Error.Code != MethodNotFound {
		t.Errorf("error = %+v, want MethodNotFound", resp.Error)
	}
}
