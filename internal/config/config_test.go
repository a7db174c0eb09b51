package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mukon-config-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.ListenAddr != "127.0.0.1:8899" {
		t.Errorf("ListenAddr = %s, want default", cfg.API.ListenAddr)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Storage.DataDir != tmpDir {
		t.Errorf("DataDir = %s, want %s", cfg.Storage.DataDir, tmpDir)
	}

	// The file should now exist on disk.
	if _, err := os.Stat(filepath.Join(tmpDir, ConfigFileName)); err != nil {
		t.Errorf("config file should be created on first load: %v", err)
	}
}

func TestLoadReadsExistingConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mukon-config-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	content := []byte("api:\n  listen_addr: \"0.0.0.0:9999\"\nlogging:\n  level: debug\n")
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), content, 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.ListenAddr != "0.0.0.0:9999" {
		t.Errorf("ListenAddr = %s, want override", cfg.API.ListenAddr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %s, want debug", cfg.Logging.Level)
	}
	// Unspecified fields keep defaults.
	if cfg.Ledger.FaucetLamports == 0 {
		t.Error("unspecified faucet should keep its default")
	}
}

func TestLoadRejectsMalformedConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mukon-config-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{not yaml"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load(malformed) should fail")
	}
}

func TestSaveRoundtrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mukon-config-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	cfg := DefaultConfig()
	cfg.API.ListenAddr = "127.0.0.1:7777"
	cfg.Storage.DataDir = tmpDir

	path := filepath.Join(tmpDir, ConfigFileName)
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.API.ListenAddr != "127.0.0.1:7777" {
		t.Errorf("ListenAddr = %s, want saved value", loaded.API.ListenAddr)
	}
}
