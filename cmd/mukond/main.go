// Package main provides the mukond daemon - a single-node ledger hosting
// the Mukon messaging program.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mukon-labs/mukon/internal/config"
	"github.com/mukon-labs/mukon/internal/program"
	"github.com/mukon-labs/mukon/internal/rpc"
	"github.com/mukon-labs/mukon/internal/runtime"
	"github.com/mukon-labs/mukon/internal/storage"
	"github.com/mukon-labs/mukon/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	// Parse flags
	var (
		dataDir     = flag.String("data-dir", "~/.mukon", "Data directory")
		apiAddr     = flag.String("api", "", "JSON-RPC API address, overrides config")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	// Set up logging (initial, may be overridden by config)
	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("mukond %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	// Load or create config file
	cfg, err := config.Load(*dataDir)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Apply CLI overrides (CLI flags take precedence over config file)
	if *apiAddr != "" {
		cfg.API.ListenAddr = *apiAddr
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "log-level" {
			cfg.Logging.Level = *logLevel
		}
	})
	cfg.Storage.DataDir = *dataDir

	// Update logging with config level
	log = logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	log.Info("Config loaded", "path", config.Path(*dataDir))

	// Initialize storage
	store, err := storage.New(&storage.Config{DataDir: cfg.Storage.DataDir})
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer store.Close()
	log.Info("Storage initialized", "dir", cfg.Storage.DataDir)

	// Initialize ledger and install the messaging program
	ledger := runtime.NewLedger()
	ledger.RegisterProgram(program.ProgramID, program.Process)

	// Restore persisted account state
	accounts, slot, err := store.LoadSnapshot()
	if err != nil {
		log.Fatal("Failed to restore ledger snapshot", "error", err)
	}
	for pk, acct := range accounts {
		ledger.SetAccount(pk, acct)
	}
	log.Info("Ledger restored", "accounts", len(accounts), "slot", slot)

	// Start RPC server
	rpcServer := rpc.NewServer(ledger, store, cfg)
	if err := rpcServer.Start(cfg.API.ListenAddr); err != nil {
		log.Fatal("Failed to start RPC server", "error", err)
	}

	printBanner(log, cfg)

	// Start status ticker
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.Info("Status", "slot", ledger.Slot(), "ws_clients", rpcServer.WSHub().ClientCount())
			}
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Info("Shutting down...")
	close(done)

	// Persist final state before exit
	if err := store.SaveSnapshot(ledger.Accounts(), ledger.Slot()); err != nil {
		log.Error("Error saving ledger snapshot", "error", err)
	}

	if err := rpcServer.Stop(); err != nil {
		log.Error("Error stopping RPC server", "error", err)
	}

	log.Info("Goodbye!")
}

func printBanner(log *logging.Logger, cfg *config.Config) {
	log.Info("")
	log.Info("=================================================")
	log.Infof("  Mukon Messaging Node")
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  Program ID: %s", program.ProgramID.String())
	log.Infof("  API: http://%s", cfg.API.ListenAddr)
	log.Infof("  WS:  ws://%s/ws", cfg.API.ListenAddr)
	log.Infof("  Data dir: %s", cfg.Storage.DataDir)
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}
