package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keyward/keyward/internal/api"
	"github.com/keyward/keyward/internal/app"
	"github.com/keyward/keyward/internal/codec"
	"github.com/keyward/keyward/internal/config"
	"github.com/keyward/keyward/internal/custody"
	"github.com/keyward/keyward/internal/gate"
	"github.com/keyward/keyward/internal/logger"
	"github.com/keyward/keyward/internal/storage"
	"github.com/keyward/keyward/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Custody gateway: the seed provider decides where the root seed
	// lives; the gateway does all derivation in-process.
	seedProvider, err := custody.NewSeedProvider(&custody.SeedConfig{
		Provider:          cfg.CustodyBackend,
		SeedHex:           cfg.SeedHex,
		SeedCiphertextB64: cfg.SeedCiphertextB64,
		AWSKMSKeyID:       cfg.AWSKMSKeyID,
		AWSKMSRegion:      cfg.AWSKMSRegion,
		VaultAddress:      cfg.VaultAddress,
		VaultToken:        cfg.VaultToken,
		VaultSeedPath:     cfg.VaultSeedPath,
	})
	if err != nil {
		slog.Error("failed to initialize seed provider", "error", err)
		os.Exit(1)
	}

	slog.Info("initialized custody backend", "provider", seedProvider.Provider())

	custodyGW := custody.NewSeedGateway(seedProvider)

	// Confirmation gate
	var confirmGate gate.Gate
	switch cfg.GateMode {
	case "terminal":
		confirmGate, err = gate.NewTerminalGate()
		if err != nil {
			slog.Error("failed to initialize terminal gate", "error", err)
			os.Exit(1)
		}
	case "approve":
		slog.Warn("GATE_MODE=approve: every transaction will be signed without operator confirmation")
		confirmGate = gate.NewStaticGate(gate.Approved)
	case "deny":
		confirmGate = gate.NewStaticGate(gate.Rejected)
	}

	// Optional audit store
	var records *storage.SigningRecordRepository
	if cfg.PostgresDSN != "" {
		store, err := storage.New(cfg.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		records = storage.NewSigningRecordRepository(store)
		slog.Info("audit trail enabled")
	} else {
		slog.Info("audit trail disabled (no POSTGRES_DSN)")
	}

	signer := app.NewSignerService(
		custodyGW,
		codec.NewBorshEngine(),
		confirmGate,
		cfg.AddressHRP,
		&validation.Config{
			AllowedChainIDs: cfg.AllowedChainIDs,
			MaxCallSize:     1024 * 1024,
		},
		records,
	)

	server := api.NewServer(cfg, signer)

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
		close(done)
	}()

	if err := server.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
