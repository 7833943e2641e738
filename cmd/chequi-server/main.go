package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/service"
	"github.com/Darobeats/Chequi-sub000/internal/chequi/store/sqlite"
	"github.com/Darobeats/Chequi-sub000/internal/config"
	"github.com/Darobeats/Chequi-sub000/internal/db"
	"github.com/Darobeats/Chequi-sub000/internal/httpapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.New(os.Stdout, "chequi-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			logger.Fatalf("seed dev data: %v", err)
		}
	}

	writer := db.NewWriter(conn)
	defer writer.Close()

	// Stores
	credentialStore := sqlite.NewCredentialStore(conn)
	catalogStore := sqlite.NewCatalogStore(conn, writer)
	ledgerStore := sqlite.NewLedgerStore(conn, writer)
	queueStore := sqlite.NewQueueStore(conn, writer)
	deviceStore := sqlite.NewDeviceStore(conn, writer)

	// Services
	keys := &service.DayKeyDeriver{Secret: []byte(cfg.SigningSecret)}
	verifier := service.NewVerifier(keys)
	signer := service.NewSigner(keys)
	validator := service.NewValidator(credentialStore, catalogStore, ledgerStore)
	sessions := service.NewSessionManager(
		time.Duration(cfg.AllowedHoldMillis)*time.Millisecond,
		time.Duration(cfg.DeniedHoldMillis)*time.Millisecond,
	)
	processor := service.NewProcessor(sessions, verifier, validator, deviceStore, logger)
	reconciler := service.NewReconciler(queueStore, processor, signer, service.ReconcilerConfig{
		MaxAttempts: cfg.ReplayMaxAttempts,
		BackoffBase: time.Duration(cfg.ReplayBackoffMillis) * time.Millisecond,
	}, logger)

	scheduler := service.NewSyncScheduler(reconciler,
		time.Duration(cfg.SyncIntervalSeconds)*time.Second, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       cfg.HTTPAddr,
		Processor:  processor,
		Reconciler: reconciler,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
