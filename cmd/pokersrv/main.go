package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vctt94/pokercore/internal/audit"
	"github.com/vctt94/pokercore/internal/betting"
	"github.com/vctt94/pokercore/internal/config"
	"github.com/vctt94/pokercore/internal/logging"
	"github.com/vctt94/pokercore/internal/rng"
	"github.com/vctt94/pokercore/internal/session"
	"github.com/vctt94/pokercore/internal/table"
	"github.com/vctt94/pokercore/internal/tournament"
	"github.com/vctt94/pokercore/internal/wallet"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := config.EnsureDataDir(cfg.DataDir); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logBackend, err := logging.NewBackend(logging.Config{Level: cfg.LogLevel, LogFile: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	log := logBackend.Logger("SRV")

	auditDB, err := audit.Open(cfg.DBPath)
	if err != nil {
		log.Errorf("failed to open audit db: %v", err)
		os.Exit(1)
	}
	defer auditDB.Close()

	rngCore := rng.New(rng.Config{AuditBatchSize: 32}, auditDB, logBackend.Logger("RNG"))

	registry := session.NewRegistry()

	bettingCfg := betting.Config{
		SmallBlind:    1,
		BigBlind:      2,
		ActionTimeout: cfg.ActionTimeout,
	}

	newTable := func(tableID string) tournament.TableHandle {
		actor := table.NewActor(tableID, bettingCfg, rngCore, auditDB, cfg.IdempotencyTTL, cfg.CoalesceWindow, logBackend.Logger("TABLE"))
		go actor.Run()
		registry.Register(tableID, actor)
		return actor
	}

	tournamentCfg := tournament.Config{
		MaxPlayers:    90,
		MinPlayers:    2,
		SeatsPerTable: 9,
		StartingChips: 10_000,
		SmallBlind:    bettingCfg.SmallBlind,
		BigBlind:      bettingCfg.BigBlind,
	}
	coordinator := tournament.New("main", tournamentCfg, newTable, logBackend.Logger("TOURNAMENT"))
	go coordinator.Run()

	ledger := wallet.NewInMemory(nil)

	authenticator := session.NewAuthenticator([]byte(cfg.JWTSecret))
	sessionCfg := session.Config{
		IdempotencyTTL:     cfg.IdempotencyTTL,
		CoalesceWindow:     cfg.CoalesceWindow,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
	}
	wsServer := session.NewServer(authenticator, registry.Lookup, ledger, sessionCfg, logBackend.Logger("SESSION"))

	httpSrv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      wsServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infof("listening on %s", cfg.Addr())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server: %v", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for s := range sig {
		if s == syscall.SIGHUP {
			if err := logBackend.Rotate(); err != nil {
				log.Warnf("log rotate failed: %v", err)
			}
			continue
		}
		break
	}

	log.Infof("shutting down")
	httpSrv.Close()
}
