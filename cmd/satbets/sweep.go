package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alejandrodnm/satbets/config"
	"github.com/alejandrodnm/satbets/internal/application/board"
	"github.com/alejandrodnm/satbets/internal/application/engine"
	"github.com/alejandrodnm/satbets/internal/application/orchestrator"
	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// runDaemon produce bloques y ejecuta el sweep según el cron hasta que el
// contexto se cancele.
func runDaemon(
	ctx context.Context,
	cfg *config.Config,
	eng *engine.Engine,
	orch *orchestrator.Orchestrator,
	boardSvc *board.Service,
	notifier ports.Notifier,
) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	sweeps := 0
	_, err := c.AddFunc(cfg.Orchestrator.Schedule, func() {
		if _, err := orch.RunCycle(ctx); err != nil {
			slog.Error("sweep failed", "err", err)
			return
		}
		sweeps++
		if n := cfg.Orchestrator.BoardEveryNSweeps; n > 0 && sweeps%n == 0 {
			if err := boardSvc.Publish(ctx, notifier); err != nil {
				slog.Warn("board publish failed", "err", err)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Orchestrator.Schedule, err)
	}

	c.Start()
	slog.Info("orchestrator scheduled", "schedule", cfg.Orchestrator.Schedule)

	produceBlocks(ctx, eng, cfg.BlockInterval())

	stopped := c.Stop()
	<-stopped.Done()
	slog.Info("orchestrator stopped")
	return nil
}

// produceBlocks avanza la altura del ledger un bloque por intervalo.
func produceBlocks(ctx context.Context, eng *engine.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := eng.AdvanceHeight(ctx, 1); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("block production failed", "err", err)
			}
		}
	}
}

// runGenesis instala admin y oráculo. Repetirlo sobre un ledger ya
// inicializado no es un error.
func runGenesis(ctx context.Context, eng *engine.Engine, cfg *config.Config) error {
	admin := domain.Principal(cfg.Admin.Principal)
	err := eng.Genesis(ctx, admin)
	if errors.Is(err, domain.ErrAlreadyExists) {
		slog.Info("ledger already initialized, skipping genesis")
		return nil
	}
	if err != nil {
		return err
	}
	if cfg.Admin.GenesisDeposit > 0 {
		if err := eng.Deposit(ctx, admin, cfg.Admin.GenesisDeposit); err != nil {
			return err
		}
	}
	if cfg.Oracle.Principal != "" {
		return eng.RegisterOracle(ctx, domain.Principal(cfg.Oracle.Principal), domain.OracleAI, cfg.Oracle.Label, admin)
	}
	return nil
}
