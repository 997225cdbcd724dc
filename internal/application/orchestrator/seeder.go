package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/satbets/internal/domain"
)

// SeedMarket initializes a market's pool from an initial YES probability,
// splitting the configured seed amount so the opening YES price is close to
// probabilityBps. The operator pays the seed.
func (o *Orchestrator) SeedMarket(ctx context.Context, marketID, probabilityBps uint64) (domain.Pool, error) {
	if o.cfg.SeedAmount == 0 {
		return domain.Pool{}, fmt.Errorf("orchestrator.SeedMarket: seed amount not configured: %w", domain.ErrInvalidParams)
	}
	yes, no, err := domain.SeedSplit(o.cfg.SeedAmount, probabilityBps)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("orchestrator.SeedMarket: %w", err)
	}

	var pool domain.Pool
	_, err = o.write(ctx, func() error {
		var err error
		pool, err = o.engine.InitializePool(ctx, marketID, yes, no, o.cfg.Operator)
		return err
	})
	if err != nil {
		return domain.Pool{}, fmt.Errorf("orchestrator.SeedMarket: %w", err)
	}
	if o.invalidator != nil {
		o.invalidator.Invalidate(ctx, marketID)
	}

	slog.Info("market seeded",
		"market_id", marketID,
		"probability_bps", probabilityBps,
		"yes_seed", yes,
		"no_seed", no,
		"yes_price", pool.YesPrice(),
	)
	return pool, nil
}
