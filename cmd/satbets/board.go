package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alejandrodnm/satbets/internal/adapters/notify"
	"github.com/alejandrodnm/satbets/internal/application/orchestrator"
)

// runSeed siembra el pool de un mercado: -seed 3:6500 abre el mercado 3 con
// YES al 65%.
func runSeed(ctx context.Context, orch *orchestrator.Orchestrator, arg string) error {
	id, bps, err := parseSeed(arg)
	if err != nil {
		return err
	}
	pool, err := orch.SeedMarket(ctx, id, bps)
	if err != nil {
		return err
	}
	fmt.Printf("market #%d seeded: YES %s NO %s liquidity %s BTC\n",
		id,
		notify.FormatPrice(pool.YesPrice()),
		notify.FormatPrice(pool.NoPrice()),
		notify.FormatSats(pool.YesReserve+pool.NoReserve),
	)
	return nil
}

func parseSeed(arg string) (marketID, probabilityBps uint64, err error) {
	idStr, bpsStr, ok := strings.Cut(arg, ":")
	if !ok {
		return 0, 0, fmt.Errorf("seed %q: want <market_id>:<bps>", arg)
	}
	if marketID, err = strconv.ParseUint(idStr, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("seed %q: market id: %w", arg, err)
	}
	if probabilityBps, err = strconv.ParseUint(bpsStr, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("seed %q: bps: %w", arg, err)
	}
	return marketID, probabilityBps, nil
}
