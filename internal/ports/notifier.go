package ports

import (
	"context"

	"github.com/alejandrodnm/satbets/internal/domain"
)

// Notifier presents market state and sweep results to the operator.
type Notifier interface {
	// NotifyBoard prints the market board. In the console implementation
	// this is a formatted table.
	NotifyBoard(ctx context.Context, views []domain.MarketView) error

	// NotifySweep reports the outcome of one orchestrator cycle.
	NotifySweep(ctx context.Context, report domain.SweepReport) error
}
