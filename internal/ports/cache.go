package ports

import (
	"context"

	"github.com/alejandrodnm/satbets/internal/domain"
)

// ViewCache is a short-lived cache for display reads. It is never consulted
// by writes. Get returns domain.ErrNotFound on a miss.
type ViewCache interface {
	Get(ctx context.Context, marketID uint64) (domain.MarketView, error)
	Set(ctx context.Context, view domain.MarketView) error
	Invalidate(ctx context.Context, marketID uint64) error
}
