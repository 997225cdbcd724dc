package ports

import (
	"context"

	"github.com/alejandrodnm/satbets/internal/domain"
)

// EvidenceProvider asks an external research service for the outcome of an
// expired market.
type EvidenceProvider interface {
	// GatherEvidence returns the service's verdict. ref is optional price
	// context and may be nil.
	GatherEvidence(ctx context.Context, market domain.Market, ref *domain.PriceQuote) (domain.Evidence, error)
}

// PriceProvider returns reference prices used as evidence context.
type PriceProvider interface {
	Price(ctx context.Context, symbol string) (domain.PriceQuote, error)
}
