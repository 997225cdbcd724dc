package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// Gatherer pide evidencia para un mercado, con precio de referencia opcional.
type Gatherer struct {
	evidence ports.EvidenceProvider
	prices   ports.PriceProvider
	symbol   string
}

// Gather returns the evidence verdict for one market. A failed price lookup
// only drops the reference; it never fails the gather.
func (g *Gatherer) Gather(ctx context.Context, m domain.Market) (domain.Evidence, error) {
	ref := g.reference(ctx, m)
	ev, err := g.evidence.GatherEvidence(ctx, m, ref)
	if err != nil {
		return domain.Evidence{}, fmt.Errorf("orchestrator.Gather: market %d: %w", m.ID, err)
	}
	return ev, nil
}

func (g *Gatherer) reference(ctx context.Context, m domain.Market) *domain.PriceQuote {
	if g.prices == nil || g.symbol == "" || m.Category != domain.CategoryCrypto {
		return nil
	}
	q, err := g.prices.Price(ctx, g.symbol)
	if err != nil {
		slog.Warn("price reference unavailable", "symbol", g.symbol, "market_id", m.ID, "err", err)
		return nil
	}
	return &q
}
