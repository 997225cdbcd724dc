package evidence

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

var (
	_ ports.EvidenceProvider = (*Client)(nil)
	_ ports.PriceProvider    = (*Client)(nil)
)

// GatherEvidence asks the research service for the outcome of market.
func (c *Client) GatherEvidence(ctx context.Context, market domain.Market, ref *domain.PriceQuote) (domain.Evidence, error) {
	body := evidenceRequest{
		MarketID:         market.ID,
		Question:         market.Question,
		Description:      market.Description,
		Category:         market.Category.String(),
		ResolutionHeight: market.ResolutionHeight,
		MetadataURI:      market.MetadataURI,
	}
	if ref != nil {
		body.Reference = &priceContext{
			Symbol:      ref.Symbol,
			Price:       ref.Price,
			PublishTime: ref.PublishTime.Unix(),
		}
	}

	var resp evidenceResponse
	if err := c.post(ctx, c.evidenceLimiter, c.evidenceBase+"/v1/evidence", body, &resp); err != nil {
		return domain.Evidence{}, fmt.Errorf("evidence.GatherEvidence: market %d: %w", market.ID, err)
	}
	ev, err := mapEvidence(market.ID, resp)
	if err != nil {
		return domain.Evidence{}, fmt.Errorf("evidence.GatherEvidence: market %d: %w", market.ID, err)
	}
	return ev, nil
}

// Price returns the latest reference price for symbol (e.g. "btc-usd").
// Concurrent lookups of the same symbol share one request.
func (c *Client) Price(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	v, err, _ := c.prices.Do(symbol, func() (any, error) {
		var resp priceResponse
		u := c.priceBase + "/v1/price/" + url.PathEscape(symbol)
		if err := c.get(ctx, c.priceLimiter, u, &resp); err != nil {
			return nil, err
		}
		return mapPrice(symbol, resp)
	})
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("evidence.Price: %s: %w", symbol, err)
	}
	return v.(domain.PriceQuote), nil
}

// mapEvidence valida y normaliza la respuesta del servicio. A malformed reply
// wraps domain.ErrInvalidParams: asking again returns the same answer.
func mapEvidence(marketID uint64, r evidenceResponse) (domain.Evidence, error) {
	var outcome bool
	switch strings.ToUpper(strings.TrimSpace(r.Outcome)) {
	case "YES":
		outcome = true
	case "NO":
	default:
		return domain.Evidence{}, fmt.Errorf("unknown outcome %q: %w", r.Outcome, domain.ErrInvalidParams)
	}

	if r.ConfidenceBps < 0 || r.ConfidenceBps > int64(domain.MaxConfidenceBps) {
		return domain.Evidence{}, fmt.Errorf("confidence %d bps out of range: %w", r.ConfidenceBps, domain.ErrInvalidParams)
	}

	sources := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		sources = append(sources, s)
		if len(sources) == domain.MaxEvidenceSources {
			break
		}
	}

	return domain.Evidence{
		MarketID:      marketID,
		Outcome:       outcome,
		ConfidenceBps: uint64(r.ConfidenceBps),
		Sources:       sources,
		Reasoning:     r.Reasoning,
	}, nil
}

func mapPrice(symbol string, r priceResponse) (domain.PriceQuote, error) {
	d, err := decimal.NewFromString(r.Price)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("parse price %q: %v: %w", r.Price, err, domain.ErrInvalidParams)
	}
	if !d.IsPositive() {
		return domain.PriceQuote{}, fmt.Errorf("non-positive price %s: %w", d, domain.ErrInvalidParams)
	}
	if r.Symbol != "" {
		symbol = r.Symbol
	}
	return domain.PriceQuote{
		Symbol:      symbol,
		Price:       d.String(),
		PublishTime: time.Unix(r.PublishTime, 0).UTC(),
	}, nil
}
