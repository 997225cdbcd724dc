// Package board is the display read model: market views served through a
// short-lived cache, falling back to the ledger.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// Reader is the authoritative source of market views (the engine).
type Reader interface {
	MarketView(ctx context.Context, marketID uint64) (domain.MarketView, error)
	MarketViews(ctx context.Context) ([]domain.MarketView, error)
}

// Service sirve vistas de mercado. El cache es opcional; sus fallos nunca
// rompen una lectura.
type Service struct {
	reader Reader
	cache  ports.ViewCache
	logger *slog.Logger
}

// New creates a board service. cache may be nil.
func New(reader Reader, cache ports.ViewCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reader: reader, cache: cache, logger: logger}
}

// View returns one market view, cache first.
func (s *Service) View(ctx context.Context, marketID uint64) (domain.MarketView, error) {
	if s.cache != nil {
		v, err := s.cache.Get(ctx, marketID)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("board cache read failed", "market_id", marketID, "err", err)
		}
	}

	v, err := s.reader.MarketView(ctx, marketID)
	if err != nil {
		return domain.MarketView{}, fmt.Errorf("board.View: %w", err)
	}
	s.store(ctx, v)
	return v, nil
}

// Board returns every market view read from the ledger and refreshes the
// cache with them.
func (s *Service) Board(ctx context.Context) ([]domain.MarketView, error) {
	views, err := s.reader.MarketViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("board.Board: %w", err)
	}
	for _, v := range views {
		s.store(ctx, v)
	}
	return views, nil
}

// Invalidate drops cached views after a write touched those markets.
func (s *Service) Invalidate(ctx context.Context, marketIDs ...uint64) {
	if s.cache == nil {
		return
	}
	for _, id := range marketIDs {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.logger.Warn("board cache invalidate failed", "market_id", id, "err", err)
		}
	}
}

// Publish reads the board and hands it to the notifier.
func (s *Service) Publish(ctx context.Context, n ports.Notifier) error {
	views, err := s.Board(ctx)
	if err != nil {
		return err
	}
	if err := n.NotifyBoard(ctx, views); err != nil {
		return fmt.Errorf("board.Publish: %w", err)
	}
	return nil
}

func (s *Service) store(ctx context.Context, v domain.MarketView) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, v); err != nil {
		s.logger.Warn("board cache write failed", "market_id", v.Market.ID, "err", err)
	}
}
