package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// CreateMarket registers a new market. The caller must be the admin or an
// allow-listed creator.
func (e *Engine) CreateMarket(ctx context.Context, params domain.MarketParams, caller domain.Principal) (domain.Market, error) {
	var m domain.Market
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		if err := requireCreator(tx, caller); err != nil {
			return err
		}
		height, err := tx.Height()
		if err != nil {
			return err
		}
		if err := params.Validate(height); err != nil {
			return err
		}
		id, err := tx.NextMarketID()
		if err != nil {
			return err
		}
		m = domain.Market{
			ID:               id,
			Question:         params.Question,
			Description:      params.Description,
			Category:         params.Category,
			Creator:          caller,
			CreatedAt:        height,
			ResolutionHeight: params.ResolutionHeight,
			Status:           domain.MarketActive,
			AIGenerated:      params.AIGenerated,
			MetadataURI:      params.MetadataURI,
		}
		if err := tx.PutMarket(m); err != nil {
			return err
		}
		return tx.Emit(domain.Event{
			Kind:      domain.EventMarketCreated,
			MarketID:  id,
			Principal: caller,
			Detail:    params.Question,
		})
	})
	if err != nil {
		return domain.Market{}, wrap("CreateMarket", err)
	}
	slog.Info("market created",
		"market_id", m.ID,
		"category", m.Category,
		"resolution_height", m.ResolutionHeight,
		"creator", caller,
	)
	return m, nil
}

// PauseMarket stops trading on an active market.
func (e *Engine) PauseMarket(ctx context.Context, marketID uint64, caller domain.Principal) error {
	return wrap("PauseMarket", e.transition(ctx, marketID, caller,
		domain.MarketPaused, domain.EventMarketPaused, domain.MarketActive))
}

// ResumeMarket reopens a paused market.
func (e *Engine) ResumeMarket(ctx context.Context, marketID uint64, caller domain.Principal) error {
	return wrap("ResumeMarket", e.transition(ctx, marketID, caller,
		domain.MarketActive, domain.EventMarketResumed, domain.MarketPaused))
}

// CancelMarket voids an active or paused market. Collateral stays in the
// market escrow; cancelled markets pay nothing out. A market whose resolution
// is under dispute cannot be cancelled until the admin overrides it, so the
// dispute stake is always released.
func (e *Engine) CancelMarket(ctx context.Context, marketID uint64, caller domain.Principal) error {
	return wrap("CancelMarket", e.transition(ctx, marketID, caller,
		domain.MarketCancelled, domain.EventMarketCancelled, domain.MarketActive, domain.MarketPaused))
}

func (e *Engine) transition(ctx context.Context, marketID uint64, caller domain.Principal,
	to domain.MarketStatus, kind domain.EventKind, from ...domain.MarketStatus,
) error {
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		if err := requireAdmin(tx, caller); err != nil {
			return err
		}
		m, err := tx.Market(marketID)
		if err != nil {
			return err
		}
		allowed := false
		for _, s := range from {
			if m.Status == s {
				allowed = true
			}
		}
		if !allowed {
			return fmt.Errorf("market %d is %s: %w", marketID, m.Status, domain.ErrInvalidParams)
		}
		if to == domain.MarketCancelled {
			if err := requireNoDispute(tx, marketID); err != nil {
				return err
			}
		}
		m.Status = to
		if err := tx.PutMarket(m); err != nil {
			return err
		}
		return tx.Emit(domain.Event{Kind: kind, MarketID: marketID, Principal: caller})
	})
	if err != nil {
		return err
	}
	slog.Info("market status changed", "market_id", marketID, "status", to)
	return nil
}

func requireNoDispute(tx ports.ReadTx, marketID uint64) error {
	res, err := tx.Resolution(marketID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if res.Status == domain.ResolutionDisputed {
		return fmt.Errorf("market %d has a disputed resolution: %w", marketID, domain.ErrInvalidParams)
	}
	return nil
}

// SetAdmin transfers the admin capability. The new admin takes effect for
// the next transaction.
func (e *Engine) SetAdmin(ctx context.Context, newAdmin, caller domain.Principal) error {
	if newAdmin == "" {
		return wrap("SetAdmin", fmt.Errorf("empty admin: %w", domain.ErrInvalidParams))
	}
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		if err := requireAdmin(tx, caller); err != nil {
			return err
		}
		if err := tx.SetAdmin(newAdmin); err != nil {
			return err
		}
		return tx.Emit(domain.Event{Kind: domain.EventAdminChanged, Principal: newAdmin, Detail: string(caller)})
	})
	if err != nil {
		return wrap("SetAdmin", err)
	}
	slog.Info("admin changed", "from", caller, "to", newAdmin)
	return nil
}

// AddCreator allow-lists a principal for market creation.
func (e *Engine) AddCreator(ctx context.Context, p, caller domain.Principal) error {
	return wrap("AddCreator", e.setCreator(ctx, p, caller, true))
}

// RemoveCreator revokes market creation rights.
func (e *Engine) RemoveCreator(ctx context.Context, p, caller domain.Principal) error {
	return wrap("RemoveCreator", e.setCreator(ctx, p, caller, false))
}

func (e *Engine) setCreator(ctx context.Context, p, caller domain.Principal, allowed bool) error {
	if p == "" {
		return fmt.Errorf("empty principal: %w", domain.ErrInvalidParams)
	}
	kind := domain.EventCreatorRemoved
	if allowed {
		kind = domain.EventCreatorAdded
	}
	return e.ledger.Update(ctx, func(tx ports.Tx) error {
		if err := requireAdmin(tx, caller); err != nil {
			return err
		}
		if err := tx.SetCreator(p, allowed); err != nil {
			return err
		}
		return tx.Emit(domain.Event{Kind: kind, Principal: p})
	})
}

func requireCreator(tx ports.ReadTx, caller domain.Principal) error {
	err := requireAdmin(tx, caller)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotAdmin) {
		return err
	}
	ok, err := tx.IsCreator(caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s may not create markets: %w", caller, domain.ErrUnauthorized)
	}
	return nil
}
