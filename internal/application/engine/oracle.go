package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// RegisterOracle adds an oracle, or updates and reactivates an existing one.
func (e *Engine) RegisterOracle(ctx context.Context, p domain.Principal, t domain.OracleType, label string, caller domain.Principal) error {
	if err := domain.ValidateOracle(p, t, label); err != nil {
		return wrap("RegisterOracle", err)
	}
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		if err := requireAdmin(tx, caller); err != nil {
			return err
		}
		height, err := tx.Height()
		if err != nil {
			return err
		}
		o := domain.Oracle{Principal: p, Type: t, Label: label, Active: true, RegisteredAt: height}
		if err := tx.PutOracle(o); err != nil {
			return err
		}
		return tx.Emit(domain.Event{Kind: domain.EventOracleRegistered, Principal: p, Detail: t.String() + ":" + label})
	})
	if err != nil {
		return wrap("RegisterOracle", err)
	}
	slog.Info("oracle registered", "oracle", p, "type", t, "label", label)
	return nil
}

// RemoveOracle deactivates an oracle. Resolutions it already submitted are
// unaffected.
func (e *Engine) RemoveOracle(ctx context.Context, p, caller domain.Principal) error {
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		if err := requireAdmin(tx, caller); err != nil {
			return err
		}
		o, err := tx.Oracle(p)
		if err != nil {
			return err
		}
		o.Active = false
		if err := tx.PutOracle(o); err != nil {
			return err
		}
		return tx.Emit(domain.Event{Kind: domain.EventOracleRemoved, Principal: p})
	})
	if err != nil {
		return wrap("RemoveOracle", err)
	}
	slog.Info("oracle removed", "oracle", p)
	return nil
}

// SubmitResolution records an oracle's outcome for a market and opens the
// dispute window.
func (e *Engine) SubmitResolution(ctx context.Context, marketID uint64, outcome bool, confidenceBps uint64, evidenceURI string, caller domain.Principal) (domain.Resolution, error) {
	var res domain.Resolution
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		o, err := tx.Oracle(caller)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && !o.Active) {
			return fmt.Errorf("%s: %w", caller, domain.ErrNotOracle)
		}
		if err != nil {
			return err
		}
		m, err := tx.Market(marketID)
		if err != nil {
			return err
		}
		if m.Status == domain.MarketCancelled || m.Status == domain.MarketResolved {
			return fmt.Errorf("market %d is %s: %w", marketID, m.Status, domain.ErrInvalidParams)
		}
		if _, err := tx.Resolution(marketID); err == nil {
			return fmt.Errorf("market %d: %w", marketID, domain.ErrAlreadySubmitted)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		height, err := tx.Height()
		if err != nil {
			return err
		}
		if res, err = domain.NewResolution(marketID, caller, outcome, confidenceBps, evidenceURI, height); err != nil {
			return err
		}
		if err := tx.PutResolution(res); err != nil {
			return err
		}
		return tx.Emit(domain.Event{
			Kind:      domain.EventResolutionSubmitted,
			MarketID:  marketID,
			Principal: caller,
			Amount:    confidenceBps,
			Detail:    fmt.Sprintf("outcome=%t evidence=%s", outcome, evidenceURI),
		})
	})
	if err != nil {
		return domain.Resolution{}, wrap("SubmitResolution", err)
	}
	slog.Info("resolution submitted",
		"market_id", marketID,
		"oracle", caller,
		"outcome", outcome,
		"confidence_bps", confidenceBps,
		"deadline", res.DisputeDeadline,
	)
	return res, nil
}

// DisputeResolution challenges a pending resolution inside its window. The
// stake moves from the caller into the market's dispute escrow.
func (e *Engine) DisputeResolution(ctx context.Context, marketID, stake uint64, caller domain.Principal) (domain.Resolution, error) {
	var res domain.Resolution
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		var err error
		if res, err = tx.Resolution(marketID); err != nil {
			return err
		}
		height, err := tx.Height()
		if err != nil {
			return err
		}
		if err := res.Dispute(caller, stake, height); err != nil {
			return err
		}
		if err := (vault{tx: tx}).transfer(caller, domain.DisputeEscrow(marketID), stake); err != nil {
			return err
		}
		if err := tx.PutResolution(res); err != nil {
			return err
		}
		return tx.Emit(domain.Event{
			Kind:      domain.EventResolutionDisputed,
			MarketID:  marketID,
			Principal: caller,
			Amount:    stake,
		})
	})
	if err != nil {
		return domain.Resolution{}, wrap("DisputeResolution", err)
	}
	slog.Info("resolution disputed", "market_id", marketID, "disputer", caller, "stake", stake)
	return res, nil
}

// FinalizeResolution accepts an undisputed resolution once its window has
// elapsed. Anyone may call it.
func (e *Engine) FinalizeResolution(ctx context.Context, marketID uint64, caller domain.Principal) (domain.Resolution, error) {
	var res domain.Resolution
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		var err error
		if res, err = tx.Resolution(marketID); err != nil {
			return err
		}
		height, err := tx.Height()
		if err != nil {
			return err
		}
		if err := res.Finalize(height); err != nil {
			return err
		}
		if err := settle(tx, res); err != nil {
			return err
		}
		return tx.Emit(domain.Event{
			Kind:      domain.EventResolutionFinalized,
			MarketID:  marketID,
			Principal: caller,
			Detail:    fmt.Sprintf("outcome=%t", *res.FinalOutcome),
		})
	})
	if err != nil {
		return domain.Resolution{}, wrap("FinalizeResolution", err)
	}
	slog.Info("resolution finalized", "market_id", marketID, "outcome", *res.FinalOutcome)
	return res, nil
}

// OverrideResolution replaces a disputed outcome. The dispute stake is
// refunded when the correction differs from the submitted outcome and
// forfeited to the treasury when it confirms it.
func (e *Engine) OverrideResolution(ctx context.Context, marketID uint64, corrected bool, caller domain.Principal) (domain.Resolution, error) {
	var res domain.Resolution
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		if err := requireAdmin(tx, caller); err != nil {
			return err
		}
		var err error
		if res, err = tx.Resolution(marketID); err != nil {
			return err
		}
		height, err := tx.Height()
		if err != nil {
			return err
		}
		if err := res.Override(corrected, height); err != nil {
			return err
		}
		if err := settle(tx, res); err != nil {
			return err
		}
		if err := releaseStake(tx, res); err != nil {
			return err
		}
		return tx.Emit(domain.Event{
			Kind:      domain.EventResolutionOverridden,
			MarketID:  marketID,
			Principal: caller,
			Detail:    fmt.Sprintf("submitted=%t corrected=%t", res.Outcome, corrected),
		})
	})
	if err != nil {
		return domain.Resolution{}, wrap("OverrideResolution", err)
	}
	slog.Info("resolution overridden",
		"market_id", marketID,
		"corrected", corrected,
		"stake", res.StakeDisposition,
	)
	return res, nil
}

// settle writes the final outcome into the resolution, the pool and the
// market. The market must be active.
func settle(tx ports.Tx, res domain.Resolution) error {
	m, err := tx.Market(res.MarketID)
	if err != nil {
		return err
	}
	if m.Status != domain.MarketActive {
		return fmt.Errorf("market %d is %s: %w", m.ID, m.Status, domain.ErrInvalidParams)
	}
	outcome := *res.FinalOutcome
	if err := resolvePool(tx, m.ID, outcome); err != nil {
		return err
	}
	m.Status = domain.MarketResolved
	m.Outcome = &outcome
	if err := tx.PutMarket(m); err != nil {
		return err
	}
	if err := tx.PutResolution(res); err != nil {
		return err
	}
	return tx.Emit(domain.Event{
		Kind:     domain.EventMarketResolved,
		MarketID: m.ID,
		Detail:   fmt.Sprintf("outcome=%t", outcome),
	})
}

func releaseStake(tx ports.Tx, res domain.Resolution) error {
	if res.Disputer == nil || res.DisputeStake == 0 {
		return nil
	}
	to, kind := *res.Disputer, domain.EventStakeRefunded
	if res.StakeDisposition == domain.StakeForfeited {
		to, kind = domain.Treasury, domain.EventStakeForfeited
	}
	if err := (vault{tx: tx}).transfer(domain.DisputeEscrow(res.MarketID), to, res.DisputeStake); err != nil {
		return err
	}
	return tx.Emit(domain.Event{Kind: kind, MarketID: res.MarketID, Principal: to, Amount: res.DisputeStake})
}
