package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// ClaimResult es el resultado de un cobro confirmado.
type ClaimResult struct {
	Winnings uint64 // net, after fee
	Fee      uint64
	Shares   uint64
}

// ClaimWinnings pays out the caller's winning shares on a resolved market.
// A position can claim once; the claimed flag and the payout commit together.
func (e *Engine) ClaimWinnings(ctx context.Context, marketID uint64, caller domain.Principal) (ClaimResult, error) {
	var res ClaimResult
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		m, err := tx.Market(marketID)
		if err != nil {
			return err
		}
		if m.Status != domain.MarketResolved || m.Outcome == nil {
			return fmt.Errorf("market %d is %s: %w", marketID, m.Status, domain.ErrNotResolved)
		}
		pos, err := tx.Position(marketID, caller)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no position in market %d: %w", marketID, domain.ErrWrongOutcome)
		}
		if err != nil {
			return err
		}
		if pos.Claimed {
			return fmt.Errorf("market %d: %w", marketID, domain.ErrAlreadyClaimed)
		}
		shares := pos.Shares(domain.SideFor(*m.Outcome))
		if shares == 0 {
			return fmt.Errorf("market %d: %w", marketID, domain.ErrWrongOutcome)
		}

		pool, err := tx.Pool(marketID)
		if err != nil {
			return err
		}
		r, err := domain.Redeem(pool, shares)
		if err != nil {
			return err
		}

		pos.Claimed = true
		if err := tx.PutPosition(pos); err != nil {
			return err
		}
		if err := (vault{tx: tx}).transfer(domain.MarketEscrow(marketID), caller, r.Net); err != nil {
			return err
		}
		if pool.TotalFees, err = domain.CheckedAdd(pool.TotalFees, r.Fee); err != nil {
			return err
		}
		if err := tx.PutPool(pool); err != nil {
			return err
		}

		res = ClaimResult{Winnings: r.Net, Fee: r.Fee, Shares: shares}
		return tx.Emit(domain.Event{
			Kind:      domain.EventWinningsClaimed,
			MarketID:  marketID,
			Principal: caller,
			Amount:    r.Net,
			Detail:    fmt.Sprintf("shares=%d fee=%d", shares, r.Fee),
		})
	})
	if err != nil {
		return ClaimResult{}, wrap("ClaimWinnings", err)
	}
	slog.Info("winnings claimed",
		"market_id", marketID,
		"trader", caller,
		"shares", res.Shares,
		"winnings", res.Winnings,
	)
	return res, nil
}
