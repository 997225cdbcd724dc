// Package engine applies market, trading, resolution and payout operations
// to the ledger. Each exported write runs as one ledger transaction: it
// either commits every state change and event it produced or none of them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// Engine is the market core. It is safe for concurrent use; the ledger
// serializes writes.
type Engine struct {
	ledger ports.Ledger
}

// New crea un Engine sobre el ledger dado.
func New(ledger ports.Ledger) *Engine {
	return &Engine{ledger: ledger}
}

// Genesis installs the first administrator. It fails with
// domain.ErrAlreadyExists once an admin is set; use SetAdmin afterwards.
func (e *Engine) Genesis(ctx context.Context, admin domain.Principal) error {
	if admin == "" {
		return wrap("Genesis", fmt.Errorf("empty admin: %w", domain.ErrInvalidParams))
	}
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		current, err := tx.Admin()
		if err == nil {
			return fmt.Errorf("admin %s: %w", current, domain.ErrAlreadyExists)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := tx.SetAdmin(admin); err != nil {
			return err
		}
		return tx.Emit(domain.Event{Kind: domain.EventGenesis, Principal: admin})
	})
	if err != nil {
		return wrap("Genesis", err)
	}
	slog.Info("ledger genesis", "admin", admin)
	return nil
}

// AdvanceHeight moves the ledger height forward by n blocks and returns the
// new height. It is driven by the block producer, never by traders.
func (e *Engine) AdvanceHeight(ctx context.Context, n uint64) (uint64, error) {
	var height uint64
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		h, err := tx.Height()
		if err != nil {
			return err
		}
		if height, err = domain.CheckedAdd(h, n); err != nil {
			return err
		}
		return tx.SetHeight(height)
	})
	if err != nil {
		return 0, wrap("AdvanceHeight", err)
	}
	slog.Debug("height advanced", "height", height)
	return height, nil
}

// Height returns the committed ledger height.
func (e *Engine) Height(ctx context.Context) (uint64, error) {
	var h uint64
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		h, err = tx.Height()
		return err
	})
	return h, wrap("Height", err)
}

func requireAdmin(tx ports.ReadTx, caller domain.Principal) error {
	admin, err := tx.Admin()
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no admin set: %w", domain.ErrNotAdmin)
	}
	if err != nil {
		return err
	}
	if caller != admin {
		return fmt.Errorf("%s: %w", caller, domain.ErrNotAdmin)
	}
	return nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("engine.%s: %w", op, err)
}
