package engine

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// vault moves collateral between ledger accounts inside one transaction.
// It holds the transaction and must not be kept past the callback that
// created it.
type vault struct {
	tx ports.Tx
}

func (v vault) transfer(from, to domain.Principal, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	fromBal, err := v.tx.Balance(from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%s holds %d, needs %d: %w", from, fromBal, amount, domain.ErrInsufficientFunds)
	}
	toBal, err := v.tx.Balance(to)
	if err != nil {
		return err
	}
	toBal, err = domain.CheckedAdd(toBal, amount)
	if err != nil {
		return err
	}
	if err := v.tx.SetBalance(from, fromBal-amount); err != nil {
		return err
	}
	return v.tx.SetBalance(to, toBal)
}

func (v vault) mint(to domain.Principal, amount uint64) error {
	bal, err := v.tx.Balance(to)
	if err != nil {
		return err
	}
	bal, err = domain.CheckedAdd(bal, amount)
	if err != nil {
		return err
	}
	return v.tx.SetBalance(to, bal)
}

// Deposit credits collateral pegged in from outside the ledger.
func (e *Engine) Deposit(ctx context.Context, to domain.Principal, amount uint64) error {
	if amount == 0 {
		return wrap("Deposit", domain.ErrZeroAmount)
	}
	if to == "" {
		return wrap("Deposit", fmt.Errorf("empty principal: %w", domain.ErrInvalidParams))
	}
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		if err := (vault{tx: tx}).mint(to, amount); err != nil {
			return err
		}
		return tx.Emit(domain.Event{Kind: domain.EventDeposit, Principal: to, Amount: amount})
	})
	return wrap("Deposit", err)
}
