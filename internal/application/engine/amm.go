package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// BuyResult es el resultado de una compra confirmada.
type BuyResult struct {
	SharesOut uint64
	Fee       uint64
	NetIn     uint64
	YesPrice  uint64 // after the trade
	NoPrice   uint64
}

// SellResult es el resultado de una venta confirmada.
type SellResult struct {
	AmountOut uint64
	Fee       uint64
	Gross     uint64
	YesPrice  uint64
	NoPrice   uint64
}

// InitializePool seeds the market's pool with the admin's collateral. The
// seeds move from the admin account into the market escrow.
func (e *Engine) InitializePool(ctx context.Context, marketID, yesSeed, noSeed uint64, caller domain.Principal) (domain.Pool, error) {
	var pool domain.Pool
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		if err := requireAdmin(tx, caller); err != nil {
			return err
		}
		m, err := tx.Market(marketID)
		if err != nil {
			return err
		}
		if m.Status != domain.MarketActive {
			return fmt.Errorf("market %d is %s: %w", marketID, m.Status, domain.ErrInvalidParams)
		}
		if _, err := tx.Pool(marketID); err == nil {
			return fmt.Errorf("pool %d: %w", marketID, domain.ErrAlreadyExists)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if pool, err = domain.NewPool(marketID, yesSeed, noSeed); err != nil {
			return err
		}
		total, err := domain.CheckedAdd(yesSeed, noSeed)
		if err != nil {
			return err
		}
		if err := (vault{tx: tx}).transfer(caller, domain.MarketEscrow(marketID), total); err != nil {
			return err
		}
		if err := tx.PutPool(pool); err != nil {
			return err
		}
		return tx.Emit(domain.Event{
			Kind:      domain.EventPoolInitialized,
			MarketID:  marketID,
			Principal: caller,
			Amount:    total,
			Detail:    fmt.Sprintf("yes=%d no=%d", yesSeed, noSeed),
		})
	})
	if err != nil {
		return domain.Pool{}, wrap("InitializePool", err)
	}
	slog.Info("pool initialized",
		"market_id", marketID,
		"yes_seed", yesSeed,
		"no_seed", noSeed,
		"yes_price", pool.YesPrice(),
	)
	return pool, nil
}

// BuyShares spends amountIn collateral on side. It fails with
// domain.ErrSlippage, leaving everything unchanged, when the trade would
// return fewer than minSharesOut shares.
func (e *Engine) BuyShares(ctx context.Context, marketID uint64, side domain.Side, amountIn, minSharesOut uint64, caller domain.Principal) (BuyResult, error) {
	var res BuyResult
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		pool, q, err := quoteBuy(tx, marketID, side, amountIn)
		if err != nil {
			return err
		}
		if q.SharesOut < minSharesOut {
			return fmt.Errorf("%d shares out, wanted %d: %w", q.SharesOut, minSharesOut, domain.ErrSlippage)
		}
		if err := (vault{tx: tx}).transfer(caller, domain.MarketEscrow(marketID), amountIn); err != nil {
			return err
		}

		pos, err := positionOrNew(tx, marketID, caller)
		if err != nil {
			return err
		}
		if err := pos.Credit(side, q.SharesOut, amountIn); err != nil {
			return err
		}
		pool.ApplyBuy(q)
		if err := tx.PutPosition(pos); err != nil {
			return err
		}
		if err := tx.PutPool(pool); err != nil {
			return err
		}

		res = BuyResult{
			SharesOut: q.SharesOut,
			Fee:       q.Fee,
			NetIn:     q.NetIn,
			YesPrice:  pool.YesPrice(),
			NoPrice:   pool.NoPrice(),
		}
		return tx.Emit(domain.Event{
			Kind:      domain.EventSharesBought,
			MarketID:  marketID,
			Principal: caller,
			Amount:    amountIn,
			Detail:    fmt.Sprintf("%s shares=%d fee=%d", side, q.SharesOut, q.Fee),
		})
	})
	if err != nil {
		return BuyResult{}, wrap("BuyShares", err)
	}
	slog.Debug("shares bought",
		"market_id", marketID,
		"trader", caller,
		"side", side,
		"amount_in", amountIn,
		"shares_out", res.SharesOut,
	)
	return res, nil
}

// SellShares returns sharesIn shares of side to the pool for collateral.
// The position's cost basis is not reduced.
func (e *Engine) SellShares(ctx context.Context, marketID uint64, side domain.Side, sharesIn, minAmountOut uint64, caller domain.Principal) (SellResult, error) {
	var res SellResult
	err := e.ledger.Update(ctx, func(tx ports.Tx) error {
		if sharesIn == 0 {
			return domain.ErrZeroAmount
		}
		pos, err := tx.Position(marketID, caller)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no position in market %d: %w", marketID, domain.ErrInsufficientShares)
		}
		if err != nil {
			return err
		}
		if err := pos.Debit(side, sharesIn); err != nil {
			return err
		}

		pool, q, err := quoteSell(tx, marketID, side, sharesIn)
		if err != nil {
			return err
		}
		if q.AmountOut < minAmountOut {
			return fmt.Errorf("%d out, wanted %d: %w", q.AmountOut, minAmountOut, domain.ErrSlippage)
		}
		if err := (vault{tx: tx}).transfer(domain.MarketEscrow(marketID), caller, q.AmountOut); err != nil {
			return err
		}

		pool.ApplySell(q)
		if err := tx.PutPosition(pos); err != nil {
			return err
		}
		if err := tx.PutPool(pool); err != nil {
			return err
		}

		res = SellResult{
			AmountOut: q.AmountOut,
			Fee:       q.Fee,
			Gross:     q.Gross,
			YesPrice:  pool.YesPrice(),
			NoPrice:   pool.NoPrice(),
		}
		return tx.Emit(domain.Event{
			Kind:      domain.EventSharesSold,
			MarketID:  marketID,
			Principal: caller,
			Amount:    q.AmountOut,
			Detail:    fmt.Sprintf("%s shares=%d fee=%d", side, sharesIn, q.Fee),
		})
	})
	if err != nil {
		return SellResult{}, wrap("SellShares", err)
	}
	slog.Debug("shares sold",
		"market_id", marketID,
		"trader", caller,
		"side", side,
		"shares_in", sharesIn,
		"amount_out", res.AmountOut,
	)
	return res, nil
}

// QuoteBuy prices a buy against committed state without changing it.
func (e *Engine) QuoteBuy(ctx context.Context, marketID uint64, side domain.Side, amountIn uint64) (domain.BuyQuote, error) {
	var q domain.BuyQuote
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		_, q, err = quoteBuy(tx, marketID, side, amountIn)
		return err
	})
	return q, wrap("QuoteBuy", err)
}

// QuoteSell prices a sale against committed state without changing it.
func (e *Engine) QuoteSell(ctx context.Context, marketID uint64, side domain.Side, sharesIn uint64) (domain.SellQuote, error) {
	var q domain.SellQuote
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		_, q, err = quoteSell(tx, marketID, side, sharesIn)
		return err
	})
	return q, wrap("QuoteSell", err)
}

func quoteBuy(tx ports.ReadTx, marketID uint64, side domain.Side, amountIn uint64) (domain.Pool, domain.BuyQuote, error) {
	if amountIn == 0 {
		return domain.Pool{}, domain.BuyQuote{}, domain.ErrZeroAmount
	}
	pool, err := tradeablePool(tx, marketID)
	if err != nil {
		return domain.Pool{}, domain.BuyQuote{}, err
	}
	q, err := domain.QuoteBuy(pool, side, amountIn)
	return pool, q, err
}

func quoteSell(tx ports.ReadTx, marketID uint64, side domain.Side, sharesIn uint64) (domain.Pool, domain.SellQuote, error) {
	if sharesIn == 0 {
		return domain.Pool{}, domain.SellQuote{}, domain.ErrZeroAmount
	}
	pool, err := tradeablePool(tx, marketID)
	if err != nil {
		return domain.Pool{}, domain.SellQuote{}, err
	}
	q, err := domain.QuoteSell(pool, side, sharesIn)
	return pool, q, err
}

func tradeablePool(tx ports.ReadTx, marketID uint64) (domain.Pool, error) {
	m, err := tx.Market(marketID)
	if err != nil {
		return domain.Pool{}, err
	}
	if !m.Tradeable() {
		return domain.Pool{}, fmt.Errorf("market %d is %s: %w", marketID, m.Status, domain.ErrInvalidParams)
	}
	return tx.Pool(marketID)
}

func positionOrNew(tx ports.ReadTx, marketID uint64, trader domain.Principal) (domain.Position, error) {
	pos, err := tx.Position(marketID, trader)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Position{MarketID: marketID, Trader: trader}, nil
	}
	return pos, err
}

// resolvePool freezes the pool with the final outcome. Only the resolution
// state machine calls it, inside its own transaction.
func resolvePool(tx ports.Tx, marketID uint64, outcome bool) error {
	pool, err := tx.Pool(marketID)
	if err != nil {
		return err
	}
	if err := pool.Resolve(outcome); err != nil {
		return err
	}
	return tx.PutPool(pool)
}
