package engine

import (
	"context"
	"errors"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// Market returns one market.
func (e *Engine) Market(ctx context.Context, id uint64) (domain.Market, error) {
	var m domain.Market
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		m, err = tx.Market(id)
		return err
	})
	return m, wrap("Market", err)
}

// Markets returns every market ordered by id.
func (e *Engine) Markets(ctx context.Context) ([]domain.Market, error) {
	var ms []domain.Market
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		ms, err = tx.Markets()
		return err
	})
	return ms, wrap("Markets", err)
}

func (e *Engine) MarketCount(ctx context.Context) (uint64, error) {
	var n uint64
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		n, err = tx.MarketCount()
		return err
	})
	return n, wrap("MarketCount", err)
}

func (e *Engine) Admin(ctx context.Context) (domain.Principal, error) {
	var p domain.Principal
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		p, err = tx.Admin()
		return err
	})
	return p, wrap("Admin", err)
}

// IsCreator reports whether p may create markets. The admin always may.
func (e *Engine) IsCreator(ctx context.Context, p domain.Principal) (bool, error) {
	var ok bool
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		err := requireCreator(tx, p)
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil
		}
		ok = err == nil
		return err
	})
	return ok, wrap("IsCreator", err)
}

func (e *Engine) Pool(ctx context.Context, marketID uint64) (domain.Pool, error) {
	var p domain.Pool
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		p, err = tx.Pool(marketID)
		return err
	})
	return p, wrap("Pool", err)
}

// Prices returns the implied YES and NO prices, scaled by domain.PriceScale.
func (e *Engine) Prices(ctx context.Context, marketID uint64) (yes, no uint64, err error) {
	p, err := e.Pool(ctx, marketID)
	if err != nil {
		return 0, 0, err
	}
	return p.YesPrice(), p.NoPrice(), nil
}

func (e *Engine) Position(ctx context.Context, marketID uint64, trader domain.Principal) (domain.Position, error) {
	var p domain.Position
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		p, err = tx.Position(marketID, trader)
		return err
	})
	return p, wrap("Position", err)
}

func (e *Engine) Resolution(ctx context.Context, marketID uint64) (domain.Resolution, error) {
	var r domain.Resolution
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		r, err = tx.Resolution(marketID)
		return err
	})
	return r, wrap("Resolution", err)
}

// Resolutions returns every resolution ordered by market id.
func (e *Engine) Resolutions(ctx context.Context) ([]domain.Resolution, error) {
	var rs []domain.Resolution
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		rs, err = tx.Resolutions()
		return err
	})
	return rs, wrap("Resolutions", err)
}

// IsOracle reports whether p is a registered, active oracle.
func (e *Engine) IsOracle(ctx context.Context, p domain.Principal) (bool, error) {
	var ok bool
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		o, err := tx.Oracle(p)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		ok = err == nil && o.Active
		return err
	})
	return ok, wrap("IsOracle", err)
}

func (e *Engine) Oracle(ctx context.Context, p domain.Principal) (domain.Oracle, error) {
	var o domain.Oracle
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		o, err = tx.Oracle(p)
		return err
	})
	return o, wrap("Oracle", err)
}

// InDisputeWindow reports whether the market's resolution still accepts a
// dispute at the current height. False when there is no resolution.
func (e *Engine) InDisputeWindow(ctx context.Context, marketID uint64) (bool, error) {
	var open bool
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		r, err := tx.Resolution(marketID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		h, err := tx.Height()
		if err != nil {
			return err
		}
		open = r.InDisputeWindow(h)
		return nil
	})
	return open, wrap("InDisputeWindow", err)
}

// Balance returns the collateral held by p.
func (e *Engine) Balance(ctx context.Context, p domain.Principal) (uint64, error) {
	var b uint64
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		b, err = tx.Balance(p)
		return err
	})
	return b, wrap("Balance", err)
}

// Events returns the newest audit events first. marketID 0 selects all.
func (e *Engine) Events(ctx context.Context, marketID uint64, limit int) ([]domain.Event, error) {
	var evs []domain.Event
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		var err error
		evs, err = tx.Events(marketID, limit)
		return err
	})
	return evs, wrap("Events", err)
}

// MarketViews returns the display record of every market in one snapshot.
func (e *Engine) MarketViews(ctx context.Context) ([]domain.MarketView, error) {
	var views []domain.MarketView
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		ms, err := tx.Markets()
		if err != nil {
			return err
		}
		for _, m := range ms {
			v, err := marketView(tx, m)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
		return nil
	})
	return views, wrap("MarketViews", err)
}

// MarketView returns the display record of one market.
func (e *Engine) MarketView(ctx context.Context, marketID uint64) (domain.MarketView, error) {
	var v domain.MarketView
	err := e.ledger.View(ctx, func(tx ports.ReadTx) error {
		m, err := tx.Market(marketID)
		if err != nil {
			return err
		}
		v, err = marketView(tx, m)
		return err
	})
	return v, wrap("MarketView", err)
}

func marketView(tx ports.ReadTx, m domain.Market) (domain.MarketView, error) {
	var pool *domain.Pool
	p, err := tx.Pool(m.ID)
	switch {
	case err == nil:
		pool = &p
	case !errors.Is(err, domain.ErrNotFound):
		return domain.MarketView{}, err
	}

	var res *domain.Resolution
	r, err := tx.Resolution(m.ID)
	switch {
	case err == nil:
		res = &r
	case !errors.Is(err, domain.ErrNotFound):
		return domain.MarketView{}, err
	}
	return domain.NewMarketView(m, pool, res), nil
}
