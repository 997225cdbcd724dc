package domain

import "fmt"

// Position holds a trader's shares in one market.
// CostBasis is the lifetime collateral paid in by buys; sells never reduce it.
type Position struct {
	MarketID  uint64
	Trader    Principal
	YesShares uint64
	NoShares  uint64
	CostBasis uint64
	Claimed   bool
}

// Shares returns the shares held on side.
func (p Position) Shares(side Side) uint64 {
	if side == SideYes {
		return p.YesShares
	}
	return p.NoShares
}

// Credit adds bought shares and the amount paid for them.
func (p *Position) Credit(side Side, shares, paid uint64) error {
	held, err := CheckedAdd(p.Shares(side), shares)
	if err != nil {
		return err
	}
	basis, err := CheckedAdd(p.CostBasis, paid)
	if err != nil {
		return err
	}
	p.setShares(side, held)
	p.CostBasis = basis
	return nil
}

// Debit removes sold shares. CostBasis is left untouched.
func (p *Position) Debit(side Side, shares uint64) error {
	held := p.Shares(side)
	if held < shares {
		return fmt.Errorf("hold %d %s shares, need %d: %w", held, side, shares, ErrInsufficientShares)
	}
	p.setShares(side, held-shares)
	return nil
}

func (p *Position) setShares(side Side, v uint64) {
	if side == SideYes {
		p.YesShares = v
		return
	}
	p.NoShares = v
}
