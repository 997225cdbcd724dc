package domain

import (
	"fmt"

	"github.com/holiman/uint256"
)

// BuyQuote is the outcome of buying one side of a pool. Reserves are the
// post-trade values.
type BuyQuote struct {
	Side        Side
	AmountIn    uint64
	Fee         uint64
	NetIn       uint64
	SharesOut   uint64
	YesReserve  uint64
	NoReserve   uint64
	PriceBefore uint64
	PriceAfter  uint64
}

// SellQuote is the outcome of selling shares of one side back to a pool.
type SellQuote struct {
	Side        Side
	SharesIn    uint64
	Gross       uint64
	Fee         uint64
	AmountOut   uint64
	YesReserve  uint64
	NoReserve   uint64
	PriceBefore uint64
	PriceAfter  uint64
}

// Redemption is the payout of winning shares against a resolved pool.
type Redemption struct {
	Shares uint64
	Gross  uint64
	Fee    uint64
	Net    uint64
}

// FeeOf returns floor(amount × bps / 10000).
func FeeOf(amount, bps uint64) uint64 {
	v := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(bps))
	return v.Div(v, uint256.NewInt(BpsDenominator)).Uint64()
}

// QuoteBuy prices a buy of amountIn collateral on side. The fee is taken
// from the input, the net amount enters the opposing reserve and the
// purchased reserve is recomputed from K rounding up, so the trader's
// output is floored and Yes × No ≥ K holds.
//
// SharesOut is floored through a ceiling on the reserve: new reserve =
// ceil(K / opposing). Floor division on the reserve would hand out one extra
// share on inexact quotients and leave the pool below K.
func QuoteBuy(p Pool, side Side, amountIn uint64) (BuyQuote, error) {
	if !side.Valid() {
		return BuyQuote{}, fmt.Errorf("side %d: %w", side, ErrInvalidParams)
	}
	if amountIn == 0 {
		return BuyQuote{}, ErrZeroAmount
	}
	if p.Resolved {
		return BuyQuote{}, fmt.Errorf("pool %d: %w", p.MarketID, ErrAlreadyResolved)
	}

	fee := FeeOf(amountIn, BuyFeeBps)
	netIn := amountIn - fee

	cur := p.Reserve(side)
	other, ok := addUint64(p.Reserve(side.Opposite()), netIn)
	if !ok {
		return BuyQuote{}, fmt.Errorf("reserve overflow: %w", ErrInvalidParams)
	}
	next := ceilDiv(&p.K, other)
	if next > cur {
		// only reachable on a pool whose reserves already broke the invariant
		return BuyQuote{}, fmt.Errorf("pool %d invariant: %w", p.MarketID, ErrInvalidParams)
	}

	q := BuyQuote{
		Side:        side,
		AmountIn:    amountIn,
		Fee:         fee,
		NetIn:       netIn,
		SharesOut:   cur - next,
		PriceBefore: p.Price(side),
	}
	after := p
	after.setReserves(side, next, other)
	q.YesReserve, q.NoReserve = after.YesReserve, after.NoReserve
	q.PriceAfter = after.Price(side)
	return q, nil
}

// QuoteSell prices a sale of sharesIn shares of side. The shares enter the
// sold reserve, the opposing reserve is recomputed from K rounding up and
// the released collateral pays the seller minus the sell fee.
func QuoteSell(p Pool, side Side, sharesIn uint64) (SellQuote, error) {
	if !side.Valid() {
		return SellQuote{}, fmt.Errorf("side %d: %w", side, ErrInvalidParams)
	}
	if sharesIn == 0 {
		return SellQuote{}, ErrZeroAmount
	}
	if p.Resolved {
		return SellQuote{}, fmt.Errorf("pool %d: %w", p.MarketID, ErrAlreadyResolved)
	}

	cur, ok := addUint64(p.Reserve(side), sharesIn)
	if !ok {
		return SellQuote{}, fmt.Errorf("reserve overflow: %w", ErrInvalidParams)
	}
	other := p.Reserve(side.Opposite())
	next := ceilDiv(&p.K, cur)
	if next > other {
		return SellQuote{}, fmt.Errorf("pool %d invariant: %w", p.MarketID, ErrInvalidParams)
	}

	gross := other - next
	fee := FeeOf(gross, SellFeeBps)
	q := SellQuote{
		Side:        side,
		SharesIn:    sharesIn,
		Gross:       gross,
		Fee:         fee,
		AmountOut:   gross - fee,
		PriceBefore: p.Price(side),
	}
	after := p
	after.setReserves(side, cur, next)
	q.YesReserve, q.NoReserve = after.YesReserve, after.NoReserve
	q.PriceAfter = after.Price(side)
	return q, nil
}

// Redeem values winning shares against the reserves frozen at resolution:
// gross = floor(shares × (Yes + No) / winningReserve).
func Redeem(p Pool, shares uint64) (Redemption, error) {
	if !p.Resolved || p.Outcome == nil {
		return Redemption{}, fmt.Errorf("pool %d: %w", p.MarketID, ErrNotResolved)
	}
	if shares == 0 {
		return Redemption{}, ErrWrongOutcome
	}
	winning := p.Reserve(SideFor(*p.Outcome))
	if winning == 0 {
		return Redemption{}, fmt.Errorf("pool %d empty winning reserve: %w", p.MarketID, ErrInvalidParams)
	}

	total := new(uint256.Int).Add(uint256.NewInt(p.YesReserve), uint256.NewInt(p.NoReserve))
	v := new(uint256.Int).Mul(uint256.NewInt(shares), total)
	v.Div(v, uint256.NewInt(winning))
	if !v.IsUint64() {
		return Redemption{}, fmt.Errorf("winnings overflow: %w", ErrInvalidParams)
	}
	gross := v.Uint64()
	fee := FeeOf(gross, ClaimFeeBps)
	return Redemption{Shares: shares, Gross: gross, Fee: fee, Net: gross - fee}, nil
}

// ApplyBuy commits a quote to the pool.
func (p *Pool) ApplyBuy(q BuyQuote) {
	p.YesReserve, p.NoReserve = q.YesReserve, q.NoReserve
	p.TotalVolume += q.AmountIn
	p.TotalFees += q.Fee
}

// ApplySell commits a quote to the pool.
func (p *Pool) ApplySell(q SellQuote) {
	p.YesReserve, p.NoReserve = q.YesReserve, q.NoReserve
	p.TotalVolume += q.Gross
	p.TotalFees += q.Fee
}

// Resolve freezes the pool with its outcome. Reserves stay as they are and
// back every later redemption.
func (p *Pool) Resolve(outcome bool) error {
	if p.Resolved {
		return fmt.Errorf("pool %d: %w", p.MarketID, ErrAlreadyResolved)
	}
	p.Resolved = true
	p.Outcome = &outcome
	return nil
}

// ceilDiv returns ceil(k / d) as uint64. d is never zero here: reserves are
// seeded ≥ MinPoolSize and only grow on the side being divided by.
func ceilDiv(k *uint256.Int, d uint64) uint64 {
	den := uint256.NewInt(d)
	v := new(uint256.Int).Add(k, den)
	v.SubUint64(v, 1)
	v.Div(v, den)
	return v.Uint64()
}

func addUint64(a, b uint64) (uint64, bool) {
	s := a + b
	return s, s >= a
}

// CheckedAdd adds two amounts and reports overflow as ErrInvalidParams.
func CheckedAdd(a, b uint64) (uint64, error) {
	s, ok := addUint64(a, b)
	if !ok {
		return 0, fmt.Errorf("amount overflow: %w", ErrInvalidParams)
	}
	return s, nil
}
