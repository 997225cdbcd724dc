package domain

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const (
	BpsDenominator uint64 = 10_000
	BuyFeeBps      uint64 = 200 // 2% of amount in
	SellFeeBps     uint64 = 100 // 1% of gross proceeds
	ClaimFeeBps    uint64 = 100 // 1% of gross winnings

	// PriceScale is the fixed-point scale of implied prices: 1_000_000 = 100%.
	PriceScale uint64 = 1_000_000

	// MinPoolSize bounds the precision lost to integer division on small pools.
	MinPoolSize uint64 = 100_000

	// ImbalanceBps marks a pool whose reserve share on one side exceeds 90%.
	ImbalanceBps uint64 = 9_000
)

// Side is one of the two outcomes of a market.
type Side uint8

const (
	SideYes Side = iota + 1
	SideNo
)

func (s Side) Valid() bool { return s == SideYes || s == SideNo }

func (s Side) String() string {
	switch s {
	case SideYes:
		return "YES"
	case SideNo:
		return "NO"
	default:
		return "INVALID"
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// SideFor maps a resolved outcome to the winning side.
func SideFor(outcome bool) Side {
	if outcome {
		return SideYes
	}
	return SideNo
}

// ParseSide accepts "yes"/"no" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return SideYes, nil
	case "no":
		return SideNo, nil
	}
	return 0, fmt.Errorf("side %q: %w", s, ErrInvalidParams)
}

// Pool is the constant-product pool of one market. Reserves are in the
// smallest collateral unit.
type Pool struct {
	MarketID    uint64
	YesReserve  uint64
	NoReserve   uint64
	K           uint256.Int // YesReserve₀ × NoReserve₀, fixed at initialization
	TotalVolume uint64
	TotalFees   uint64
	Resolved    bool
	Outcome     *bool
}

// NewPool seeds a pool. Both sides must be at least MinPoolSize.
func NewPool(marketID, yesSeed, noSeed uint64) (Pool, error) {
	if yesSeed < MinPoolSize || noSeed < MinPoolSize {
		return Pool{}, fmt.Errorf("seed %d/%d below minimum %d: %w",
			yesSeed, noSeed, MinPoolSize, ErrInvalidParams)
	}
	p := Pool{MarketID: marketID, YesReserve: yesSeed, NoReserve: noSeed}
	p.K.Mul(uint256.NewInt(yesSeed), uint256.NewInt(noSeed))
	return p, nil
}

// Reserve returns the reserve held for side.
func (p Pool) Reserve(side Side) uint64 {
	if side == SideYes {
		return p.YesReserve
	}
	return p.NoReserve
}

func (p *Pool) setReserves(side Side, sideReserve, otherReserve uint64) {
	if side == SideYes {
		p.YesReserve, p.NoReserve = sideReserve, otherReserve
		return
	}
	p.NoReserve, p.YesReserve = sideReserve, otherReserve
}

// YesPrice is the implied YES probability: No / (Yes + No), scaled by PriceScale.
func (p Pool) YesPrice() uint64 {
	return impliedPrice(p.NoReserve, p.YesReserve)
}

// NoPrice is the implied NO probability: Yes / (Yes + No), scaled by PriceScale.
func (p Pool) NoPrice() uint64 {
	return impliedPrice(p.YesReserve, p.NoReserve)
}

// Price returns the implied price of side.
func (p Pool) Price(side Side) uint64 {
	if side == SideYes {
		return p.YesPrice()
	}
	return p.NoPrice()
}

// Product returns YesReserve × NoReserve.
func (p Pool) Product() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(p.YesReserve), uint256.NewInt(p.NoReserve))
}

// InvariantHolds reports whether Yes × No ≥ K.
func (p Pool) InvariantHolds() bool {
	return !p.Product().Lt(&p.K)
}

// Imbalanced reports whether one side holds more than ImbalanceBps of the
// combined reserves.
func (p Pool) Imbalanced() bool {
	total := new(uint256.Int).Add(uint256.NewInt(p.YesReserve), uint256.NewInt(p.NoReserve))
	if total.IsZero() {
		return false
	}
	limit := new(uint256.Int).Mul(total, uint256.NewInt(ImbalanceBps))
	for _, r := range []uint64{p.YesReserve, p.NoReserve} {
		share := new(uint256.Int).Mul(uint256.NewInt(r), uint256.NewInt(BpsDenominator))
		if share.Gt(limit) {
			return true
		}
	}
	return false
}

func impliedPrice(numerator, other uint64) uint64 {
	total := new(uint256.Int).Add(uint256.NewInt(numerator), uint256.NewInt(other))
	if total.IsZero() {
		return 0
	}
	v := new(uint256.Int).Mul(uint256.NewInt(numerator), uint256.NewInt(PriceScale))
	return v.Div(v, total).Uint64()
}
