package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balancedPool(t *testing.T) Pool {
	t.Helper()
	p, err := NewPool(1, 1_000_000, 1_000_000)
	require.NoError(t, err)
	return p
}

// --- NewPool ---

func TestNewPool_SymmetricSeedPricesAtHalf(t *testing.T) {
	p := balancedPool(t)
	assert.Equal(t, uint64(500_000), p.YesPrice())
	assert.Equal(t, uint64(500_000), p.NoPrice())
	assert.Equal(t, "1000000000000", p.K.Dec())
}

func TestNewPool_BelowMinimum(t *testing.T) {
	_, err := NewPool(1, MinPoolSize-1, 1_000_000)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewPool(1, 1_000_000, MinPoolSize-1)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewPool(1, MinPoolSize, MinPoolSize)
	assert.NoError(t, err)
}

// --- FeeOf ---

func TestFeeOf(t *testing.T) {
	assert.Equal(t, uint64(20_000), FeeOf(1_000_000, BuyFeeBps))
	assert.Equal(t, uint64(0), FeeOf(49, BuyFeeBps))
	assert.Equal(t, uint64(1), FeeOf(50, BuyFeeBps))
	assert.Equal(t, uint64(9_800), FeeOf(980_000, SellFeeBps))
	// no overflow on large amounts
	assert.Equal(t, uint64(1<<62)/50, FeeOf(1<<62, BuyFeeBps))
}

// --- QuoteBuy ---

func TestQuoteBuy_Exact(t *testing.T) {
	p := balancedPool(t)

	q, err := QuoteBuy(p, SideYes, 1_000_000)
	require.NoError(t, err)

	assert.Equal(t, uint64(20_000), q.Fee)
	assert.Equal(t, uint64(980_000), q.NetIn)
	assert.Equal(t, uint64(494_949), q.SharesOut)
	assert.Equal(t, uint64(505_051), q.YesReserve)
	assert.Equal(t, uint64(1_980_000), q.NoReserve)
	assert.Equal(t, uint64(500_000), q.PriceBefore)
	assert.Equal(t, uint64(796_764), q.PriceAfter)

	// K / 1_980_000 = 505_050.50...: the reserve rounds up, the shares down.
	// A floored reserve of 505_050 would break the invariant.
	assert.Less(t, uint64(505_050)*uint64(1_980_000), uint64(1_000_000)*uint64(1_000_000))
	assert.GreaterOrEqual(t, q.YesReserve*q.NoReserve, uint64(1_000_000)*uint64(1_000_000))
}

func TestQuoteBuy_DoesNotMutate(t *testing.T) {
	p := balancedPool(t)
	_, err := QuoteBuy(p, SideNo, 500_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), p.YesReserve)
	assert.Equal(t, uint64(1_000_000), p.NoReserve)
}

func TestQuoteBuy_InvariantAndMonotonicPrice(t *testing.T) {
	p := balancedPool(t)
	amounts := []uint64{1, 37, 1_000, 123_457, 1_000_000, 9_999_999, 250_000_000}

	for _, side := range []Side{SideYes, SideNo} {
		pool := p
		for _, amt := range amounts {
			before := pool.Price(side)
			q, err := QuoteBuy(pool, side, amt)
			require.NoError(t, err)
			pool.ApplyBuy(q)
			assert.True(t, pool.InvariantHolds(), "side=%s amount=%d", side, amt)
			assert.GreaterOrEqual(t, pool.Price(side), before, "side=%s amount=%d", side, amt)
		}
	}
}

func TestQuoteBuy_DustYieldsZeroShares(t *testing.T) {
	p := balancedPool(t)
	q, err := QuoteBuy(p, SideYes, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), q.Fee)
	assert.Equal(t, uint64(0), q.SharesOut)
}

func TestQuoteBuy_Rejections(t *testing.T) {
	p := balancedPool(t)

	_, err := QuoteBuy(p, SideYes, 0)
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = QuoteBuy(p, Side(7), 100)
	assert.ErrorIs(t, err, ErrInvalidParams)

	require.NoError(t, p.Resolve(true))
	_, err = QuoteBuy(p, SideYes, 100)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

// --- QuoteSell ---

func TestQuoteSell_RoundTrip(t *testing.T) {
	p := balancedPool(t)
	buy, err := QuoteBuy(p, SideYes, 1_000_000)
	require.NoError(t, err)
	p.ApplyBuy(buy)

	sell, err := QuoteSell(p, SideYes, buy.SharesOut)
	require.NoError(t, err)

	assert.Equal(t, uint64(980_000), sell.Gross)
	assert.Equal(t, uint64(9_800), sell.Fee)
	assert.Equal(t, uint64(970_200), sell.AmountOut)
	assert.Equal(t, uint64(1_000_000), sell.YesReserve)
	assert.Equal(t, uint64(1_000_000), sell.NoReserve)

	p.ApplySell(sell)
	assert.True(t, p.InvariantHolds())
	assert.Equal(t, uint64(1_980_000), p.TotalVolume)
	assert.Equal(t, uint64(29_800), p.TotalFees)
}

func TestQuoteSell_Rejections(t *testing.T) {
	p := balancedPool(t)

	_, err := QuoteSell(p, SideNo, 0)
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = QuoteSell(p, 0, 10)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

// --- Redeem ---

func TestRedeem_UsesFrozenReserves(t *testing.T) {
	p := balancedPool(t)
	q, err := QuoteBuy(p, SideYes, 1_000_000)
	require.NoError(t, err)
	p.ApplyBuy(q)
	require.NoError(t, p.Resolve(true))

	r, err := Redeem(p, q.SharesOut)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_435_345), r.Gross)
	assert.Equal(t, uint64(24_353), r.Fee)
	assert.Equal(t, uint64(2_410_992), r.Net)
}

func TestRedeem_Unresolved(t *testing.T) {
	_, err := Redeem(balancedPool(t), 10)
	assert.ErrorIs(t, err, ErrNotResolved)
}

func TestPool_ResolveTwice(t *testing.T) {
	p := balancedPool(t)
	require.NoError(t, p.Resolve(false))
	assert.ErrorIs(t, p.Resolve(true), ErrAlreadyResolved)
	require.NotNil(t, p.Outcome)
	assert.False(t, *p.Outcome)
}

// --- Health ---

func TestPool_Imbalanced(t *testing.T) {
	p, err := NewPool(1, 9_100_000, 900_000)
	require.NoError(t, err)
	assert.True(t, p.Imbalanced())

	p, err = NewPool(1, 9_000_000, 1_000_000)
	require.NoError(t, err)
	assert.False(t, p.Imbalanced(), "exactly 90% is healthy")

	assert.False(t, balancedPool(t).Imbalanced())
}

// --- SeedSplit ---

func TestSeedSplit(t *testing.T) {
	tests := []struct {
		bps      uint64
		yes, no  uint64
		yesPrice uint64
	}{
		{5000, 5_000_000, 5_000_000, 500_000},
		{6500, 3_500_000, 6_500_000, 650_000},
		{100, 9_900_000, 100_000, 10_000},
	}
	for _, tt := range tests {
		yes, no, err := SeedSplit(10_000_000, tt.bps)
		require.NoError(t, err)
		assert.Equal(t, tt.yes, yes)
		assert.Equal(t, tt.no, no)

		p, err := NewPool(1, yes, no)
		require.NoError(t, err)
		assert.Equal(t, tt.yesPrice, p.YesPrice())
	}
}

func TestSeedSplit_Invalid(t *testing.T) {
	_, _, err := SeedSplit(10_000_000, 0)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, _, err = SeedSplit(10_000_000, 10_000)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, _, err = SeedSplit(10_000_000, 50)
	assert.ErrorIs(t, err, ErrInvalidParams, "no side under pool minimum")
}
