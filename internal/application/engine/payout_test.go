package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/satbets/internal/domain"
)

func (f *fixture) resolve(outcome bool) {
	f.t.Helper()
	f.submit(outcome)
	f.advance(domain.DisputeWindow)
	_, err := f.eng.FinalizeResolution(f.ctx, f.marketID, carol)
	require.NoError(f.t, err)
}

func TestClaimWinnings_NotResolved(t *testing.T) {
	f := newMemFixture(t)
	f.buy(alice, domain.SideYes, 1_000_000)

	_, err := f.eng.ClaimWinnings(f.ctx, f.marketID, alice)
	assert.ErrorIs(t, err, domain.ErrNotResolved)

	f.submit(true)
	_, err = f.eng.ClaimWinnings(f.ctx, f.marketID, alice)
	assert.ErrorIs(t, err, domain.ErrNotResolved, "pending resolution does not pay out")

	_, err = f.eng.ClaimWinnings(f.ctx, 55, alice)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClaimWinnings_NoPosition(t *testing.T) {
	f := newMemFixture(t)
	f.resolve(true)

	_, err := f.eng.ClaimWinnings(f.ctx, f.marketID, carol)
	assert.ErrorIs(t, err, domain.ErrWrongOutcome)
}

func TestClaimWinnings_SoldOutPosition(t *testing.T) {
	f := newMemFixture(t)
	b := f.buy(alice, domain.SideYes, 1_000_000)
	_, err := f.eng.SellShares(f.ctx, f.marketID, domain.SideYes, b.SharesOut, 0, alice)
	require.NoError(t, err)
	f.resolve(true)

	_, err = f.eng.ClaimWinnings(f.ctx, f.marketID, alice)
	assert.ErrorIs(t, err, domain.ErrWrongOutcome)
}

func TestClaimWinnings_EscrowShortfallCommitsNothing(t *testing.T) {
	f := newMemFixture(t)
	f.buy(alice, domain.SideYes, 1_000_000)
	f.buy(bob, domain.SideNo, 1_000_000)
	f.resolve(false)

	// bob's 1_306_622 NO shares redeem for 4_146_331 net against a 4_000_000 escrow
	_, err := f.eng.ClaimWinnings(f.ctx, f.marketID, bob)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	pos, err := f.eng.Position(f.ctx, f.marketID, bob)
	require.NoError(t, err)
	assert.False(t, pos.Claimed, "aborted claim leaves the flag unset")
	assert.Equal(t, uint64(49_000_000), f.balance(bob))
	assert.Equal(t, uint64(4_000_000), f.balance(domain.MarketEscrow(f.marketID)))
}

func TestClaimWinnings_FeesAccrueToPool(t *testing.T) {
	f := newMemFixture(t)
	f.buy(alice, domain.SideYes, 1_000_000)
	f.resolve(true)

	before, err := f.eng.Pool(f.ctx, f.marketID)
	require.NoError(t, err)

	claim, err := f.eng.ClaimWinnings(f.ctx, f.marketID, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_435_345-24_353), claim.Winnings)

	after, err := f.eng.Pool(f.ctx, f.marketID)
	require.NoError(t, err)
	assert.Equal(t, before.TotalFees+claim.Fee, after.TotalFees)
	assert.Equal(t, before.YesReserve, after.YesReserve, "reserves stay frozen")
}
