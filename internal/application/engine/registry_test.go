package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/satbets/internal/adapters/memory"
	"github.com/alejandrodnm/satbets/internal/application/engine"
	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

var errDiskFull = errors.New("disk full")

// brokenAdminLedger fails every admin lookup inside write transactions.
type brokenAdminLedger struct {
	ports.Ledger
}

type brokenAdminTx struct {
	ports.Tx
}

func (brokenAdminTx) Admin() (domain.Principal, error) { return "", errDiskFull }

func (l brokenAdminLedger) Update(ctx context.Context, fn func(ports.Tx) error) error {
	return l.Ledger.Update(ctx, func(tx ports.Tx) error { return fn(brokenAdminTx{tx}) })
}

func params(resolutionHeight uint64) domain.MarketParams {
	return domain.MarketParams{
		Question:         "Will the ETF be approved?",
		Description:      "Regulator decision by the deadline.",
		Category:         domain.CategoryRegulation,
		ResolutionHeight: resolutionHeight,
	}
}

func TestCreateMarket_Authorization(t *testing.T) {
	f := newMemFixture(t)

	_, err := f.eng.CreateMarket(f.ctx, params(1_000), carol)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, f.eng.AddCreator(f.ctx, carol, admin))
	ok, err := f.eng.IsCreator(f.ctx, carol)
	require.NoError(t, err)
	assert.True(t, ok)

	m, err := f.eng.CreateMarket(f.ctx, params(1_000), carol)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), m.ID)
	assert.Equal(t, carol, m.Creator)
	assert.Equal(t, domain.MarketActive, m.Status)

	require.NoError(t, f.eng.RemoveCreator(f.ctx, carol, admin))
	_, err = f.eng.CreateMarket(f.ctx, params(1_000), carol)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.ErrorIs(t, f.eng.AddCreator(f.ctx, bob, carol), domain.ErrNotAdmin)

	n, err := f.eng.MarketCount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestCreateMarket_AdminLookupFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	t.Cleanup(func() { _ = ledger.Close() })
	healthy := engine.New(ledger)
	require.NoError(t, healthy.Genesis(ctx, admin))
	require.NoError(t, healthy.AddCreator(ctx, carol, admin))

	eng := engine.New(brokenAdminLedger{ledger})
	for _, caller := range []domain.Principal{admin, carol, bob} {
		_, err := eng.CreateMarket(ctx, params(1_000), caller)
		require.Error(t, err)
		assert.ErrorIs(t, err, errDiskFull, "caller %s", caller)
		assert.NotErrorIs(t, err, domain.ErrUnauthorized)
	}

	n, err := healthy.MarketCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateMarket_CreatorBeforeGenesis(t *testing.T) {
	ctx := context.Background()
	eng := engine.New(memory.NewLedger())

	_, err := eng.CreateMarket(ctx, params(1_000), carol)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCreateMarket_MaturityFromCurrentHeight(t *testing.T) {
	f := newMemFixture(t)
	f.advance(100)

	_, err := f.eng.CreateMarket(f.ctx, params(243), admin)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	m, err := f.eng.CreateMarket(f.ctx, params(244), admin)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), m.CreatedAt)
}

func TestMarketStatusTransitions(t *testing.T) {
	f := newMemFixture(t)

	assert.ErrorIs(t, f.eng.PauseMarket(f.ctx, f.marketID, alice), domain.ErrNotAdmin)
	assert.ErrorIs(t, f.eng.ResumeMarket(f.ctx, f.marketID, admin), domain.ErrInvalidParams)
	assert.ErrorIs(t, f.eng.PauseMarket(f.ctx, 77, admin), domain.ErrNotFound)

	require.NoError(t, f.eng.PauseMarket(f.ctx, f.marketID, admin))
	assert.ErrorIs(t, f.eng.PauseMarket(f.ctx, f.marketID, admin), domain.ErrInvalidParams)
	require.NoError(t, f.eng.ResumeMarket(f.ctx, f.marketID, admin))

	require.NoError(t, f.eng.CancelMarket(f.ctx, f.marketID, admin))
	assert.ErrorIs(t, f.eng.CancelMarket(f.ctx, f.marketID, admin), domain.ErrInvalidParams)
	assert.ErrorIs(t, f.eng.ResumeMarket(f.ctx, f.marketID, admin), domain.ErrInvalidParams)

	m, err := f.eng.Market(f.ctx, f.marketID)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketCancelled, m.Status)
}

func TestSetAdmin_TransfersImmediately(t *testing.T) {
	f := newMemFixture(t)

	assert.ErrorIs(t, f.eng.SetAdmin(f.ctx, bob, alice), domain.ErrNotAdmin)
	require.NoError(t, f.eng.SetAdmin(f.ctx, bob, admin))

	assert.ErrorIs(t, f.eng.PauseMarket(f.ctx, f.marketID, admin), domain.ErrNotAdmin)
	require.NoError(t, f.eng.PauseMarket(f.ctx, f.marketID, bob))

	ok, err := f.eng.IsCreator(f.ctx, bob)
	require.NoError(t, err)
	assert.True(t, ok, "admin may always create")
}

func TestEvents_RecordCommittedWrites(t *testing.T) {
	f := newMemFixture(t)
	f.buy(alice, domain.SideYes, 10_000)

	evs, err := f.eng.Events(f.ctx, f.marketID, 0)
	require.NoError(t, err)
	require.Len(t, evs, 3)
	assert.Equal(t, domain.EventSharesBought, evs[0].Kind)
	assert.Equal(t, domain.EventPoolInitialized, evs[1].Kind)
	assert.Equal(t, domain.EventMarketCreated, evs[2].Kind)
	assert.Equal(t, alice, evs[0].Principal)
}
