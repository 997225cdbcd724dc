package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/satbets/internal/adapters/storage"
	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

func newLedger(t *testing.T) *storage.SQLiteLedger {
	t.Helper()
	l, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestSQLiteLedger_MarketRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	yes := true

	require.NoError(t, l.Update(ctx, func(tx ports.Tx) error {
		id, err := tx.NextMarketID()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)
		return tx.PutMarket(domain.Market{
			ID:               id,
			Question:         "Will X happen?",
			Description:      "desc",
			Category:         domain.CategoryMacro,
			Creator:          "admin",
			CreatedAt:        10,
			ResolutionHeight: 200,
			Status:           domain.MarketResolved,
			Outcome:          &yes,
			AIGenerated:      true,
			MetadataURI:      "ipfs://x",
		})
	}))

	require.NoError(t, l.View(ctx, func(tx ports.ReadTx) error {
		m, err := tx.Market(1)
		require.NoError(t, err)
		assert.Equal(t, domain.CategoryMacro, m.Category)
		assert.Equal(t, domain.MarketResolved, m.Status)
		require.NotNil(t, m.Outcome)
		assert.True(t, *m.Outcome)
		assert.True(t, m.AIGenerated)

		n, err := tx.MarketCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), n)

		all, err := tx.Markets()
		require.NoError(t, err)
		assert.Len(t, all, 1)
		return nil
	}))
}

func TestSQLiteLedger_PoolKeepsK(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	pool, err := domain.NewPool(3, 4_000_000_000, 5_000_000_000)
	require.NoError(t, err)
	require.NoError(t, l.Update(ctx, func(tx ports.Tx) error { return tx.PutPool(pool) }))

	require.NoError(t, l.View(ctx, func(tx ports.ReadTx) error {
		got, err := tx.Pool(3)
		require.NoError(t, err)
		assert.Equal(t, "20000000000000000000", got.K.Dec())
		assert.Nil(t, got.Outcome)
		assert.False(t, got.Resolved)
		return nil
	}))
}

func TestSQLiteLedger_ResolutionRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	r, err := domain.NewResolution(1, "oracle", false, 9_700, "https://e", 50)
	require.NoError(t, err)
	require.NoError(t, r.Dispute("bob", domain.MinDisputeStake, 60))
	require.NoError(t, r.Override(true, 70))
	require.NoError(t, l.Update(ctx, func(tx ports.Tx) error { return tx.PutResolution(r) }))

	require.NoError(t, l.View(ctx, func(tx ports.ReadTx) error {
		got, err := tx.Resolution(1)
		require.NoError(t, err)
		assert.Equal(t, domain.ResolutionOverridden, got.Status)
		assert.Equal(t, domain.StakeRefunded, got.StakeDisposition)
		require.NotNil(t, got.Disputer)
		assert.Equal(t, domain.Principal("bob"), *got.Disputer)
		require.NotNil(t, got.FinalOutcome)
		assert.True(t, *got.FinalOutcome)
		assert.Equal(t, uint64(194), got.DisputeDeadline)
		return nil
	}))
}

func TestSQLiteLedger_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	boom := errors.New("boom")

	err := l.Update(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.SetBalance("alice", 10))
		require.NoError(t, tx.Emit(domain.Event{Kind: domain.EventDeposit}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, l.View(ctx, func(tx ports.ReadTx) error {
		bal, err := tx.Balance("alice")
		require.NoError(t, err)
		assert.Zero(t, bal)
		evs, err := tx.Events(0, 0)
		require.NoError(t, err)
		assert.Empty(t, evs)
		return nil
	}))
}

func TestSQLiteLedger_NotFound(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.View(context.Background(), func(tx ports.ReadTx) error {
		_, err := tx.Admin()
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.Market(1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.Position(1, "x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.Oracle("x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	}))
}

func TestSQLiteLedger_EventsAndMeta(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.Update(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.SetHeight(42))
		require.NoError(t, tx.SetAdmin("root"))
		require.NoError(t, tx.SetCreator("carol", true))
		require.NoError(t, tx.PutOracle(domain.Oracle{Principal: "o1", Type: domain.OracleAI, Label: "ai", Active: true, RegisteredAt: 42}))
		require.NoError(t, tx.Emit(domain.Event{Kind: domain.EventGenesis, Principal: "root"}))
		return tx.Emit(domain.Event{Kind: domain.EventMarketCreated, MarketID: 7})
	}))

	require.NoError(t, l.View(ctx, func(tx ports.ReadTx) error {
		h, _ := tx.Height()
		assert.Equal(t, uint64(42), h)
		admin, _ := tx.Admin()
		assert.Equal(t, domain.Principal("root"), admin)
		ok, _ := tx.IsCreator("carol")
		assert.True(t, ok)
		o, err := tx.Oracle("o1")
		require.NoError(t, err)
		assert.Equal(t, domain.OracleAI, o.Type)

		evs, err := tx.Events(0, 0)
		require.NoError(t, err)
		require.Len(t, evs, 2)
		assert.Equal(t, domain.EventMarketCreated, evs[0].Kind)
		assert.Equal(t, uint64(42), evs[0].Height)

		evs, err = tx.Events(7, 10)
		require.NoError(t, err)
		assert.Len(t, evs, 1)
		return nil
	}))
}

func TestSQLiteLedger_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := storage.NewSQLiteLedger(path)
	require.NoError(t, err)
	require.NoError(t, l.Update(ctx, func(tx ports.Tx) error {
		return tx.PutPosition(domain.Position{MarketID: 1, Trader: "alice", YesShares: 5, CostBasis: 9})
	}))
	require.NoError(t, l.Close())

	l, err = storage.NewSQLiteLedger(path)
	require.NoError(t, err)
	defer l.Close()
	require.NoError(t, l.View(ctx, func(tx ports.ReadTx) error {
		p, err := tx.Position(1, "alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(5), p.YesShares)
		assert.Equal(t, uint64(9), p.CostBasis)

		ps, err := tx.Positions(1)
		require.NoError(t, err)
		assert.Len(t, ps, 1)
		return nil
	}))
}
