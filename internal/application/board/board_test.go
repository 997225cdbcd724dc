package board_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/satbets/internal/adapters/memory"
	"github.com/alejandrodnm/satbets/internal/application/board"
	"github.com/alejandrodnm/satbets/internal/application/engine"
	"github.com/alejandrodnm/satbets/internal/domain"
)

// --- fakes ---

type fakeCache struct {
	views   map[uint64]domain.MarketView
	gets    int
	failGet error
	failSet error
}

func newFakeCache() *fakeCache {
	return &fakeCache{views: map[uint64]domain.MarketView{}}
}

func (c *fakeCache) Get(_ context.Context, id uint64) (domain.MarketView, error) {
	c.gets++
	if c.failGet != nil {
		return domain.MarketView{}, c.failGet
	}
	v, ok := c.views[id]
	if !ok {
		return domain.MarketView{}, domain.ErrNotFound
	}
	return v, nil
}

func (c *fakeCache) Set(_ context.Context, v domain.MarketView) error {
	if c.failSet != nil {
		return c.failSet
	}
	c.views[v.Market.ID] = v
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id uint64) error {
	delete(c.views, id)
	return nil
}

type fakeNotifier struct {
	board []domain.MarketView
}

func (n *fakeNotifier) NotifyBoard(_ context.Context, views []domain.MarketView) error {
	n.board = views
	return nil
}

func (n *fakeNotifier) NotifySweep(context.Context, domain.SweepReport) error { return nil }

// --- fixture ---

const admin domain.Principal = "admin"

func setup(t *testing.T) *engine.Engine {
	t.Helper()
	ctx := context.Background()
	ledger := memory.NewLedger()
	t.Cleanup(func() { _ = ledger.Close() })

	e := engine.New(ledger)
	require.NoError(t, e.Genesis(ctx, admin))
	require.NoError(t, e.Deposit(ctx, admin, 10_000_000))

	m, err := e.CreateMarket(ctx, domain.MarketParams{
		Question:         "Will BTC close above 100k?",
		Description:      "Daily close on the reference exchange.",
		Category:         domain.CategoryCrypto,
		ResolutionHeight: 144,
	}, admin)
	require.NoError(t, err)
	_, err = e.InitializePool(ctx, m.ID, 1_000_000, 1_000_000, admin)
	require.NoError(t, err)
	return e
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestView_MissFillsCache(t *testing.T) {
	e := setup(t)
	c := newFakeCache()
	s := board.New(e, c, quietLogger())

	v, err := s.View(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), v.YesPrice)
	assert.Contains(t, c.views, uint64(1))
}

func TestView_HitServesStale(t *testing.T) {
	e := setup(t)
	c := newFakeCache()
	s := board.New(e, c, quietLogger())
	ctx := context.Background()

	_, err := s.View(ctx, 1)
	require.NoError(t, err)

	_, err = e.BuyShares(ctx, 1, domain.SideYes, 1_000_000, 0, admin)
	require.NoError(t, err)

	v, err := s.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), v.YesPrice, "cached view until invalidated")

	s.Invalidate(ctx, 1)
	v, err = s.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(796_764), v.YesPrice)
}

func TestView_CacheFailureFallsBack(t *testing.T) {
	e := setup(t)
	c := newFakeCache()
	c.failGet = errors.New("connection refused")
	c.failSet = errors.New("connection refused")
	s := board.New(e, c, quietLogger())

	v, err := s.View(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.Market.ID)
}

func TestView_NotFound(t *testing.T) {
	s := board.New(setup(t), nil, quietLogger())
	_, err := s.View(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPublish(t *testing.T) {
	e := setup(t)
	c := newFakeCache()
	s := board.New(e, c, quietLogger())
	n := &fakeNotifier{}

	require.NoError(t, s.Publish(context.Background(), n))
	require.Len(t, n.board, 1)
	assert.Equal(t, "Will BTC close above 100k?", n.board[0].Market.Question)
	assert.Contains(t, c.views, uint64(1))
}
