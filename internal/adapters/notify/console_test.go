package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/satbets/internal/adapters/notify"
	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeView(t *testing.T, id uint64, question string, yes, no uint64) domain.MarketView {
	t.Helper()
	pool, err := domain.NewPool(id, yes, no)
	require.NoError(t, err)
	m := domain.Market{
		ID:       id,
		Question: question,
		Category: domain.CategoryCrypto,
		Status:   domain.MarketActive,
	}
	return domain.NewMarketView(m, &pool, nil)
}

func TestConsole_NotifyBoard_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, notify.FormatTable)

	views := []domain.MarketView{
		makeView(t, 1, "Will BTC close above 100k?", 1_000_000, 1_000_000),
		makeView(t, 2, "Will it rain in Madrid?", 9_100_000, 900_000),
	}
	require.NoError(t, n.NotifyBoard(context.Background(), views))

	out := buf.String()
	assert.Contains(t, out, "Will BTC close above 100k?")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "0.02000000") // 2M sats of liquidity
	assert.Contains(t, out, "IMBALANCED")
	assert.Contains(t, out, "imbalanced:1")
}

func TestConsole_NotifyBoard_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, notify.FormatCompact)

	require.NoError(t, n.NotifyBoard(context.Background(), []domain.MarketView{
		makeView(t, 3, "Will ETH flip BTC?", 1_000_000, 1_000_000),
	}))
	assert.Contains(t, buf.String(), "#3 Will ETH flip BTC? YES 50.00% NO 50.00% active")
}

func TestConsole_NotifyBoard_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, "")

	require.NoError(t, n.NotifyBoard(context.Background(), nil))
	assert.Contains(t, buf.String(), "no markets")
}

func TestConsole_NotifyBoard_Resolution(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, notify.FormatTable)

	v := makeView(t, 1, "Will BTC close above 100k?", 1_000_000, 1_000_000)
	r, err := domain.NewResolution(1, "oracle-ai", true, 9_720, "https://example.org/e", 144)
	require.NoError(t, err)
	v.Resolution = &r

	require.NoError(t, n.NotifyBoard(context.Background(), []domain.MarketView{v}))
	assert.Contains(t, buf.String(), "pending YES (97.20%)")
}

func TestConsole_NotifySweep(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, notify.FormatTable)

	yes := true
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	report := domain.SweepReport{
		RunID:      "0b7e6a4c-1111-2222-3333-444455556666",
		Height:     300,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Items: []domain.SweepItem{
			{MarketID: 1, Question: "Will BTC close above 100k?", Action: domain.ActionSubmitted, Outcome: &yes, ConfidenceBps: 9_800, Attempts: 1},
			{MarketID: 2, Question: "Will it rain?", Action: domain.ActionFlagged, ConfidenceBps: 7_000, Attempts: 1},
			{MarketID: 4, Question: "Will ETH flip BTC?", Action: domain.ActionFailed, Attempts: 3, Err: "evidence unavailable"},
		},
	}
	require.NoError(t, n.NotifySweep(context.Background(), report))

	out := buf.String()
	assert.Contains(t, out, "sweep 0b7e6a4c h=300")
	assert.Contains(t, out, "submitted:1 flagged:1 finalized:0 failed:1")
	assert.Contains(t, out, "98.00%")
	assert.Contains(t, out, "evidence unavailable")
}

func TestConsole_NotifySweep_CompactSkipsTable(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, notify.FormatCompact)

	report := domain.SweepReport{
		RunID: "abc",
		Items: []domain.SweepItem{{MarketID: 9, Question: "Unique question text", Action: domain.ActionFinalized}},
	}
	require.NoError(t, n.NotifySweep(context.Background(), report))
	assert.Contains(t, buf.String(), "finalized:1")
	assert.NotContains(t, buf.String(), "Unique question text")
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "1.00000000", notify.FormatSats(100_000_000))
	assert.Equal(t, "0.00000001", notify.FormatSats(1))
	assert.Equal(t, "79.68%", notify.FormatPrice(796_764))
	assert.Equal(t, "95.00%", notify.FormatBps(9_500))
}
