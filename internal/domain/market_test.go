package domain

import (
	"errors"
	"fmt"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() MarketParams {
	return MarketParams{
		Question:         "Will BTC close above 100k on Dec 31?",
		Description:      "Resolves YES if the daily close exceeds 100000 USD.",
		Category:         CategoryCrypto,
		ResolutionHeight: 1_144,
	}
}

func TestMarketParams_Validate(t *testing.T) {
	require.NoError(t, validParams().Validate(1_000))

	tests := []struct {
		name   string
		mutate func(*MarketParams)
	}{
		{"empty question", func(p *MarketParams) { p.Question = "  " }},
		{"empty description", func(p *MarketParams) { p.Description = "" }},
		{"category zero", func(p *MarketParams) { p.Category = 0 }},
		{"category seven", func(p *MarketParams) { p.Category = 7 }},
		{"too soon", func(p *MarketParams) { p.ResolutionHeight = 1_143 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(1_000), ErrInvalidParams)
		})
	}
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "crypto", CategoryCrypto.String())
	assert.Equal(t, "global", CategoryGlobal.String())
	assert.Equal(t, "category(9)", Category(9).String())
}

func TestTruncateQuestion(t *testing.T) {
	assert.Equal(t, "market #4", TruncateQuestion("", 4, 50))
	assert.Equal(t, "Will it...", TruncateQuestion("Will it rain tomorrow?", 1, 10))
	assert.Equal(t, "short", TruncateQuestion("short", 1, 10))
}

func TestTruncateQuestion_MultiByte(t *testing.T) {
	q := "¿Subirá el índice más de un 5% en 2025? 🚀🚀"

	got := TruncateQuestion(q, 1, 12)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "¿Subirá e...", got)
	assert.Equal(t, 12, utf8.RuneCountInString(got))

	assert.Equal(t, q, TruncateQuestion(q, 1, utf8.RuneCountInString(q)))
	assert.Equal(t, "🚀🚀", TruncateQuestion("🚀🚀", 1, 2))
	assert.Equal(t, "🚀...", TruncateQuestion("🚀🚀🚀🚀🚀", 1, 4))
}

func TestTruncateQuestion_TinyWidth(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, "Wi", TruncateQuestion("Will it rain?", 1, 2))
		assert.Equal(t, "Wil", TruncateQuestion("Will it rain?", 1, 3))
		assert.Equal(t, "", TruncateQuestion("Will it rain?", 1, 0))
		assert.Equal(t, "", TruncateQuestion("Will it rain?", 1, -5))
	})
}

func TestErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("engine.BuyShares: %w", ErrSlippage)
	assert.Equal(t, 105, ErrorCode(wrapped))
	assert.Equal(t, 111, ErrorCode(ErrZeroAmount))
	assert.Equal(t, 0, ErrorCode(errors.New("disk full")))
	assert.Equal(t, 0, ErrorCode(nil))

	assert.True(t, IsBusiness(wrapped))
	assert.False(t, IsBusiness(errors.New("connection reset")))
}

func TestPosition_CostBasisIgnoresSells(t *testing.T) {
	var p Position
	require.NoError(t, p.Credit(SideYes, 500, 1_000))
	require.NoError(t, p.Debit(SideYes, 200))

	assert.Equal(t, uint64(300), p.YesShares)
	assert.Equal(t, uint64(1_000), p.CostBasis)
	assert.ErrorIs(t, p.Debit(SideNo, 1), ErrInsufficientShares)
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide(" YES ")
	require.NoError(t, err)
	assert.Equal(t, SideYes, s)

	s, err = ParseSide("no")
	require.NoError(t, err)
	assert.Equal(t, SideNo, s)

	_, err = ParseSide("maybe")
	assert.ErrorIs(t, err, ErrInvalidParams)
}
