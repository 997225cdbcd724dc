package domain

import (
	"fmt"
	"strings"
)

// Principal identifies an account on the ledger (trader, oracle, admin or an
// internal escrow account).
type Principal string

// MinMaturity is the minimum distance, in ledger height, between market
// creation and its resolution height (~1 day of blocks).
const MinMaturity uint64 = 144

// Category classifies a market. Valid values are 1..6.
type Category uint8

const (
	CategoryCrypto Category = iota + 1
	CategoryStacks
	CategoryMacro
	CategoryRegulation
	CategoryTech
	CategoryGlobal
)

func (c Category) Valid() bool {
	return c >= CategoryCrypto && c <= CategoryGlobal
}

func (c Category) String() string {
	switch c {
	case CategoryCrypto:
		return "crypto"
	case CategoryStacks:
		return "stacks"
	case CategoryMacro:
		return "macro"
	case CategoryRegulation:
		return "regulation"
	case CategoryTech:
		return "tech"
	case CategoryGlobal:
		return "global"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// MarketStatus is the lifecycle state of a market.
type MarketStatus uint8

const (
	MarketActive MarketStatus = iota + 1
	MarketPaused
	MarketResolved
	MarketCancelled
)

func (s MarketStatus) String() string {
	switch s {
	case MarketActive:
		return "active"
	case MarketPaused:
		return "paused"
	case MarketResolved:
		return "resolved"
	case MarketCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Market is a binary YES/NO question with a resolution height.
type Market struct {
	ID               uint64
	Question         string
	Description      string
	Category         Category
	Creator          Principal
	CreatedAt        uint64 // ledger height
	ResolutionHeight uint64 // ledger height
	Status           MarketStatus
	Outcome          *bool // set once on resolution
	AIGenerated      bool
	MetadataURI      string
}

// MarketParams is the input of market creation.
type MarketParams struct {
	Question         string
	Description      string
	Category         Category
	ResolutionHeight uint64
	AIGenerated      bool
	MetadataURI      string
}

// Validate checks the creation rules against the current ledger height.
func (p MarketParams) Validate(height uint64) error {
	if strings.TrimSpace(p.Question) == "" {
		return fmt.Errorf("empty question: %w", ErrInvalidParams)
	}
	if strings.TrimSpace(p.Description) == "" {
		return fmt.Errorf("empty description: %w", ErrInvalidParams)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("category %d: %w", p.Category, ErrInvalidParams)
	}
	if p.ResolutionHeight < height+MinMaturity {
		return fmt.Errorf("resolution height %d before %d: %w",
			p.ResolutionHeight, height+MinMaturity, ErrInvalidParams)
	}
	return nil
}

// Tradeable reports whether buys and sells are allowed on the market.
func (m Market) Tradeable() bool {
	return m.Status == MarketActive
}

// Expired reports whether the market reached its resolution height.
func (m Market) Expired(height uint64) bool {
	return height >= m.ResolutionHeight
}

// TruncateQuestion returns the question cut to maxLen runes, ellipsis
// included. Falls back to the market id when the question is empty.
func TruncateQuestion(question string, id uint64, maxLen int) string {
	q := question
	if q == "" {
		q = fmt.Sprintf("market #%d", id)
	}
	if maxLen <= 0 {
		return ""
	}
	r := []rune(q)
	if len(r) <= maxLen {
		return q
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
