package domain

import "time"

// MarketView is the display record of a market with its pool and resolution.
type MarketView struct {
	Market     Market
	Pool       *Pool       `json:",omitempty"`
	Resolution *Resolution `json:",omitempty"`
	YesPrice   uint64
	NoPrice    uint64
	Imbalanced bool
}

// NewMarketView derives prices and pool health.
func NewMarketView(m Market, p *Pool, r *Resolution) MarketView {
	v := MarketView{Market: m, Pool: p, Resolution: r}
	if p != nil {
		v.YesPrice = p.YesPrice()
		v.NoPrice = p.NoPrice()
		v.Imbalanced = p.Imbalanced()
	}
	return v
}

// SweepAction is what the orchestrator did with one market.
type SweepAction string

const (
	ActionSubmitted SweepAction = "submitted"
	ActionFlagged   SweepAction = "flagged" // confidence below the auto-submit gate
	ActionFinalized SweepAction = "finalized"
	ActionFailed    SweepAction = "failed"
)

// SweepItem is the per-market line of a sweep report.
type SweepItem struct {
	MarketID      uint64
	Question      string
	Action        SweepAction
	Outcome       *bool
	ConfidenceBps uint64
	Attempts      int
	Err           string
}

// SweepReport summarizes one orchestrator cycle.
type SweepReport struct {
	RunID      string
	Height     uint64
	StartedAt  time.Time
	FinishedAt time.Time
	Items      []SweepItem
}

// Count returns the number of items with the given action.
func (r SweepReport) Count(a SweepAction) int {
	n := 0
	for _, it := range r.Items {
		if it.Action == a {
			n++
		}
	}
	return n
}
