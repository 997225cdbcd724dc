package domain

import "fmt"

const (
	// DisputeWindow is the number of blocks after submission during which a
	// resolution can be disputed.
	DisputeWindow uint64 = 144

	// MinDisputeStake is the collateral a disputer must lock.
	MinDisputeStake uint64 = 1_000_000

	MaxConfidenceBps uint64 = 10_000
)

// ResolutionStatus is the state of a market's resolution.
type ResolutionStatus uint8

const (
	ResolutionPending ResolutionStatus = iota + 1
	ResolutionDisputed
	ResolutionFinalized
	ResolutionOverridden
)

func (s ResolutionStatus) String() string {
	switch s {
	case ResolutionPending:
		return "pending"
	case ResolutionDisputed:
		return "disputed"
	case ResolutionFinalized:
		return "finalized"
	case ResolutionOverridden:
		return "overridden"
	default:
		return "unknown"
	}
}

// Terminal reports whether the resolution can no longer change.
func (s ResolutionStatus) Terminal() bool {
	return s == ResolutionFinalized || s == ResolutionOverridden
}

// StakeDisposition records what happened to a dispute stake.
type StakeDisposition uint8

const (
	StakeNone StakeDisposition = iota
	StakeLocked
	StakeRefunded
	StakeForfeited
)

func (d StakeDisposition) String() string {
	switch d {
	case StakeLocked:
		return "locked"
	case StakeRefunded:
		return "refunded"
	case StakeForfeited:
		return "forfeited"
	default:
		return "none"
	}
}

// Resolution is the oracle's claimed outcome for a market, at most one per
// market.
type Resolution struct {
	MarketID         uint64
	Oracle           Principal
	Outcome          bool
	ConfidenceBps    uint64
	EvidenceURI      string
	SubmittedAt      uint64
	Status           ResolutionStatus
	DisputeDeadline  uint64
	Disputer         *Principal
	DisputeStake     uint64
	StakeDisposition StakeDisposition
	FinalOutcome     *bool
	FinalizedAt      uint64
}

// NewResolution builds a pending resolution submitted at height.
func NewResolution(marketID uint64, oracle Principal, outcome bool, confidenceBps uint64, evidenceURI string, height uint64) (Resolution, error) {
	if confidenceBps > MaxConfidenceBps {
		return Resolution{}, fmt.Errorf("confidence %d bps: %w", confidenceBps, ErrInvalidParams)
	}
	deadline, err := CheckedAdd(height, DisputeWindow)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{
		MarketID:        marketID,
		Oracle:          oracle,
		Outcome:         outcome,
		ConfidenceBps:   confidenceBps,
		EvidenceURI:     evidenceURI,
		SubmittedAt:     height,
		Status:          ResolutionPending,
		DisputeDeadline: deadline,
	}, nil
}

// InDisputeWindow reports whether a dispute is still accepted at height.
func (r Resolution) InDisputeWindow(height uint64) bool {
	return r.Status == ResolutionPending && height < r.DisputeDeadline
}

// Dispute moves a pending resolution to Disputed with the stake locked.
func (r *Resolution) Dispute(disputer Principal, stake, height uint64) error {
	if r.Status != ResolutionPending {
		return fmt.Errorf("resolution %d is %s: %w", r.MarketID, r.Status, ErrInvalidParams)
	}
	if height >= r.DisputeDeadline {
		return fmt.Errorf("deadline %d reached at %d: %w", r.DisputeDeadline, height, ErrDisputeWindowClosed)
	}
	if stake < MinDisputeStake {
		return fmt.Errorf("stake %d below %d: %w", stake, MinDisputeStake, ErrInsufficientStake)
	}
	r.Status = ResolutionDisputed
	r.Disputer = &disputer
	r.DisputeStake = stake
	r.StakeDisposition = StakeLocked
	return nil
}

// Finalize accepts the submitted outcome once the window has elapsed.
func (r *Resolution) Finalize(height uint64) error {
	switch {
	case r.Status.Terminal():
		return fmt.Errorf("resolution %d is %s: %w", r.MarketID, r.Status, ErrAlreadyResolved)
	case r.Status == ResolutionDisputed:
		return fmt.Errorf("resolution %d is disputed: %w", r.MarketID, ErrInvalidParams)
	case height < r.DisputeDeadline:
		return fmt.Errorf("window open until %d: %w", r.DisputeDeadline, ErrNotResolved)
	}
	outcome := r.Outcome
	r.Status = ResolutionFinalized
	r.FinalOutcome = &outcome
	r.FinalizedAt = height
	return nil
}

// Override replaces a disputed outcome. The stake goes back to the disputer
// when the correction differs from the submission and is forfeited otherwise.
func (r *Resolution) Override(corrected bool, height uint64) error {
	if r.Status.Terminal() {
		return fmt.Errorf("resolution %d is %s: %w", r.MarketID, r.Status, ErrAlreadyResolved)
	}
	if r.Status != ResolutionDisputed {
		return fmt.Errorf("resolution %d is %s: %w", r.MarketID, r.Status, ErrInvalidParams)
	}
	r.Status = ResolutionOverridden
	r.FinalOutcome = &corrected
	r.FinalizedAt = height
	if corrected != r.Outcome {
		r.StakeDisposition = StakeRefunded
	} else {
		r.StakeDisposition = StakeForfeited
	}
	return nil
}
