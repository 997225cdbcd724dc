package domain

import (
	"fmt"
	"time"
)

// AutoSubmitThresholdBps is the minimum evidence confidence for a resolution
// to be submitted without human review.
const AutoSubmitThresholdBps uint64 = 9_500

// MaxEvidenceSources caps the sources kept from an evidence report.
const MaxEvidenceSources = 10

// Evidence is the verdict of the external evidence service for one market.
type Evidence struct {
	MarketID      uint64
	Outcome       bool
	ConfidenceBps uint64
	Sources       []string
	Reasoning     string
}

// EvidenceURI is the first source, used as the resolution's evidence pointer.
func (e Evidence) EvidenceURI() string {
	if len(e.Sources) == 0 {
		return ""
	}
	return e.Sources[0]
}

// ShouldAutoSubmit reports whether confidence clears the auto-submit gate.
func ShouldAutoSubmit(confidenceBps uint64) bool {
	return confidenceBps >= AutoSubmitThresholdBps
}

// PriceQuote is a reference price passed as context to the evidence service.
type PriceQuote struct {
	Symbol      string
	Price       string // decimal string as published
	PublishTime time.Time
}

// SeedSplit turns an initial YES probability into pool seeds for a total
// seed amount: noSeed = floor(S × p / 10000), yesSeed = floor(S × (10000 − p) / 10000).
// The resulting YES price is approximately p.
func SeedSplit(seedAmount, probabilityBps uint64) (yesSeed, noSeed uint64, err error) {
	if probabilityBps == 0 || probabilityBps >= BpsDenominator {
		return 0, 0, fmt.Errorf("probability %d bps: %w", probabilityBps, ErrInvalidParams)
	}
	noSeed = FeeOf(seedAmount, probabilityBps)
	yesSeed = FeeOf(seedAmount, BpsDenominator-probabilityBps)
	if yesSeed < MinPoolSize || noSeed < MinPoolSize {
		return 0, 0, fmt.Errorf("seed %d at %d bps below pool minimum: %w", seedAmount, probabilityBps, ErrInvalidParams)
	}
	return yesSeed, noSeed, nil
}
