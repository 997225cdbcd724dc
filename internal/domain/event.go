package domain

import "fmt"

// EventKind names a committed state change in the audit log.
type EventKind string

const (
	EventGenesis              EventKind = "genesis"
	EventDeposit              EventKind = "deposit"
	EventAdminChanged         EventKind = "admin_changed"
	EventCreatorAdded         EventKind = "creator_added"
	EventCreatorRemoved       EventKind = "creator_removed"
	EventMarketCreated        EventKind = "market_created"
	EventMarketPaused         EventKind = "market_paused"
	EventMarketResumed        EventKind = "market_resumed"
	EventMarketCancelled      EventKind = "market_cancelled"
	EventMarketResolved       EventKind = "market_resolved"
	EventPoolInitialized      EventKind = "pool_initialized"
	EventSharesBought         EventKind = "shares_bought"
	EventSharesSold           EventKind = "shares_sold"
	EventOracleRegistered     EventKind = "oracle_registered"
	EventOracleRemoved        EventKind = "oracle_removed"
	EventResolutionSubmitted  EventKind = "resolution_submitted"
	EventResolutionDisputed   EventKind = "resolution_disputed"
	EventResolutionFinalized  EventKind = "resolution_finalized"
	EventResolutionOverridden EventKind = "resolution_overridden"
	EventStakeRefunded        EventKind = "stake_refunded"
	EventStakeForfeited       EventKind = "stake_forfeited"
	EventWinningsClaimed      EventKind = "winnings_claimed"
)

// Event is one entry of the append-only audit log. ID and Height are
// assigned by the ledger on emit.
type Event struct {
	ID        string
	Height    uint64
	Kind      EventKind
	MarketID  uint64
	Principal Principal
	Amount    uint64
	Detail    string
}

// Treasury collects forfeited dispute stakes.
const Treasury Principal = "treasury"

// MarketEscrow is the account holding a market's pool collateral.
func MarketEscrow(marketID uint64) Principal {
	return Principal(fmt.Sprintf("escrow/market/%d", marketID))
}

// DisputeEscrow is the account holding a market's locked dispute stake.
func DisputeEscrow(marketID uint64) Principal {
	return Principal(fmt.Sprintf("escrow/dispute/%d", marketID))
}
