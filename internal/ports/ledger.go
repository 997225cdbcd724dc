package ports

import (
	"context"

	"github.com/alejandrodnm/satbets/internal/domain"
)

// ReadTx is a consistent view of committed ledger state.
// Single-record lookups return domain.ErrNotFound when the record is absent.
type ReadTx interface {
	Height() (uint64, error)
	// Admin returns domain.ErrNotFound before genesis.
	Admin() (domain.Principal, error)
	IsCreator(p domain.Principal) (bool, error)
	MarketCount() (uint64, error)
	Market(id uint64) (domain.Market, error)
	Markets() ([]domain.Market, error)
	Pool(marketID uint64) (domain.Pool, error)
	Position(marketID uint64, trader domain.Principal) (domain.Position, error)
	Positions(marketID uint64) ([]domain.Position, error)
	Resolution(marketID uint64) (domain.Resolution, error)
	Resolutions() ([]domain.Resolution, error)
	Oracle(p domain.Principal) (domain.Oracle, error)
	// Balance returns 0 for unknown accounts.
	Balance(p domain.Principal) (uint64, error)
	// Events returns the newest events first; marketID 0 means all markets,
	// limit <= 0 means no limit.
	Events(marketID uint64, limit int) ([]domain.Event, error)
}

// Tx is a write transaction. Nothing written through it is visible to
// readers until the transaction commits.
type Tx interface {
	ReadTx

	SetHeight(h uint64) error
	SetAdmin(p domain.Principal) error
	SetCreator(p domain.Principal, allowed bool) error
	// NextMarketID reserves the next market id, starting at 1.
	NextMarketID() (uint64, error)
	PutMarket(m domain.Market) error
	PutPool(p domain.Pool) error
	PutPosition(p domain.Position) error
	PutResolution(r domain.Resolution) error
	PutOracle(o domain.Oracle) error
	SetBalance(p domain.Principal, amount uint64) error
	// Emit appends to the audit log, assigning ID and Height.
	Emit(e domain.Event) error
}

// Ledger is the transactional store behind the engine. Update runs fn in a
// serialized transaction that commits when fn returns nil and rolls back
// otherwise. View runs fn against the last committed state.
type Ledger interface {
	View(ctx context.Context, fn func(ReadTx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}
