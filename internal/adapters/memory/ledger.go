// Package memory implements ports.Ledger in process memory.
//
// Committed state is an immutable snapshot behind an atomic pointer. Readers
// load the pointer and never wait; a writer clones the snapshot, applies its
// transaction to the clone and publishes it only if the transaction succeeds.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

type positionKey struct {
	marketID uint64
	trader   domain.Principal
}

type state struct {
	height      uint64
	admin       domain.Principal
	marketCount uint64
	creators    map[domain.Principal]bool
	markets     map[uint64]domain.Market
	pools       map[uint64]domain.Pool
	positions   map[positionKey]domain.Position
	resolutions map[uint64]domain.Resolution
	oracles     map[domain.Principal]domain.Oracle
	balances    map[domain.Principal]uint64
	events      []domain.Event
}

func newState() *state {
	return &state{
		creators:    make(map[domain.Principal]bool),
		markets:     make(map[uint64]domain.Market),
		pools:       make(map[uint64]domain.Pool),
		positions:   make(map[positionKey]domain.Position),
		resolutions: make(map[uint64]domain.Resolution),
		oracles:     make(map[domain.Principal]domain.Oracle),
		balances:    make(map[domain.Principal]uint64),
	}
}

// clone copies every map. Records are stored by value and pointer fields
// inside them are replaced, never mutated, so a shallow copy is enough.
func (s *state) clone() *state {
	return &state{
		height:      s.height,
		admin:       s.admin,
		marketCount: s.marketCount,
		creators:    maps.Clone(s.creators),
		markets:     maps.Clone(s.markets),
		pools:       maps.Clone(s.pools),
		positions:   maps.Clone(s.positions),
		resolutions: maps.Clone(s.resolutions),
		oracles:     maps.Clone(s.oracles),
		balances:    maps.Clone(s.balances),
		events:      slices.Clip(s.events),
	}
}

// Ledger is an in-memory ports.Ledger.
type Ledger struct {
	mu     sync.Mutex // one writer at a time
	snap   atomic.Pointer[state]
	closed atomic.Bool
}

var _ ports.Ledger = (*Ledger)(nil)

// NewLedger returns an empty ledger at height 0.
func NewLedger() *Ledger {
	l := &Ledger{}
	l.snap.Store(newState())
	return l
}

// View runs fn against the last committed snapshot.
func (l *Ledger) View(ctx context.Context, fn func(ports.ReadTx) error) error {
	if err := l.check(ctx); err != nil {
		return err
	}
	return fn(reader{s: l.snap.Load()})
}

// Update runs fn against a private copy of the state and publishes it when
// fn returns nil.
func (l *Ledger) Update(ctx context.Context, fn func(ports.Tx) error) error {
	if err := l.check(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.snap.Load().clone()
	if err := fn(&writer{reader: reader{s: next}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory.Update: %w", err)
	}
	l.snap.Store(next)
	return nil
}

// Close marks the ledger closed; later calls fail.
func (l *Ledger) Close() error {
	l.closed.Store(true)
	return nil
}

func (l *Ledger) check(ctx context.Context) error {
	if l.closed.Load() {
		return fmt.Errorf("memory: ledger closed")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	return nil
}

type reader struct{ s *state }

func (r reader) Height() (uint64, error) { return r.s.height, nil }

func (r reader) Admin() (domain.Principal, error) {
	if r.s.admin == "" {
		return "", fmt.Errorf("admin: %w", domain.ErrNotFound)
	}
	return r.s.admin, nil
}

func (r reader) IsCreator(p domain.Principal) (bool, error) { return r.s.creators[p], nil }

func (r reader) MarketCount() (uint64, error) { return r.s.marketCount, nil }

func (r reader) Market(id uint64) (domain.Market, error) {
	m, ok := r.s.markets[id]
	if !ok {
		return domain.Market{}, fmt.Errorf("market %d: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

func (r reader) Markets() ([]domain.Market, error) {
	out := slices.Collect(maps.Values(r.s.markets))
	slices.SortFunc(out, func(a, b domain.Market) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r reader) Pool(marketID uint64) (domain.Pool, error) {
	p, ok := r.s.pools[marketID]
	if !ok {
		return domain.Pool{}, fmt.Errorf("pool %d: %w", marketID, domain.ErrNotFound)
	}
	return p, nil
}

func (r reader) Position(marketID uint64, trader domain.Principal) (domain.Position, error) {
	p, ok := r.s.positions[positionKey{marketID, trader}]
	if !ok {
		return domain.Position{}, fmt.Errorf("position %d/%s: %w", marketID, trader, domain.ErrNotFound)
	}
	return p, nil
}

func (r reader) Positions(marketID uint64) ([]domain.Position, error) {
	var out []domain.Position
	for k, p := range r.s.positions {
		if k.marketID == marketID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Position) int { return cmp.Compare(a.Trader, b.Trader) })
	return out, nil
}

func (r reader) Resolution(marketID uint64) (domain.Resolution, error) {
	res, ok := r.s.resolutions[marketID]
	if !ok {
		return domain.Resolution{}, fmt.Errorf("resolution %d: %w", marketID, domain.ErrNotFound)
	}
	return res, nil
}

func (r reader) Resolutions() ([]domain.Resolution, error) {
	out := slices.Collect(maps.Values(r.s.resolutions))
	slices.SortFunc(out, func(a, b domain.Resolution) int { return cmp.Compare(a.MarketID, b.MarketID) })
	return out, nil
}

func (r reader) Oracle(p domain.Principal) (domain.Oracle, error) {
	o, ok := r.s.oracles[p]
	if !ok {
		return domain.Oracle{}, fmt.Errorf("oracle %s: %w", p, domain.ErrNotFound)
	}
	return o, nil
}

func (r reader) Balance(p domain.Principal) (uint64, error) { return r.s.balances[p], nil }

func (r reader) Events(marketID uint64, limit int) ([]domain.Event, error) {
	var out []domain.Event
	for i := len(r.s.events) - 1; i >= 0; i-- {
		e := r.s.events[i]
		if marketID != 0 && e.MarketID != marketID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type writer struct{ reader }

func (w *writer) SetHeight(h uint64) error {
	w.s.height = h
	return nil
}

func (w *writer) SetAdmin(p domain.Principal) error {
	w.s.admin = p
	return nil
}

func (w *writer) SetCreator(p domain.Principal, allowed bool) error {
	if allowed {
		w.s.creators[p] = true
	} else {
		delete(w.s.creators, p)
	}
	return nil
}

func (w *writer) NextMarketID() (uint64, error) {
	w.s.marketCount++
	return w.s.marketCount, nil
}

func (w *writer) PutMarket(m domain.Market) error {
	w.s.markets[m.ID] = m
	return nil
}

func (w *writer) PutPool(p domain.Pool) error {
	w.s.pools[p.MarketID] = p
	return nil
}

func (w *writer) PutPosition(p domain.Position) error {
	w.s.positions[positionKey{p.MarketID, p.Trader}] = p
	return nil
}

func (w *writer) PutResolution(r domain.Resolution) error {
	w.s.resolutions[r.MarketID] = r
	return nil
}

func (w *writer) PutOracle(o domain.Oracle) error {
	w.s.oracles[o.Principal] = o
	return nil
}

func (w *writer) SetBalance(p domain.Principal, amount uint64) error {
	if amount == 0 {
		delete(w.s.balances, p)
		return nil
	}
	w.s.balances[p] = amount
	return nil
}

func (w *writer) Emit(e domain.Event) error {
	e.ID = uuid.New().String()
	e.Height = w.s.height
	w.s.events = append(w.s.events, e)
	return nil
}
