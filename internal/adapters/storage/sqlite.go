package storage

// sqlite.go: durable ledger on SQLite.
//
// Layout:
//   - one table per record type (markets, pools, positions, resolutions,
//     oracles, creators, balances), keyed like the in-memory ledger.
//   - `meta`: scalar state (height, admin, market counter).
//   - `events`: append-only audit log, newest read first by seq.
//   - K is stored as a decimal string; every other amount fits INTEGER.
//   - One connection: SQLite is single-writer, and Update runs in one
//     database transaction so an aborted operation leaves nothing behind.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS markets (
    id                INTEGER PRIMARY KEY,
    question          TEXT    NOT NULL,
    description       TEXT    NOT NULL,
    category          INTEGER NOT NULL,
    creator           TEXT    NOT NULL,
    created_at        INTEGER NOT NULL,
    resolution_height INTEGER NOT NULL,
    status            INTEGER NOT NULL,
    outcome           INTEGER,
    ai_generated      INTEGER NOT NULL DEFAULT 0,
    metadata_uri      TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pools (
    market_id    INTEGER PRIMARY KEY,
    yes_reserve  INTEGER NOT NULL,
    no_reserve   INTEGER NOT NULL,
    k            TEXT    NOT NULL,
    total_volume INTEGER NOT NULL DEFAULT 0,
    total_fees   INTEGER NOT NULL DEFAULT 0,
    resolved     INTEGER NOT NULL DEFAULT 0,
    outcome      INTEGER
);

CREATE TABLE IF NOT EXISTS positions (
    market_id  INTEGER NOT NULL,
    trader     TEXT    NOT NULL,
    yes_shares INTEGER NOT NULL DEFAULT 0,
    no_shares  INTEGER NOT NULL DEFAULT 0,
    cost_basis INTEGER NOT NULL DEFAULT 0,
    claimed    INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (market_id, trader)
);

CREATE TABLE IF NOT EXISTS resolutions (
    market_id         INTEGER PRIMARY KEY,
    oracle            TEXT    NOT NULL,
    outcome           INTEGER NOT NULL,
    confidence_bps    INTEGER NOT NULL,
    evidence_uri      TEXT    NOT NULL DEFAULT '',
    submitted_at      INTEGER NOT NULL,
    status            INTEGER NOT NULL,
    dispute_deadline  INTEGER NOT NULL,
    disputer          TEXT,
    dispute_stake     INTEGER NOT NULL DEFAULT 0,
    stake_disposition INTEGER NOT NULL DEFAULT 0,
    final_outcome     INTEGER,
    finalized_at      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS oracles (
    principal     TEXT PRIMARY KEY,
    type          INTEGER NOT NULL,
    label         TEXT    NOT NULL,
    active        INTEGER NOT NULL,
    registered_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS creators (
    principal TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS balances (
    principal TEXT PRIMARY KEY,
    amount    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    seq       INTEGER PRIMARY KEY AUTOINCREMENT,
    id        TEXT    NOT NULL UNIQUE,
    height    INTEGER NOT NULL,
    kind      TEXT    NOT NULL,
    market_id INTEGER NOT NULL DEFAULT 0,
    principal TEXT    NOT NULL DEFAULT '',
    amount    INTEGER NOT NULL DEFAULT 0,
    detail    TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_market ON events(market_id, seq DESC);
CREATE INDEX IF NOT EXISTS idx_resolutions_status ON resolutions(status);
`

const (
	metaHeight      = "height"
	metaAdmin       = "admin"
	metaMarketCount = "market_count"
)

// SQLiteLedger implementa ports.Ledger sobre SQLite (pure Go, sin CGo).
type SQLiteLedger struct {
	db *sql.DB
}

var _ ports.Ledger = (*SQLiteLedger)(nil)

// NewSQLiteLedger abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteLedger: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteLedger: apply schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// View runs fn inside a transaction that is always rolled back.
func (s *SQLiteLedger) View(ctx context.Context, fn func(ports.ReadTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.View: begin tx: %w", err)
	}
	defer tx.Rollback()
	return fn(&sqlTx{ctx: ctx, tx: tx})
}

// Update runs fn inside a transaction and commits when fn returns nil.
func (s *SQLiteLedger) Update(ctx context.Context, fn func(ports.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Update: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.Update: commit: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
}

// --- meta ---

func (t *sqlTx) meta(key string) (string, bool, error) {
	var v string
	err := t.tx.QueryRowContext(t.ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: read meta %s: %w", key, err)
	}
	return v, true, nil
}

func (t *sqlTx) setMeta(key, value string) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value,
	); err != nil {
		return fmt.Errorf("storage: write meta %s: %w", key, err)
	}
	return nil
}

func (t *sqlTx) metaUint(key string) (uint64, error) {
	v, ok, err := t.meta(key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("storage: parse meta %s: %w", key, err)
	}
	return n, nil
}

func (t *sqlTx) Height() (uint64, error) { return t.metaUint(metaHeight) }

func (t *sqlTx) SetHeight(h uint64) error {
	return t.setMeta(metaHeight, strconv.FormatUint(h, 10))
}

func (t *sqlTx) Admin() (domain.Principal, error) {
	v, ok, err := t.meta(metaAdmin)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return "", fmt.Errorf("admin: %w", domain.ErrNotFound)
	}
	return domain.Principal(v), nil
}

func (t *sqlTx) SetAdmin(p domain.Principal) error { return t.setMeta(metaAdmin, string(p)) }

func (t *sqlTx) MarketCount() (uint64, error) { return t.metaUint(metaMarketCount) }

func (t *sqlTx) NextMarketID() (uint64, error) {
	n, err := t.metaUint(metaMarketCount)
	if err != nil {
		return 0, err
	}
	n++
	if err := t.setMeta(metaMarketCount, strconv.FormatUint(n, 10)); err != nil {
		return 0, err
	}
	return n, nil
}

// --- creators ---

func (t *sqlTx) IsCreator(p domain.Principal) (bool, error) {
	var n int
	if err := t.tx.QueryRowContext(t.ctx,
		`SELECT COUNT(*) FROM creators WHERE principal = ?`, p,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("storage.IsCreator: %w", err)
	}
	return n > 0, nil
}

func (t *sqlTx) SetCreator(p domain.Principal, allowed bool) error {
	q := `DELETE FROM creators WHERE principal = ?`
	if allowed {
		q = `INSERT OR IGNORE INTO creators (principal) VALUES (?)`
	}
	if _, err := t.tx.ExecContext(t.ctx, q, p); err != nil {
		return fmt.Errorf("storage.SetCreator: %w", err)
	}
	return nil
}

// --- markets ---

const marketCols = `id, question, description, category, creator, created_at,
	resolution_height, status, outcome, ai_generated, metadata_uri`

func scanMarket(row interface{ Scan(...any) error }) (domain.Market, error) {
	var m domain.Market
	var outcome sql.NullBool
	err := row.Scan(&m.ID, &m.Question, &m.Description, &m.Category, &m.Creator, &m.CreatedAt,
		&m.ResolutionHeight, &m.Status, &outcome, &m.AIGenerated, &m.MetadataURI)
	m.Outcome = boolPtr(outcome)
	return m, err
}

func (t *sqlTx) Market(id uint64) (domain.Market, error) {
	m, err := scanMarket(t.tx.QueryRowContext(t.ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Market{}, fmt.Errorf("market %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("storage.Market: %w", err)
	}
	return m, nil
}

func (t *sqlTx) Markets() ([]domain.Market, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT `+marketCols+` FROM markets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage.Markets: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.Markets: scan row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *sqlTx) PutMarket(m domain.Market) error {
	if _, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO markets (`+marketCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question          = excluded.question,
			description       = excluded.description,
			category          = excluded.category,
			resolution_height = excluded.resolution_height,
			status            = excluded.status,
			outcome           = excluded.outcome,
			ai_generated      = excluded.ai_generated,
			metadata_uri      = excluded.metadata_uri`,
		m.ID, m.Question, m.Description, m.Category, m.Creator, m.CreatedAt,
		m.ResolutionHeight, m.Status, nullBool(m.Outcome), m.AIGenerated, m.MetadataURI,
	); err != nil {
		return fmt.Errorf("storage.PutMarket %d: %w", m.ID, err)
	}
	return nil
}

// --- pools ---

func (t *sqlTx) Pool(marketID uint64) (domain.Pool, error) {
	var p domain.Pool
	var k string
	var outcome sql.NullBool
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT market_id, yes_reserve, no_reserve, k, total_volume, total_fees, resolved, outcome
		FROM pools WHERE market_id = ?`, marketID,
	).Scan(&p.MarketID, &p.YesReserve, &p.NoReserve, &k, &p.TotalVolume, &p.TotalFees, &p.Resolved, &outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Pool{}, fmt.Errorf("pool %d: %w", marketID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Pool{}, fmt.Errorf("storage.Pool: %w", err)
	}
	if err := p.K.SetFromDecimal(k); err != nil {
		return domain.Pool{}, fmt.Errorf("storage.Pool: parse k %q: %w", k, err)
	}
	p.Outcome = boolPtr(outcome)
	return p, nil
}

func (t *sqlTx) PutPool(p domain.Pool) error {
	if _, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO pools (market_id, yes_reserve, no_reserve, k, total_volume, total_fees, resolved, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_id) DO UPDATE SET
			yes_reserve  = excluded.yes_reserve,
			no_reserve   = excluded.no_reserve,
			total_volume = excluded.total_volume,
			total_fees   = excluded.total_fees,
			resolved     = excluded.resolved,
			outcome      = excluded.outcome`,
		p.MarketID, p.YesReserve, p.NoReserve, decimalK(&p.K), p.TotalVolume, p.TotalFees,
		p.Resolved, nullBool(p.Outcome),
	); err != nil {
		return fmt.Errorf("storage.PutPool %d: %w", p.MarketID, err)
	}
	return nil
}

// --- positions ---

func (t *sqlTx) Position(marketID uint64, trader domain.Principal) (domain.Position, error) {
	var p domain.Position
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT market_id, trader, yes_shares, no_shares, cost_basis, claimed
		FROM positions WHERE market_id = ? AND trader = ?`, marketID, trader,
	).Scan(&p.MarketID, &p.Trader, &p.YesShares, &p.NoShares, &p.CostBasis, &p.Claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Position{}, fmt.Errorf("position %d/%s: %w", marketID, trader, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Position{}, fmt.Errorf("storage.Position: %w", err)
	}
	return p, nil
}

func (t *sqlTx) Positions(marketID uint64) ([]domain.Position, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT market_id, trader, yes_shares, no_shares, cost_basis, claimed
		FROM positions WHERE market_id = ? ORDER BY trader`, marketID)
	if err != nil {
		return nil, fmt.Errorf("storage.Positions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.MarketID, &p.Trader, &p.YesShares, &p.NoShares, &p.CostBasis, &p.Claimed); err != nil {
			return nil, fmt.Errorf("storage.Positions: scan row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *sqlTx) PutPosition(p domain.Position) error {
	if _, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO positions (market_id, trader, yes_shares, no_shares, cost_basis, claimed)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_id, trader) DO UPDATE SET
			yes_shares = excluded.yes_shares,
			no_shares  = excluded.no_shares,
			cost_basis = excluded.cost_basis,
			claimed    = excluded.claimed`,
		p.MarketID, p.Trader, p.YesShares, p.NoShares, p.CostBasis, p.Claimed,
	); err != nil {
		return fmt.Errorf("storage.PutPosition %d/%s: %w", p.MarketID, p.Trader, err)
	}
	return nil
}

// --- resolutions ---

const resolutionCols = `market_id, oracle, outcome, confidence_bps, evidence_uri, submitted_at,
	status, dispute_deadline, disputer, dispute_stake, stake_disposition, final_outcome, finalized_at`

func scanResolution(row interface{ Scan(...any) error }) (domain.Resolution, error) {
	var r domain.Resolution
	var disputer sql.NullString
	var final sql.NullBool
	err := row.Scan(&r.MarketID, &r.Oracle, &r.Outcome, &r.ConfidenceBps, &r.EvidenceURI, &r.SubmittedAt,
		&r.Status, &r.DisputeDeadline, &disputer, &r.DisputeStake, &r.StakeDisposition, &final, &r.FinalizedAt)
	if disputer.Valid {
		p := domain.Principal(disputer.String)
		r.Disputer = &p
	}
	r.FinalOutcome = boolPtr(final)
	return r, err
}

func (t *sqlTx) Resolution(marketID uint64) (domain.Resolution, error) {
	r, err := scanResolution(t.tx.QueryRowContext(t.ctx,
		`SELECT `+resolutionCols+` FROM resolutions WHERE market_id = ?`, marketID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Resolution{}, fmt.Errorf("resolution %d: %w", marketID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("storage.Resolution: %w", err)
	}
	return r, nil
}

func (t *sqlTx) Resolutions() ([]domain.Resolution, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT `+resolutionCols+` FROM resolutions ORDER BY market_id`)
	if err != nil {
		return nil, fmt.Errorf("storage.Resolutions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Resolution
	for rows.Next() {
		r, err := scanResolution(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.Resolutions: scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *sqlTx) PutResolution(r domain.Resolution) error {
	var disputer sql.NullString
	if r.Disputer != nil {
		disputer = sql.NullString{String: string(*r.Disputer), Valid: true}
	}
	if _, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO resolutions (`+resolutionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_id) DO UPDATE SET
			status            = excluded.status,
			disputer          = excluded.disputer,
			dispute_stake     = excluded.dispute_stake,
			stake_disposition = excluded.stake_disposition,
			final_outcome     = excluded.final_outcome,
			finalized_at      = excluded.finalized_at`,
		r.MarketID, r.Oracle, r.Outcome, r.ConfidenceBps, r.EvidenceURI, r.SubmittedAt,
		r.Status, r.DisputeDeadline, disputer, r.DisputeStake, r.StakeDisposition,
		nullBool(r.FinalOutcome), r.FinalizedAt,
	); err != nil {
		return fmt.Errorf("storage.PutResolution %d: %w", r.MarketID, err)
	}
	return nil
}

// --- oracles ---

func (t *sqlTx) Oracle(p domain.Principal) (domain.Oracle, error) {
	var o domain.Oracle
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT principal, type, label, active, registered_at FROM oracles WHERE principal = ?`, p,
	).Scan(&o.Principal, &o.Type, &o.Label, &o.Active, &o.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Oracle{}, fmt.Errorf("oracle %s: %w", p, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Oracle{}, fmt.Errorf("storage.Oracle: %w", err)
	}
	return o, nil
}

func (t *sqlTx) PutOracle(o domain.Oracle) error {
	if _, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO oracles (principal, type, label, active, registered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(principal) DO UPDATE SET
			type          = excluded.type,
			label         = excluded.label,
			active        = excluded.active,
			registered_at = excluded.registered_at`,
		o.Principal, o.Type, o.Label, o.Active, o.RegisteredAt,
	); err != nil {
		return fmt.Errorf("storage.PutOracle %s: %w", o.Principal, err)
	}
	return nil
}

// --- balances ---

func (t *sqlTx) Balance(p domain.Principal) (uint64, error) {
	var amount uint64
	err := t.tx.QueryRowContext(t.ctx, `SELECT amount FROM balances WHERE principal = ?`, p).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("storage.Balance: %w", err)
	}
	return amount, nil
}

func (t *sqlTx) SetBalance(p domain.Principal, amount uint64) error {
	var err error
	if amount == 0 {
		_, err = t.tx.ExecContext(t.ctx, `DELETE FROM balances WHERE principal = ?`, p)
	} else {
		_, err = t.tx.ExecContext(t.ctx, `
			INSERT INTO balances (principal, amount) VALUES (?, ?)
			ON CONFLICT(principal) DO UPDATE SET amount = excluded.amount`, p, amount)
	}
	if err != nil {
		return fmt.Errorf("storage.SetBalance %s: %w", p, err)
	}
	return nil
}

// --- events ---

func (t *sqlTx) Emit(e domain.Event) error {
	h, err := t.Height()
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO events (id, height, kind, market_id, principal, amount, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), h, e.Kind, e.MarketID, e.Principal, e.Amount, e.Detail,
	); err != nil {
		return fmt.Errorf("storage.Emit %s: %w", e.Kind, err)
	}
	return nil
}

func (t *sqlTx) Events(marketID uint64, limit int) ([]domain.Event, error) {
	q := `SELECT id, height, kind, market_id, principal, amount, detail FROM events`
	var args []any
	if marketID != 0 {
		q += ` WHERE market_id = ?`
		args = append(args, marketID)
	}
	q += ` ORDER BY seq DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := t.tx.QueryContext(t.ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.Events: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Height, &e.Kind, &e.MarketID, &e.Principal, &e.Amount, &e.Detail); err != nil {
			return nil, fmt.Errorf("storage.Events: scan row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- helpers internos ---

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func boolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}

func decimalK(k *uint256.Int) string { return k.Dec() }
