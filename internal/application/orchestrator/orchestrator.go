// Package orchestrator resolves expired markets automatically: it gathers
// evidence, submits confident verdicts as the oracle, flags the rest for
// review and finalizes resolutions whose dispute window has elapsed.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// Engine es el subconjunto del engine que usa el orquestador.
type Engine interface {
	Height(ctx context.Context) (uint64, error)
	Markets(ctx context.Context) ([]domain.Market, error)
	Resolutions(ctx context.Context) ([]domain.Resolution, error)
	SubmitResolution(ctx context.Context, marketID uint64, outcome bool, confidenceBps uint64, evidenceURI string, caller domain.Principal) (domain.Resolution, error)
	FinalizeResolution(ctx context.Context, marketID uint64, caller domain.Principal) (domain.Resolution, error)
	InitializePool(ctx context.Context, marketID, yesSeed, noSeed uint64, caller domain.Principal) (domain.Pool, error)
}

// Invalidator drops cached display state for markets a sweep wrote to.
type Invalidator interface {
	Invalidate(ctx context.Context, marketIDs ...uint64)
}

// Config contiene la configuración del orquestador.
type Config struct {
	Oracle        domain.Principal // principal que firma las resoluciones
	Operator      domain.Principal // admin que siembra liquidez
	Workers       int              // goroutines de evidencia (0 = 4)
	TxPerSecond   float64          // 0 = sin límite
	MaxAttempts   int              // intentos por llamada ante fallos de infraestructura
	RetryWait     time.Duration
	AutoSubmitBps uint64 // 0 = domain.AutoSubmitThresholdBps
	PriceSymbol   string // referencia de precio para mercados crypto; vacío la desactiva
	SeedAmount    uint64
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryWait <= 0 {
		c.RetryWait = 2 * time.Second
	}
}

// Orchestrator runs sweeps. A sweep is safe to run concurrently with
// trading; every write is its own ledger transaction.
type Orchestrator struct {
	cfg         Config
	engine      Engine
	gatherer    *Gatherer
	notifier    ports.Notifier
	invalidator Invalidator
	limiter     *rate.Limiter
}

// Option configures optional collaborators.
type Option func(*Orchestrator)

// WithNotifier reports every sweep to n.
func WithNotifier(n ports.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithInvalidator invalidates display caches after writes.
func WithInvalidator(inv Invalidator) Option {
	return func(o *Orchestrator) { o.invalidator = inv }
}

// WithPrices adds a price reference to evidence requests for crypto markets.
func WithPrices(p ports.PriceProvider) Option {
	return func(o *Orchestrator) { o.gatherer.prices = p }
}

// New crea un Orchestrator con las dependencias inyectadas.
func New(cfg Config, engine Engine, evidence ports.EvidenceProvider, opts ...Option) *Orchestrator {
	cfg.setDefaults()
	limit := rate.Inf
	if cfg.TxPerSecond > 0 {
		limit = rate.Limit(cfg.TxPerSecond)
	}
	o := &Orchestrator{
		cfg:     cfg,
		engine:  engine,
		limiter: rate.NewLimiter(limit, 1),
	}
	o.gatherer = &Gatherer{evidence: evidence, symbol: cfg.PriceSymbol}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunCycle ejecuta un sweep y lo notifica. Los errores por mercado quedan en
// el reporte; solo falla si no se puede leer el ledger.
func (o *Orchestrator) RunCycle(ctx context.Context) (domain.SweepReport, error) {
	report, err := o.Sweep(ctx)
	if err != nil {
		return report, err
	}

	if o.notifier != nil {
		if err := o.notifier.NotifySweep(ctx, report); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Info("sweep complete",
		"run_id", report.RunID,
		"height", report.Height,
		"submitted", report.Count(domain.ActionSubmitted),
		"flagged", report.Count(domain.ActionFlagged),
		"finalized", report.Count(domain.ActionFinalized),
		"failed", report.Count(domain.ActionFailed),
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)
	return report, nil
}

// Sweep resuelve mercados vencidos y finaliza ventanas cerradas.
func (o *Orchestrator) Sweep(ctx context.Context) (domain.SweepReport, error) {
	report := domain.SweepReport{RunID: uuid.NewString(), StartedAt: time.Now()}

	height, err := o.engine.Height(ctx)
	if err != nil {
		return report, fmt.Errorf("orchestrator.Sweep: height: %w", err)
	}
	report.Height = height

	markets, err := o.engine.Markets(ctx)
	if err != nil {
		return report, fmt.Errorf("orchestrator.Sweep: markets: %w", err)
	}
	resolutions, err := o.engine.Resolutions(ctx)
	if err != nil {
		return report, fmt.Errorf("orchestrator.Sweep: resolutions: %w", err)
	}

	resolved := make(map[uint64]domain.Resolution, len(resolutions))
	for _, r := range resolutions {
		resolved[r.MarketID] = r
	}

	due := expiredUnresolved(markets, resolved, height)
	slog.Debug("sweep starting", "run_id", report.RunID, "height", height, "due", len(due))

	// I/O externo fuera de cualquier transacción
	gathered := gatherConcurrent(ctx, o.gatherer, due, o.cfg.Workers, o.cfg.MaxAttempts, o.cfg.RetryWait)

	for _, g := range gathered {
		report.Items = append(report.Items, o.submit(ctx, g))
	}
	for _, r := range finalizable(markets, resolutions, height) {
		report.Items = append(report.Items, o.finalize(ctx, r, questionOf(markets, r.MarketID)))
	}

	o.invalidate(ctx, report.Items)
	report.FinishedAt = time.Now()
	return report, nil
}

func (o *Orchestrator) submit(ctx context.Context, g gathered) domain.SweepItem {
	item := domain.SweepItem{
		MarketID: g.market.ID,
		Question: g.market.Question,
		Attempts: g.attempts,
	}
	if g.err != nil {
		item.Action = domain.ActionFailed
		item.Err = g.err.Error()
		slog.Warn("evidence unavailable", "market_id", g.market.ID, "attempts", g.attempts, "err", g.err)
		return item
	}

	ev := g.evidence
	item.Outcome = &ev.Outcome
	item.ConfidenceBps = ev.ConfidenceBps

	if !o.shouldSubmit(ev.ConfidenceBps) {
		item.Action = domain.ActionFlagged
		slog.Warn("resolution needs review",
			"market_id", g.market.ID,
			"outcome", ev.Outcome,
			"confidence_bps", ev.ConfidenceBps,
			"reasoning", ev.Reasoning,
		)
		return item
	}

	attempts, err := o.write(ctx, func() error {
		_, err := o.engine.SubmitResolution(ctx, g.market.ID, ev.Outcome, ev.ConfidenceBps, ev.EvidenceURI(), o.cfg.Oracle)
		return err
	})
	item.Attempts = attempts
	if err != nil {
		item.Action = domain.ActionFailed
		item.Err = err.Error()
		slog.Error("submit resolution failed", "market_id", g.market.ID, "attempts", attempts, "err", err)
		return item
	}
	item.Action = domain.ActionSubmitted
	return item
}

func (o *Orchestrator) finalize(ctx context.Context, r domain.Resolution, question string) domain.SweepItem {
	item := domain.SweepItem{
		MarketID:      r.MarketID,
		Question:      question,
		Outcome:       &r.Outcome,
		ConfidenceBps: r.ConfidenceBps,
	}
	attempts, err := o.write(ctx, func() error {
		_, err := o.engine.FinalizeResolution(ctx, r.MarketID, o.cfg.Oracle)
		return err
	})
	item.Attempts = attempts
	if err != nil {
		item.Action = domain.ActionFailed
		item.Err = err.Error()
		slog.Error("finalize resolution failed", "market_id", r.MarketID, "attempts", attempts, "err", err)
		return item
	}
	item.Action = domain.ActionFinalized
	return item
}

// write paces ledger writes and retries infrastructure failures.
func (o *Orchestrator) write(ctx context.Context, fn func() error) (int, error) {
	return retry(ctx, o.cfg.MaxAttempts, o.cfg.RetryWait, func() error {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn()
	})
}

func (o *Orchestrator) shouldSubmit(confidenceBps uint64) bool {
	if o.cfg.AutoSubmitBps == 0 {
		return domain.ShouldAutoSubmit(confidenceBps)
	}
	return confidenceBps >= o.cfg.AutoSubmitBps
}

func (o *Orchestrator) invalidate(ctx context.Context, items []domain.SweepItem) {
	if o.invalidator == nil {
		return
	}
	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		if it.Action == domain.ActionSubmitted || it.Action == domain.ActionFinalized {
			ids = append(ids, it.MarketID)
		}
	}
	if len(ids) > 0 {
		o.invalidator.Invalidate(ctx, ids...)
	}
}

// expiredUnresolved devuelve los mercados activos vencidos sin resolución,
// ordenados por id.
func expiredUnresolved(markets []domain.Market, resolved map[uint64]domain.Resolution, height uint64) []domain.Market {
	var due []domain.Market
	for _, m := range markets {
		if m.Status != domain.MarketActive || !m.Expired(height) {
			continue
		}
		if _, ok := resolved[m.ID]; ok {
			continue
		}
		due = append(due, m)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due
}

// finalizable devuelve las resoluciones pendientes con la ventana cerrada.
// Paused or cancelled markets are left alone: finalizing them always fails.
func finalizable(markets []domain.Market, resolutions []domain.Resolution, height uint64) []domain.Resolution {
	active := make(map[uint64]bool, len(markets))
	for _, m := range markets {
		active[m.ID] = m.Status == domain.MarketActive
	}
	var out []domain.Resolution
	for _, r := range resolutions {
		if r.Status == domain.ResolutionPending && !r.InDisputeWindow(height) && active[r.MarketID] {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	return out
}

func questionOf(markets []domain.Market, id uint64) string {
	for _, m := range markets {
		if m.ID == id {
			return m.Question
		}
	}
	return ""
}
