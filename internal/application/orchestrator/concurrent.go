package orchestrator

// concurrent.go: worker pool para pedir evidencia en paralelo. Cada mercado
// vencido es una llamada HTTP lenta; en serie un sweep con decenas de
// mercados tardaría minutos.

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/satbets/internal/domain"
)

type gathered struct {
	market   domain.Market
	evidence domain.Evidence
	attempts int
	err      error
}

// gatherConcurrent pide evidencia para todos los mercados usando un worker
// pool. Devuelve un resultado por mercado, ordenado por id.
func gatherConcurrent(
	ctx context.Context,
	g *Gatherer,
	markets []domain.Market,
	workers, maxAttempts int,
	wait time.Duration,
) []gathered {
	if len(markets) == 0 {
		return nil
	}
	if workers > len(markets) {
		workers = len(markets)
	}

	workCh := make(chan domain.Market, len(markets))
	resultCh := make(chan gathered, len(markets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range workCh {
				var ev domain.Evidence
				attempts, err := retry(ctx, maxAttempts, wait, func() error {
					var err error
					ev, err = g.Gather(ctx, m)
					return err
				})
				resultCh <- gathered{market: m, evidence: ev, attempts: attempts, err: err}
			}
		}()
	}

	for _, m := range markets {
		workCh <- m
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	out := make([]gathered, 0, len(markets))
	for r := range resultCh {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].market.ID < out[j].market.ID })

	slog.Debug("evidence gathering complete", "markets", len(markets), "workers", workers)
	return out
}
