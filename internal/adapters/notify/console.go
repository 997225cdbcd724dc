package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

const (
	FormatTable   = "table"
	FormatCompact = "compact"

	satsPerBTC = 8 // decimal exponent of one satoshi
)

// Console implementa ports.Notifier.
type Console struct {
	out    io.Writer
	format string
}

var _ ports.Notifier = (*Console)(nil)

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(format string) *Console {
	return NewConsoleWriter(os.Stdout, format)
}

// NewConsoleWriter crea un notificador sobre w (tests).
func NewConsoleWriter(w io.Writer, format string) *Console {
	if format != FormatCompact {
		format = FormatTable
	}
	return &Console{out: w, format: format}
}

// NotifyBoard imprime el tablero de mercados.
func (c *Console) NotifyBoard(_ context.Context, views []domain.MarketView) error {
	now := time.Now().Format("15:04:05")
	if len(views) == 0 {
		fmt.Fprintf(c.out, "[%s] no markets\n", now)
		return nil
	}

	active, resolved, flagged := boardCounts(views)
	fmt.Fprintf(c.out, "\n[%s] %d markets | active:%d resolved:%d imbalanced:%d\n",
		now, len(views), active, resolved, flagged)

	if c.format == FormatCompact {
		for _, v := range views {
			fmt.Fprintf(c.out, "  #%d %s YES %s NO %s %s\n",
				v.Market.ID,
				domain.TruncateQuestion(v.Market.Question, v.Market.ID, 40),
				FormatPrice(v.YesPrice),
				FormatPrice(v.NoPrice),
				v.Market.Status)
		}
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Cat", "Market", "Status", "YES", "NO", "Liquidity BTC", "Volume BTC", "Resolution", "Health")
	for _, v := range views {
		liquidity, volume := "-", "-"
		if v.Pool != nil {
			liquidity = FormatSats(v.Pool.YesReserve + v.Pool.NoReserve)
			volume = FormatSats(v.Pool.TotalVolume)
		}
		if err := table.Append(
			fmt.Sprintf("%d", v.Market.ID),
			v.Market.Category.String(),
			domain.TruncateQuestion(v.Market.Question, v.Market.ID, 48),
			v.Market.Status.String(),
			FormatPrice(v.YesPrice),
			FormatPrice(v.NoPrice),
			liquidity,
			volume,
			resolutionLabel(v.Resolution),
			healthLabel(v),
		); err != nil {
			return fmt.Errorf("notify.NotifyBoard: append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("notify.NotifyBoard: render: %w", err)
	}
	fmt.Fprintln(c.out, "  YES/NO = implied probability | Health: IMBALANCED when one side holds > 90% of reserves")
	return nil
}

// NotifySweep imprime el resumen de un ciclo del orquestador.
func (c *Console) NotifySweep(_ context.Context, r domain.SweepReport) error {
	runID := r.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	fmt.Fprintf(c.out, "[%s] sweep %s h=%d → submitted:%d flagged:%d finalized:%d failed:%d (%s)\n",
		r.FinishedAt.Format("15:04:05"), runID, r.Height,
		r.Count(domain.ActionSubmitted),
		r.Count(domain.ActionFlagged),
		r.Count(domain.ActionFinalized),
		r.Count(domain.ActionFailed),
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
	)
	if c.format == FormatCompact || len(r.Items) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Action", "Outcome", "Confidence", "Attempts", "Error")
	for _, it := range r.Items {
		if err := table.Append(
			fmt.Sprintf("%d", it.MarketID),
			domain.TruncateQuestion(it.Question, it.MarketID, 40),
			string(it.Action),
			outcomeLabel(it.Outcome),
			FormatBps(it.ConfidenceBps),
			fmt.Sprintf("%d", it.Attempts),
			it.Err,
		); err != nil {
			return fmt.Errorf("notify.NotifySweep: append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("notify.NotifySweep: render: %w", err)
	}
	return nil
}

// FormatSats renders a satoshi amount as BTC with 8 decimals.
func FormatSats(sats uint64) string {
	return decimal.NewFromUint64(sats).Shift(-satsPerBTC).StringFixed(satsPerBTC)
}

// FormatPrice renders a PriceScale-scaled price as a percentage.
func FormatPrice(p uint64) string {
	return decimal.NewFromUint64(p).Shift(-4).StringFixed(2) + "%"
}

// FormatBps renders basis points as a percentage.
func FormatBps(bps uint64) string {
	return decimal.NewFromUint64(bps).Shift(-2).StringFixed(2) + "%"
}

func resolutionLabel(r *domain.Resolution) string {
	if r == nil {
		return "-"
	}
	outcome := r.Outcome
	if r.FinalOutcome != nil {
		outcome = *r.FinalOutcome
	}
	return fmt.Sprintf("%s %s (%s)", r.Status, outcomeLabel(&outcome), FormatBps(r.ConfidenceBps))
}

func outcomeLabel(o *bool) string {
	if o == nil {
		return "-"
	}
	return strings.ToUpper(domain.SideFor(*o).String())
}

func healthLabel(v domain.MarketView) string {
	switch {
	case v.Pool == nil:
		return "no pool"
	case v.Imbalanced:
		return "IMBALANCED"
	default:
		return "ok"
	}
}

func boardCounts(views []domain.MarketView) (active, resolved, imbalanced int) {
	for _, v := range views {
		switch v.Market.Status {
		case domain.MarketActive:
			active++
		case domain.MarketResolved:
			resolved++
		}
		if v.Imbalanced {
			imbalanced++
		}
	}
	return
}
