package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/satbets/config"
	"github.com/alejandrodnm/satbets/internal/adapters/cache"
	"github.com/alejandrodnm/satbets/internal/adapters/evidence"
	"github.com/alejandrodnm/satbets/internal/adapters/memory"
	"github.com/alejandrodnm/satbets/internal/adapters/notify"
	"github.com/alejandrodnm/satbets/internal/adapters/storage"
	"github.com/alejandrodnm/satbets/internal/application/board"
	"github.com/alejandrodnm/satbets/internal/application/engine"
	"github.com/alejandrodnm/satbets/internal/application/orchestrator"
	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one resolution sweep and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	showBoard := flag.Bool("board", false, "print the market board and exit")
	compact := flag.Bool("compact", false, "compact 1-line output instead of tables")
	genesis := flag.Bool("genesis", false, "install admin and oracle from config, then continue")
	seed := flag.String("seed", "", "seed a market pool as <market_id>:<yes_probability_bps> and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("satbets starting",
		"config", *configPath,
		"ledger", cfg.Ledger.Driver,
		"block_interval", cfg.BlockInterval(),
		"schedule", cfg.Orchestrator.Schedule,
		"once", *once,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ledger, err := openLedger(cfg.Ledger)
	if err != nil {
		slog.Error("failed to open ledger", "err", err, "driver", cfg.Ledger.Driver, "dsn", cfg.Ledger.DSN)
		os.Exit(1)
	}
	defer ledger.Close()

	eng := engine.New(ledger)

	if *genesis {
		if err := runGenesis(ctx, eng, cfg); err != nil {
			slog.Error("genesis failed", "err", err)
			os.Exit(1)
		}
	}

	var viewCache ports.ViewCache
	if cfg.Cache.Addr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.CacheTTL(),
		})
		if err != nil {
			// el cache es opcional: se sigue sin él
			slog.Warn("redis cache unavailable", "err", err, "addr", cfg.Cache.Addr)
		} else {
			defer rc.Close()
			viewCache = rc
		}
	}

	format := notify.FormatTable
	if *compact {
		format = notify.FormatCompact
	}
	notifier := notify.NewConsole(format)
	boardSvc := board.New(eng, viewCache, slog.Default())

	client := evidence.NewClient(evidence.Config{
		BaseURL:   cfg.Evidence.BaseURL,
		PriceURL:  cfg.Evidence.PriceURL,
		APIKey:    cfg.Evidence.APIKey,
		Timeout:   cfg.EvidenceTimeout(),
		RetryWait: cfg.RetryWait(),
	})

	orch := orchestrator.New(orchestrator.Config{
		Oracle:        domain.Principal(cfg.Oracle.Principal),
		Operator:      domain.Principal(cfg.Admin.Principal),
		Workers:       cfg.Orchestrator.Workers,
		TxPerSecond:   cfg.Orchestrator.TxPerSecond,
		MaxAttempts:   cfg.Orchestrator.MaxAttempts,
		RetryWait:     cfg.RetryWait(),
		AutoSubmitBps: cfg.Oracle.AutoSubmitBps,
		PriceSymbol:   cfg.Orchestrator.PriceSymbol,
		SeedAmount:    cfg.MarketMaker.SeedAmount,
	}, eng, client,
		orchestrator.WithPrices(client),
		orchestrator.WithNotifier(notifier),
		orchestrator.WithInvalidator(boardSvc),
	)

	switch {
	case *showBoard:
		err = boardSvc.Publish(ctx, notifier)
	case *seed != "":
		err = runSeed(ctx, orch, *seed)
	case *once:
		_, err = orch.RunCycle(ctx)
	default:
		err = runDaemon(ctx, cfg, eng, orch, boardSvc, notifier)
	}
	if err != nil {
		slog.Error("satbets exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("satbets stopped cleanly")
}

func openLedger(cfg config.LedgerConfig) (ports.Ledger, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewLedger(), nil
	case "sqlite":
		l, err := storage.NewSQLiteLedger(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
