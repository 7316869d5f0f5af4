package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/polyledger/config"
	"github.com/alejandrodnm/polyledger/internal/adapters/metrics"
	"github.com/alejandrodnm/polyledger/internal/adapters/notify"
	"github.com/alejandrodnm/polyledger/internal/adapters/resolver"
	"github.com/alejandrodnm/polyledger/internal/adapters/storage"
	"github.com/alejandrodnm/polyledger/internal/application/agent"
	"github.com/alejandrodnm/polyledger/internal/application/guard"
	"github.com/alejandrodnm/polyledger/internal/domain"
)

const usage = `usage: ledger [flags] <command> [args]

commands:
  portfolio                     snapshot of the configured account
  market <id>                   market details (id, slug or condition id)
  markets [-limit N] [-offset N]
  check -side BUY|SELL -market ID -outcome L [-answer ID] -price P [-shares N | -stake N]
  place (same flags as check)   check, then submit to the venue
  history [-limit N]            recent guard decisions from the journal
  serve [-addr :8080]           JSON API + /metrics

flags:
`

func main() {
	os.Exit(run())
}

// run devuelve el exit code para que los defers se ejecuten antes de salir.
func run() int {
	configPath := flag.String("config", "", "path to config file (.yaml or .toml)")
	verbose := flag.Bool("verbose", false, "set log level to debug and log every attempted endpoint")
	format := flag.String("format", notify.FormatTable, "output format: table|json")
	venueName := flag.String("venue", "", "venue: polymarket|manifold (overrides config)")
	logFormat := flag.String("log-format", "", "log format: text|json (overrides config)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	if *venueName != "" {
		os.Setenv("LEDGER_VENUE", *venueName)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		return exitCode(err)
	}
	if *verbose {
		cfg.Log.Level = "debug"
		cfg.Debug = true
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	m := metrics.New()
	rc := resolver.New(
		resolver.WithTimeout(cfg.Timeout()),
		resolver.WithRateLimit(cfg.HTTP.RequestsPerSecond, cfg.HTTP.Burst),
		resolver.WithDebug(cfg.Debug),
		resolver.WithObserver(m),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	venue, err := buildVenue(ctx, cfg, rc)
	if err != nil {
		slog.Error("failed to build venue", "err", err, "venue", cfg.Venue)
		return exitCode(err)
	}

	opts := []agent.Option{agent.WithObserver(m)}
	if cfg.Storage.DSN != "" {
		journal, err := storage.NewJournal(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open journal", "err", err, "dsn", cfg.Storage.DSN)
			return 1
		}
		defer journal.Close()
		opts = append(opts, agent.WithJournal(journal))
	}
	svc := agent.New(venue, guard.New(guard.Config{MaxOrderFraction: cfg.Guard.MaxOrderFraction}), opts...)

	slog.Debug("ledger starting", "venue", cfg.Venue, "command", flag.Arg(0), "journal", cfg.Storage.DSN != "")

	app := &app{svc: svc, out: notify.NewConsole(*format), cfg: cfg, metrics: m}
	if err := app.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		if last := rc.LastError(); last != "" {
			slog.Debug("last endpoint error", "err", last)
		}
		slog.Error("command failed", "command", flag.Arg(0), "err", err)
		return exitCode(err)
	}
	return 0
}

// exitCode: 2 uso/validación, 3 configuración, 4 red, 1 resto.
func exitCode(err error) int {
	var (
		validation *domain.ValidationError
		cfgErr     *domain.ConfigurationError
		exhausted  *domain.EndpointExhaustedError
	)
	switch {
	case errors.As(err, &validation), errors.Is(err, errUsage):
		return 2
	case errors.As(err, &cfgErr):
		return 3
	case errors.As(err, &exhausted):
		return 4
	default:
		return 1
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

	// stderr: stdout queda para tablas y JSON
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
