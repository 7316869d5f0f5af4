package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alejandrodnm/polyledger/config"
	"github.com/alejandrodnm/polyledger/internal/adapters/httpapi"
	"github.com/alejandrodnm/polyledger/internal/adapters/metrics"
	"github.com/alejandrodnm/polyledger/internal/adapters/notify"
	"github.com/alejandrodnm/polyledger/internal/application/agent"
	"github.com/alejandrodnm/polyledger/internal/domain"
)

var errUsage = errors.New("usage")

type app struct {
	svc     *agent.Service
	out     *notify.Console
	cfg     *config.Config
	metrics *metrics.Metrics
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "portfolio":
		snap, err := a.svc.Snapshot(ctx)
		if err != nil {
			return err
		}
		return a.out.RenderSnapshot(snap)

	case "market":
		if len(args) != 1 {
			return fmt.Errorf("%w: market <id>", errUsage)
		}
		m, err := a.svc.MarketDetails(ctx, args[0])
		if err != nil {
			return err
		}
		return a.out.RenderMarket(m)

	case "markets":
		fs := newFlagSet("markets")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "page offset")
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		ms, err := a.svc.ListMarkets(ctx, *limit, *offset)
		if err != nil {
			return err
		}
		return a.out.RenderMarkets(ms)

	case "check":
		intent, err := parseIntent(args)
		if err != nil {
			return err
		}
		d, err := a.svc.CheckOrder(ctx, intent)
		if err != nil {
			return err
		}
		if err := a.out.RenderDecision(d); err != nil {
			return err
		}
		return d.Err()

	case "place":
		intent, err := parseIntent(args)
		if err != nil {
			return err
		}
		d, receipt, err := a.svc.PlaceOrder(ctx, intent)
		if d.ID != "" {
			if rerr := a.out.RenderDecision(d); rerr != nil {
				return rerr
			}
		}
		if err != nil {
			return err
		}
		return a.out.RenderReceipt(receipt)

	case "history":
		fs := newFlagSet("history")
		limit := fs.Int("limit", 20, "number of decisions")
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		if a.cfg.Storage.DSN == "" {
			slog.Warn("journal disabled (storage.dsn is empty)")
		}
		ds, err := a.svc.RecentDecisions(ctx, *limit)
		if err != nil {
			return err
		}
		return a.out.RenderDecisions(ds)

	case "serve":
		fs := newFlagSet("serve")
		addr := fs.String("addr", a.cfg.Server.Addr, "listen address")
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return a.serve(ctx, *addr)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpapi.NewRouter(a.svc, a.metrics),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("ledger api listening", "addr", addr, "venue", a.svc.Venue())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	slog.Info("ledger api stopped cleanly")
	return nil
}

// parseIntent lee los flags de check/place. Shares y stake vacíos = ausentes.
func parseIntent(args []string) (domain.OrderIntent, error) {
	fs := newFlagSet("order")
	side := fs.String("side", "", "BUY or SELL")
	market := fs.String("market", "", "market id")
	outcome := fs.String("outcome", "", "YES/NO or answer text (\"top outcome\" = most likely answer)")
	answer := fs.String("answer", "", "answer id (multi-outcome markets)")
	price := fs.Float64("price", 0, "limit price in (0, 1)")
	shares := fs.String("shares", "", "share count")
	stake := fs.String("stake", "", "cash to spend (BUY only)")
	if err := fs.Parse(args); err != nil {
		return domain.OrderIntent{}, fmt.Errorf("%w: %v", errUsage, err)
	}

	s, err := domain.ParseSide(*side)
	if err != nil {
		return domain.OrderIntent{}, err
	}
	intent := domain.OrderIntent{
		MarketID:     *market,
		OutcomeLabel: *outcome,
		AnswerID:     *answer,
		Side:         s,
		Price:        *price,
	}
	if intent.Shares, err = optionalFlag("shares", *shares); err != nil {
		return domain.OrderIntent{}, err
	}
	if intent.Stake, err = optionalFlag("stake", *stake); err != nil {
		return domain.OrderIntent{}, err
	}
	return intent, nil
}

func optionalFlag(name, v string) (domain.OptionalFloat, error) {
	if v == "" {
		return domain.OptionalFloat{}, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return domain.OptionalFloat{}, &domain.ValidationError{Field: name, Msg: fmt.Sprintf("not a number: %q", v)}
	}
	return domain.Some(f), nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}
