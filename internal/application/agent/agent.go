package agent

// agent.go: orquesta venue, ledger, guard y journal.
//
// Cada operación recalcula el snapshot desde el venue: no hay estado
// compartido entre llamadas salvo el journal de auditoría.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyledger/internal/application/guard"
	"github.com/alejandrodnm/polyledger/internal/application/ledger"
	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/ports"
)

// Service es el punto de entrada de la CLI y de la API HTTP.
type Service struct {
	venue    ports.Venue
	guard    *guard.Guard
	journal  ports.Journal
	observer ports.DecisionObserver
	now      func() time.Time
	newID    func() string
}

// Option configura un Service.
type Option func(*Service)

// WithJournal activa la auditoría de decisiones y snapshots.
func WithJournal(j ports.Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithObserver registra cada decisión del guard (métricas).
func WithObserver(o ports.DecisionObserver) Option {
	return func(s *Service) { s.observer = o }
}

// WithClock fija el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs fija el generador de ids (tests).
func WithIDs(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// New crea un Service con las dependencias inyectadas.
func New(venue ports.Venue, g *guard.Guard, opts ...Option) *Service {
	s := &Service{
		venue: venue,
		guard: g,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Venue devuelve el nombre del venue configurado.
func (s *Service) Venue() string { return s.venue.Name() }

// Snapshot lee la cuenta del venue y la agrega en un PortfolioSnapshot.
func (s *Service) Snapshot(ctx context.Context) (domain.PortfolioSnapshot, error) {
	h, err := s.venue.Holdings(ctx)
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("agent.Snapshot: %w", err)
	}
	snap := ledger.Build(s.venue.Name(), h)
	snap.ID = s.newID()
	snap.TakenAt = s.now().UTC()

	slog.Debug("snapshot built",
		"venue", snap.Venue,
		"positions", len(snap.Positions),
		"skipped", len(snap.Skipped),
	)
	if s.journal != nil {
		if err := s.journal.RecordSnapshot(ctx, snap); err != nil {
			slog.Warn("journal error", "err", err)
		}
	}
	return snap, nil
}

// MarketDetails devuelve un mercado canónico.
func (s *Service) MarketDetails(ctx context.Context, id string) (domain.CanonicalMarket, error) {
	m, err := s.venue.Market(ctx, id)
	if err != nil {
		return domain.CanonicalMarket{}, fmt.Errorf("agent.MarketDetails: %w", err)
	}
	return m, nil
}

// ListMarkets devuelve una página de mercados.
func (s *Service) ListMarkets(ctx context.Context, limit, offset int) ([]domain.CanonicalMarket, error) {
	ms, err := s.venue.Markets(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("agent.ListMarkets: %w", err)
	}
	return ms, nil
}

// CheckOrder evalúa el intent contra un snapshot nuevo. Un rechazo no es
// error: la razón viaja en la decisión.
func (s *Service) CheckOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderDecision, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.OrderDecision{}, fmt.Errorf("agent.CheckOrder: %w", err)
	}
	return s.decide(ctx, intent, snap), nil
}

// PlaceOrder valida el mercado, pasa el guard y envía la orden al venue.
func (s *Service) PlaceOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderDecision, domain.OrderReceipt, error) {
	market, err := s.venue.Market(ctx, intent.MarketID)
	if err != nil {
		return domain.OrderDecision{}, domain.OrderReceipt{}, fmt.Errorf("agent.PlaceOrder: %w", err)
	}
	intent, err = s.prepare(intent, market)
	if err != nil {
		return domain.OrderDecision{}, domain.OrderReceipt{}, fmt.Errorf("agent.PlaceOrder: %w", err)
	}

	decision, err := s.CheckOrder(ctx, intent)
	if err != nil {
		return domain.OrderDecision{}, domain.OrderReceipt{}, fmt.Errorf("agent.PlaceOrder: %w", err)
	}
	if !decision.Approved {
		return decision, domain.OrderReceipt{}, decision.Err()
	}

	req := domain.OrderRequest{
		DecisionID: decision.ID,
		MarketID:   intent.MarketID,
		Outcome:    intent.OutcomeLabel,
		AnswerID:   intent.AnswerID,
		Side:       intent.Side,
		Price:      intent.Price,
		Shares:     decision.Shares,
		Notional:   decision.Notional,
	}
	receipt, err := s.venue.Submit(ctx, req)
	if err != nil {
		return decision, domain.OrderReceipt{}, fmt.Errorf("agent.PlaceOrder: %w", err)
	}
	if receipt.DecisionID == "" {
		receipt.DecisionID = decision.ID
	}
	receipt.PlacedAt = s.now().UTC()

	slog.Info("order placed",
		"venue", receipt.Venue,
		"order", receipt.OrderID,
		"status", receipt.Status,
		"market", req.MarketID,
		"side", req.Side,
		"shares", req.Shares,
	)
	return decision, receipt, nil
}

// RecentDecisions lee el journal. Sin journal devuelve una lista vacía.
func (s *Service) RecentDecisions(ctx context.Context, limit int) ([]domain.OrderDecision, error) {
	if s.journal == nil {
		return nil, nil
	}
	ds, err := s.journal.RecentDecisions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("agent.RecentDecisions: %w", err)
	}
	return ds, nil
}

// decide aplica el guard y registra la decisión.
func (s *Service) decide(ctx context.Context, intent domain.OrderIntent, snap domain.PortfolioSnapshot) domain.OrderDecision {
	d := s.guard.Check(intent, snap)
	d.ID = s.newID()
	d.DecidedAt = s.now().UTC()

	if !d.Approved {
		slog.Info("order rejected",
			"reason", d.Reason,
			"market", intent.MarketID,
			"outcome", intent.OutcomeKey(),
			"side", intent.Side,
		)
	}
	if s.observer != nil {
		s.observer.ObserveDecision(d)
	}
	if s.journal != nil {
		if err := s.journal.RecordDecision(ctx, d); err != nil {
			slog.Warn("journal error", "err", err)
		}
	}
	return d
}

// prepare comprueba que el mercado admite órdenes y fija el outcome:
// YES/NO en binarios, answer id en MULTI.
func (s *Service) prepare(intent domain.OrderIntent, m domain.CanonicalMarket) (domain.OrderIntent, error) {
	if m.Resolved {
		return intent, &domain.ValidationError{Field: "market", Msg: fmt.Sprintf("market %s is resolved", m.ID)}
	}
	if m.ClosedAt(s.now()) {
		return intent, &domain.ValidationError{Field: "market", Msg: fmt.Sprintf("market %s closed at %s", m.ID, m.CloseTime.Format(time.RFC3339))}
	}

	if m.IsBinary() {
		label := domain.NormalizeLabel(intent.OutcomeLabel)
		if label != "YES" && label != "NO" {
			return intent, &domain.ValidationError{Field: "outcome", Msg: fmt.Sprintf("binary market accepts YES or NO, got %q", intent.OutcomeLabel)}
		}
		intent.OutcomeLabel = label
		intent.AnswerID = ""
		return intent, nil
	}

	key := intent.AnswerID
	if key == "" {
		key = strings.TrimSpace(intent.OutcomeLabel)
	}
	a, err := m.ResolveAnswer(key)
	if err != nil {
		return intent, err
	}
	intent.AnswerID = a.ID
	intent.OutcomeLabel = a.Label
	return intent, nil
}
