package ports

import (
	"context"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// Journal registra decisiones y snapshots para auditoría.
// Nunca se usa para reconstruir un snapshot.
type Journal interface {
	RecordDecision(ctx context.Context, d domain.OrderDecision) error
	RecordSnapshot(ctx context.Context, s domain.PortfolioSnapshot) error
	RecentDecisions(ctx context.Context, limit int) ([]domain.OrderDecision, error)
	Close() error
}

// DecisionObserver cuenta decisiones del guard (métricas).
type DecisionObserver interface {
	ObserveDecision(d domain.OrderDecision)
}
