package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/polyledger/internal/adapters/storage"
	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDecision(id string, at time.Time, approved bool) domain.OrderDecision {
	d := domain.OrderDecision{
		ID: id,
		Intent: domain.OrderIntent{
			MarketID:     "m1",
			OutcomeLabel: "YES",
			Side:         domain.SideBuy,
			Price:        0.4,
			Stake:        domain.Some(20),
		},
		Approved:  approved,
		DecidedAt: at,
	}
	if approved {
		d.Shares, d.Notional = 50, 20
	} else {
		d.Reason = "no cash available"
	}
	return d
}

func TestJournal_RecordAndReadDecisions(t *testing.T) {
	j, err := storage.NewJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	ctx := context.Background()
	require.NoError(t, j.RecordDecision(ctx, makeDecision("d1", now.Add(-time.Minute), true)))
	require.NoError(t, j.RecordDecision(ctx, makeDecision("d2", now, false)))

	got, err := j.RecentDecisions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// La más reciente primero
	assert.Equal(t, "d2", got[0].ID)
	assert.False(t, got[0].Approved)
	assert.Equal(t, "no cash available", got[0].Reason)
	assert.True(t, got[0].DecidedAt.Equal(now))

	assert.Equal(t, "d1", got[1].ID)
	assert.True(t, got[1].Approved)
	assert.Equal(t, domain.SideBuy, got[1].Intent.Side)
	assert.InDelta(t, 50, got[1].Shares, 1e-9)
	assert.InDelta(t, 0.4, got[1].Intent.Price, 1e-9)
}

func TestJournal_RecentDecisionsLimit(t *testing.T) {
	j, err := storage.NewJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	now := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, j.RecordDecision(context.Background(), makeDecision(id, now.Add(time.Duration(i)*time.Second), true)))
	}

	got, err := j.RecentDecisions(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestJournal_RecordSnapshotAllowsMissingCash(t *testing.T) {
	j, err := storage.NewJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	snap := domain.PortfolioSnapshot{
		ID:      "s1",
		Venue:   "manifold",
		TakenAt: time.Now(),
		Positions: []domain.Position{
			{MarketID: "m1", OutcomeKey: "YES", NetShares: 10, MarkPrice: domain.Some(0.5)},
		},
		RealizedPnl: domain.Some(3),
	}
	assert.NoError(t, j.RecordSnapshot(context.Background(), snap))
	// mismo id: reemplaza
	assert.NoError(t, j.RecordSnapshot(context.Background(), snap))
}
