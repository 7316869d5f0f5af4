package ledger_test

import (
	"testing"

	"github.com/alejandrodnm/polyledger/internal/application/ledger"
	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binaryMarket(id string, p float64) domain.CanonicalMarket {
	return domain.CanonicalMarket{
		ID:          id,
		Question:    "Question " + id,
		OutcomeType: domain.OutcomeBinary,
		Probability: domain.Some(p),
	}
}

func buy(market, outcome string, shares, amount float64) domain.RawFillRecord {
	return domain.RawFillRecord{MarketID: market, OutcomeLabel: outcome, Shares: shares, SignedAmount: amount}
}

func sell(market, outcome string, shares, amount float64) domain.RawFillRecord {
	return domain.RawFillRecord{MarketID: market, OutcomeLabel: outcome, Shares: shares, SignedAmount: -amount}
}

func TestFold_BuysOnlyAverageEqualsNotionalOverShares(t *testing.T) {
	markets := map[string]domain.CanonicalMarket{"M1": binaryMarket("M1", 0.6)}
	fills := []domain.RawFillRecord{
		buy("M1", "YES", 10, 4),
		buy("M1", "yes", 30, 15),
		buy("M1", " Yes ", 5, 2.75),
	}

	positions, skips := ledger.Fold(fills, markets)
	require.Empty(t, skips)
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, "YES", p.OutcomeKey)
	assert.InDelta(t, p.BuyShares, p.NetShares, 1e-12)
	assert.InDelta(t, 45, p.BuyShares, 1e-12)
	assert.InDelta(t, 21.75/45, p.AvgEntryPrice.Value, 1e-12)
	assert.InDelta(t, 0.6, p.MarkPrice.Value, 1e-12)
	assert.InDelta(t, (0.6-21.75/45)*45, p.UnrealizedPnl.Value, 1e-9)
	assert.Equal(t, "Question M1", p.Question)
}

func TestFold_SellsNeverMoveBasis(t *testing.T) {
	markets := map[string]domain.CanonicalMarket{"M1": binaryMarket("M1", 0.5)}
	base := []domain.RawFillRecord{buy("M1", "YES", 100, 40)}

	before, _ := ledger.Fold(base, markets)
	require.Len(t, before, 1)

	interleaved := []domain.RawFillRecord{
		buy("M1", "YES", 100, 40),
		sell("M1", "YES", 30, 20),
		sell("M1", "YES", 50, 10),
	}
	after, _ := ledger.Fold(interleaved, markets)
	require.Len(t, after, 1)

	assert.InDelta(t, before[0].AvgEntryPrice.Value, after[0].AvgEntryPrice.Value, 1e-12)
	assert.InDelta(t, 20, after[0].NetShares, 1e-12)
	assert.InDelta(t, 100, after[0].BuyShares, 1e-12)
	assert.InDelta(t, 40, after[0].BuyNotional, 1e-12)
}

func TestFold_OversoldKeyKeepsBuyBasis(t *testing.T) {
	markets := map[string]domain.CanonicalMarket{"M1": binaryMarket("M1", 0.5)}
	positions, _ := ledger.Fold([]domain.RawFillRecord{
		buy("M1", "NO", 10, 3),
		sell("M1", "NO", 25, 12),
	}, markets)
	require.Len(t, positions, 1)

	assert.InDelta(t, -15, positions[0].NetShares, 1e-12)
	assert.InDelta(t, 0.3, positions[0].AvgEntryPrice.Value, 1e-12)
	assert.InDelta(t, 0.5, positions[0].MarkPrice.Value, 1e-12)
}

func TestFold_ClosedPositionsDroppedAndIdempotent(t *testing.T) {
	markets := map[string]domain.CanonicalMarket{
		"M1": binaryMarket("M1", 0.5),
		"M2": binaryMarket("M2", 0.2),
	}
	fills := []domain.RawFillRecord{
		buy("M1", "YES", 10, 5),
		sell("M1", "YES", 10, 6),
		buy("M2", "NO", 4, 3),
		buy("M2", "YES", 1, 0.2),
		sell("M2", "YES", 1-1e-7, 0.3),
	}

	first, _ := ledger.Fold(fills, markets)
	second, _ := ledger.Fold(fills, markets)
	assert.Equal(t, first, second)

	require.Len(t, first, 1)
	assert.Equal(t, "M2", first[0].MarketID)
	assert.Equal(t, "NO", first[0].OutcomeKey)
}

func TestFold_SkipsResolvedMissingAndNoise(t *testing.T) {
	resolved := binaryMarket("R", 1)
	resolved.Resolved = true
	markets := map[string]domain.CanonicalMarket{"R": resolved, "M": binaryMarket("M", 0.5)}

	positions, skips := ledger.Fold([]domain.RawFillRecord{
		buy("R", "YES", 10, 5),
		{ID: "b9", MarketID: "GONE", OutcomeLabel: "YES", Shares: 3, SignedAmount: 1},
		buy("M", "YES", 1e-10, 1e-10),
		{MarketID: "M", OutcomeLabel: "YES", Shares: 5, SignedAmount: 0},
	}, markets)

	assert.Empty(t, positions)
	require.Len(t, skips, 1)
	assert.Equal(t, "b9", skips[0].Record)
	assert.Contains(t, skips[0].Reason, "GONE")
}

func TestFold_MultiAnswersKeyedByAnswerID(t *testing.T) {
	markets := map[string]domain.CanonicalMarket{
		"C": {
			ID:          "C",
			OutcomeType: domain.OutcomeMulti,
			Answers: []domain.Answer{
				{ID: "a1", Label: "Alice", Probability: 0.25},
				{ID: "a2", Label: "Bob", Probability: 0.6},
			},
		},
	}
	positions, _ := ledger.Fold([]domain.RawFillRecord{
		{MarketID: "C", OutcomeLabel: "YES", AnswerID: "a2", Shares: 10, SignedAmount: 5},
		{MarketID: "C", OutcomeLabel: "YES", AnswerID: "a1", Shares: 8, SignedAmount: 2},
	}, markets)
	require.Len(t, positions, 2)

	assert.Equal(t, "a2", positions[0].OutcomeKey)
	assert.Equal(t, "Bob", positions[0].OutcomeLabel)
	assert.InDelta(t, 0.6, positions[0].MarkPrice.Value, 1e-12)
	assert.Equal(t, "Alice", positions[1].OutcomeLabel)
}

func TestSort_FallsBackToAverageThenZero(t *testing.T) {
	positions := []domain.Position{
		{MarketID: "none", OutcomeKey: "YES", NetShares: 1000},
		{MarketID: "avg", OutcomeKey: "YES", NetShares: 100, AvgEntryPrice: domain.Some(0.5)},
		{MarketID: "mark", OutcomeKey: "YES", NetShares: -100, MarkPrice: domain.Some(0.9), AvgEntryPrice: domain.Some(0.1)},
	}
	ledger.Sort(positions)

	assert.Equal(t, "mark", positions[0].MarketID)
	assert.Equal(t, "avg", positions[1].MarketID)
	assert.Equal(t, "none", positions[2].MarketID)
}

func TestBuild_MergesVenuePositionsAndSumsPnl(t *testing.T) {
	h := domain.Holdings{
		Account: domain.Account{Identity: "alice", CashBalance: domain.Some(100)},
		Fills:   []domain.RawFillRecord{buy("M1", "YES", 10, 4)},
		Markets: map[string]domain.CanonicalMarket{"M1": binaryMarket("M1", 0.5)},
		Positions: []domain.Position{
			{MarketID: "P", OutcomeKey: "YES", NetShares: 20, AvgEntryPrice: domain.Some(0.5), MarkPrice: domain.Some(0.75)},
			{MarketID: "Z", OutcomeKey: "NO", NetShares: 1e-8},
		},
		Skipped: []domain.Skip{{Record: "m9", Reason: "market lookup failed"}},
	}

	snap := ledger.Build("manifold", h)
	assert.Equal(t, "manifold", snap.Venue)
	assert.Equal(t, "alice", snap.Identity)
	require.Len(t, snap.Positions, 2)
	assert.Equal(t, "P", snap.Positions[0].MarketID)
	assert.InDelta(t, 5, snap.Positions[0].UnrealizedPnl.Value, 1e-12)
	assert.InDelta(t, 5+1, snap.UnrealizedPnl.Value, 1e-9)
	assert.Len(t, snap.Skipped, 1)
}
