package guard_test

import (
	"testing"

	"github.com/alejandrodnm/polyledger/internal/application/guard"
	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(cash float64, positions ...domain.Position) domain.PortfolioSnapshot {
	return domain.PortfolioSnapshot{CashBalance: domain.Some(cash), Positions: positions}
}

func TestCheck_BuyStakeSizingAndCap(t *testing.T) {
	g := guard.New(guard.DefaultConfig())
	intent := domain.OrderIntent{MarketID: "M1", OutcomeLabel: "YES", Side: domain.SideBuy, Price: 0.5, Stake: domain.Some(100)}

	d := g.Check(intent, snapshot(150))
	assert.False(t, d.Approved)
	assert.Contains(t, d.Reason, "$75.00")
	assert.Contains(t, d.Reason, "$100.00")
	require.Error(t, d.Err())

	d = g.Check(intent, snapshot(1000))
	require.True(t, d.Approved, d.Reason)
	assert.InDelta(t, 200, d.Shares, 1e-9)
	assert.InDelta(t, 100, d.Notional, 1e-9)
	assert.NoError(t, d.Err())
}

func TestCheck_BuyAtExactCapIsApproved(t *testing.T) {
	g := guard.New(guard.Config{MaxOrderFraction: 0.25})
	d := g.Check(domain.OrderIntent{MarketID: "M1", OutcomeLabel: "YES", Side: domain.SideBuy, Price: 0.1, Shares: domain.Some(250)}, snapshot(100))
	require.True(t, d.Approved, d.Reason)
	assert.InDelta(t, 25, d.Notional, 1e-9)
}

func TestCheck_BuyRejections(t *testing.T) {
	g := guard.New(guard.DefaultConfig())
	base := domain.OrderIntent{MarketID: "M1", OutcomeLabel: "YES", Side: domain.SideBuy, Price: 0.4}

	d := g.Check(base, snapshot(100))
	assert.Contains(t, d.Reason, "must specify size")

	withSize := base
	withSize.Shares = domain.Some(1)
	d = g.Check(withSize, snapshot(0))
	assert.Equal(t, "no cash available", d.Reason)

	d = g.Check(withSize, domain.PortfolioSnapshot{})
	assert.Equal(t, "no cash available", d.Reason)
}

func TestCheck_PriceBounds(t *testing.T) {
	g := guard.New(guard.DefaultConfig())
	for _, price := range []float64{0, 1, -0.1, 1.5} {
		for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
			d := g.Check(domain.OrderIntent{MarketID: "M1", OutcomeLabel: "YES", Side: side, Price: price, Shares: domain.Some(1)},
				snapshot(100, domain.Position{MarketID: "M1", OutcomeKey: "YES", NetShares: 10}))
			assert.False(t, d.Approved)
			assert.Contains(t, d.Reason, "strictly between 0 and 1")
		}
	}
}

func TestCheck_NonPositiveAmounts(t *testing.T) {
	g := guard.New(guard.DefaultConfig())
	d := g.Check(domain.OrderIntent{MarketID: "M1", OutcomeLabel: "YES", Side: domain.SideBuy, Price: 0.5, Stake: domain.Some(-5)}, snapshot(100))
	assert.Contains(t, d.Reason, "must be positive")

	d = g.Check(domain.OrderIntent{MarketID: "M1", OutcomeLabel: "YES", Side: domain.SideSell, Price: 0.5, Shares: domain.Some(0)}, snapshot(100))
	assert.Contains(t, d.Reason, "must be positive")
}

func TestCheck_SellOversell(t *testing.T) {
	g := guard.New(guard.DefaultConfig())
	snap := snapshot(0, domain.Position{MarketID: "M1", OutcomeKey: "YES", OutcomeLabel: "YES", NetShares: 5})

	d := g.Check(domain.OrderIntent{MarketID: "M1", OutcomeLabel: "YES", Side: domain.SideSell, Price: 0.6, Shares: domain.Some(10)}, snap)
	assert.False(t, d.Approved)
	assert.Equal(t, "oversell: requested 10 but only 5 available", d.Reason)

	d = g.Check(domain.OrderIntent{MarketID: "m1", OutcomeLabel: "yes", Side: domain.SideSell, Price: 0.6, Shares: domain.Some(5.0000005)}, snap)
	require.True(t, d.Approved, d.Reason)
	assert.InDelta(t, 3.0000003, d.Notional, 1e-9)
}

func TestCheck_SellSumsMatchingPositions(t *testing.T) {
	g := guard.New(guard.DefaultConfig())
	snap := snapshot(0,
		domain.Position{MarketID: "C", OutcomeKey: "a1", OutcomeLabel: "Alice", NetShares: 4},
		domain.Position{MarketID: "c", OutcomeKey: "A1", OutcomeLabel: "Alice", NetShares: 3},
		domain.Position{MarketID: "C", OutcomeKey: "a2", OutcomeLabel: "Bob", NetShares: 50},
	)

	d := g.Check(domain.OrderIntent{MarketID: "C", AnswerID: "a1", Side: domain.SideSell, Price: 0.3, Shares: domain.Some(7)}, snap)
	require.True(t, d.Approved, d.Reason)

	d = g.Check(domain.OrderIntent{MarketID: "C", OutcomeLabel: "alice", Side: domain.SideSell, Price: 0.3, Shares: domain.Some(8)}, snap)
	assert.Contains(t, d.Reason, "oversell")
}

func TestCheck_SellRequiresSharesAndPosition(t *testing.T) {
	g := guard.New(guard.DefaultConfig())
	d := g.Check(domain.OrderIntent{MarketID: "M1", OutcomeLabel: "YES", Side: domain.SideSell, Price: 0.5, Stake: domain.Some(10)}, snapshot(100))
	assert.Equal(t, "sell requires explicit shares", d.Reason)

	short := snapshot(100, domain.Position{MarketID: "M1", OutcomeKey: "YES", NetShares: -3})
	d = g.Check(domain.OrderIntent{MarketID: "M1", OutcomeLabel: "YES", Side: domain.SideSell, Price: 0.5, Shares: domain.Some(1)}, short)
	assert.Contains(t, d.Reason, "no matching position")
}

func TestNew_InvalidFractionFallsBack(t *testing.T) {
	assert.InDelta(t, 0.5, guard.New(guard.Config{MaxOrderFraction: 0}).MaxOrderFraction(), 1e-12)
	assert.InDelta(t, 0.5, guard.New(guard.Config{MaxOrderFraction: 3}).MaxOrderFraction(), 1e-12)
	assert.InDelta(t, 0.2, guard.New(guard.Config{MaxOrderFraction: 0.2}).MaxOrderFraction(), 1e-12)
}

func TestCheck_SellByAnswerMatchesLabelledVenuePosition(t *testing.T) {
	g := guard.New(guard.DefaultConfig())
	snap := snapshot(0, domain.Position{MarketID: "cond-1", OutcomeKey: "BOB", OutcomeLabel: "Bob", NetShares: 6})

	d := g.Check(domain.OrderIntent{MarketID: "cond-1", AnswerID: "tok-2", OutcomeLabel: "Bob", Side: domain.SideSell, Price: 0.4, Shares: domain.Some(6)}, snap)
	require.True(t, d.Approved, d.Reason)
	assert.InDelta(t, 2.4, d.Notional, 1e-9)
}
