package normalize_test

import (
	"testing"

	"github.com/alejandrodnm/polyledger/internal/adapters/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_ManifoldMe(t *testing.T) {
	a := normalize.Account(decode(t, `{
		"id": "u1", "username": "alice", "balance": 812.5,
		"profitCached": {"daily": 1, "allTime": 42.25}
	}`))
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, "alice", a.Identity)
	assert.InDelta(t, 812.5, a.CashBalance.Value, 1e-9)
	assert.InDelta(t, 42.25, a.RealizedPnl.Value, 1e-9)
	assert.False(t, a.UnrealizedPnl.Valid)
}

func TestPortfolio_DataAPIPositionList(t *testing.T) {
	acct, positions, skips := normalize.Portfolio(decode(t, `[
		{"proxyWallet":"0xw","conditionId":"0xc1","outcome":"Yes","size":100,"avgPrice":0.4,"curPrice":0.55,"cashPnl":15,"title":"Q1"},
		{"conditionId":"0xc2","outcome":"No","size":"20","avgPrice":"0.7"},
		{"title":"broken"}
	]`))
	assert.Empty(t, acct.Identity)
	require.Len(t, positions, 2)
	assert.Len(t, skips, 1)

	p := positions[0]
	assert.Equal(t, "0xc1", p.MarketID)
	assert.Equal(t, "YES", p.OutcomeKey)
	assert.Equal(t, "Q1", p.Question)
	assert.InDelta(t, 100, p.NetShares, 1e-9)
	assert.InDelta(t, 40, p.BuyNotional, 1e-9)
	assert.InDelta(t, 0.55, p.MarkPrice.Value, 1e-9)
	assert.InDelta(t, 15, p.UnrealizedPnl.Value, 1e-9)

	assert.False(t, positions[1].MarkPrice.Valid)
	assert.False(t, positions[1].UnrealizedPnl.Valid)
}

func TestPortfolio_WrappedWithAccountFields(t *testing.T) {
	acct, positions, _ := normalize.Portfolio(decode(t, `{
		"wallet": "0xABC", "cashBalance": "250.5", "realized_pnl": -3,
		"positions": [{"marketId":"m","outcome":"Yes","shares":5}]
	}`))
	assert.Equal(t, "0xABC", acct.Identity)
	assert.InDelta(t, 250.5, acct.CashBalance.Value, 1e-9)
	assert.InDelta(t, -3, acct.RealizedPnl.Value, 1e-9)
	require.Len(t, positions, 1)
}
