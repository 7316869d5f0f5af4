package normalize_test

import (
	"errors"
	"testing"

	"github.com/alejandrodnm/polyledger/internal/adapters/normalize"
	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFill_ManifoldBet(t *testing.T) {
	f, err := normalize.Fill(decode(t, `{
		"id": "bet1", "contractId": "c1", "outcome": "no",
		"amount": -12.5, "shares": -30, "createdTime": 1700000000000
	}`))
	require.NoError(t, err)

	assert.Equal(t, "c1", f.MarketID)
	assert.Equal(t, "NO", f.OutcomeKey())
	assert.InDelta(t, 30, f.Shares, 1e-9)
	assert.InDelta(t, -12.5, f.SignedAmount, 1e-9)
	assert.Equal(t, int64(1700000000), f.Timestamp.Unix())
}

func TestFill_AnswerIDBecomesKey(t *testing.T) {
	f, err := normalize.Fill(decode(t, `{"contractId":"c1","answerId":"ans-7","amount":5,"shares":10}`))
	require.NoError(t, err)
	assert.Equal(t, "ans-7", f.OutcomeKey())
	assert.Equal(t, "YES", f.OutcomeLabel)
}

func TestFill_PolymarketTradeSides(t *testing.T) {
	f, err := normalize.Fill(decode(t, `{"conditionId":"0xc","side":"SELL","size":"10","price":"0.4","outcome":"Yes"}`))
	require.NoError(t, err)
	assert.InDelta(t, -4.0, f.SignedAmount, 1e-9)
	assert.InDelta(t, 10, f.Shares, 1e-9)

	f, err = normalize.Fill(decode(t, `{"conditionId":"0xc","side":"buy","size":10,"price":0.25}`))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, f.SignedAmount, 1e-9)
}

func TestFill_ShapeErrors(t *testing.T) {
	for _, payload := range []string{
		`{"amount": 5, "shares": 5}`,
		`{"contractId": "c1", "shares": 5}`,
		`[1,2]`,
	} {
		_, err := normalize.Fill(decode(t, payload))
		var shapeErr *domain.PayloadShapeError
		assert.True(t, errors.As(err, &shapeErr), payload)
	}
}

func TestFills_WrappedListSkipsBadRecords(t *testing.T) {
	fills, skips := normalize.Fills(decode(t, `{"data":[
		{"contractId":"c1","amount":10,"shares":20},
		{"shares":1},
		{"contractId":"c2","amount":-3,"shares":6}
	]}`))
	require.Len(t, fills, 2)
	assert.Len(t, skips, 1)
	assert.Equal(t, "c2", fills[1].MarketID)
}
