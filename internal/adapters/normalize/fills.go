package normalize

// fills.go: trade/bet history records → domain.RawFillRecord.

import (
	"fmt"
	"math"
	"strings"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

const defaultOutcome = "YES"

var (
	fillIDFields      = keys("id", "betId", "transactionHash", "tradeId")
	fillMarketFields  = keys("contractId", "marketId", "conditionId", "condition_id", "market")
	fillOutcomeFields = keys("outcome", "outcomeLabel", "outcomeName")
	fillAnswerFields  = keys("answerId", "answer_id")
	fillSharesFields  = keys("shares", "size", "amountShares", "quantity")
	fillAmountFields  = keys("amount", "signedAmount", "usdcSize")
	fillPriceFields   = keys("price", "probAfter", "avgPrice")
	fillSideFields    = keys("side")
	fillTimeFields    = keys("createdTime", "timestamp", "createdAt", "time", "matchTime")
)

// Fill normalizes one history record. Records without a market id or an
// amount are a *domain.PayloadShapeError.
func Fill(record any) (domain.RawFillRecord, error) {
	m, ok := asMap(record)
	if !ok {
		return domain.RawFillRecord{}, &domain.PayloadShapeError{Msg: fmt.Sprintf("fill is %T, want object", record)}
	}
	id, _ := firstString(m, fillIDFields)

	marketID, ok := firstString(m, fillMarketFields)
	if !ok {
		return domain.RawFillRecord{}, &domain.PayloadShapeError{Record: id, Msg: "fill has no market id"}
	}

	shares, _ := firstFloat(m, fillSharesFields)
	shares = math.Abs(shares)

	amount, hasAmount := firstFloat(m, fillAmountFields)
	side, _ := firstString(m, fillSideFields)
	switch strings.ToUpper(side) {
	case "SELL":
		if !hasAmount {
			amount, hasAmount = notional(m, shares)
		}
		amount = -math.Abs(amount)
	case "BUY":
		if !hasAmount {
			amount, hasAmount = notional(m, shares)
		}
		amount = math.Abs(amount)
	}
	if !hasAmount {
		return domain.RawFillRecord{}, &domain.PayloadShapeError{Record: id, Msg: fmt.Sprintf("fill in %s has no amount", marketID)}
	}

	out := domain.RawFillRecord{
		ID:           id,
		MarketID:     marketID,
		OutcomeLabel: defaultOutcome,
		Shares:       shares,
		SignedAmount: amount,
		Timestamp:    firstTime(m, fillTimeFields),
	}
	if label, ok := firstString(m, fillOutcomeFields); ok {
		out.OutcomeLabel = label
	}
	out.AnswerID, _ = firstString(m, fillAnswerFields)
	return out, nil
}

// Fills normalizes a list payload, skipping unusable records.
func Fills(payload any) ([]domain.RawFillRecord, []domain.Skip) {
	list, ok := records(payload, "bets", "trades", "data", "results")
	if !ok {
		return nil, []domain.Skip{{Reason: "fill payload is not a list"}}
	}
	var (
		out   []domain.RawFillRecord
		skips []domain.Skip
	)
	for i, rec := range list {
		f, err := Fill(rec)
		if err != nil {
			skips = append(skips, domain.Skip{Record: fmt.Sprintf("#%d", i), Reason: err.Error()})
			continue
		}
		out = append(out, f)
	}
	return out, skips
}

func notional(m map[string]any, shares float64) (float64, bool) {
	price, ok := firstFloat(m, fillPriceFields)
	if !ok {
		return 0, false
	}
	return shares * price, true
}
