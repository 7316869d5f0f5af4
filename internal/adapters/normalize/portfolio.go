package normalize

// portfolio.go: account fields and venue-aggregated position records.

import (
	"fmt"
	"math"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

var (
	accountIDFields       = keys("id", "userId", "user_id")
	identityFields        = keys("username", "name", "wallet", "address", "proxyWallet", "user")
	cashFields            = keys("cashBalance", "cash", "balance", "available", "availableBalance", "usdcBalance", "collateral")
	realizedFields        = append(keys("realizedPnl", "realized_pnl", "realizedPnL", "pnlRealized"), field{"profitCached", "allTime"}, field{"profitCached"})
	unrealizedFields      = keys("unrealizedPnl", "unrealized_pnl", "unrealizedPnL", "pnlUnrealized")
	positionMarketFields  = keys("conditionId", "condition_id", "marketId", "market_id", "market", "contractId")
	positionOutcomeFields = keys("outcome", "outcomeLabel", "outcomeName", "side", "name")
	positionAnswerFields  = keys("answerId", "answer_id")
	positionSharesFields  = keys("size", "shares", "amount", "quantity", "balance", "netShares")
	positionAvgFields     = keys("avgPrice", "averagePrice", "avg_price", "entryPrice", "averageEntryPrice")
	positionMarkFields    = keys("curPrice", "markPrice", "currentPrice", "oraclePrice", "mark_price", "price")
	positionPnlFields     = keys("cashPnl", "unrealizedPnl", "pnl")
	positionTitleFields   = keys("title", "question", "marketQuestion")
)

// Account reads identity, cash and PnL fields from an account payload.
func Account(payload any) domain.Account {
	m, ok := asMap(payload)
	if !ok {
		return domain.Account{}
	}
	var a domain.Account
	a.UserID, _ = firstString(m, accountIDFields)
	a.Identity, _ = firstString(m, identityFields)
	if a.Identity == "" {
		a.Identity = a.UserID
	}
	if v, ok := firstFloat(m, cashFields); ok {
		a.CashBalance = domain.Some(v)
	}
	if v, ok := firstFloat(m, realizedFields); ok {
		a.RealizedPnl = domain.Some(v)
	}
	if v, ok := firstFloat(m, unrealizedFields); ok {
		a.UnrealizedPnl = domain.Some(v)
	}
	return a
}

// Position reads one venue-aggregated position record.
func Position(record any) (domain.Position, error) {
	m, ok := asMap(record)
	if !ok {
		return domain.Position{}, &domain.PayloadShapeError{Msg: fmt.Sprintf("position is %T, want object", record)}
	}
	marketID, ok := firstString(m, positionMarketFields)
	if !ok {
		return domain.Position{}, &domain.PayloadShapeError{Msg: "position has no market id"}
	}
	shares, ok := firstFloat(m, positionSharesFields)
	if !ok {
		return domain.Position{}, &domain.PayloadShapeError{Record: marketID, Msg: "position has no size"}
	}

	p := domain.Position{
		MarketID:     marketID,
		OutcomeLabel: defaultOutcome,
		NetShares:    shares,
	}
	if label, ok := firstString(m, positionOutcomeFields); ok {
		p.OutcomeLabel = label
	}
	p.AnswerID, _ = firstString(m, positionAnswerFields)
	p.OutcomeKey = domain.RawFillRecord{OutcomeLabel: p.OutcomeLabel, AnswerID: p.AnswerID}.OutcomeKey()
	p.Question, _ = firstString(m, positionTitleFields)

	if avg, ok := firstFloat(m, positionAvgFields); ok {
		p.AvgEntryPrice = domain.Some(avg)
		p.BuyShares = math.Abs(shares)
		p.BuyNotional = avg * p.BuyShares
	}
	if mark, ok := firstFloat(m, positionMarkFields); ok {
		p.MarkPrice = domain.Some(domain.Clamp01(mark))
	}
	if pnl, ok := firstFloat(m, positionPnlFields); ok {
		p.UnrealizedPnl = domain.Some(pnl)
	}
	return p, nil
}

// Portfolio reads a portfolio payload: account fields plus a position list
// under positions/data/results (or the payload itself when it is a list).
func Portfolio(payload any) (domain.Account, []domain.Position, []domain.Skip) {
	var acct domain.Account
	if m, ok := asMap(payload); ok {
		acct = Account(m)
	}
	list, ok := records(payload, "positions", "data", "results")
	if !ok {
		return acct, nil, nil
	}
	var (
		out   []domain.Position
		skips []domain.Skip
	)
	for i, rec := range list {
		p, err := Position(rec)
		if err != nil {
			skips = append(skips, domain.Skip{Record: fmt.Sprintf("#%d", i), Reason: err.Error()})
			continue
		}
		out = append(out, p)
	}
	return acct, out, skips
}
