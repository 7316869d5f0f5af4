package normalize

// market.go: arbitrary market payloads → domain.CanonicalMarket.

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

const untitledMarket = "Untitled market"

var (
	marketWrappers = []string{"market", "contract", "data"}

	idFields = keys("id", "marketId", "conditionId", "condition_id", "questionId", "question_id", "marketHash", "_id")
	fpmmIDs  = []field{{"fpmm", "conditionId"}, {"fpmm", "condition_id"}, {"fpmm", "marketHash"}, {"fpmm", "_id"}}
	tokenIDs = keys("market_hash", "marketHash", "condition_id", "conditionId", "token_id", "tokenId")
	slugIDs  = keys("market_slug", "slug")

	probabilityFields = keys("probability", "pYes", "yesPrice", "mid", "price", "lastPrice", "bestBid", "impliedProbability")
	priceFields       = keys("price", "probability", "p")
	nameFields        = keys("name", "outcome", "label", "text", "title")
	yesNames          = map[string]bool{"yes": true, "y": true, "1": true, "up": true, "true": true}

	questionFields  = keys("question", "title", "name")
	slugFields      = keys("slug", "market_slug")
	urlFields       = keys("url")
	typeFields      = keys("outcomeType", "outcome_type", "marketType")
	liquidityFields = keys("liquidity", "liquidityNum", "totalLiquidity", "openInterest", "liquidity24h", "pool")
	volumeFields    = keys("volume24h", "volume24hr", "volume24Hr", "volume24Hours", "volume24Hour", "volume24")
	closeFields     = keys("closeTime", "closeDate", "endDate", "endDateIso", "end_date_iso", "closesAt", "expiry", "expiration", "resolveTime")
	updateFields    = keys("lastTradeTime", "lastBetTime", "lastUpdatedTime", "updatedTime", "updatedAt")
	resolvedFields  = keys("isResolved", "resolved", "closed")
	negRiskFields   = keys("negRisk", "neg_risk")

	answerIDFields    = keys("id", "answerId", "answer_id")
	answerLabelFields = keys("text", "name", "label", "title", "outcome")
	answerProbFields  = keys("probability", "prob", "p", "price")

	tokenIDFields      = keys("token_id", "tokenId")
	tokenOutcomeFields = keys("outcome", "outcomeName", "name", "ticker")
)

// Options tunes venue-specific fallbacks.
type Options struct {
	// URLBase builds the market URL from its slug when the payload has none,
	// e.g. "https://polymarket.com/market/".
	URLBase string
}

// Market normalizes one market payload. A payload without any identifier is
// a *domain.PayloadShapeError.
func Market(payload any, opts Options) (domain.CanonicalMarket, error) {
	raw, ok := asMap(payload)
	if !ok {
		return domain.CanonicalMarket{}, &domain.PayloadShapeError{Msg: fmt.Sprintf("market payload is %T, want object", payload)}
	}
	m := flatten(raw)

	id, ok := marketID(m)
	if !ok {
		return domain.CanonicalMarket{}, &domain.PayloadShapeError{Msg: "market has no identifier"}
	}

	out := domain.CanonicalMarket{
		ID:        id,
		Question:  untitledMarket,
		CloseTime: firstTime(m, closeFields),
		UpdatedAt: firstTime(m, updateFields),
		Resolved:  firstBool(m, resolvedFields),
		NegRisk:   firstBool(m, negRiskFields),
	}
	if q, ok := firstString(m, questionFields); ok {
		out.Question = q
	}
	out.Slug, _ = firstString(m, slugFields)
	out.URL, _ = firstString(m, urlFields)
	if out.URL == "" && out.Slug != "" && opts.URLBase != "" {
		out.URL = strings.TrimRight(opts.URLBase, "/") + "/" + out.Slug
	}
	out.Liquidity, _ = firstFloat(m, liquidityFields)
	out.Volume24h, _ = firstFloat(m, volumeFields)
	out.Tokens = tokens(m)

	named := namedOutcomes(m)
	answers := parseAnswers(m)
	rawType, _ := firstString(m, typeFields)

	switch outcomeType(rawType, answers, named) {
	case domain.OutcomeMulti:
		out.OutcomeType = domain.OutcomeMulti
		if len(answers) == 0 {
			answers = namedAnswers(named, out.Tokens)
		}
		out.Answers = answers
	default:
		out.OutcomeType = domain.OutcomeBinary
		if p, ok := probability(m, named); ok {
			out.Probability = domain.Some(domain.Clamp01(p))
		}
	}
	return out, nil
}

// Markets normalizes a list payload, skipping unusable records.
func Markets(payload any, opts Options) ([]domain.CanonicalMarket, []domain.Skip) {
	list, ok := records(payload, "markets", "data", "results")
	if !ok {
		if m, err := Market(payload, opts); err == nil {
			return []domain.CanonicalMarket{m}, nil
		}
		return nil, []domain.Skip{{Reason: "payload is neither a market list nor a market"}}
	}
	var (
		out   []domain.CanonicalMarket
		skips []domain.Skip
	)
	for i, rec := range list {
		m, err := Market(rec, opts)
		if err != nil {
			skips = append(skips, domain.Skip{Record: fmt.Sprintf("#%d", i), Reason: err.Error()})
			continue
		}
		out = append(out, m)
	}
	return out, skips
}

// flatten lifts market/contract/data wrappers. Inner keys win; outer keys
// are kept only where the inner object has none.
func flatten(raw map[string]any) map[string]any {
	cur := raw
	for _, key := range marketWrappers {
		inner, ok := asMap(cur[key])
		if !ok {
			continue
		}
		merged := make(map[string]any, len(inner)+len(cur))
		for k, v := range inner {
			merged[k] = v
		}
		for k, v := range cur {
			if k == key {
				continue
			}
			if _, exists := merged[k]; !exists {
				merged[k] = v
			}
		}
		cur = merged
	}
	return cur
}

func marketID(m map[string]any) (string, bool) {
	if id, ok := firstString(m, idFields); ok {
		return id, true
	}
	if id, ok := firstString(m, fpmmIDs); ok {
		return id, true
	}
	if list, ok := asList(m["tokens"]); ok {
		for _, item := range list {
			if tok, ok := asMap(item); ok {
				if id, ok := firstString(tok, tokenIDs); ok {
					return id, true
				}
			}
		}
	}
	return firstString(m, slugIDs)
}

func outcomeType(raw string, answers []domain.Answer, named []namedPrice) domain.OutcomeType {
	switch strings.ToUpper(raw) {
	case "BINARY", "PSEUDO_NUMERIC", "STONK":
		return domain.OutcomeBinary
	case "MULTIPLE_CHOICE", "FREE_RESPONSE", "MULTI", "NUMBER":
		return domain.OutcomeMulti
	}
	if len(answers) > 0 {
		return domain.OutcomeMulti
	}
	if len(named) > 0 && !binaryNames(named) {
		return domain.OutcomeMulti
	}
	return domain.OutcomeBinary
}

// probability walks the scalar candidates, then the outcome scan.
func probability(m map[string]any, named []namedPrice) (float64, bool) {
	if p, ok := firstFloat(m, probabilityFields); ok {
		return p, true
	}
	for _, key := range []string{"outcomePrices", "outcomes"} {
		if p, ok := yesPrice(m[key]); ok {
			return p, true
		}
	}
	for _, n := range named {
		if yesNames[strings.ToLower(n.name)] && n.ok {
			return n.price, true
		}
	}
	return 0, false
}

// yesPrice scans a mapping {"Yes": 0.6} or a list [{"name":"Yes","price":0.6}].
func yesPrice(v any) (float64, bool) {
	if obj, ok := asMap(v); ok {
		for _, k := range sortedKeys(obj) {
			if yesNames[strings.ToLower(strings.TrimSpace(k))] {
				if p, ok := priceOf(obj[k]); ok {
					return p, true
				}
			}
		}
		return 0, false
	}
	list, ok := asList(v)
	if !ok {
		return 0, false
	}
	for _, item := range list {
		entry, ok := asMap(item)
		if !ok {
			continue
		}
		name, _ := firstString(entry, nameFields)
		if !yesNames[strings.ToLower(name)] {
			continue
		}
		if p, ok := firstFloat(entry, priceFields); ok {
			return p, true
		}
	}
	return 0, false
}

func priceOf(v any) (float64, bool) {
	if p, ok := asFloat(v); ok {
		return p, true
	}
	if obj, ok := asMap(v); ok {
		return firstFloat(obj, priceFields)
	}
	return 0, false
}

// namedPrice pairs Gamma's parallel "outcomes" / "outcomePrices" arrays.
type namedPrice struct {
	name  string
	price float64
	ok    bool
}

func namedOutcomes(m map[string]any) []namedPrice {
	names, ok := asList(m["outcomes"])
	if !ok {
		return nil
	}
	prices, _ := asList(m["outcomePrices"])
	var out []namedPrice
	for i, n := range names {
		name, ok := asString(n)
		if !ok || name == "" {
			continue
		}
		np := namedPrice{name: name}
		if i < len(prices) {
			np.price, np.ok = asFloat(prices[i])
		}
		out = append(out, np)
	}
	return out
}

func binaryNames(named []namedPrice) bool {
	if len(named) != 2 {
		return false
	}
	a, b := strings.ToLower(named[0].name), strings.ToLower(named[1].name)
	return (a == "yes" && b == "no") || (a == "no" && b == "yes")
}

func namedAnswers(named []namedPrice, toks []domain.Token) []domain.Answer {
	out := make([]domain.Answer, 0, len(named))
	for _, n := range named {
		a := domain.Answer{Label: n.name, Probability: domain.Clamp01(n.price)}
		for _, t := range toks {
			if strings.EqualFold(t.Outcome, n.name) {
				a.ID = t.TokenID
				break
			}
		}
		out = append(out, a)
	}
	return out
}

func parseAnswers(m map[string]any) []domain.Answer {
	list, ok := asList(m["answers"])
	if !ok {
		return nil
	}
	var out []domain.Answer
	for _, item := range list {
		entry, ok := asMap(item)
		if !ok {
			continue
		}
		a := domain.Answer{}
		a.ID, _ = firstString(entry, answerIDFields)
		a.Label, _ = firstString(entry, answerLabelFields)
		if a.ID == "" && a.Label == "" {
			continue
		}
		if p, ok := firstFloat(entry, answerProbFields); ok {
			a.Probability = domain.Clamp01(p)
		}
		out = append(out, a)
	}
	return out
}

// tokens reads CLOB token records, then Gamma's clobTokenIds/outcomes pair.
func tokens(m map[string]any) []domain.Token {
	var out []domain.Token
	if list, ok := asList(m["tokens"]); ok {
		for _, item := range list {
			rec, ok := asMap(item)
			if !ok {
				continue
			}
			id, ok := firstString(rec, tokenIDFields)
			if !ok {
				continue
			}
			outcome, _ := firstString(rec, tokenOutcomeFields)
			out = append(out, domain.Token{TokenID: id, Outcome: outcome})
		}
	}
	if len(out) > 0 {
		return out
	}
	ids, ok := asList(m["clobTokenIds"])
	if !ok {
		return nil
	}
	names, _ := asList(m["outcomes"])
	for i, v := range ids {
		id, ok := asString(v)
		if !ok || id == "" {
			continue
		}
		t := domain.Token{TokenID: id}
		if i < len(names) {
			t.Outcome, _ = asString(names[i])
		}
		out = append(out, t)
	}
	return out
}
