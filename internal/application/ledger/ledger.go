package ledger

// ledger.go: agregación de fills en posiciones netas.
//
// El ledger nunca se persiste ni se actualiza in-place: cada snapshot se
// recalcula desde los fills crudos. Mismo input → mismo output.
//
// Coste: solo las compras forman la base (buyShares, buyNotional). Las ventas
// reducen netShares pero no tocan el precio medio de entrada.

import (
	"math"
	"sort"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

type positionKey struct {
	market  string
	outcome string
}

type accumulator struct {
	marketID    string
	outcomeKey  string
	label       string
	answerID    string
	net         float64
	buyShares   float64
	buyNotional float64
}

// Fold convierte fills en posiciones abiertas marcadas con los mercados dados.
// Fills de mercados resueltos o sin detalle se descartan con motivo.
func Fold(fills []domain.RawFillRecord, markets map[string]domain.CanonicalMarket) ([]domain.Position, []domain.Skip) {
	accs := make(map[positionKey]*accumulator)
	var (
		order []positionKey
		skips []domain.Skip
	)

	for _, f := range fills {
		market, ok := markets[f.MarketID]
		if !ok {
			skips = append(skips, domain.Skip{Record: fillRef(f), Reason: "market " + f.MarketID + " unavailable"})
			continue
		}
		if market.Resolved {
			continue
		}

		delta := sign(f.SignedAmount) * f.Shares
		if math.Abs(delta) < domain.FillNoiseEpsilon {
			continue
		}

		k := positionKey{market: f.MarketID, outcome: f.OutcomeKey()}
		acc, ok := accs[k]
		if !ok {
			acc = &accumulator{marketID: f.MarketID, outcomeKey: k.outcome, label: f.OutcomeLabel, answerID: f.AnswerID}
			accs[k] = acc
			order = append(order, k)
		}
		acc.net += delta
		if f.SignedAmount > 0 {
			acc.buyShares += f.Shares
			acc.buyNotional += f.SignedAmount
		}
	}

	positions := make([]domain.Position, 0, len(order))
	for _, k := range order {
		acc := accs[k]
		if math.Abs(acc.net) < domain.ClosedPositionEpsilon {
			continue
		}
		market := markets[acc.marketID]
		p := domain.Position{
			MarketID:     acc.marketID,
			OutcomeKey:   acc.outcomeKey,
			OutcomeLabel: market.DescribeOutcome(acc.answerID, acc.label),
			AnswerID:     acc.answerID,
			Question:     market.Question,
			NetShares:    acc.net,
			BuyShares:    acc.buyShares,
			BuyNotional:  acc.buyNotional,
			MarkPrice:    market.MarkPrice(acc.outcomeKey),
		}
		if acc.buyShares > 0 {
			p.AvgEntryPrice = domain.Some(acc.buyNotional / acc.buyShares)
		}
		positions = append(positions, withPnl(p))
	}
	Sort(positions)
	return positions, skips
}

// Build arma el snapshot: posiciones de fills + posiciones agregadas por el
// venue, sin cerradas, ordenadas por valor estimado.
func Build(venue string, h domain.Holdings) domain.PortfolioSnapshot {
	positions, skips := Fold(h.Fills, h.Markets)
	for _, p := range h.Positions {
		if math.Abs(p.NetShares) < domain.ClosedPositionEpsilon {
			continue
		}
		positions = append(positions, withPnl(p))
	}
	Sort(positions)

	snap := domain.PortfolioSnapshot{
		Venue:         venue,
		Identity:      h.Account.Identity,
		CashBalance:   h.Account.CashBalance,
		RealizedPnl:   h.Account.RealizedPnl,
		UnrealizedPnl: h.Account.UnrealizedPnl,
		Positions:     positions,
		Skipped:       append(append([]domain.Skip(nil), h.Skipped...), skips...),
	}
	if !snap.UnrealizedPnl.Valid {
		snap.UnrealizedPnl = sumPnl(positions)
	}
	return snap
}

// Sort ordena por |net × (mark ?? avg ?? 0)| descendente; empates por mercado y outcome.
func Sort(positions []domain.Position) {
	sort.SliceStable(positions, func(i, j int) bool {
		vi, vj := positions[i].EstimatedValue(), positions[j].EstimatedValue()
		if vi != vj {
			return vi > vj
		}
		if positions[i].MarketID != positions[j].MarketID {
			return positions[i].MarketID < positions[j].MarketID
		}
		return positions[i].OutcomeKey < positions[j].OutcomeKey
	})
}

func withPnl(p domain.Position) domain.Position {
	if !p.UnrealizedPnl.Valid && p.MarkPrice.Valid && p.AvgEntryPrice.Valid {
		p.UnrealizedPnl = domain.Some((p.MarkPrice.Value - p.AvgEntryPrice.Value) * p.NetShares)
	}
	return p
}

func sumPnl(positions []domain.Position) domain.OptionalFloat {
	var (
		total float64
		seen  bool
	)
	for _, p := range positions {
		if p.UnrealizedPnl.Valid {
			total += p.UnrealizedPnl.Value
			seen = true
		}
	}
	if !seen {
		return domain.OptionalFloat{}
	}
	return domain.Some(total)
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func fillRef(f domain.RawFillRecord) string {
	if f.ID != "" {
		return f.ID
	}
	return f.MarketID + "/" + f.OutcomeKey()
}
