package domain

import (
	"math"
	"time"
)

const (
	// ClosedPositionEpsilon: posiciones con |net| menor se consideran cerradas.
	ClosedPositionEpsilon = 1e-6
	// FillNoiseEpsilon: deltas de shares menores se ignoran.
	FillNoiseEpsilon = 1e-9
)

// Position es la exposición neta a un (mercado, outcome). Siempre derivada.
type Position struct {
	MarketID      string
	OutcomeKey    string
	OutcomeLabel  string
	AnswerID      string
	Question      string
	NetShares     float64
	BuyShares     float64
	BuyNotional   float64
	AvgEntryPrice OptionalFloat
	MarkPrice     OptionalFloat
	UnrealizedPnl OptionalFloat
}

// EstimatedValue es |net × (mark ?? avg ?? 0)|.
func (p Position) EstimatedValue() float64 {
	price := p.MarkPrice.Or(p.AvgEntryPrice.Or(0))
	return math.Abs(p.NetShares * price)
}

// Account son los datos de cuenta que reporta el venue.
type Account struct {
	UserID        string
	Identity      string // wallet o username
	CashBalance   OptionalFloat
	RealizedPnl   OptionalFloat
	UnrealizedPnl OptionalFloat
}

// Holdings es la materia prima de un snapshot: cuenta + fills o posiciones ya
// agregadas por el venue, más los mercados necesarios para marcar precios.
type Holdings struct {
	Account   Account
	Fills     []RawFillRecord
	Markets   map[string]CanonicalMarket
	Positions []Position
	Skipped   []Skip
}

// PortfolioSnapshot es el estado agregado de la cuenta en un instante.
// Positions va ordenado por EstimatedValue descendente.
type PortfolioSnapshot struct {
	ID            string
	Venue         string
	Identity      string
	CashBalance   OptionalFloat
	RealizedPnl   OptionalFloat
	UnrealizedPnl OptionalFloat
	Positions     []Position
	Skipped       []Skip
	TakenAt       time.Time
}

// TotalValue suma el valor estimado de todas las posiciones.
func (s PortfolioSnapshot) TotalValue() float64 {
	var total float64
	for _, p := range s.Positions {
		total += p.EstimatedValue()
	}
	return total
}
