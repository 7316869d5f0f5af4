package guard

// guard.go: validación y sizing de órdenes contra el snapshot.
//
// Check es una función pura de (intent, snapshot, config): sin red, sin estado.
// Toda la aritmética de dinero va en decimal.

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

const (
	// DefaultMaxOrderFraction es la fracción máxima del cash por orden de compra.
	DefaultMaxOrderFraction = 0.5
	oversellTolerance       = 1e-6
)

// Config controla los límites del guard.
type Config struct {
	MaxOrderFraction float64 // (0, 1]; 0 = default
}

// DefaultConfig devuelve los límites por defecto.
func DefaultConfig() Config {
	return Config{MaxOrderFraction: DefaultMaxOrderFraction}
}

// Guard aplica los límites de bankroll e inventario.
type Guard struct {
	fraction decimal.Decimal
}

// New crea un Guard. Fracciones fuera de (0, 1] usan el default.
func New(cfg Config) *Guard {
	f := cfg.MaxOrderFraction
	if f <= 0 || f > 1 {
		f = DefaultMaxOrderFraction
	}
	return &Guard{fraction: decimal.NewFromFloat(f)}
}

// MaxOrderFraction devuelve la fracción efectiva.
func (g *Guard) MaxOrderFraction() float64 {
	return g.fraction.InexactFloat64()
}

// Check decide si el intent puede enviarse y con qué tamaño.
func (g *Guard) Check(intent domain.OrderIntent, snap domain.PortfolioSnapshot) domain.OrderDecision {
	if reason := validate(intent); reason != "" {
		return reject(intent, reason)
	}
	price := decimal.NewFromFloat(intent.Price)

	switch intent.Side {
	case domain.SideBuy:
		return g.checkBuy(intent, price, snap)
	default:
		return checkSell(intent, price, snap)
	}
}

func validate(intent domain.OrderIntent) string {
	switch {
	case intent.Side != domain.SideBuy && intent.Side != domain.SideSell:
		return fmt.Sprintf("unknown side %q", intent.Side)
	case strings.TrimSpace(intent.MarketID) == "":
		return "missing market id"
	case intent.OutcomeKey() == "":
		return "missing outcome"
	case intent.Price <= 0 || intent.Price >= 1:
		return fmt.Sprintf("price %.4f must be strictly between 0 and 1", intent.Price)
	case intent.Shares.Valid && intent.Shares.Value <= 0:
		return fmt.Sprintf("shares %.4f must be positive", intent.Shares.Value)
	case intent.Stake.Valid && intent.Stake.Value <= 0:
		return fmt.Sprintf("stake %.2f must be positive", intent.Stake.Value)
	}
	return ""
}

func (g *Guard) checkBuy(intent domain.OrderIntent, price decimal.Decimal, snap domain.PortfolioSnapshot) domain.OrderDecision {
	var shares decimal.Decimal
	switch {
	case intent.Shares.Valid:
		shares = decimal.NewFromFloat(intent.Shares.Value)
	case intent.Stake.Valid:
		shares = decimal.NewFromFloat(intent.Stake.Value).Div(price)
	default:
		return reject(intent, "must specify size: shares or stake")
	}

	if !snap.CashBalance.Valid || snap.CashBalance.Value <= 0 {
		return reject(intent, "no cash available")
	}
	cash := decimal.NewFromFloat(snap.CashBalance.Value)
	limit := cash.Mul(g.fraction)
	notional := shares.Mul(price)

	if notional.GreaterThan(limit) {
		return reject(intent, fmt.Sprintf("order notional $%s exceeds cap $%s (%s%% of cash $%s)",
			notional.StringFixed(2),
			limit.StringFixed(2),
			g.fraction.Mul(decimal.NewFromInt(100)).StringFixed(0),
			cash.StringFixed(2),
		))
	}
	return approve(intent, shares, notional)
}

func checkSell(intent domain.OrderIntent, price decimal.Decimal, snap domain.PortfolioSnapshot) domain.OrderDecision {
	if !intent.Shares.Valid {
		return reject(intent, "sell requires explicit shares")
	}
	shares := decimal.NewFromFloat(intent.Shares.Value)

	owned := decimal.Zero
	for _, p := range snap.Positions {
		if matches(p, intent) {
			owned = owned.Add(decimal.NewFromFloat(p.NetShares))
		}
	}
	if !owned.IsPositive() {
		return reject(intent, fmt.Sprintf("no matching position for %s/%s", intent.MarketID, intent.OutcomeKey()))
	}
	if shares.Sub(owned).GreaterThan(decimal.NewFromFloat(oversellTolerance)) {
		return reject(intent, fmt.Sprintf("oversell: requested %s but only %s available",
			shares.String(), owned.Round(6).String()))
	}
	return approve(intent, shares, shares.Mul(price))
}

// matches compara (mercado, outcome) sin distinguir mayúsculas. Si el intent
// o la posición no traen answer id, también vale la etiqueta.
func matches(p domain.Position, intent domain.OrderIntent) bool {
	if !strings.EqualFold(strings.TrimSpace(p.MarketID), strings.TrimSpace(intent.MarketID)) {
		return false
	}
	key := intent.OutcomeKey()
	if strings.EqualFold(p.OutcomeKey, key) {
		return true
	}
	return (intent.AnswerID == "" || p.AnswerID == "") && strings.EqualFold(strings.TrimSpace(p.OutcomeLabel), strings.TrimSpace(intent.OutcomeLabel))
}

func approve(intent domain.OrderIntent, shares, notional decimal.Decimal) domain.OrderDecision {
	return domain.OrderDecision{
		Intent:   intent,
		Approved: true,
		Shares:   shares.InexactFloat64(),
		Notional: notional.InexactFloat64(),
	}
}

func reject(intent domain.OrderIntent, reason string) domain.OrderDecision {
	return domain.OrderDecision{Intent: intent, Reason: reason}
}
