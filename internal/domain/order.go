package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts buy/sell in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", &ValidationError{Field: "side", Msg: fmt.Sprintf("unknown side %q", s)}
}

// OrderIntent is a proposed trade, before any guard check.
type OrderIntent struct {
	MarketID     string
	OutcomeLabel string
	AnswerID     string
	Side         Side
	Price        float64       // open interval (0, 1)
	Shares       OptionalFloat // required for SELL
	Stake        OptionalFloat // BUY only
}

// OutcomeKey mirrors RawFillRecord.OutcomeKey.
func (i OrderIntent) OutcomeKey() string {
	if i.AnswerID != "" {
		return i.AnswerID
	}
	return NormalizeLabel(i.OutcomeLabel)
}

func (i OrderIntent) String() string {
	size := "shares=" + i.Shares.Format(4)
	if !i.Shares.Valid {
		size = "stake=" + i.Stake.Format(2)
	}
	return fmt.Sprintf("%s %s/%s @ %.4f %s", i.Side, i.MarketID, i.OutcomeKey(), i.Price, size)
}

// OrderDecision is the guard verdict: approved with a size, or rejected with a reason.
type OrderDecision struct {
	ID        string
	Intent    OrderIntent
	Approved  bool
	Shares    float64
	Notional  float64
	Reason    string
	DecidedAt time.Time
}

// Err returns a ValidationError for rejected decisions and nil otherwise.
func (d OrderDecision) Err() error {
	if d.Approved {
		return nil
	}
	return &ValidationError{Field: "order", Msg: fmt.Sprintf("%s: %s", d.Intent, d.Reason)}
}

// OrderRequest is what a venue receives once the guard approved an intent.
type OrderRequest struct {
	DecisionID string
	MarketID   string
	Outcome    string // label used by the venue (YES/NO, answer text)
	AnswerID   string
	Side       Side
	Price      float64
	Shares     float64
	Notional   float64
}

// OrderReceipt is the venue acknowledgement.
type OrderReceipt struct {
	DecisionID string
	Venue      string
	OrderID    string
	Status     string
	Shares     float64
	Notional   float64
	PlacedAt   time.Time
}
