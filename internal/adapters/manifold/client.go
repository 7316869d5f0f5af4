package manifold

// client.go: Manifold Markets venue.
//
// Reads go through the endpoint resolver (raw JSON + normalizer); bets go
// through mango. Portfolio = /me → /bets?userId= → /market/{id} per contract.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonnyspicer/mango"

	"github.com/alejandrodnm/polyledger/internal/adapters/normalize"
	"github.com/alejandrodnm/polyledger/internal/adapters/resolver"
	"github.com/alejandrodnm/polyledger/internal/domain"
)

const (
	// Name identifica el venue en snapshots y journal.
	Name = "manifold"

	defaultAPIRoot  = "https://api.manifold.markets/v0"
	defaultBetLimit = 1000
)

// BetFunc submits one buy bet.
type BetFunc func(mango.PostBetRequest) error

// MangoBets adapts a mango client. Its response body is not needed.
func MangoBets(mc *mango.Client) BetFunc {
	return func(req mango.PostBetRequest) error {
		_, err := mc.PostBet(req)
		return err
	}
}

// Client implements the venue ports for Manifold.
type Client struct {
	http     *resolver.Client
	roots    []string
	apiKey   string
	betLimit int
	bet      BetFunc
}

// Option configures a Client.
type Option func(*Client)

// WithBetFunc sets how buy bets are submitted.
func WithBetFunc(f BetFunc) Option {
	return func(c *Client) { c.bet = f }
}

// WithBetLimit caps the bet history page size.
func WithBetLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.betLimit = n
		}
	}
}

// NewClient creates a Manifold venue. apiRoot "" uses production.
func NewClient(rc *resolver.Client, apiRoot, apiKey string, opts ...Option) *Client {
	if apiRoot == "" {
		apiRoot = defaultAPIRoot
	}
	c := &Client{
		http:     rc,
		roots:    []string{apiRoot},
		apiKey:   apiKey,
		betLimit: defaultBetLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the venue name.
func (c *Client) Name() string { return Name }

// Holdings reads the account, its bet history and every market it touched.
func (c *Client) Holdings(ctx context.Context) (domain.Holdings, error) {
	if c.apiKey == "" {
		return domain.Holdings{}, &domain.ConfigurationError{Field: "MANIFOLD_API_KEY", Msg: "missing Manifold API key"}
	}

	me, err := c.get(ctx, resolver.Expand(c.roots, []string{"/me"}, resolver.Vars{}), true)
	if err != nil {
		return domain.Holdings{}, fmt.Errorf("manifold.Holdings: me: %w", err)
	}
	acct := normalize.Account(me)
	if acct.UserID == "" {
		return domain.Holdings{}, &domain.PayloadShapeError{Record: "/me", Msg: "user has no id"}
	}

	betURLs := resolver.Expand(c.roots, []string{"/bets?userId={user}&limit={limit}"}, resolver.Vars{
		Values: map[string]string{"user": acct.UserID, "limit": strconv.Itoa(c.betLimit)},
	})
	bets, err := c.get(ctx, betURLs, true)
	if err != nil {
		return domain.Holdings{}, fmt.Errorf("manifold.Holdings: bets for %s: %w", acct.UserID, err)
	}
	fills, skips := normalize.Fills(bets)

	markets := make(map[string]domain.CanonicalMarket)
	failed := make(map[string]bool)
	for _, f := range fills {
		if _, seen := markets[f.MarketID]; seen || failed[f.MarketID] {
			continue
		}
		m, err := c.Market(ctx, f.MarketID)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Holdings{}, fmt.Errorf("manifold.Holdings: %w", ctx.Err())
			}
			slog.Debug("manifold market lookup failed", "market", f.MarketID, "err", err)
			skips = append(skips, domain.Skip{Record: f.MarketID, Reason: err.Error()})
			failed[f.MarketID] = true
			continue
		}
		markets[f.MarketID] = m
	}

	return domain.Holdings{Account: acct, Fills: fills, Markets: markets, Skipped: skips}, nil
}

// Market looks a market up by id, then by slug.
func (c *Client) Market(ctx context.Context, id string) (domain.CanonicalMarket, error) {
	if strings.TrimSpace(id) == "" {
		return domain.CanonicalMarket{}, &domain.ConfigurationError{Field: "market", Msg: "missing market id"}
	}
	urls := resolver.Expand(c.roots, []string{"/market/{id}", "/slug/{id}"}, resolver.Vars{
		Values: map[string]string{"id": strings.TrimSpace(id)},
	})
	v, err := c.get(ctx, urls, false)
	if err != nil {
		return domain.CanonicalMarket{}, fmt.Errorf("manifold.Market %s: %w", id, err)
	}
	m, err := normalize.Market(v, normalize.Options{URLBase: "https://manifold.markets/market/"})
	if err != nil {
		return domain.CanonicalMarket{}, fmt.Errorf("manifold.Market %s: %w", id, err)
	}
	return m, nil
}

// Markets lists recent markets. Malformed records are dropped.
func (c *Client) Markets(ctx context.Context, limit, offset int) ([]domain.CanonicalMarket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	urls := resolver.Expand(c.roots, []string{"/markets?limit={limit}"}, resolver.Vars{
		Values: map[string]string{"limit": strconv.Itoa(limit + offset)},
	})
	v, err := c.get(ctx, urls, false)
	if err != nil {
		return nil, fmt.Errorf("manifold.Markets: %w", err)
	}
	markets, skips := normalize.Markets(v, normalize.Options{URLBase: "https://manifold.markets/market/"})
	for _, s := range skips {
		slog.Debug("manifold market skipped", "record", s.Record, "reason", s.Reason)
	}
	if offset >= len(markets) {
		return nil, nil
	}
	markets = markets[offset:]
	if len(markets) > limit {
		markets = markets[:limit]
	}
	return markets, nil
}

// Submit places a buy through mango or a sell through the sell endpoint.
func (c *Client) Submit(ctx context.Context, req domain.OrderRequest) (domain.OrderReceipt, error) {
	if c.apiKey == "" {
		return domain.OrderReceipt{}, &domain.ConfigurationError{Field: "MANIFOLD_API_KEY", Msg: "missing Manifold API key"}
	}
	receipt := domain.OrderReceipt{
		DecisionID: req.DecisionID,
		Venue:      Name,
		Shares:     req.Shares,
		Notional:   req.Notional,
	}

	outcome := domain.NormalizeLabel(req.Outcome)
	if req.AnswerID != "" {
		outcome = "YES"
	}

	if req.Side == domain.SideSell {
		urls := resolver.Expand(c.roots, []string{"/market/{id}/sell"}, resolver.Vars{Values: map[string]string{"id": req.MarketID}})
		body := map[string]any{"outcome": outcome, "shares": req.Shares}
		if req.AnswerID != "" {
			body["answerId"] = req.AnswerID
		}
		resp, err := c.http.Do(ctx, resolver.Request{Method: http.MethodPost, URLs: urls, Body: body, Headers: c.authHeader()})
		if err != nil {
			return domain.OrderReceipt{}, fmt.Errorf("manifold.Submit: sell %s: %w", req.MarketID, err)
		}
		if v, err := resp.JSON(); err == nil {
			if m, ok := v.(map[string]any); ok {
				receipt.OrderID, _ = m["betId"].(string)
			}
		}
		receipt.Status = "filled"
		return receipt, nil
	}

	if c.bet == nil {
		return domain.OrderReceipt{}, &domain.ConfigurationError{Field: "bet", Msg: "no bet client configured"}
	}
	bet := mango.PostBetRequest{
		Amount:     math.Round(req.Notional*100) / 100,
		ContractId: req.MarketID,
		Outcome:    outcome,
		AnswerId:   req.AnswerID,
	}
	limit := req.Price
	if outcome == "NO" {
		limit = 1 - req.Price
	}
	if limit = math.Round(limit*100) / 100; limit >= 0.01 && limit <= 0.99 {
		bet.LimitProb = &limit
	}
	slog.Info("placing bet", "market", req.MarketID, "answer", req.AnswerID, "outcome", outcome, "amount", bet.Amount)
	if err := c.bet(bet); err != nil {
		return domain.OrderReceipt{}, fmt.Errorf("manifold.Submit: bet %s: %w", req.MarketID, err)
	}
	receipt.Status = "submitted"
	return receipt, nil
}

func (c *Client) get(ctx context.Context, urls []string, auth bool) (any, error) {
	req := resolver.Request{Method: http.MethodGet, URLs: urls}
	if auth {
		req.Headers = c.authHeader()
	}
	v, _, err := c.http.JSON(ctx, req)
	return v, err
}

func (c *Client) authHeader() map[string]string {
	return map[string]string{"Authorization": "Key " + c.apiKey}
}
