package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alejandrodnm/polyledger/internal/adapters/normalize"
	"github.com/alejandrodnm/polyledger/internal/adapters/resolver"
	"github.com/alejandrodnm/polyledger/internal/domain"
)

// Market looks a market up by id, slug or condition id. Gamma answers
// unknown filters with an empty list, so empty lists move to the next candidate.
func (c *Client) Market(ctx context.Context, id string) (domain.CanonicalMarket, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.CanonicalMarket{}, &domain.ConfigurationError{Field: "market", Msg: "missing market id"}
	}
	urls := resolver.Expand(nil, []string{
		c.cfg.GammaRoot + "/markets/{id}",
		c.cfg.GammaRoot + "/markets?slug={id}",
		c.cfg.GammaRoot + "/markets?id={id}",
		c.cfg.GammaRoot + "/markets?condition_ids={id}",
		c.cfg.APIRoot + "/markets/{id}",
	}, resolver.Vars{Values: map[string]string{"id": id}})

	v, _, err := c.http.JSON(ctx, resolver.Request{Method: http.MethodGet, URLs: urls, Validate: nonEmpty})
	if err != nil {
		return domain.CanonicalMarket{}, fmt.Errorf("polymarket.Market %s: %w", id, err)
	}
	if list, ok := v.([]any); ok {
		v = list[0]
	}
	m, err := normalize.Market(v, normalize.Options{URLBase: marketURLBase})
	if err != nil {
		return domain.CanonicalMarket{}, fmt.Errorf("polymarket.Market %s: %w", id, err)
	}
	return m, nil
}

// Markets lists active markets from Gamma.
func (c *Client) Markets(ctx context.Context, limit, offset int) ([]domain.CanonicalMarket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	urls := resolver.Expand(nil, []string{
		c.cfg.GammaRoot + "/markets?active=true&closed=false&limit={limit}&offset={offset}",
	}, resolver.Vars{Values: map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	}})
	v, _, err := c.http.JSON(ctx, resolver.Request{Method: http.MethodGet, URLs: urls})
	if err != nil {
		return nil, fmt.Errorf("polymarket.Markets: %w", err)
	}
	markets, skips := normalize.Markets(v, normalize.Options{URLBase: marketURLBase})
	for _, s := range skips {
		slog.Debug("polymarket market skipped", "record", s.Record, "reason", s.Reason)
	}
	return markets, nil
}

func nonEmpty(r resolver.Response) error {
	v, err := r.JSON()
	if err != nil {
		return err
	}
	if list, ok := v.([]any); ok && len(list) == 0 {
		return &domain.PayloadShapeError{Record: r.URL, Msg: "empty result list"}
	}
	return nil
}
