package polymarket

// portfolio.go: wallet positions across undocumented deployments.
//
// With API credentials the signed CLOB routes are tried first (401/403 also
// mean "next"). Public templates follow. Each candidate gets one attempt.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/polyledger/internal/adapters/normalize"
	"github.com/alejandrodnm/polyledger/internal/adapters/resolver"
	"github.com/alejandrodnm/polyledger/internal/domain"
)

var authPortfolioPaths = []string{
	"/api/v1/portfolio/balances",
	"/api/v1/portfolio/positions",
	"/api/v1/portfolio",
	"/api/v1/portfolio/{wallet}",
	"/api/v1/portfolio?wallet={wallet}",
	"/api/v1/users/me/portfolio",
}

func (c *Client) publicTemplates() []string {
	var out []string
	if c.cfg.PortfolioURL != "" {
		out = append(out, c.cfg.PortfolioURL)
	}
	return append(out,
		c.cfg.APIRoot+"/positions?wallet={wallet}",
		c.cfg.APIRoot+"/positions/{wallet}",
		c.cfg.GammaRoot+"/portfolio/{wallet}",
		c.cfg.GammaRoot+"/portfolio?wallet={wallet}",
		c.cfg.DataRoot+"/positions?user={wallet}",
		c.cfg.DataRoot+"/positions?wallet={wallet}",
		c.cfg.DataRoot+"/positions?address={wallet}",
		c.cfg.DataRoot+"/positions?user={wallet}&sizeThreshold=0.1&limit=200&offset=0&sortBy=CURRENT&sortDirection=DESC",
	)
}

func (c *Client) authTemplates() []string {
	var out []string
	if c.cfg.AuthPath != "" {
		out = append(out, c.cfg.AuthPath)
	}
	return append(out, authPortfolioPaths...)
}

// Holdings reads the wallet positions already aggregated by the venue.
func (c *Client) Holdings(ctx context.Context) (domain.Holdings, error) {
	if c.cfg.Wallet == "" {
		return domain.Holdings{}, &domain.ConfigurationError{Field: "POLYMARKET_WALLET", Msg: "wallet address is required"}
	}

	var attempted []string
	if c.signer != nil {
		urls := resolver.Expand([]string{c.cfg.APIRoot}, c.authTemplates(), resolver.Vars{Wallet: c.cfg.Wallet})
		v, _, err := c.http.JSON(ctx, resolver.Request{
			Method:     http.MethodGet,
			URLs:       urls,
			Signer:     c.signer,
			SkipStatus: []int{http.StatusUnauthorized, http.StatusForbidden},
		})
		if err == nil {
			return c.holdingsFrom(ctx, v), nil
		}
		if ctx.Err() != nil {
			return domain.Holdings{}, fmt.Errorf("polymarket.Holdings: %w", ctx.Err())
		}
		slog.Warn("authenticated portfolio unavailable, falling back to public endpoints", "err", err)
		attempted = append(attempted, urls...)
	}

	urls := resolver.Expand(nil, c.publicTemplates(), resolver.Vars{Wallet: c.cfg.Wallet, AppendWallet: true})
	v, _, err := c.http.JSON(ctx, resolver.Request{Method: http.MethodGet, URLs: urls})
	if err != nil {
		var exhausted *domain.EndpointExhaustedError
		if errors.As(err, &exhausted) && len(attempted) > 0 {
			exhausted.Attempted = append(attempted, exhausted.Attempted...)
		}
		return domain.Holdings{}, fmt.Errorf("polymarket.Holdings %s: %w", c.cfg.Wallet, err)
	}
	return c.holdingsFrom(ctx, v), nil
}

func (c *Client) holdingsFrom(ctx context.Context, payload any) domain.Holdings {
	acct, positions, skips := normalize.Portfolio(payload)
	if acct.Identity == "" {
		acct.Identity = c.cfg.Wallet
	}
	if !acct.CashBalance.Valid && c.signer != nil {
		cash, err := c.CashBalance(ctx)
		if err != nil {
			slog.Debug("cash balance unavailable", "err", err)
		} else {
			acct.CashBalance = domain.Some(cash)
		}
	}
	if !acct.CashBalance.Valid && c.cfg.Collateral != nil {
		cash, err := c.cfg.Collateral.Collateral(ctx, c.cfg.Wallet)
		if err != nil {
			slog.Debug("on-chain collateral unavailable", "err", err)
		} else {
			acct.CashBalance = domain.Some(cash)
		}
	}
	return domain.Holdings{Account: acct, Positions: positions, Skipped: skips}
}

// CashBalance reads the custodial USDC balance (base units → dollars).
func (c *Client) CashBalance(ctx context.Context) (float64, error) {
	if c.signer == nil {
		return 0, &domain.ConfigurationError{Field: "POLYMARKET_API_KEY", Msg: "cash balance needs API credentials"}
	}
	urls := []string{c.cfg.CashRoot + fmt.Sprintf("/balance-allowance?asset_type=COLLATERAL&signature_type=%d", c.cfg.SignatureType)}
	v, _, err := c.http.JSON(ctx, resolver.Request{Method: http.MethodGet, URLs: urls, Signer: c.signer})
	if err != nil {
		return 0, fmt.Errorf("polymarket.CashBalance: %w", err)
	}
	raw := normalize.Account(v).CashBalance
	if !raw.Valid {
		return 0, &domain.PayloadShapeError{Record: "balance-allowance", Msg: "no balance field"}
	}
	return decimal.NewFromFloat(raw.Value).Shift(int32(-c.cfg.CashDecimals)).InexactFloat64(), nil
}
