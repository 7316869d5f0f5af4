package main

import (
	"context"

	"github.com/jonnyspicer/mango"

	"github.com/alejandrodnm/polyledger/config"
	"github.com/alejandrodnm/polyledger/internal/adapters/manifold"
	"github.com/alejandrodnm/polyledger/internal/adapters/onchain"
	"github.com/alejandrodnm/polyledger/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyledger/internal/adapters/resolver"
	"github.com/alejandrodnm/polyledger/internal/ports"
)

// buildVenue crea el adapter del venue configurado.
func buildVenue(ctx context.Context, cfg *config.Config, rc *resolver.Client) (ports.Venue, error) {
	switch cfg.Venue {
	case config.VenueManifold:
		opts := []manifold.Option{manifold.WithBetLimit(cfg.Manifold.BetLimit)}
		if cfg.Manifold.APIKey != "" {
			// mango lee MANIFOLD_API_KEY del entorno (incluido .env)
			opts = append(opts, manifold.WithBetFunc(manifold.MangoBets(mango.DefaultClientInstance())))
		}
		return manifold.NewClient(rc, cfg.Manifold.APIRoot, cfg.Manifold.APIKey, opts...), nil

	default:
		pm := cfg.Polymarket
		var collateral polymarket.CollateralReader
		if pm.RPCURL != "" {
			b, err := onchain.Dial(ctx, pm.RPCURL)
			if err != nil {
				return nil, err
			}
			collateral = b
		}
		return polymarket.NewClient(rc, polymarket.Config{
			APIRoot:      pm.APIRoot,
			GammaRoot:    pm.GammaRoot,
			DataRoot:     pm.DataRoot,
			CashRoot:     pm.CashRoot,
			Wallet:       pm.Wallet,
			PortfolioURL: pm.PortfolioURL,
			AuthPath:     pm.AuthPath,
			Credentials: resolver.Credentials{
				APIKey:     pm.APIKey,
				Secret:     pm.APISecret,
				Passphrase: pm.Passphrase,
			},
			PrivateKey:    pm.PrivateKey,
			ChainID:       pm.ChainID,
			CashDecimals:  pm.USDCDecimals,
			SignatureType: cfg.SignatureType(),
			Collateral:    collateral,
		})
	}
}
