package ports

import (
	"context"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// HoldingsProvider lee la cuenta del usuario en un venue.
type HoldingsProvider interface {
	// Holdings devuelve la cuenta y, según el venue, fills crudos con sus
	// mercados o posiciones ya agregadas. Los registros inservibles van en Skipped.
	Holdings(ctx context.Context) (domain.Holdings, error)
}

// MarketProvider resuelve mercados canónicos.
type MarketProvider interface {
	// Market busca un mercado por id, slug o condition id.
	Market(ctx context.Context, id string) (domain.CanonicalMarket, error)

	// Markets lista mercados paginados. Sin ranking.
	Markets(ctx context.Context, limit, offset int) ([]domain.CanonicalMarket, error)
}

// OrderSubmitter envía al venue una orden ya aprobada por el guard.
type OrderSubmitter interface {
	Submit(ctx context.Context, req domain.OrderRequest) (domain.OrderReceipt, error)
}

// Venue agrupa todo lo que el servicio necesita de un mercado de predicción.
type Venue interface {
	Name() string
	HoldingsProvider
	MarketProvider
	OrderSubmitter
}
