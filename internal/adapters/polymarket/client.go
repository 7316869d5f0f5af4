package polymarket

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"

	"github.com/alejandrodnm/polyledger/internal/adapters/resolver"
)

const (
	// Name identifica el venue en snapshots y journal.
	Name = "polymarket"

	defaultCLOBRoot  = "https://clob.polymarket.com"
	defaultGammaRoot = "https://gamma-api.polymarket.com"
	defaultDataRoot  = "https://data-api.polymarket.com"
	marketURLBase    = "https://polymarket.com/market/"

	polygonChainID      = int64(137)
	defaultCashDecimals = 6
)

// Config contiene roots, wallet y credenciales de Polymarket.
type Config struct {
	APIRoot       string // CLOB
	GammaRoot     string
	DataRoot      string
	CashRoot      string // balance-allowance; "" = APIRoot
	Wallet        string
	PortfolioURL  string // se prueba antes que los templates públicos
	AuthPath      string // se prueba antes que los paths autenticados
	Credentials   resolver.Credentials
	PrivateKey    string // hex; solo para firmar órdenes
	ChainID       int64
	CashDecimals  int
	SignatureType int // 0 EOA, 1 proxy, 2 gnosis safe

	// Collateral lee el saldo on-chain cuando la API no da cash. Opcional.
	Collateral CollateralReader
}

// CollateralReader devuelve el colateral de una wallet en dólares.
type CollateralReader interface {
	Collateral(ctx context.Context, wallet string) (float64, error)
}

// Client implementa los puertos de venue sobre CLOB, Gamma y data-api.
type Client struct {
	http   *resolver.Client
	cfg    Config
	signer *resolver.Signer

	privateKey   *ecdsa.PrivateKey
	signerAddr   string
	orderBuilder builder.ExchangeOrderBuilder
}

// NewClient valida la configuración. Credenciales parciales no activan las
// rutas autenticadas; un secret ilegible o una private key inválida son error.
func NewClient(rc *resolver.Client, cfg Config) (*Client, error) {
	if cfg.APIRoot == "" {
		cfg.APIRoot = defaultCLOBRoot
	}
	if cfg.GammaRoot == "" {
		cfg.GammaRoot = defaultGammaRoot
	}
	if cfg.DataRoot == "" {
		cfg.DataRoot = defaultDataRoot
	}
	if cfg.CashRoot == "" {
		cfg.CashRoot = cfg.APIRoot
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = polygonChainID
	}
	if cfg.CashDecimals <= 0 {
		cfg.CashDecimals = defaultCashDecimals
	}
	for _, root := range []*string{&cfg.APIRoot, &cfg.GammaRoot, &cfg.DataRoot, &cfg.CashRoot} {
		*root = strings.TrimRight(*root, "/")
	}

	c := &Client{http: rc, cfg: cfg}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("polymarket.NewClient: invalid private key: %w", err)
		}
		c.privateKey = key
		c.signerAddr = crypto.PubkeyToAddress(key.PublicKey).Hex()
		c.orderBuilder = builder.NewExchangeOrderBuilderImpl(big.NewInt(cfg.ChainID), nil)
		if c.cfg.Wallet == "" {
			c.cfg.Wallet = c.signerAddr
		}
	}

	creds := cfg.Credentials
	switch {
	case creds.Complete():
		s, err := resolver.NewSigner(creds, c.cfg.Wallet)
		if err != nil {
			return nil, fmt.Errorf("polymarket.NewClient: %w", err)
		}
		c.signer = s
	case creds.APIKey != "" || creds.Secret != "" || creds.Passphrase != "":
		slog.Warn("polymarket credentials incomplete, authenticated routes disabled")
	}
	return c, nil
}

// Name returns the venue name.
func (c *Client) Name() string { return Name }

// Authenticated reports whether signed routes are available.
func (c *Client) Authenticated() bool { return c.signer != nil }
