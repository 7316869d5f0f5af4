package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// Venues soportados.
const (
	VenuePolymarket = "polymarket"
	VenueManifold   = "manifold"
)

// Config es la configuración completa del ledger.
type Config struct {
	Venue      string           `yaml:"venue" toml:"venue"`
	Polymarket PolymarketConfig `yaml:"polymarket" toml:"polymarket"`
	Manifold   ManifoldConfig   `yaml:"manifold" toml:"manifold"`
	Guard      GuardConfig      `yaml:"guard" toml:"guard"`
	HTTP       HTTPConfig       `yaml:"http" toml:"http"`
	Storage    StorageConfig    `yaml:"storage" toml:"storage"`
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Log        LogConfig        `yaml:"log" toml:"log"`
	Debug      bool             `yaml:"debug" toml:"debug"`
}

// PolymarketConfig contiene roots e identificadores de Polymarket.
// Los secretos solo se leen del entorno.
type PolymarketConfig struct {
	APIRoot       string `yaml:"api_root" toml:"api_root"`
	GammaRoot     string `yaml:"gamma_root" toml:"gamma_root"`
	DataRoot      string `yaml:"data_api_root" toml:"data_api_root"`
	CashRoot      string `yaml:"cash_root" toml:"cash_root"`
	PortfolioURL  string `yaml:"portfolio_path" toml:"portfolio_path"`
	AuthPath      string `yaml:"auth_path" toml:"auth_path"`
	Wallet        string `yaml:"wallet" toml:"wallet"`
	ChainID       int64  `yaml:"chain_id" toml:"chain_id"`
	USDCDecimals  int    `yaml:"usdc_decimals" toml:"usdc_decimals"`
	SignatureType *int   `yaml:"signature_type" toml:"signature_type"` // nil = 1 (proxy)
	RPCURL        string `yaml:"rpc_url" toml:"rpc_url"`               // Polygon RPC; "" = sin lectura on-chain

	APIKey     string `yaml:"-" toml:"-"`
	APISecret  string `yaml:"-" toml:"-"`
	Passphrase string `yaml:"-" toml:"-"`
	PrivateKey string `yaml:"-" toml:"-"`
}

// ManifoldConfig contiene el root de la API de Manifold.
type ManifoldConfig struct {
	APIRoot  string `yaml:"api_root" toml:"api_root"`
	BetLimit int    `yaml:"bet_limit" toml:"bet_limit"`

	APIKey string `yaml:"-" toml:"-"`
}

// GuardConfig controla los límites de las órdenes.
type GuardConfig struct {
	MaxOrderFraction float64 `yaml:"max_order_fraction" toml:"max_order_fraction"`
}

// HTTPConfig controla el cliente HTTP compartido.
type HTTPConfig struct {
	TimeoutSeconds    float64 `yaml:"timeout_seconds" toml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `yaml:"burst" toml:"burst"`
}

// StorageConfig controla dónde se guarda el journal.
type StorageConfig struct {
	DSN string `yaml:"dsn" toml:"dsn"` // ruta SQLite, ":memory:", o "" para desactivar
}

// ServerConfig controla la API HTTP del subcomando serve.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug | info | warn | error
	Format string `yaml:"format" toml:"format"` // text | json
}

// Load carga la configuración desde el archivo (YAML o TOML según la
// extensión) y el archivo .env si existe. path "" usa solo entorno y defaults.
// Las variables de entorno sobreescriben los valores del archivo.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := decode(path, data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate comprueba los valores que no tienen default posible.
func (c *Config) Validate() error {
	switch c.Venue {
	case VenuePolymarket, VenueManifold:
	default:
		return &domain.ConfigurationError{Field: "venue", Msg: fmt.Sprintf("unknown venue %q (want polymarket or manifold)", c.Venue)}
	}
	if f := c.Guard.MaxOrderFraction; f <= 0 || f > 1 {
		return &domain.ConfigurationError{Field: "guard.max_order_fraction", Msg: fmt.Sprintf("%v outside (0, 1]", f)}
	}
	return nil
}

// Timeout devuelve el timeout HTTP como time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds * float64(time.Second))
}

// SignatureType devuelve el tipo de firma de Polymarket (default 1).
func (c *Config) SignatureType() int {
	if c.Polymarket.SignatureType == nil {
		return 1
	}
	return *c.Polymarket.SignatureType
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse TOML: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse YAML: %w", err)
		}
	default:
		return &domain.ConfigurationError{Field: "config", Msg: fmt.Sprintf("unsupported config format %q", filepath.Ext(path))}
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	set(&cfg.Venue, "LEDGER_VENUE")
	set(&cfg.Polymarket.APIKey, "POLYMARKET_API_KEY")
	set(&cfg.Polymarket.APISecret, "POLYMARKET_API_SECRET")
	set(&cfg.Polymarket.Passphrase, "POLYMARKET_API_PASSPHRASE")
	set(&cfg.Polymarket.Wallet, "POLYMARKET_WALLET")
	set(&cfg.Polymarket.PrivateKey, "POLYMARKET_PRIVATE_KEY")
	set(&cfg.Polymarket.APIRoot, "POLYMARKET_API_ROOT")
	set(&cfg.Polymarket.PortfolioURL, "POLYMARKET_PORTFOLIO_URL", "POLYMARKET_PORTFOLIO_PATH")
	set(&cfg.Polymarket.AuthPath, "POLYMARKET_AUTH_PORTFOLIO_PATH")
	set(&cfg.Polymarket.RPCURL, "POLYGON_RPC_URL")
	set(&cfg.Manifold.APIKey, "MANIFOLD_API_KEY")
	set(&cfg.Storage.DSN, "LEDGER_DB")
	set(&cfg.Log.Level, "LOG_LEVEL")
	set(&cfg.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("MAX_ORDER_FRACTION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &domain.ConfigurationError{Field: "MAX_ORDER_FRACTION", Msg: fmt.Sprintf("not a number: %q", v)}
		}
		cfg.Guard.MaxOrderFraction = f
	}
	if v := os.Getenv("LEDGER_DEBUG"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return &domain.ConfigurationError{Field: "LEDGER_DEBUG", Msg: fmt.Sprintf("not a boolean: %q", v)}
		}
		cfg.Debug = on
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	cfg.Venue = strings.ToLower(strings.TrimSpace(cfg.Venue))
	if cfg.Venue == "" {
		cfg.Venue = VenuePolymarket
	}
	if cfg.Polymarket.APIRoot == "" {
		cfg.Polymarket.APIRoot = "https://clob.polymarket.com"
	}
	if cfg.Polymarket.GammaRoot == "" {
		cfg.Polymarket.GammaRoot = "https://gamma-api.polymarket.com"
	}
	if cfg.Polymarket.DataRoot == "" {
		cfg.Polymarket.DataRoot = "https://data-api.polymarket.com"
	}
	if cfg.Polymarket.ChainID == 0 {
		cfg.Polymarket.ChainID = 137 // Polygon
	}
	if cfg.Polymarket.USDCDecimals <= 0 {
		cfg.Polymarket.USDCDecimals = 6
	}
	if cfg.Manifold.APIRoot == "" {
		cfg.Manifold.APIRoot = "https://api.manifold.markets/v0"
	}
	if cfg.Manifold.BetLimit <= 0 {
		cfg.Manifold.BetLimit = 1000
	}
	if cfg.Guard.MaxOrderFraction == 0 {
		cfg.Guard.MaxOrderFraction = 0.5
	}
	if cfg.HTTP.TimeoutSeconds <= 0 {
		cfg.HTTP.TimeoutSeconds = 10
	}
	if cfg.HTTP.RequestsPerSecond == 0 {
		cfg.HTTP.RequestsPerSecond = 10
	}
	if cfg.HTTP.Burst <= 0 {
		cfg.HTTP.Burst = 5
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
