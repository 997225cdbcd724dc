package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del nodo.
type Config struct {
	Chain        ChainConfig        `yaml:"chain"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Admin        AdminConfig        `yaml:"admin"`
	Oracle       OracleConfig       `yaml:"oracle"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Evidence     EvidenceConfig     `yaml:"evidence"`
	MarketMaker  MarketMakerConfig  `yaml:"market_maker"`
	Cache        CacheConfig        `yaml:"cache"`
	Log          LogConfig          `yaml:"log"`
}

// ChainConfig controla el productor de bloques.
type ChainConfig struct {
	BlockIntervalSeconds int `yaml:"block_interval_seconds"` // altura += 1 por intervalo
}

// LedgerConfig selecciona el backend del ledger.
type LedgerConfig struct {
	Driver string `yaml:"driver"` // sqlite | memory
	DSN    string `yaml:"dsn"`    // ruta al archivo SQLite, o ":memory:"
}

// AdminConfig identifica al administrador inicial.
type AdminConfig struct {
	Principal      string `yaml:"principal"`
	GenesisDeposit uint64 `yaml:"genesis_deposit"` // colateral acreditado al admin en -genesis
}

// OracleConfig identifica al oráculo automático.
type OracleConfig struct {
	Principal     string `yaml:"principal"`
	Label         string `yaml:"label"`
	AutoSubmitBps uint64 `yaml:"auto_submit_bps"` // umbral de confianza para enviar sin revisión
}

// OrchestratorConfig controla el sweep de resolución.
type OrchestratorConfig struct {
	Schedule          string  `yaml:"schedule"` // expresión cron
	Workers           int     `yaml:"workers"`
	TxPerSecond       float64 `yaml:"tx_per_second"`
	MaxAttempts       int     `yaml:"max_attempts"`
	RetryWaitSeconds  int     `yaml:"retry_wait_seconds"`
	PriceSymbol       string  `yaml:"price_symbol"`
	BoardEveryNSweeps int     `yaml:"board_every_n_sweeps"` // 0 = nunca
}

// EvidenceConfig contiene los endpoints del servicio de evidencia.
type EvidenceConfig struct {
	BaseURL        string `yaml:"base_url"`
	PriceURL       string `yaml:"price_url"`
	APIKey         string `yaml:"-"` // solo por entorno
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// MarketMakerConfig controla la siembra de liquidez.
type MarketMakerConfig struct {
	SeedAmount uint64 `yaml:"seed_amount"`
}

// CacheConfig controla el cache de lectura en Redis. Addr vacío lo desactiva.
type CacheConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"-"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// BlockInterval devuelve el intervalo entre bloques como time.Duration.
func (c *Config) BlockInterval() time.Duration {
	return time.Duration(c.Chain.BlockIntervalSeconds) * time.Second
}

// RetryWait devuelve la espera base entre reintentos.
func (c *Config) RetryWait() time.Duration {
	return time.Duration(c.Orchestrator.RetryWaitSeconds) * time.Second
}

// EvidenceTimeout devuelve el timeout HTTP del servicio de evidencia.
func (c *Config) EvidenceTimeout() time.Duration {
	return time.Duration(c.Evidence.TimeoutSeconds) * time.Second
}

// CacheTTL devuelve el TTL del cache de lectura.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"LOG_LEVEL":                &cfg.Log.Level,
		"LOG_FORMAT":               &cfg.Log.Format,
		"SATBETS_LEDGER_DRIVER":    &cfg.Ledger.Driver,
		"SATBETS_LEDGER_DSN":       &cfg.Ledger.DSN,
		"SATBETS_ADMIN":            &cfg.Admin.Principal,
		"SATBETS_ORACLE":           &cfg.Oracle.Principal,
		"SATBETS_SCHEDULE":         &cfg.Orchestrator.Schedule,
		"SATBETS_EVIDENCE_URL":     &cfg.Evidence.BaseURL,
		"SATBETS_PRICE_URL":        &cfg.Evidence.PriceURL,
		"SATBETS_EVIDENCE_API_KEY": &cfg.Evidence.APIKey,
		"SATBETS_REDIS_ADDR":       &cfg.Cache.Addr,
		"SATBETS_REDIS_PASSWORD":   &cfg.Cache.Password,
		"SATBETS_PRICE_SYMBOL":     &cfg.Orchestrator.PriceSymbol,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("SATBETS_SEED_AMOUNT"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SATBETS_SEED_AMOUNT=%q: %w", v, err)
		}
		cfg.MarketMaker.SeedAmount = n
	}
	if v := os.Getenv("SATBETS_BLOCK_INTERVAL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SATBETS_BLOCK_INTERVAL_SECONDS=%q: %w", v, err)
		}
		cfg.Chain.BlockIntervalSeconds = n
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Chain.BlockIntervalSeconds <= 0 {
		cfg.Chain.BlockIntervalSeconds = 600 // ~10 min por bloque
	}
	if cfg.Ledger.Driver == "" {
		cfg.Ledger.Driver = "sqlite"
	}
	if cfg.Ledger.DSN == "" {
		cfg.Ledger.DSN = "satbets.db"
	}
	if cfg.Oracle.Label == "" {
		cfg.Oracle.Label = "evidence agent"
	}
	if cfg.Orchestrator.Schedule == "" {
		cfg.Orchestrator.Schedule = "@every 1h"
	}
	if cfg.Orchestrator.Workers <= 0 {
		cfg.Orchestrator.Workers = 4
	}
	if cfg.Orchestrator.TxPerSecond <= 0 {
		cfg.Orchestrator.TxPerSecond = 5
	}
	if cfg.Orchestrator.MaxAttempts <= 0 {
		cfg.Orchestrator.MaxAttempts = 3
	}
	if cfg.Orchestrator.RetryWaitSeconds <= 0 {
		cfg.Orchestrator.RetryWaitSeconds = 2
	}
	if cfg.Evidence.TimeoutSeconds <= 0 {
		cfg.Evidence.TimeoutSeconds = 60
	}
	if cfg.MarketMaker.SeedAmount == 0 {
		cfg.MarketMaker.SeedAmount = 10_000_000 // 0.1 BTC
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 15
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Ledger.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("ledger.driver %q: want sqlite or memory", c.Ledger.Driver)
	}
	if c.Oracle.AutoSubmitBps > 10_000 {
		return fmt.Errorf("oracle.auto_submit_bps %d above 10000", c.Oracle.AutoSubmitBps)
	}
	return nil
}
