package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Auth      AuthConfig                `mapstructure:"auth"`
	Upstream  UpstreamConfig            `mapstructure:"upstream"`
	RateLimit RateLimitConfig           `mapstructure:"ratelimit"`
	Safety    SafetyConfig              `mapstructure:"safety"`
	Stream    StreamConfig              `mapstructure:"stream"`
	Dispatch  DispatchConfig            `mapstructure:"dispatch"`
	Execution ExecutionConfig           `mapstructure:"execution"`
	Redis     RedisConfig               `mapstructure:"redis"`
	Database  DatabaseConfig            `mapstructure:"database"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Audit     AuditConfig               `mapstructure:"audit"`
	Log       LogConfig                 `mapstructure:"log"`
	Buckets   map[string]CategoryBucket `mapstructure:"categories"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// ReadOnly blocks every mutating tool at the HTTP boundary while
	// keeping market-data tools available.
	ReadOnly bool `mapstructure:"read_only"`
}

type AuthConfig struct {
	RequireAPIKey bool   `mapstructure:"require_api_key"`
	APIKey        string `mapstructure:"api_key"`
}

type UpstreamConfig struct {
	GammaBaseURL string `mapstructure:"gamma_base_url"`
	ClobBaseURL  string `mapstructure:"clob_base_url"`
	TimeoutMs    int    `mapstructure:"timeout_ms"`
}

// RateLimitConfig holds the default bucket applied to categories that have
// no explicit override under `categories`.
type RateLimitConfig struct {
	DefaultRPS   float64 `mapstructure:"default_rps"`
	DefaultBurst int     `mapstructure:"default_burst"`
}

type CategoryBucket struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type SafetyConfig struct {
	MaxOrderSizeUSD          float64  `mapstructure:"max_order_size_usd"`
	MaxTotalExposureUSD      float64  `mapstructure:"max_total_exposure_usd"`
	MaxPositionSizePerMarket float64  `mapstructure:"max_position_size_per_market"`
	MinLiquidityRequired     float64  `mapstructure:"min_liquidity_required"`
	MaxSpreadTolerance       float64  `mapstructure:"max_spread_tolerance"`
	CheckOrder               []string `mapstructure:"check_order"` // empty = default sequence
}

type StreamConfig struct {
	URL                 string  `mapstructure:"url"`
	MinBackoffMs        int     `mapstructure:"min_backoff_ms"`
	MaxBackoffMs        int     `mapstructure:"max_backoff_ms"`
	BackoffJitter       float64 `mapstructure:"backoff_jitter"`
	HeartbeatIntervalMs int     `mapstructure:"heartbeat_interval_ms"`
	BufferSize          int     `mapstructure:"buffer_size"`
}

type DispatchConfig struct {
	TimeoutMs int `mapstructure:"timeout_ms"`
}

type ExecutionConfig struct {
	// Demo mode routes all order tools to the paper executor; it is the
	// default so the gateway is safe to run without live credentials.
	Demo          bool   `mapstructure:"demo"`
	PrivateKey    string `mapstructure:"private_key"`
	APIKey        string `mapstructure:"api_key"`
	APISecret     string `mapstructure:"api_secret"`
	APIPassphrase string `mapstructure:"api_passphrase"`
	ChainID       int64  `mapstructure:"chain_id"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	DSN                string `mapstructure:"dsn"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type AuditConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutMs) * time.Millisecond
}

func (d DispatchConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

func (s StreamConfig) MinBackoff() time.Duration {
	return time.Duration(s.MinBackoffMs) * time.Millisecond
}

func (s StreamConfig) MaxBackoff() time.Duration {
	return time.Duration(s.MaxBackoffMs) * time.Millisecond
}

func (s StreamConfig) HeartbeatInterval() time.Duration {
	return time.Duration(s.HeartbeatIntervalMs) * time.Millisecond
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. AGENTGATE_UPSTREAM_GAMMA_BASE_URL
	viper.SetEnvPrefix("agentgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that would only fail at dispatch time.
func (c *Config) Validate() error {
	for _, key := range c.Safety.CheckOrder {
		switch key {
		case "order_too_large", "exposure_exceeded", "position_too_large",
			"insufficient_liquidity", "spread_too_wide":
		default:
			return fmt.Errorf("unknown safety check %q in safety.check_order", key)
		}
	}
	if !c.Execution.Demo {
		if c.Execution.PrivateKey == "" || c.Execution.APIKey == "" {
			return fmt.Errorf("live execution requires execution.private_key and L2 api credentials")
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("log.level", "info")

	viper.SetDefault("upstream.gamma_base_url", "https://gamma-api.polymarket.com")
	viper.SetDefault("upstream.clob_base_url", "https://clob.polymarket.com")
	viper.SetDefault("upstream.timeout_ms", 10000)

	viper.SetDefault("ratelimit.default_rps", 10.0)
	viper.SetDefault("ratelimit.default_burst", 20)
	viper.SetDefault("categories.markets.rps", 10.0)
	viper.SetDefault("categories.markets.burst", 20)
	viper.SetDefault("categories.orderbook.rps", 5.0)
	viper.SetDefault("categories.orderbook.burst", 10)
	viper.SetDefault("categories.dispatch.rps", 50.0)
	viper.SetDefault("categories.dispatch.burst", 100)

	viper.SetDefault("safety.max_order_size_usd", 100.0)
	viper.SetDefault("safety.max_total_exposure_usd", 1000.0)
	viper.SetDefault("safety.max_position_size_per_market", 250.0)
	viper.SetDefault("safety.min_liquidity_required", 500.0)
	viper.SetDefault("safety.max_spread_tolerance", 0.10)

	viper.SetDefault("stream.url", "wss://ws-subscriptions-clob.polymarket.com/ws/market")
	viper.SetDefault("stream.min_backoff_ms", 1000)
	viper.SetDefault("stream.max_backoff_ms", 30000)
	viper.SetDefault("stream.backoff_jitter", 0.2)
	viper.SetDefault("stream.heartbeat_interval_ms", 15000)
	viper.SetDefault("stream.buffer_size", 256)

	viper.SetDefault("dispatch.timeout_ms", 30000)

	viper.SetDefault("execution.demo", true)
	viper.SetDefault("execution.chain_id", 137)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("audit.dir", "./logs")
	viper.SetDefault("database.audit_retention_days", 30)
}
