package config

import (
	"fmt"
	"time"

	"github.com/turtacn/shieldgate/pkg/constants"
)

// Config holds the application's configuration. It is built once at process start and
// passed explicitly to every component; nothing reads it from global state.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Vault         VaultConfig         `mapstructure:"vault"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Idempotency   IdempotencyConfig   `mapstructure:"idempotency"`
	Guardrails    GuardrailsConfig    `mapstructure:"guardrails"`
	Generation    GenerationConfig    `mapstructure:"generation"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Log           LogConfig           `mapstructure:"log"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	GRPCPort       int           `mapstructure:"grpc_port"`
	Environment    string        `mapstructure:"environment"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
}

// HTTPAddress returns host:port for the HTTP listener
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GRPCAddress returns host:port for the gRPC health listener
func (c *ServerConfig) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres | sqlite
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// GetDSN returns the keyword/value connection string understood by pgx
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Mode         string        `mapstructure:"mode"` // standalone | cluster
	Addresses    []string      `mapstructure:"addresses"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type VaultConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	MountPath  string `mapstructure:"mount_path"`
	SecretPath string `mapstructure:"secret_path"`
	SecretKey  string `mapstructure:"secret_key"`
}

type JWTConfig struct {
	SigningKey     string        `mapstructure:"signing_key"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	ClockSkew      time.Duration `mapstructure:"clock_skew"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Capacity int           `mapstructure:"capacity"`
	Burst    int           `mapstructure:"burst"`
	Window   time.Duration `mapstructure:"window"`
	// FailOpen admits requests when the shared store is unreachable
	FailOpen bool `mapstructure:"fail_open"`
	// LocalFallback serves decisions from the in-process store while the shared store is down
	LocalFallback bool   `mapstructure:"local_fallback"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// IdempotencyConfig controls replay protection of create endpoints
type IdempotencyConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type GuardrailsConfig struct {
	// CatalogFile optionally replaces the built-in rule catalog
	CatalogFile string `mapstructure:"catalog_file"`
	// ScreenParameters enables SQL-pattern screening of query parameters
	ScreenParameters bool `mapstructure:"screen_parameters"`
	MaxMessageLength int  `mapstructure:"max_message_length"`
}

type GenerationConfig struct {
	Provider   string        `mapstructure:"provider"` // anthropic | disabled
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	MaxTokens  int           `mapstructure:"max_tokens"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryMax   int           `mapstructure:"retry_max"`
	APIVersion string        `mapstructure:"api_version"`
}

type AuditConfig struct {
	Sinks        []string      `mapstructure:"sinks"` // gorm, kafka, log
	KafkaBrokers []string      `mapstructure:"kafka_brokers"`
	KafkaTopic   string        `mapstructure:"kafka_topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// SigningSecret signs events published to Kafka; empty disables signing
	SigningSecret string `mapstructure:"signing_secret"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json | console
	OutputPath string `mapstructure:"output_path"`
}

type ObservabilityConfig struct {
	MetricsEnabled bool    `mapstructure:"metrics_enabled"`
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
	ServiceName    string  `mapstructure:"service_name"`
	PprofEnabled   bool    `mapstructure:"pprof_enabled"`
}

// Validate checks cross-field constraints after defaults and overrides are applied.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if !c.Vault.Enabled && len(c.JWT.SigningKey) < constants.MinSigningKeyLength {
		return fmt.Errorf("jwt.signing_key must be at least %d bytes", constants.MinSigningKeyLength)
	}
	if c.RateLimit.Capacity <= 0 {
		return fmt.Errorf("rate_limit.capacity must be positive")
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst must not be negative")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive")
	}
	if c.Generation.Timeout <= 0 || c.Generation.Timeout > constants.GenerationMaxTimeout {
		return fmt.Errorf("generation.timeout must be in (0, %s]", constants.GenerationMaxTimeout)
	}
	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("generation.max_tokens must be positive")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q not supported", c.Database.Driver)
	}
	for _, sink := range c.Audit.Sinks {
		switch sink {
		case "gorm", "log":
		case "kafka":
			if len(c.Audit.KafkaBrokers) == 0 {
				return fmt.Errorf("audit.kafka_brokers required for kafka sink")
			}
		default:
			return fmt.Errorf("audit sink %q not supported", sink)
		}
	}
	return nil
}
