package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/turtacn/shieldgate/pkg/constants"
)

// LoadConfig loads the configuration from file and environment variables.
// An empty path searches ./config.yaml and /etc/shieldgate/config.yaml; a missing file is
// not an error, every setting has a default or an env override.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/shieldgate/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "shieldgate")
	v.SetDefault("database.database", "shieldgate")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.query_timeout", constants.DefaultQueryTimeout)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.secret_path", "shieldgate/jwt")
	v.SetDefault("vault.secret_key", "signing_key")

	v.SetDefault("jwt.issuer", constants.TokenIssuer)
	v.SetDefault("jwt.access_token_ttl", constants.AccessTokenDefaultTTL)
	v.SetDefault("jwt.clock_skew", 30*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.capacity", constants.RateLimitDefaultCapacity)
	v.SetDefault("rate_limit.burst", constants.RateLimitDefaultBurst)
	v.SetDefault("rate_limit.window", constants.RateLimitDefaultWindow)
	v.SetDefault("rate_limit.fail_open", true)
	v.SetDefault("rate_limit.local_fallback", true)
	v.SetDefault("rate_limit.key_prefix", constants.RateLimitKeyPrefix)

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", 24*time.Hour)
	v.SetDefault("idempotency.key_prefix", "idem:")

	v.SetDefault("guardrails.screen_parameters", true)
	v.SetDefault("guardrails.max_message_length", constants.MaxMessageLength)

	v.SetDefault("generation.provider", "anthropic")
	v.SetDefault("generation.base_url", "https://api.anthropic.com")
	v.SetDefault("generation.model", "claude-3-5-sonnet-latest")
	v.SetDefault("generation.max_tokens", constants.GenerationMaxTokens)
	v.SetDefault("generation.timeout", constants.GenerationDefaultTimeout)
	v.SetDefault("generation.retry_max", 1)
	v.SetDefault("generation.api_version", "2023-06-01")

	v.SetDefault("audit.sinks", []string{"gorm", "log"})
	v.SetDefault("audit.kafka_topic", "shieldgate.security-events")
	v.SetDefault("audit.write_timeout", 2*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.sample_ratio", 0.1)
	v.SetDefault("observability.service_name", constants.ServiceName)
	v.SetDefault("observability.pprof_enabled", false)
}
