package config

import (
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	StrategyLeastLoaded = "least-loaded"
	StrategyRoundRobin  = "round-robin"
	StrategyRandom      = "random"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// DefaultChunkSize is the remote fetch granularity used when none is configured.
const DefaultChunkSize = 1024 * 1024

const minChunkSize = 4096

type ServerConfig struct {
	Address           string `mapstructure:"address"`
	Environment       string `mapstructure:"environment"`
	ReadHeaderTimeout string `mapstructure:"read_header_timeout"`
	IdleTimeout       string `mapstructure:"idle_timeout"`
	ShutdownTimeout   string `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"add_source"`
}

type StreamConfig struct {
	ChunkSize         int64 `mapstructure:"chunk_size"`
	MaxBytesPerSecond int64 `mapstructure:"max_bytes_per_second"`
}

type BalancingConfig struct {
	Strategy string `mapstructure:"strategy"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	ResetTimeout     string `mapstructure:"reset_timeout"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type BackendConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

type MetadataConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Stream         StreamConfig         `mapstructure:"stream"`
	Balancing      BalancingConfig      `mapstructure:"balancing"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	HealthCheck    HealthCheckConfig    `mapstructure:"health_check"`
	Backends       []BackendConfig      `mapstructure:"backends"`
	Metadata       MetadataConfig       `mapstructure:"metadata"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
}

// Load reads the configuration from path, or from config.yaml in ./config or
// the working directory when path is empty. Environment variables prefixed
// with BLOBSTREAM_ override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_header_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.add_source", false)
	v.SetDefault("stream.chunk_size", DefaultChunkSize)
	v.SetDefault("stream.max_bytes_per_second", 0)
	v.SetDefault("balancing.strategy", StrategyLeastLoaded)
	v.SetDefault("circuit_breaker.failure_threshold", 5)
	v.SetDefault("circuit_breaker.reset_timeout", "30s")
	v.SetDefault("health_check.interval", "30s")
	v.SetDefault("metadata.driver", DriverSQLite)
	v.SetDefault("metadata.dsn", "blobstream.db")
	v.SetDefault("metrics.buffer_size", 1024)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BLOBSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.ReadHeaderTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.IdleTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.ShutdownTimeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Stream,
			validation.By(func(value interface{}) error {
				sc, ok := value.(StreamConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a StreamConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.ChunkSize,
						validation.Required,
						validation.Min(int64(minChunkSize)),
					),
					validation.Field(&sc.MaxBytesPerSecond,
						validation.Min(int64(0)),
					),
				)
			}),
		),
		validation.Field(&c.Balancing,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BalancingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BalancingConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.Strategy,
						validation.Required,
						validation.In(StrategyLeastLoaded, StrategyRoundRobin, StrategyRandom),
					),
				)
			}),
		),
		validation.Field(&c.CircuitBreaker,
			validation.By(func(value interface{}) error {
				cc, ok := value.(CircuitBreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CircuitBreakerConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.FailureThreshold, validation.Min(0)),
					validation.Field(&cc.ResetTimeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Backends,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateBackendConfig)),
			validation.By(validateUniqueBackendNames),
		),
		validation.Field(&c.Metadata,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetadataConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetadataConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Driver,
						validation.Required,
						validation.In(DriverSQLite, DriverPostgres),
					),
					validation.Field(&mc.DSN, validation.Required),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
	)
}

// Duration parses a duration field that already passed validation.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateBackendConfig(value interface{}) error {
	backend, ok := value.(BackendConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a BackendConfig")
	}

	if strings.TrimSpace(backend.Name) == "" {
		return validation.NewError("validation_empty_name", "backend name cannot be empty")
	}

	if backend.URL == "" {
		return validation.NewError("validation_empty_url", "backend URL cannot be empty")
	}

	scheme, _, found := strings.Cut(backend.URL, "://")
	if !found || scheme == "" {
		return validation.NewError("validation_invalid_url", "must be a bucket URL such as file:///data or s3://bucket")
	}

	return nil
}

func validateUniqueBackendNames(value interface{}) error {
	backends, ok := value.([]BackendConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of BackendConfig")
	}

	seen := make(map[string]struct{}, len(backends))
	for _, b := range backends {
		if _, dup := seen[b.Name]; dup {
			return validation.NewError("validation_duplicate_name", "backend names must be unique: "+b.Name)
		}
		seen[b.Name] = struct{}{}
	}

	return nil
}
