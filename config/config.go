package config

import (
	"log/slog"
	"net"
	"net/url"
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
	PolicyRoundRobin = "round-robin"
	PolicyRandom     = "random"
	PolicyIPHash     = "ip-hash"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type PolicyConfig struct {
	Type string `mapstructure:"type"`
}

type DeadlineConfig struct {
	InvokeTimeout string `mapstructure:"invoke_timeout"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	ResetTimeout     string `mapstructure:"reset_timeout"`
}

type BackendConfig struct {
	URL      string `mapstructure:"url"`
	Capacity int    `mapstructure:"capacity"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Policy      PolicyConfig      `mapstructure:"policy"`
	Deadline    DeadlineConfig    `mapstructure:"deadline"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Breaker     BreakerConfig     `mapstructure:"breaker"`
	Backends    []BackendConfig   `mapstructure:"backends"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

func Load(path string) (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("policy.type", PolicyRoundRobin)
	viper.SetDefault("deadline.invoke_timeout", "5s")
	viper.SetDefault("health_check.interval", "2s")
	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.reset_timeout", "10s")
	viper.SetDefault("logging.level", LogLevelInfo)

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Error("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
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
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
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
		validation.Field(&c.Policy,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(PolicyConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a PolicyConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Type,
						validation.Required,
						validation.In(PolicyRoundRobin, PolicyRandom, PolicyIPHash),
					),
				)
			}),
		),
		validation.Field(&c.Deadline,
			validation.Required,
			validation.By(func(value interface{}) error {
				dc, ok := value.(DeadlineConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a DeadlineConfig")
				}
				return validation.ValidateStruct(&dc,
					validation.Field(&dc.InvokeTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Breaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.FailureThreshold,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&bc.ResetTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Backends,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateBackendConfig)),
		),
	)
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

	if backend.URL == "" {
		return validation.NewError("validation_empty_url", "backend URL cannot be empty")
	}

	parsedURL, err := url.Parse(backend.URL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	if backend.Capacity < 1 {
		return validation.NewError("validation_invalid_capacity", "capacity must be at least 1")
	}

	return nil
}
