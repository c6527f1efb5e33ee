package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the basic service.
type Config struct {
	Addr           string        `env:"ADDR,default=:8080"`
	NATSURL        string        `env:"NATS_URL"`
	OTLPEndpoint   string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS,default=*"`
	SimProfile     string        `env:"SIM_PROFILE"`
	SimMinDelay    time.Duration `env:"SIM_MIN_DELAY,default=1s"`
	SimMaxDelay    time.Duration `env:"SIM_MAX_DELAY,default=3s"`
	SimFailureRate float64       `env:"SIM_FAILURE_RATE,default=0"`
	MaxProcesses   int           `env:"MAX_PROCESSES,default=64"`
	ShutdownGrace  time.Duration `env:"SHUTDOWN_GRACE,default=10s"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SimMinDelay < 0 {
		return fmt.Errorf("SIM_MIN_DELAY must not be negative, got %s", c.SimMinDelay)
	}
	if c.SimMaxDelay < c.SimMinDelay {
		return fmt.Errorf("SIM_MAX_DELAY (%s) must be >= SIM_MIN_DELAY (%s)", c.SimMaxDelay, c.SimMinDelay)
	}
	if c.SimFailureRate < 0 || c.SimFailureRate > 1 {
		return fmt.Errorf("SIM_FAILURE_RATE must be within [0,1], got %g", c.SimFailureRate)
	}
	if c.MaxProcesses < 1 {
		return fmt.Errorf("MAX_PROCESSES must be at least 1, got %d", c.MaxProcesses)
	}
	return nil
}
