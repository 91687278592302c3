// Package config loads the questlog settings from a YAML file and QUESTLOG_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/krisalay/campaign-cache/eviction"
	"github.com/krisalay/campaign-cache/remote"
)

const EnvPrefix = "QUESTLOG_"

// Snapshot persistence modes.
const (
	SnapshotOff     = "off"
	SnapshotThrough = "through"
	SnapshotBack    = "back"
)

type Config struct {
	API      APIConfig      `yaml:"api" envPrefix:"API_"`
	Cache    CacheConfig    `yaml:"cache" envPrefix:"CACHE_"`
	Breaker  BreakerConfig  `yaml:"breaker" envPrefix:"BREAKER_"`
	Snapshot SnapshotConfig `yaml:"snapshot" envPrefix:"SNAPSHOT_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`

	// MetricsAddr is where /metrics is served. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR" envDefault:":9090"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL" envDefault:"http://localhost:8000" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT" envDefault:"10s" validate:"gt=0"`
}

type CacheConfig struct {
	Shards   int    `yaml:"shards" env:"SHARDS" envDefault:"16" validate:"gte=1"`
	Capacity int    `yaml:"capacity" env:"CAPACITY" envDefault:"10000" validate:"gte=1"`
	Eviction string `yaml:"eviction" env:"EVICTION" envDefault:"LRU" validate:"oneof=LRU FIFO"`

	// StaleTime is how long a committed snapshot counts as fresh. Zero keeps
	// snapshots fresh until invalidated.
	StaleTime time.Duration `yaml:"stale_time" env:"STALE_TIME" envDefault:"0s" validate:"gte=0"`
	GCTime    time.Duration `yaml:"gc_time" env:"GC_TIME" envDefault:"5m" validate:"gte=0"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" env:"MAX_REQUESTS" envDefault:"5"`
	Interval         time.Duration `yaml:"interval" env:"INTERVAL" envDefault:"30s"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT" envDefault:"60s"`
	FailureThreshold float64       `yaml:"failure_threshold" env:"FAILURE_THRESHOLD" envDefault:"0.8" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests" env:"MIN_REQUESTS" envDefault:"5"`
}

type SnapshotConfig struct {
	Mode     string        `yaml:"mode" env:"MODE" envDefault:"off" validate:"oneof=off through back"`
	RedisURL string        `yaml:"redis_url" env:"REDIS_URL" validate:"required_unless=Mode off"`
	Prefix   string        `yaml:"prefix" env:"PREFIX" envDefault:"questlog"`
	TTL      time.Duration `yaml:"ttl" env:"TTL" envDefault:"24h" validate:"gte=0"`
	Buffer   int           `yaml:"buffer" env:"BUFFER" envDefault:"256" validate:"gte=1"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" envDefault:"json" validate:"oneof=json console"`
}

/*
Load reads path (if not empty), then applies the environment on top and
fills what is still unset with defaults. The result is validated.
*/
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:                       EnvPrefix,
		SetDefaultsForZeroValuesOnly: true,
	}); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Remote is the API client configuration.
func (c Config) Remote() remote.Config {
	return remote.Config{
		BaseURL: c.API.BaseURL,
		Timeout: c.API.Timeout,
		Breaker: remote.BreakerConfig{
			Name:             "campaign-api",
			MaxRequests:      c.Breaker.MaxRequests,
			Interval:         c.Breaker.Interval,
			Timeout:          c.Breaker.Timeout,
			FailureThreshold: c.Breaker.FailureThreshold,
			MinRequests:      c.Breaker.MinRequests,
		},
	}
}

func (c Config) EvictionPolicy() eviction.PolicyType {
	return eviction.PolicyType(c.Cache.Eviction)
}
