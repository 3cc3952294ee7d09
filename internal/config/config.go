// Package config loads server configuration from a YAML file with
// environment overrides for deploy-time settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "2s", "500ms"
// and so on.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// WebhookEndpoint is a job-completion notification target. The secret, when
// set, is used to HMAC-sign each delivery.
type WebhookEndpoint struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

// Search holds the default search parameters applied to solve requests that
// do not override them.
type Search struct {
	Construction string   `yaml:"construction"`
	Improvement  string   `yaml:"improvement"`
	TimeBudget   Duration `yaml:"timeBudget"`
	Seed         int64    `yaml:"seed"`
	Workers      int      `yaml:"workers"`
}

type Config struct {
	ListenAddr  string            `yaml:"listenAddr"`
	DatabaseURL string            `yaml:"databaseUrl"`
	RedisURL    string            `yaml:"redisUrl"`
	RateRPS     float64           `yaml:"rateRps"`
	RateBurst   int               `yaml:"rateBurst"`
	Search      Search            `yaml:"search"`
	Webhooks    []WebhookEndpoint `yaml:"webhooks"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		RateRPS:    10,
		RateBurst:  20,
		Search: Search{
			Construction: "cheapest-arc",
			Improvement:  "guided-local-search",
			TimeBudget:   Duration(10 * time.Second),
			Seed:         1,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty) and applies
// environment overrides on top. PORT, DATABASE_URL and REDIS_URL always win
// so container deploys need no file edits.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.ListenAddr = ":" + v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RateRPS = f
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateBurst = n
		}
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	return cfg, nil
}
