package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/auria-labs/auria-agent/internal/models"
)

const (
	DefaultTOMLFile = "auria.toml"
	DefaultJSONFile = "auria.json"

	envPrefix = "AURIA_"
)

type Config struct {
	// Server
	Bind string `toml:"bind" json:"bind"` // default: 127.0.0.1:8787

	// Nodes, in routing order
	NodeURLs []string `toml:"node_urls" json:"node_urls"`

	// Policy
	DefaultTier      models.Tier `toml:"default_tier" json:"default_tier"`
	MaxCostMicroUSDC uint64      `toml:"max_cost_microusdc" json:"max_cost_microusdc"` // 0 = unlimited
	RoutingStrategy  string      `toml:"routing_strategy" json:"routing_strategy"`

	// Storage, both optional
	PostgresDSN string `toml:"postgres_dsn" json:"postgres_dsn,omitempty"`
	RedisAddr   string `toml:"redis_addr" json:"redis_addr,omitempty"`

	// Rate limiting, tokens per minute per API key; 0 disables
	RateLimitTPM int64 `toml:"rate_limit_tpm" json:"rate_limit_tpm"`

	// Observability
	LogLevel             string `toml:"log_level" json:"log_level"`
	OTELExporterType     string `toml:"otel_exporter_type" json:"otel_exporter_type"` // "stdout", "otlp" or "none"
	OTELExporterEndpoint string `toml:"otel_exporter_endpoint" json:"otel_exporter_endpoint"`
}

func Default() *Config {
	return &Config{
		Bind:                 "127.0.0.1:8787",
		NodeURLs:             []string{"http://127.0.0.1:8080"},
		DefaultTier:          models.TierStandard,
		RoutingStrategy:      "round_robin",
		LogLevel:             "info",
		OTELExporterType:     "none",
		OTELExporterEndpoint: "localhost:4317",
	}
}

// Load reads auria.toml and auria.json from the working directory.
func Load() (*Config, error) {
	return LoadFiles(DefaultTOMLFile, DefaultJSONFile)
}

// LoadFiles layers, lowest precedence first: defaults, the TOML file, the
// JSON file, a .env file, and AURIA_* environment variables. Missing files
// are skipped.
func LoadFiles(tomlPath, jsonPath string) (*Config, error) {
	cfg := Default()

	if tomlPath != "" {
		if _, err := toml.DecodeFile(tomlPath, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", tomlPath, err)
		}
	}

	if jsonPath != "" {
		data, err := os.ReadFile(jsonPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", jsonPath, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read %s: %w", jsonPath, err)
		}
	}

	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookupEnv("BIND"); ok {
		c.Bind = v
	}
	if v, ok := lookupEnv("NODE_URLS"); ok {
		c.NodeURLs = SplitList(v)
	}
	// An unparseable tier keeps whatever the files or defaults chose.
	if v, ok := lookupEnv("DEFAULT_TIER"); ok {
		if t, ok := models.ParseTier(v); ok {
			c.DefaultTier = t
		}
	}
	if v, ok := lookupEnv("MAX_COST_MICROUSDC"); ok {
		if n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			c.MaxCostMicroUSDC = n
		}
	}
	if v, ok := lookupEnv("ROUTING_STRATEGY"); ok {
		c.RoutingStrategy = v
	}
	if v, ok := lookupEnv("POSTGRES_DSN"); ok {
		c.PostgresDSN = v
	}
	if v, ok := lookupEnv("REDIS_ADDR"); ok {
		c.RedisAddr = v
	}
	if v, ok := lookupEnv("RATE_LIMIT_TPM"); ok {
		tpm, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sRATE_LIMIT_TPM: %w", envPrefix, err)
		}
		c.RateLimitTPM = tpm
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookupEnv("OTEL_EXPORTER_TYPE"); ok {
		c.OTELExporterType = v
	}
	if v, ok := lookupEnv("OTEL_EXPORTER_ENDPOINT"); ok {
		c.OTELExporterEndpoint = v
	}
	return nil
}

// Validate checks fields that have a closed set of values. An empty node
// list is not rejected here; the agent refuses to start without nodes.
func (c *Config) Validate() error {
	if c.Bind == "" {
		return fmt.Errorf("bind address is required")
	}
	if !c.DefaultTier.Valid() {
		return fmt.Errorf("invalid default tier %q", c.DefaultTier)
	}
	if c.RateLimitTPM < 0 {
		return fmt.Errorf("rate_limit_tpm must not be negative")
	}
	switch c.OTELExporterType {
	case "stdout", "otlp", "none":
	default:
		return fmt.Errorf("invalid otel exporter type %q", c.OTELExporterType)
	}
	return nil
}

// Redacted returns a copy safe to print: the Postgres password is masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.NodeURLs = append([]string(nil), c.NodeURLs...)
	if u, err := url.Parse(c.PostgresDSN); err == nil && u.User != nil {
		out.PostgresDSN = u.Redacted()
	}
	return &out
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(envPrefix + key)
}
