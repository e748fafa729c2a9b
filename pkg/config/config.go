package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration. It is loaded once in main and
// passed into constructors; nothing below main reads the environment.
type Config struct {
	Listen  string        `yaml:"listen"`
	DBPath  string        `yaml:"db_path"`
	Chain   ChainConfig   `yaml:"chain"`
	Refresh RefreshConfig `yaml:"refresh"`
	Claims  ClaimsConfig  `yaml:"claims"`
	X       XConfig       `yaml:"x"`
	Log     LogConfig     `yaml:"log"`
}

// ChainConfig points at the BNB Smart Chain JSON-RPC endpoint and bounds the
// receipt polling loop.
type ChainConfig struct {
	RPCURL          string        `yaml:"rpc_url"`
	ReceiptAttempts int           `yaml:"receipt_attempts"`
	ReceiptInterval time.Duration `yaml:"receipt_interval"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// RefreshConfig controls the best-effort denormalized volume refresh. When
// BaseURL is empty the refresh runs in-process against the local store.
type RefreshConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ClaimsConfig configures the legacy off-chain pool claim path.
type ClaimsConfig struct {
	PoolServiceURL string        `yaml:"pool_service_url"`
	OperatorKeyHex string        `yaml:"operator_key_hex"`
	Timeout        time.Duration `yaml:"timeout"`
}

// XConfig configures the attention-eligibility checker. ClassifierURL is an
// OpenAI-compatible chat endpoint; when empty the keyword heuristic is used.
type XConfig struct {
	BearerToken    string `yaml:"bearer_token"`
	MaxPages       int    `yaml:"max_pages"`
	CachePath      string `yaml:"cache_path"`
	ClassifierURL  string `yaml:"classifier_url"`
	ClassifierKey  string `yaml:"classifier_key"`
	ClassifierName string `yaml:"classifier_model"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Load reads the YAML file at path (optional), applies env overrides, fills
// defaults and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.Chain.RPCURL == "" {
		return nil, fmt.Errorf("chain.rpc_url is required")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setStr(&c.Listen, "PICKS_LISTEN")
	setStr(&c.DBPath, "PICKS_DB")
	setStr(&c.Chain.RPCURL, "PICKS_RPC_URL")
	setStr(&c.Refresh.BaseURL, "PICKS_REFRESH_BASE_URL")
	setStr(&c.Claims.PoolServiceURL, "PICKS_POOL_SERVICE_URL")
	setStr(&c.Claims.OperatorKeyHex, "PICKS_OPERATOR_KEY")
	setStr(&c.X.BearerToken, "PICKS_X_BEARER_TOKEN")
	setStr(&c.X.ClassifierURL, "PICKS_CLASSIFIER_URL")
	setStr(&c.X.ClassifierKey, "PICKS_CLASSIFIER_KEY")
	setStr(&c.Log.Level, "PICKS_LOG_LEVEL")

	if v := strings.TrimSpace(os.Getenv("PICKS_RECEIPT_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chain.ReceiptAttempts = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "data/picks.db"
	}
	if c.Chain.ReceiptAttempts <= 0 {
		c.Chain.ReceiptAttempts = 12
	}
	if c.Chain.ReceiptInterval <= 0 {
		c.Chain.ReceiptInterval = 2 * time.Second
	}
	if c.Chain.RequestTimeout <= 0 {
		c.Chain.RequestTimeout = 10 * time.Second
	}
	if c.Refresh.Timeout <= 0 {
		c.Refresh.Timeout = 10 * time.Second
	}
	if c.Claims.Timeout <= 0 {
		c.Claims.Timeout = 30 * time.Second
	}
	if c.X.MaxPages <= 0 {
		c.X.MaxPages = 5
	}
	if c.X.ClassifierName == "" {
		c.X.ClassifierName = "gpt-4o-mini"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
}
