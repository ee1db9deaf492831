// Package config loads process configuration from the environment
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the complete process configuration
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR,default=:8080"`

	// Empty selects the in-memory stores
	RedisURL string `env:"REDIS_URL"`

	// PEM encoded EC P-256 key. Empty generates an ephemeral key, which
	// invalidates every session on restart.
	SessionSigningKey   string        `env:"SESSION_SIGNING_KEY"`
	SessionTTL          time.Duration `env:"SESSION_TTL,default=24h"`
	SessionCookie       string        `env:"SESSION_COOKIE,default=session-token"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE,default=true"`

	NonceTTL         time.Duration `env:"NONCE_TTL,default=5m"`
	AuthDefaultChain string        `env:"AUTH_DEFAULT_CHAIN,default=aptos"`
	AuthRateLimit    float64       `env:"AUTH_RATE_LIMIT,default=5"`
	AuthRateBurst    int           `env:"AUTH_RATE_BURST,default=10"`

	VaultPassword   string `env:"VAULT_PASSWORD"`
	VaultIterations int    `env:"VAULT_PBKDF2_ITERATIONS,default=100000"`

	AptosNodeURL  string        `env:"APTOS_NODE_URL,default=https://fullnode.mainnet.aptoslabs.com/v1"`
	AptosChainID  uint8         `env:"APTOS_CHAIN_ID,default=1"`
	SubmitTimeout time.Duration `env:"SUBMIT_TIMEOUT,default=20s"`
	MaxGasAmount  uint64        `env:"MAX_GAS_AMOUNT,default=10000"`
	GasUnitPrice  uint64        `env:"GAS_UNIT_PRICE,default=100"`
	TxExpiry      time.Duration `env:"TX_EXPIRY,default=60s"`

	LogLevel      string `env:"LOG_LEVEL,default=info"`
	LogFormat     string `env:"LOG_FORMAT,default=text"`
	EventsEnabled bool   `env:"EVENTS_ENABLED,default=true"`
}

// Load reads envFile if it exists, then decodes and validates the
// environment. Variables already set take precedence over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects inconsistent values
func (c Config) Validate() error {
	var errs []error
	if c.VaultPassword == "" {
		errs = append(errs, errors.New("VAULT_PASSWORD is required"))
	}
	if c.VaultIterations < 10000 {
		errs = append(errs, fmt.Errorf("VAULT_PBKDF2_ITERATIONS must be at least 10000, got %d", c.VaultIterations))
	}
	if c.SubmitTimeout < time.Second || c.SubmitTimeout > time.Minute {
		errs = append(errs, fmt.Errorf("SUBMIT_TIMEOUT must be between 1s and 60s, got %s", c.SubmitTimeout))
	}
	if c.NonceTTL <= 0 {
		errs = append(errs, errors.New("NONCE_TTL must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SessionCookie == "" {
		errs = append(errs, errors.New("SESSION_COOKIE must not be empty"))
	}
	if c.TxExpiry <= 0 {
		errs = append(errs, errors.New("TX_EXPIRY must be positive"))
	}
	if c.AuthRateLimit <= 0 || c.AuthRateBurst <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive"))
	}
	if c.AptosNodeURL == "" {
		errs = append(errs, errors.New("APTOS_NODE_URL is required"))
	}
	if c.AptosChainID == 0 {
		errs = append(errs, errors.New("APTOS_CHAIN_ID must not be zero"))
	}
	return errors.Join(errs...)
}
