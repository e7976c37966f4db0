// Package config loads server configuration from a YAML file, an optional .env
// file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config holds server configuration.
type Config struct {
	ListenAddr    string `yaml:"listen_addr" env:"MEMBERAUTH_LISTEN_ADDR"`
	TLSCertFile   string `yaml:"tls_cert" env:"MEMBERAUTH_TLS_CERT"`
	TLSKeyFile    string `yaml:"tls_key" env:"MEMBERAUTH_TLS_KEY"`
	DBUrl         string `yaml:"db_url" env:"DATABASE_URL"`
	MigrationsDir string `yaml:"migrations_dir" env:"MEMBERAUTH_MIGRATIONS_DIR"`
	LogLevel      string `yaml:"log_level" env:"MEMBERAUTH_LOG_LEVEL"`
	LogJSON       bool   `yaml:"log_json" env:"MEMBERAUTH_LOG_JSON"`
	OperatorToken string `yaml:"operator_token" env:"MEMBERAUTH_OPERATOR_TOKEN"`

	Token     Token     `yaml:"token" envPrefix:"MEMBERAUTH_TOKEN_"`
	Lockout   Lockout   `yaml:"lockout" envPrefix:"MEMBERAUTH_LOCKOUT_"`
	Password  Password  `yaml:"password" envPrefix:"MEMBERAUTH_PASSWORD_"`
	RateLimit RateLimit `yaml:"rate_limit" envPrefix:"MEMBERAUTH_RATE_LIMIT_"`

	// Identities seed the in-memory store when no database is configured.
	Identities []SeedIdentity `yaml:"identities"`
}

// Token configures bearer tokens and their revocation store.
type Token struct {
	Secret        string        `yaml:"secret" env:"SECRET"`
	Validity      time.Duration `yaml:"validity" env:"VALIDITY"`
	SweepInterval time.Duration `yaml:"revocation_sweep_interval" env:"REVOCATION_SWEEP_INTERVAL"`
}

// Lockout configures the brute-force guard.
type Lockout struct {
	MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	Duration    time.Duration `yaml:"duration" env:"DURATION"`
}

// Password configures password hashing.
type Password struct {
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

// RateLimit configures the per-client login rate limiter.
type RateLimit struct {
	RPS   int `yaml:"rps" env:"RPS"`
	Burst int `yaml:"burst" env:"BURST"`
}

// SeedIdentity is a dev-mode account. Password may be plaintext; it is
// migrated to bcrypt on first successful login.
type SeedIdentity struct {
	ID       int64  `yaml:"id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Active   *bool  `yaml:"active"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ListenAddr:    ":8080",
		MigrationsDir: "migrations",
		LogLevel:      "info",
		Token: Token{
			Validity:      24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Lockout: Lockout{
			MaxAttempts: 5,
			Duration:    15 * time.Minute,
		},
		Password: Password{
			BcryptCost: bcrypt.DefaultCost,
		},
		RateLimit: RateLimit{
			RPS:   5,
			Burst: 20,
		},
	}
}

// Load reads path (a missing file is not an error), then .env, then the
// environment. found reports whether path existed.
func Load(path string) (cfg Config, found bool, err error) {
	cfg = Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		found = true
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, found, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, false, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, found, fmt.Errorf("loading .env: %w", err)
	}
	// identities come from the file only
	seeds := cfg.Identities
	if err := env.Parse(&cfg); err != nil {
		return cfg, found, fmt.Errorf("parsing environment: %w", err)
	}
	cfg.Identities = seeds
	return cfg, found, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr must be set")
	}
	if c.Token.Validity <= 0 {
		return errors.New("token.validity must be positive")
	}
	if c.Token.SweepInterval < 0 {
		return errors.New("token.revocation_sweep_interval must not be negative")
	}
	if c.Lockout.Duration < 0 {
		return errors.New("lockout.duration must not be negative")
	}
	if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("password.bcrypt_cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.RateLimit.RPS <= 0 {
		return errors.New("rate_limit.rps must be positive")
	}
	if c.RateLimit.Burst < 1 {
		return errors.New("rate_limit.burst must be at least 1")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("tls_cert and tls_key must be set together")
	}
	for i, id := range c.Identities {
		if id.Username == "" || id.Password == "" {
			return fmt.Errorf("identities[%d]: username and password are required", i)
		}
	}
	return nil
}
