package boot

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const devJWTSecret = "dev-secret"

type Config struct {
	Env          string `env:"ENV,default=dev"`
	DataDir      string `env:"DATA_DIR,default=./data"`
	DatabaseFile string `env:"DATABASE_FILE,default=pinboard.db"`
	Server       struct {
		Port        string `env:"PORT,default=8080"`
		MetricsPort string `env:"METRICS_PORT,default=8081"`
		Origins     string `env:"ALLOWED_ORIGINS,default=*"`
	}
	Auth struct {
		JWTSecret  string        `env:"JWT_SECRET,default=dev-secret"`
		TokenTTL   time.Duration `env:"TOKEN_TTL,default=24h"`
		AdminToken string        `env:"ADMIN_TOKEN"`
	}
	Quota struct {
		StandardLimitBytes int64 `env:"STANDARD_LIMIT_BYTES,default=1048576"`
		VerifiedLimitBytes int64 `env:"VERIFIED_LIMIT_BYTES,default=10485760"`
		FailClosed         bool  `env:"QUOTA_FAIL_CLOSED,default=false"`
	}
	Password struct {
		MaxChanges          int `env:"MAX_PASSWORD_CHANGES,default=3"`
		LockoutDurationDays int `env:"LOCKOUT_DURATION_DAYS,default=3"`
	}
	Storage struct {
		Retries   uint64        `env:"STORAGE_RETRIES,default=3"`
		RetryBase time.Duration `env:"STORAGE_RETRY_BASE,default=25ms"`
	}
}

func Load() (*Config, error) {
	return LoadWith(context.Background(), envconfig.OsLookuper())
}

// LoadWith processes the configuration from an arbitrary lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := &Config{}
	if err := envconfig.ProcessWith(ctx, config, lookuper); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Quota.StandardLimitBytes <= 0 {
		return errors.New("STANDARD_LIMIT_BYTES must be positive")
	}
	if c.Quota.VerifiedLimitBytes < c.Quota.StandardLimitBytes {
		return errors.New("VERIFIED_LIMIT_BYTES must not be smaller than STANDARD_LIMIT_BYTES")
	}
	if c.Password.MaxChanges < 1 {
		return errors.New("MAX_PASSWORD_CHANGES must be at least 1")
	}
	if c.Password.LockoutDurationDays < 1 {
		return errors.New("LOCKOUT_DURATION_DAYS must be at least 1")
	}
	if c.Storage.RetryBase <= 0 {
		return errors.New("STORAGE_RETRY_BASE must be positive")
	}
	if !c.IsDevelopment() && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == devJWTSecret) {
		return errors.New("JWT_SECRET must be set outside development")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) DatabasePath() string {
	return path.Join(c.DataDir, c.DatabaseFile)
}

func (c *Config) AllowedOrigins() []string {
	origins := []string{}
	for _, o := range strings.Split(c.Server.Origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c *Config) LockoutDuration() time.Duration {
	return time.Duration(c.Password.LockoutDurationDays) * 24 * time.Hour
}
