// Package config loads lumoctl's environment configuration and builds the
// process-wide logger. Per-instance state (service URLs, session token) lives
// in the profile store, not here; this package only carries knobs that make
// sense as environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// ProfilePath overrides where the encrypted profile store is kept.
	// Empty means $HOME/.lumoctl/profiles.enc.
	ProfilePath string `env:"LUMOCTL_PROFILE_PATH"`
	// ProfileKey is the passphrase the profile store is encrypted with.
	ProfileKey string `env:"LUMOCTL_PROFILE_KEY" envDefault:"lumoctl-local-profile-store"`

	ReportDir   string        `env:"LUMOCTL_REPORT_DIR" envDefault:"reports"`
	PageSize    int           `env:"LUMOCTL_PAGE_SIZE" envDefault:"100"`
	HTTPTimeout time.Duration `env:"LUMOCTL_HTTP_TIMEOUT" envDefault:"30s"`
	LogLevel    string        `env:"LUMOCTL_LOG_LEVEL" envDefault:"error"`

	logger *logrus.Logger
}

// LoadEnv loads whichever of envFiles exist, returning how many were found.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads .env/.env.local (when present), parses the environment and
// constructs the logger.
func Load() (*Config, error) {
	c := &Config{}
	if _, err := LoadEnv([]string{".env", ".env.local"}); err != nil {
		return nil, err
	}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(c.LogrusLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: false})
	c.logger = logger
	return c, nil
}

func (c *Config) Logger() *logrus.Logger {
	return c.logger
}

func (c *Config) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

// ProfileStorePath resolves the effective profile store location.
func (c *Config) ProfileStorePath() (string, error) {
	if c.ProfilePath != "" {
		return c.ProfilePath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".lumoctl", "profiles.enc"), nil
}
