package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the Time Capsule CLI.
//
// Fields:
//   - ServerURL: base URL of the backend HTTP API.
//   - RequestTimeout: per-request timeout for API calls.
//   - StateDir: directory holding the local database, key-value store and
//     identity file.
type Config struct {
	ServerURL      string        `env:"TIMECAPSULE_SERVER_URL"`
	RequestTimeout time.Duration `env:"TIMECAPSULE_REQUEST_TIMEOUT"`
	StateDir       string        `env:"TIMECAPSULE_STATE_DIR"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.RequestTimeout = 30 * time.Second
	c.StateDir = defaultStateDir()
}

func defaultStateDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".timecapsule"
	}
	return filepath.Join(base, "timecapsule")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), environment variables and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
