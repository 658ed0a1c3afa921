// Package config loads the settings of the portal client and the lgctl CLI.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendHTTP = "http"
	BackendMock = "mock"
)

type Config struct {
	APIURL      string        `env:"LGCERT_API_URL" envDefault:"http://localhost:8080/api/v1"`
	Backend     string        `env:"LGCERT_BACKEND" envDefault:"http"`
	SessionFile string        `env:"LGCERT_SESSION_FILE"`
	Timeout     time.Duration `env:"LGCERT_TIMEOUT" envDefault:"30s"`
	MockLatency time.Duration `env:"LGCERT_MOCK_LATENCY" envDefault:"300ms"`
	LogLevel    string        `env:"LGCERT_LOG_LEVEL" envDefault:"warn"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = DefaultSessionFile()
	}
	return &cfg, nil
}

// DefaultSessionFile is <user config dir>/lgcert/session.json, or a file in
// the working directory when no config dir is known.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".lgcert-session.json"
	}
	return filepath.Join(dir, "lgcert", "session.json")
}
