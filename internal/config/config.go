// Package config loads run settings from the environment and the credentials file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/naka-gawa/lp-bug-report/internal/presenter"
)

const (
	DefaultService  = "production"
	DefaultConsumer = "Canonical web team stats"
	DefaultProject  = "ubuntu-ux"
	DefaultTeam     = "unity-design-team"
	DefaultRate     = 5.0
)

var (
	// ErrNoProjects is returned when the project list is empty.
	ErrNoProjects = errors.New("at least one project is required")
	// ErrNoTeam is returned when no team name is configured.
	ErrNoTeam = errors.New("team name is required")
	// ErrInvalidConcurrency is returned for a concurrency below 1.
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
	// ErrInvalidRate is returned for a request rate that is zero or negative.
	ErrInvalidRate = errors.New("requests per second must be positive")
)

// Config holds every setting of a report run.
type Config struct {
	Service           string
	Consumer          string
	Projects          []string
	Team              string
	CredentialsFile   string
	Anonymous         bool
	RequestsPerSecond float64
	Concurrency       int
	Format            string
}

// Load reads ./.env when present, then the LP_* environment variables.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit env file path. A missing file is not an error.
func LoadFrom(envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, goerr.Wrap(err, "failed to load env file", goerr.V("path", envFile))
	}

	rate, err := getFloat("LP_REQUESTS_PER_SECOND", DefaultRate)
	if err != nil {
		return nil, err
	}
	concurrency, err := getInt("LP_CONCURRENCY", 1)
	if err != nil {
		return nil, err
	}

	return &Config{
		Service:           getEnv("LP_SERVICE", DefaultService),
		Consumer:          getEnv("LP_CONSUMER", DefaultConsumer),
		Projects:          SplitList(getEnv("LP_PROJECTS", DefaultProject)),
		Team:              getEnv("LP_TEAM", DefaultTeam),
		CredentialsFile:   getEnv("LP_CREDENTIALS", DefaultCredentialsFile()),
		RequestsPerSecond: rate,
		Concurrency:       concurrency,
		Format:            getEnv("LP_FORMAT", string(presenter.FormatText)),
	}, nil
}

// Validate checks the settings that have no safe fallback.
func (c *Config) Validate() error {
	if len(c.Projects) == 0 {
		return ErrNoProjects
	}
	if c.Team == "" {
		return ErrNoTeam
	}
	if c.Concurrency < 1 {
		return goerr.Wrap(ErrInvalidConcurrency, "invalid config", goerr.V("concurrency", c.Concurrency))
	}
	if c.RequestsPerSecond <= 0 {
		return goerr.Wrap(ErrInvalidRate, "invalid config", goerr.V("rate", c.RequestsPerSecond))
	}
	if _, err := presenter.ParseFormat(c.Format); err != nil {
		return err
	}
	return nil
}

// DefaultCredentialsFile is <user config dir>/lp-bug-report/credentials.yaml.
func DefaultCredentialsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lp-bug-report", "credentials.yaml")
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to parse env var", goerr.V("key", key), goerr.V("value", v))
	}
	return f, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to parse env var", goerr.V("key", key), goerr.V("value", v))
	}
	return n, nil
}
