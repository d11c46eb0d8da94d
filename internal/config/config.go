// Package config loads runtime settings from the environment, after merging
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const appConfigDirName = "playdeck"

type Config struct {
	HTTPPort      int
	HTTPToken     string
	DBPath        string
	LogLevel      string
	LogJSON       bool
	ImageBaseURL  string
	BatchSize     int
	Lookahead     int
	LoadTimeout   time.Duration
	SimulateLoads bool
	RNGSeed       string
}

// Load reads the given .env files (default ".env"; missing files are skipped)
// without overriding variables already set, then builds the Config.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the Config from the process environment alone.
func FromEnv() (Config, error) {
	c := Config{
		HTTPToken:    os.Getenv("PLAYDECK_HTTP_TOKEN"),
		DBPath:       envOr("PLAYDECK_DB_PATH", filepath.Join(AppDataDir(), "journal.db")),
		LogLevel:     strings.ToLower(envOr("PLAYDECK_LOG_LEVEL", "info")),
		ImageBaseURL: envOr("PLAYDECK_IMAGE_BASE_URL", "https://cataas.com/cat"),
		RNGSeed:      os.Getenv("PLAYDECK_RNG_SEED"),
	}

	var errs []error
	var err error
	if c.HTTPPort, err = envInt("PLAYDECK_HTTP_PORT", 17890); err != nil {
		errs = append(errs, err)
	}
	if c.BatchSize, err = envInt("PLAYDECK_BATCH_SIZE", 10); err != nil {
		errs = append(errs, err)
	}
	if c.Lookahead, err = envInt("PLAYDECK_LOOKAHEAD", 2); err != nil {
		errs = append(errs, err)
	}
	if c.SimulateLoads, err = envBool("PLAYDECK_SIMULATE_LOADS", false); err != nil {
		errs = append(errs, err)
	}

	c.LoadTimeout = 15 * time.Second
	if v := os.Getenv("PLAYDECK_LOAD_TIMEOUT"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			errs = append(errs, fmt.Errorf("invalid PLAYDECK_LOAD_TIMEOUT %q: %w", v, perr))
		}
		c.LoadTimeout = d
	}

	switch format := strings.ToLower(envOr("PLAYDECK_LOG_FORMAT", "text")); format {
	case "text":
	case "json":
		c.LogJSON = true
	default:
		errs = append(errs, fmt.Errorf("invalid PLAYDECK_LOG_FORMAT %q", format))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("PLAYDECK_HTTP_PORT %d out of range", c.HTTPPort))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("PLAYDECK_BATCH_SIZE must be positive, got %d", c.BatchSize))
	}
	if c.Lookahead < 1 || c.Lookahead >= c.BatchSize {
		errs = append(errs, fmt.Errorf("PLAYDECK_LOOKAHEAD must be in [1, batch size), got %d", c.Lookahead))
	}
	if c.LoadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PLAYDECK_LOAD_TIMEOUT must be positive, got %s", c.LoadTimeout))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid PLAYDECK_LOG_LEVEL %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// AppDataDir is the per-user directory for the journal and key fallback file.
func AppDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, appConfigDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+appConfigDirName)
	}
	return "."
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}
