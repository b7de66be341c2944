// Package config loads service configuration from defaults, an optional
// YAML file, an optional .env file and the environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/engine/ingest"
)

// HTTP configures the API server.
type HTTP struct {
	Port       string  `yaml:"port"`
	GRPCPort   string  `yaml:"grpc_port"`
	CORSOrigin string  `yaml:"cors_origin"`
	RateLimit  float64 `yaml:"rate_limit"`
	RateBurst  int     `yaml:"rate_burst"`
}

// NATS configures the message bus.
type NATS struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Config is the full service configuration.
type Config struct {
	Neo4j    graphdb.Config `yaml:"neo4j"`
	HTTP     HTTP           `yaml:"http"`
	NATS     NATS           `yaml:"nats"`
	LogLevel string         `yaml:"log_level"`
}

// Default returns local development settings.
func Default() Config {
	return Config{
		Neo4j: graphdb.DefaultConfig(),
		HTTP: HTTP{
			Port:       "8080",
			GRPCPort:   "9090",
			CORSOrigin: "*",
			RateLimit:  50,
			RateBurst:  100,
		},
		NATS: NATS{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: ingest.DefaultPrefix,
		},
		LogLevel: "info",
	}
}

// DotEnv is the file Load reads when present.
var DotEnv = ".env"

// Load builds a Config. path names an optional YAML file; when set it must
// exist. Variables from DotEnv never override ones already in the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := godotenv.Load(DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: %s: %w", DotEnv, err)
	}

	e := &env{}
	cfg.Neo4j.URI = envOr("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.Username = envOr("NEO4J_USERNAME", cfg.Neo4j.Username)
	cfg.Neo4j.Password = envOr("NEO4J_PASSWORD", cfg.Neo4j.Password)
	cfg.Neo4j.Database = envOr("NEO4J_DATABASE", cfg.Neo4j.Database)
	cfg.Neo4j.MaxPoolSize = e.int("NEO4J_MAX_POOL", cfg.Neo4j.MaxPoolSize)
	cfg.Neo4j.AcquireTimeout = e.duration("NEO4J_ACQUIRE_TIMEOUT", cfg.Neo4j.AcquireTimeout)
	cfg.Neo4j.VerifyTimeout = e.duration("NEO4J_VERIFY_TIMEOUT", cfg.Neo4j.VerifyTimeout)
	cfg.HTTP.Port = envOr("PORT", cfg.HTTP.Port)
	cfg.HTTP.GRPCPort = envOr("GRPC_PORT", cfg.HTTP.GRPCPort)
	cfg.HTTP.CORSOrigin = envOr("CORS_ORIGIN", cfg.HTTP.CORSOrigin)
	cfg.HTTP.RateLimit = e.float("RATE_LIMIT", cfg.HTTP.RateLimit)
	cfg.HTTP.RateBurst = e.int("RATE_BURST", cfg.HTTP.RateBurst)
	cfg.NATS.URL = envOr("NATS_URL", cfg.NATS.URL)
	cfg.NATS.SubjectPrefix = envOr("NATS_SUBJECT_PREFIX", cfg.NATS.SubjectPrefix)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	if e.err != nil {
		return Config{}, e.err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// env parses typed variables, keeping the first error.
type env struct{ err error }

func (e *env) fail(key, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("config: %s=%q: %w", key, v, err)
	}
}

func (e *env) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return n
}

func (e *env) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return f
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return d
}

// Graph returns the graph connection settings.
func (c Config) Graph() graphdb.Config { return c.Neo4j }

// Subjects returns the ingest subjects for the configured prefix.
func (c Config) Subjects() ingest.Subjects { return ingest.Subjects{Prefix: c.NATS.SubjectPrefix} }

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Neo4j.Validate(); err != nil {
		return err
	}
	switch {
	case c.Neo4j.Database == "":
		return domain.NewValidationError("database", "", domain.ErrRequired)
	case c.HTTP.Port == "":
		return domain.NewValidationError("port", "", domain.ErrRequired)
	case c.HTTP.RateLimit < 0:
		return domain.NewValidationError("rate_limit", fmt.Sprint(c.HTTP.RateLimit), domain.ErrOutOfRange)
	case c.HTTP.RateLimit > 0 && c.HTTP.RateBurst <= 0:
		return domain.NewValidationError("rate_burst", fmt.Sprint(c.HTTP.RateBurst), domain.ErrOutOfRange)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return domain.NewValidationError("log_level", c.LogLevel, domain.ErrOutOfRange)
	}
	return nil
}

// Logger returns a JSON logger at the configured level writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
