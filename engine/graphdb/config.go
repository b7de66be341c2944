package graphdb

import (
	"fmt"
	"time"

	"github.com/WessleyAI/fleetgraph/engine/domain"
)

// Config holds connection settings for the graph database.
type Config struct {
	// URI is a neo4j://, neo4j+s://, bolt:// or bolt+s:// endpoint.
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Database selects the target database; empty means the server default.
	Database string `yaml:"database"`

	MaxPoolSize    int           `yaml:"max_pool_size"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	// VerifyTimeout bounds the connectivity check made by Open and Ping.
	VerifyTimeout time.Duration `yaml:"verify_timeout"`
}

// DefaultConfig returns local development defaults.
func DefaultConfig() Config {
	return Config{
		URI:            "neo4j://localhost:7687",
		Username:       "neo4j",
		Database:       "neo4j",
		MaxPoolSize:    50,
		AcquireTimeout: 30 * time.Second,
		VerifyTimeout:  10 * time.Second,
	}
}

// Validate checks the settings Open depends on.
func (c Config) Validate() error {
	switch {
	case c.URI == "":
		return domain.NewValidationError("uri", "", domain.ErrRequired)
	case c.Username == "":
		return domain.NewValidationError("username", "", domain.ErrRequired)
	case c.MaxPoolSize <= 0:
		return domain.NewValidationError("max_pool_size", fmt.Sprint(c.MaxPoolSize), domain.ErrOutOfRange)
	case c.AcquireTimeout <= 0:
		return domain.NewValidationError("acquire_timeout", c.AcquireTimeout.String(), domain.ErrOutOfRange)
	case c.VerifyTimeout <= 0:
		return domain.NewValidationError("verify_timeout", c.VerifyTimeout.String(), domain.ErrOutOfRange)
	}
	return nil
}
