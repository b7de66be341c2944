package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/fleetgraph/engine/domain"
)

var envKeys = []string{
	"NEO4J_URI", "NEO4J_USERNAME", "NEO4J_PASSWORD", "NEO4J_DATABASE", "NEO4J_MAX_POOL",
	"NEO4J_ACQUIRE_TIMEOUT", "NEO4J_VERIFY_TIMEOUT", "PORT", "GRPC_PORT", "CORS_ORIGIN",
	"RATE_LIMIT", "RATE_BURST", "NATS_URL", "NATS_SUBJECT_PREFIX", "LOG_LEVEL",
}

// isolate clears the variables Load reads and runs the test in an empty dir.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "neo4j://localhost:7687", cfg.Graph().URI)
	assert.Equal(t, 50, cfg.Graph().MaxPoolSize)
	assert.Equal(t, "fleet.upsert.aircraft", cfg.Subjects().Upsert(domain.KindAircraft))
}

func TestLoad_Layers(t *testing.T) {
	dir := isolate(t)
	yml := filepath.Join(dir, "fleet.yaml")
	require.NoError(t, os.WriteFile(yml, []byte(`
neo4j:
  uri: bolt://graph:7687
  password: from-yaml
  acquire_timeout: 5s
http:
  port: "9000"
  rate_limit: 10
nats:
  subject_prefix: ops
log_level: debug
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NEO4J_PASSWORD=from-dotenv\nGRPC_PORT=9191\n"), 0o600))
	t.Setenv("PORT", "7000")
	t.Setenv("NEO4J_MAX_POOL", "7")

	cfg, err := Load(yml)
	require.NoError(t, err)

	assert.Equal(t, "bolt://graph:7687", cfg.Neo4j.URI)
	assert.Equal(t, "from-dotenv", cfg.Neo4j.Password)
	assert.Equal(t, 5*time.Second, cfg.Neo4j.AcquireTimeout)
	assert.Equal(t, 7, cfg.Neo4j.MaxPoolSize)
	assert.Equal(t, "7000", cfg.HTTP.Port)
	assert.Equal(t, "9191", cfg.HTTP.GRPCPort)
	assert.Equal(t, 10.0, cfg.HTTP.RateLimit)
	assert.Equal(t, "ops", cfg.NATS.SubjectPrefix)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NEO4J_DATABASE=fromfile\n"), 0o600))
	t.Setenv("NEO4J_DATABASE", "fromenv")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Neo4j.Database)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		isolate(t)
		_, err := Load("nope.yaml")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("bad yaml", func(t *testing.T) {
		dir := isolate(t)
		p := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(p, []byte("neo4j: [unclosed"), 0o600))
		_, err := Load(p)
		assert.Error(t, err)
	})
	t.Run("bad int", func(t *testing.T) {
		isolate(t)
		t.Setenv("NEO4J_MAX_POOL", "lots")
		_, err := Load("")
		assert.ErrorContains(t, err, "NEO4J_MAX_POOL")
	})
	t.Run("bad duration", func(t *testing.T) {
		isolate(t)
		t.Setenv("NEO4J_VERIFY_TIMEOUT", "soon")
		_, err := Load("")
		assert.ErrorContains(t, err, "NEO4J_VERIFY_TIMEOUT")
	})
	t.Run("bad level", func(t *testing.T) {
		isolate(t)
		t.Setenv("LOG_LEVEL", "loud")
		_, err := Load("")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestValidate(t *testing.T) {
	mutate := map[string]func(*Config){
		"empty uri":      func(c *Config) { c.Neo4j.URI = "" },
		"empty database": func(c *Config) { c.Neo4j.Database = "" },
		"empty port":     func(c *Config) { c.HTTP.Port = "" },
		"negative rate":  func(c *Config) { c.HTTP.RateLimit = -1 },
		"zero burst":     func(c *Config) { c.HTTP.RateBurst = 0 },
	}
	for name, f := range mutate {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			f(&cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrValidation)
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogLevel = "warn"
	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
