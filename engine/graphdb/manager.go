package graphdb

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
	"github.com/WessleyAI/fleetgraph/engine/domain"
)

// Observer receives query timings and state transitions, typically to feed
// metrics.
type Observer interface {
	QueryDone(op cypher.Op, label string, d time.Duration, err error)
	StateChanged(s State)
	SessionOpened(mode Mode)
	SessionClosed(mode Mode)
}

type nopObserver struct{}

func (nopObserver) QueryDone(cypher.Op, string, time.Duration, error) {}
func (nopObserver) StateChanged(State)                                {}
func (nopObserver) SessionOpened(Mode)                                {}
func (nopObserver) SessionClosed(Mode)                                {}

// DriverFactory builds a driver from config. Tests replace it.
type DriverFactory func(cfg Config) (neo4j.DriverWithContext, error)

func newNeo4jDriver(cfg Config) (neo4j.DriverWithContext, error) {
	return neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
			c.ConnectionAcquisitionTimeout = cfg.AcquireTimeout
		})
}

// Manager owns one pooled driver and moves through
// Disconnected -> Connecting -> Connected -> Closed. A failed Open passes
// through Failed and returns to Disconnected, so it can be retried. Closed
// is terminal. Manager is safe for concurrent use.
type Manager struct {
	cfg       Config
	logger    *slog.Logger
	observer  Observer
	tracer    trace.Tracer
	newDriver DriverFactory

	mu     sync.RWMutex
	state  State
	driver neo4j.DriverWithContext
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithObserver sets the query and state observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithTracer overrides the tracer used for query spans.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// WithDriverFactory overrides how the driver is built.
func WithDriverFactory(f DriverFactory) Option {
	return func(m *Manager) { m.newDriver = f }
}

// NewManager creates a disconnected Manager.
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		logger:    slog.Default(),
		observer:  nopObserver{},
		tracer:    otel.Tracer("github.com/WessleyAI/fleetgraph/engine/graphdb"),
		newDriver: newNeo4jDriver,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Config returns the configuration the Manager was built with.
func (m *Manager) Config() Config { return m.cfg }

func (m *Manager) setState(s State) {
	m.state = s
	m.observer.StateChanged(s)
}

// Open builds the driver and verifies connectivity within VerifyTimeout.
// Bad credentials and unreachable endpoints surface as ConnectionError.
func (m *Manager) Open(ctx context.Context) error {
	if err := m.cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	switch m.state {
	case Closed:
		m.mu.Unlock()
		return domain.NewConnectionError("open", domain.ErrClosed)
	case Connecting, Connected:
		m.mu.Unlock()
		return domain.NewConnectionError("open", domain.ErrAlreadyOpen)
	}
	m.setState(Connecting)
	m.mu.Unlock()

	m.logger.Info("connecting to graph", "uri", m.cfg.URI, "database", m.cfg.Database)

	driver, err := m.newDriver(m.cfg)
	if err == nil {
		vctx, cancel := context.WithTimeout(ctx, m.cfg.VerifyTimeout)
		err = driver.VerifyConnectivity(vctx)
		cancel()
		if err != nil {
			_ = driver.Close(context.WithoutCancel(ctx))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		cerr := classifyConnect("open", err)
		m.logger.Error("graph connection failed", "uri", m.cfg.URI, "err", cerr)
		if m.state == Closed {
			return cerr
		}
		m.setState(Failed)
		m.setState(Disconnected)
		return cerr
	}
	if m.state == Closed {
		// Close ran while we were connecting.
		_ = driver.Close(context.WithoutCancel(ctx))
		return domain.NewConnectionError("open", domain.ErrClosed)
	}
	m.driver = driver
	m.setState(Connected)
	m.logger.Info("graph connected", "uri", m.cfg.URI)
	return nil
}

// Session acquires a session on the configured database.
func (m *Manager) Session(ctx context.Context, mode Mode) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch m.state {
	case Connected:
	case Closed:
		return nil, domain.NewConnectionError("session", domain.ErrClosed)
	default:
		return nil, domain.NewConnectionError("session", domain.ErrNotConnected)
	}
	access := neo4j.AccessModeWrite
	if mode == Read {
		access = neo4j.AccessModeRead
	}
	sess := m.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: m.cfg.Database,
		AccessMode:   access,
	})
	m.observer.SessionOpened(mode)
	return &neo4jSession{
		sess:     sess,
		mode:     mode,
		tracer:   m.tracer,
		observer: m.observer,
		database: m.cfg.Database,
	}, nil
}

// WithSession runs fn with a fresh session and releases it on every path,
// including panics.
func WithSession(ctx context.Context, p Provider, mode Mode, fn func(Session) error) error {
	sess, err := p.Session(ctx, mode)
	if err != nil {
		return err
	}
	defer sess.Close(context.WithoutCancel(ctx))
	return fn(sess)
}

// Ping re-verifies connectivity of an open Manager.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	driver, state := m.driver, m.state
	m.mu.RUnlock()
	if state != Connected {
		return domain.NewConnectionError("ping", domain.ErrNotConnected)
	}
	vctx, cancel := context.WithTimeout(ctx, m.cfg.VerifyTimeout)
	defer cancel()
	return classifyConnect("ping", driver.VerifyConnectivity(vctx))
}

// Close releases the driver. It is idempotent; after Close the Manager
// cannot be reopened.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Closed {
		return nil
	}
	driver := m.driver
	m.driver = nil
	m.setState(Closed)
	if driver == nil {
		return nil
	}
	m.logger.Info("closing graph connection")
	if err := driver.Close(ctx); err != nil {
		return domain.NewConnectionError("close", err)
	}
	return nil
}
