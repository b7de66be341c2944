//go:build integration

package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
)

const testPassword = "fleetgraph-test"

// startNeo4j runs a throwaway Neo4j 5 server and returns an open Manager.
func startNeo4j(t *testing.T, ctx context.Context) *graphdb.Manager {
	t.Helper()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("docker not available")
	}
	if err := provider.Health(ctx); err != nil {
		t.Skip("docker not running")
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "neo4j:5",
			ExposedPorts: []string{"7687/tcp"},
			Env:          map[string]string{"NEO4J_AUTH": "neo4j/" + testPassword},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("7687/tcp"),
				wait.ForLog("Started."),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	uri, err := c.PortEndpoint(ctx, "7687/tcp", "neo4j")
	require.NoError(t, err)

	cfg := graphdb.DefaultConfig()
	cfg.URI = uri
	cfg.Password = testPassword
	m := graphdb.NewManager(cfg)
	require.NoError(t, m.Open(ctx))
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func TestIntegration_Neo4j(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	m := startNeo4j(t, ctx)
	assert.Equal(t, graphdb.Connected, m.State())
	require.NoError(t, m.Ping(ctx))

	s := NewStore(m, nil)
	require.NoError(t, s.EnsureConstraints(ctx))
	require.NoError(t, s.EnsureConstraints(ctx))

	t.Run("aircraft to component", func(t *testing.T) {
		_, err := s.Aircraft.Create(ctx, domain.Aircraft{AircraftID: "AC1", TailNumber: "N1"})
		require.NoError(t, err)
		_, err = s.Systems.Create(ctx, domain.System{SystemID: "S1", AircraftID: "AC1", Name: "Hydraulics"})
		require.NoError(t, err)
		_, err = s.Components.Create(ctx, domain.Component{ComponentID: "C1", SystemID: "S1", Name: "Pump"})
		require.NoError(t, err)

		ok, err := s.Link(ctx, HasSystem, "AC1", "S1")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.Link(ctx, HasComponent, "S1", "C1")
		require.NoError(t, err)
		assert.True(t, ok)

		comps, err := s.Aircraft.Components(ctx, "AC1", 10)
		require.NoError(t, err)
		require.Len(t, comps, 1)
		assert.Equal(t, "C1", comps[0].ComponentID)
	})

	t.Run("hostile values round trip", func(t *testing.T) {
		tail := `N1"}) DETACH DELETE n //`
		_, err := s.Aircraft.Create(ctx, domain.Aircraft{AircraftID: "AC2", TailNumber: tail})
		require.NoError(t, err)
		got, found, err := s.Aircraft.FindByTailNumber(ctx, tail)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "AC2", got.AircraftID)
	})

	t.Run("upsert is idempotent", func(t *testing.T) {
		for range 3 {
			_, err := s.Airports.Create(ctx, domain.Airport{AirportID: "AP1", IATA: "JFK"})
			require.NoError(t, err)
		}
		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Nodes["Airport"])
	})

	t.Run("update and delete", func(t *testing.T) {
		_, err := s.Airports.Update(ctx, domain.Airport{AirportID: "AP-none"})
		assert.ErrorIs(t, err, domain.ErrNotFound)

		deleted, err := s.Airports.Delete(ctx, "AP1")
		require.NoError(t, err)
		assert.True(t, deleted)
		deleted, err = s.Airports.Delete(ctx, "AP1")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("seed", func(t *testing.T) {
		sum, err := s.Seed(ctx)
		require.NoError(t, err)
		assert.Equal(t, 77, sum.Nodes)

		faults, err := s.MaintenanceEvents.FaultyComponents(ctx, "", 10)
		require.NoError(t, err)
		assert.Len(t, faults, 2)

		dest, err := s.Flights.LatestDestinations(ctx, 1)
		require.NoError(t, err)
		require.Len(t, dest, 1)
		assert.Equal(t, "FL-3", dest[0].From.FlightID)
	})
}

func TestIntegration_BadPassword(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	m := startNeo4j(t, ctx)
	cfg := graphdb.DefaultConfig()
	cfg.URI = m.Config().URI
	cfg.Password = "wrong"
	bad := graphdb.NewManager(cfg)
	err := bad.Open(ctx)
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.Equal(t, graphdb.Disconnected, bad.State())
}
