package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefur/tempapp/internal/config"
	"github.com/stefur/tempapp/internal/db"
	"github.com/stefur/tempapp/internal/modules/temps/repository"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		AppEnv:       "dev",
		Driver:       "sqlite3",
		Path:         filepath.Join(t.TempDir(), "temps.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		Location:     time.UTC,
		HATimeout:    2 * time.Second,
		Sensors:      []string{"temperature_10", "temperature_13"},
	}
}

func haServer(t *testing.T, states map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entity := strings.TrimPrefix(r.URL.Path, "/api/states/sensor.")
		body, ok := states[entity]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMigrate_CreatesSchema(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Migrate(context.Background(), cfg))
	require.NoError(t, Migrate(context.Background(), cfg), "second run is a no-op")

	conn, err := db.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = repository.NewRepository(conn).GetLatestTime(context.Background())
	assert.ErrorIs(t, err, repository.ErrNoData)
}

func TestFetch_StoresBatch(t *testing.T) {
	srv := haServer(t, map[string]string{
		"temperature_10": `{"state":"20.46","attributes":{"friendly_name":"Våning 1"}}`,
		"temperature_13": `{"state":"22.1","attributes":{"friendly_name":"Våning 2"}}`,
	})
	cfg := testConfig(t)
	cfg.HABaseURL = srv.URL

	require.NoError(t, Fetch(context.Background(), cfg))

	conn, err := db.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	repo := repository.NewRepository(conn)

	floors, err := repo.GetFloors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Våning 1", "Våning 2"}, floors)

	latest, err := repo.GetLatestTime(context.Background())
	require.NoError(t, err)
	readings, err := repo.GetReadings(context.Background(), latest, latest.Add(time.Millisecond), "")
	require.NoError(t, err)
	require.Len(t, readings, 2, "both readings share one timestamp")
	assert.Equal(t, 20.5, readings[0].Temp)

	batch, err := repo.GetLastBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Readings)
}

func TestFetch_UnavailableSensorWritesNothing(t *testing.T) {
	srv := haServer(t, map[string]string{
		"temperature_10": `{"state":"20.4","attributes":{"friendly_name":"Våning 1"}}`,
		"temperature_13": `{"state":"unavailable","attributes":{"friendly_name":"Våning 2"}}`,
	})
	cfg := testConfig(t)
	cfg.HABaseURL = srv.URL

	err := Fetch(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temperature_13")

	conn, err := db.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_, err = repository.NewRepository(conn).GetLatestTime(context.Background())
	assert.ErrorIs(t, err, repository.ErrNoData)
}

func TestFetch_RequiresServer(t *testing.T) {
	cfg := testConfig(t)
	err := Fetch(context.Background(), cfg)
	assert.ErrorContains(t, err, "no home automation server configured")
}
