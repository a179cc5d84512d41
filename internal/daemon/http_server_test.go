package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/worldhost/internal/config"
	"git.home.luguber.info/inful/worldhost/internal/world"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		DataDir: dir,
		Storage: config.StorageConfig{
			WorldsDir:  filepath.Join(dir, "worlds-storage"),
			ArchiveDir: filepath.Join(dir, "archive"),
		},
		Economy:   config.EconomyConfig{CreationCost: 100, ExpansionCosts: []int{50, 100}},
		Stats:     config.StatsConfig{StartPoints: 100, StartSlots: 1, Language: "en"},
		Sessions:  config.SessionsConfig{InviteTTL: "60s", MeetTTL: "30s"},
		Lifecycle: config.LifecycleConfig{ArchiveDelay: "0s"},
		Spotlight: config.SpotlightConfig{Capacity: 5},
		HTTP:      config.HTTPConfig{Addr: "127.0.0.1:0"},
		Events:    config.EventsConfig{SQLitePath: ":memory:"},
	}

	d, err := New(cfg, filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.NoError(t, d.loadRepositories())
	t.Cleanup(func() { _ = d.events.Close() })
	return d
}

func doRequest(t *testing.T, d *Daemon, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	d.httpServer.routes().ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthAndStatusEndpoints(t *testing.T) {
	d := newTestDaemon(t)

	rec, body := doRequest(t, d, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(StatusStarting), body["status"])

	rec, body = doRequest(t, d, http.MethodGet, "/api/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["worlds"])
}

func TestWorldEndpoints(t *testing.T) {
	d := newTestDaemon(t)
	id := "11111111-1111-1111-1111-111111111111"
	require.NoError(t, d.worlds.Save(&world.Record{
		UUID:         id,
		Name:         "alpha",
		Owner:        "owner-1",
		PublishLevel: world.PublishPublic,
	}))

	rec, body := doRequest(t, d, http.MethodGet, "/api/worlds")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["worlds"], 1)

	rec, body = doRequest(t, d, http.MethodGet, "/api/worlds/"+id)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alpha", body["name"])
	assert.Equal(t, "world."+id, body["directory"])

	rec, _ = doRequest(t, d, http.MethodGet, "/api/worlds/99999999-9999-9999-9999-999999999999")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = doRequest(t, d, http.MethodGet, "/api/worlds/"+id+"/portals")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["portals"])
}

func TestArchiveAndReloadTriggers(t *testing.T) {
	d := newTestDaemon(t)

	rec, body := doRequest(t, d, http.MethodPost, "/api/archive-expired")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["total"])

	rec, _ = doRequest(t, d, http.MethodPost, "/api/reload")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, d, http.MethodPost, "/api/migrate")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "migrate requires a dir parameter")
}

func TestMetricsEndpoint(t *testing.T) {
	d := newTestDaemon(t)
	rec := httptest.NewRecorder()
	d.httpServer.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateConfigChangeRejectsDataDirMove(t *testing.T) {
	d := newTestDaemon(t)
	cw := &ConfigWatcher{daemon: d}

	moved := *d.GetConfig()
	moved.DataDir = "/somewhere/else"
	assert.Error(t, cw.validateConfigChange(&moved))

	same := *d.GetConfig()
	assert.NoError(t, cw.validateConfigChange(&same))
}
