package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vitals.report/internal/fleet"
	"github.com/banshee-data/vitals.report/internal/monitoring"
)

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, ":5000", *listen)
	assert.Equal(t, "fleet.db", *dbPath)
}

func TestNewMuxServesPublicAndDebugRoutes(t *testing.T) {
	monitoring.SetLogger(nil)
	store, err := fleet.Open(filepath.Join(t.TempDir(), "fleet.db"))
	require.NoError(t, err)
	defer store.Close()

	mux := newMux(store)

	req := httptest.NewRequest(http.MethodPost, "/trigger", strings.NewReader(`{"plate":"ABC-1234"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/data/ABC-1234", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/debug/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tailsql")
}
