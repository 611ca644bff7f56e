package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tsukiblade/SimpleTaskManager/internal/config"
	"github.com/tsukiblade/SimpleTaskManager/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, seed bool) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		App:   config.AppConfig{Env: "test", Version: "1.2.3"},
		Store: config.StoreConfig{Driver: config.DriverMemory, Seed: seed},
	}
	a, err := New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNew_SeedsMemoryStore(t *testing.T) {
	a := newTestApp(t, true)

	rec := get(t, a.Router(), "/tasks/")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 5)
	assert.EqualValues(t, 1, list[0]["id"])
	assert.Equal(t, "Walk the dog", list[0]["title"])
}

func TestNew_WithoutSeed(t *testing.T) {
	a := newTestApp(t, false)

	rec := get(t, a.Router(), "/tasks/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServiceRoutes(t *testing.T) {
	a := newTestApp(t, true)

	rec := get(t, a.Router(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"env":"test"}`, rec.Body.String())

	rec = get(t, a.Router(), "/version")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"version":"1.2.3"}`, rec.Body.String())

	rec = get(t, a.Router(), "/swagger-doc.json")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc["paths"], "/tasks/{id}")

	rec = get(t, a.Router(), "/swagger")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/swagger/index.html", rec.Header().Get("Location"))
}

func TestRequestIDHeader(t *testing.T) {
	a := newTestApp(t, true)

	rec := get(t, a.Router(), "/health")
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(middleware.RequestIDHeader))
}
