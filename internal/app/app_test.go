package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		StoreDriver:    "memory",
		JWTSecret:      "test_jwt_secret",
		JWTTTL:         time.Hour,
		BcryptCost:     4,
		UploadDir:      t.TempDir(),
		UploadBaseURL:  "/uploads",
		UploadMaxBytes: 1 << 20,
	}
}

func get(t *testing.T, healthCheck func(context.Context) error, path string) (int, map[string]any) {
	t.Helper()
	cfg := testConfig(t)
	store := repositories.NewMemoryStore()
	images, err := NewLocalImageStore(cfg)
	require.NoError(t, err)

	app := New(cfg, NewServices(cfg, store, images, nil, zap.NewNop()), healthCheck, zap.NewNop())
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func TestHealthReportsStore(t *testing.T) {
	status, body := get(t, repositories.NewMemoryStore().Ping, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["store"])
}

func TestHealthDegradedWhenStoreDown(t *testing.T) {
	down := func(context.Context) error { return errors.New("connection refused") }
	status, body := get(t, down, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
	assert.Contains(t, body["error"], "connection refused")
}

func TestUnknownRouteIsJSON(t *testing.T) {
	status, body := get(t, nil, "/api/v1/nowhere")
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["message"])
}
