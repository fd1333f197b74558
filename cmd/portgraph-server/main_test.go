package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/portgraph/internal/config"
	"github.com/flowgraph/portgraph/internal/logging"
	"github.com/flowgraph/portgraph/pkg/prebuilt"
)

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.StoreConfig{Driver: config.DriverMemory, MaxMemoryMB: 1}},
		{name: "sqlite", cfg: config.StoreConfig{Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "models.db")}},
		{name: "redis", cfg: config.StoreConfig{Driver: config.DriverRedis, RedisAddr: mr.Addr(), TTL: time.Hour}},
		{name: "unknown", cfg: config.StoreConfig{Driver: "etcd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st, closeStore, err := openStore(ctx, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeStore()) }()

			cfg := config.Default()
			svc, _, err := newModelService(cfg, st, logging.NewNop())
			require.NoError(t, err)

			m, err := prebuilt.Chain(prebuilt.ChainConfig{Size: 2, Operations: []string{"abs"}})
			require.NoError(t, err)
			rec, err := svc.Save(ctx, "chain", m)
			require.NoError(t, err)
			loaded, _, err := svc.Load(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, m.Len(), loaded.Len())
		})
	}
}

func newTestRouter(t *testing.T) (http.Handler, *workload) {
	t.Helper()
	cfg := config.Default()
	st, closeStore, err := openStore(context.Background(), cfg.Store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeStore() })

	svc, m, err := newModelService(cfg, st, logging.NewNop())
	require.NoError(t, err)
	wl := newWorkload(svc, logging.NewNop())
	t.Cleanup(wl.Stop)
	return newRouter(cfg, svc, m, wl, logging.NewNop()), wl
}

func TestRouter(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/models", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/workload", http.StatusOK},
		{http.MethodGet, "/debug/pprof/", http.StatusOK},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestWorkload(t *testing.T) {
	h, wl := newTestRouter(t)

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/workload/start?prebuilt=lattice").Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/workload/start?rate_ms=fast").Code)

	require.Equal(t, http.StatusAccepted, do(http.MethodPost, "/workload/start?rate_ms=5").Code)
	assert.Equal(t, http.StatusConflict, do(http.MethodPost, "/workload/start").Code)

	require.Eventually(t, func() bool { return wl.cycles.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/workload/stop").Code)

	var status workloadStatus
	require.NoError(t, json.NewDecoder(do(http.MethodGet, "/workload").Body).Decode(&status))
	assert.False(t, status.Running)
	assert.Zero(t, status.Errors)
	assert.GreaterOrEqual(t, status.Cycles, int64(3))

	metrics := do(http.MethodGet, "/metrics").Body.String()
	assert.True(t, strings.Contains(metrics, "portgraph_model_saves_total"))

	// cycles delete what they save
	body := do(http.MethodGet, "/models").Body.String()
	assert.NotContains(t, body, "workload-random")
}
