package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowgraph/portgraph/internal/app/services"
	"github.com/flowgraph/portgraph/pkg/prebuilt"
)

// workload drives save/load/prune/delete cycles through the model service
// so that the metrics endpoint has something to show.
type workload struct {
	models *services.ModelService
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	cycles atomic.Int64
	errors atomic.Int64
}

func newWorkload(models *services.ModelService, logger *slog.Logger) *workload {
	return &workload{models: models, logger: logger}
}

type workloadStatus struct {
	Running bool  `json:"running"`
	Cycles  int64 `json:"cycles"`
	Errors  int64 `json:"errors"`
}

func (wl *workload) Status(w http.ResponseWriter, r *http.Request) {
	wl.mu.Lock()
	running := wl.cancel != nil
	wl.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(workloadStatus{
		Running: running,
		Cycles:  wl.cycles.Load(),
		Errors:  wl.errors.Load(),
	})
}

func (wl *workload) Start(w http.ResponseWriter, r *http.Request) {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	if wl.cancel != nil {
		http.Error(w, "model workload already running", http.StatusConflict)
		return
	}

	name := r.URL.Query().Get("prebuilt")
	if name == "" {
		name = prebuilt.RandomName
	}
	if _, ok := prebuilt.DefaultRegistry.Get(name); !ok {
		http.Error(w, fmt.Sprintf("unknown prebuilt %q", name), http.StatusBadRequest)
		return
	}
	rate := 200 * time.Millisecond
	if v := r.URL.Query().Get("rate_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			http.Error(w, "rate_ms must be a positive integer", http.StatusBadRequest)
			return
		}
		rate = time.Duration(ms) * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	wl.cancel = cancel
	wl.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		wl.loop(ctx, name, rate)
	}(wl.done)

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, "model workload started: prebuilt=%s rate=%v\n", name, rate)
}

func (wl *workload) StopHandler(w http.ResponseWriter, r *http.Request) {
	wl.Stop()
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "model workload stopped\n")
}

// Stop cancels a running workload and waits for its loop to exit.
func (wl *workload) Stop() {
	wl.mu.Lock()
	cancel, done := wl.cancel, wl.done
	wl.cancel, wl.done = nil, nil
	wl.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (wl *workload) loop(ctx context.Context, name string, rate time.Duration) {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()
	for seed := int64(1); ; seed++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wl.cycle(ctx, name, seed); err != nil {
				wl.errors.Add(1)
				wl.logger.Warn("workload cycle failed", "prebuilt", name, "error", err)
				continue
			}
			wl.cycles.Add(1)
		}
	}
}

func (wl *workload) cycle(ctx context.Context, name string, seed int64) error {
	var cfg any
	if name == prebuilt.RandomName {
		cfg = prebuilt.RandomConfig{Nodes: 16, Size: 8, Seed: seed}
	}
	m, err := prebuilt.DefaultRegistry.Build(ctx, name, cfg)
	if err != nil {
		return err
	}
	rec, err := wl.models.Save(ctx, "workload-"+name, m, "workload")
	if err != nil {
		return err
	}
	if _, _, err := wl.models.Load(ctx, rec.ID); err != nil {
		return err
	}
	if _, _, err := wl.models.Prune(ctx, rec.ID); err != nil {
		return err
	}
	return wl.models.Delete(ctx, rec.ID)
}
