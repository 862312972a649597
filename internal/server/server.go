// Package server exposes the resolved block list and stats panel over HTTP,
// next to the Prometheus metrics and a health check.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/logx"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

const shutdownTimeout = 5 * time.Second

// Snapshotter hands out the latest fetch snapshots. Blocks reports false for
// a list that is not kept.
type Snapshotter interface {
	Blocks(typ types.BlockType) (types.Query[[]types.Block], bool)
	Stats() types.Query[types.HomepageStats]
}

type Server struct {
	snap     Snapshotter
	renderer *Renderer
	gatherer prometheus.Gatherer
	mux      *http.ServeMux
}

func New(snap Snapshotter, renderer *Renderer, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		snap:     snap,
		renderer: renderer,
		gatherer: gatherer,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("/api/blocks", s.handleBlocks)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("/health", healthCheckHandler)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info("📊 HTTP server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logx.Info("🛑 Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	typ, err := types.ParseBlockType(r.URL.Query().Get("type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q, ok := s.snap.Blocks(typ)
	if !ok {
		http.Error(w, "block type "+string(typ)+" is not polled", http.StatusNotFound)
		return
	}
	writeJSON(w, s.renderer.Blocks(q))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.renderer.Stats(s.snap.Stats()))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error("❌ Error encoding response: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
