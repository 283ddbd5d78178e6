// Package http serves operational endpoints and the read-only reporting API
// over the warehouse.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"playlistpulse/internal/core"
	"playlistpulse/internal/warehouse"
)

// Reporter is the warehouse read surface backing the reporting API.
type Reporter interface {
	Playlists(ctx context.Context) ([]warehouse.PlaylistInfo, error)
	Labels(ctx context.Context) ([]string, error)
	LabelPlacements(ctx context.Context, playlistKey int64, from, to string) ([]warehouse.LabelPlacement, error)
	PopularityHistory(ctx context.Context, trackKey, artistKey int64) ([]warehouse.PopularityPoint, error)
}

type Server struct {
	config   *core.ServerConfig
	logger   *zap.Logger
	server   *http.Server
	reporter Reporter
	metrics  *Metrics
}

type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	RowsInserted    *prometheus.CounterVec
	DuplicatesTotal *prometheus.CounterVec
}

func NewServer(config *core.ServerConfig, reporter Reporter, logger *zap.Logger) *Server {
	metrics := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playlistpulse_runs_total",
				Help: "Total number of warehouse runs by outcome",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "playlistpulse_run_duration_seconds",
				Help:    "Wall-clock duration of warehouse runs",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		RowsInserted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playlistpulse_rows_inserted_total",
				Help: "Total number of rows inserted per warehouse table",
			},
			[]string{"table"},
		),
		DuplicatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playlistpulse_duplicate_rows_total",
				Help: "Total number of dimension rows skipped as duplicates",
			},
			[]string{"table"},
		),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.RunsTotal,
		metrics.RunDuration,
		metrics.RowsInserted,
		metrics.DuplicatesTotal,
	)

	s := &Server{
		config:   config,
		logger:   logger,
		reporter: reporter,
		metrics:  metrics,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "playlistpulse"})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "playlistpulse"})
	})

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/playlists", s.handlePlaylists)
	mux.HandleFunc("/api/labels", s.handleLabels)
	mux.HandleFunc("/api/placements", s.handlePlacements)
	mux.HandleFunc("/api/popularity", s.handlePopularity)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.reporter.Playlists(r.Context())
	if err != nil {
		s.writeError(w, "playlist query failed", err)
		return
	}
	if playlists == nil {
		playlists = []warehouse.PlaylistInfo{}
	}

	s.writeJSON(w, http.StatusOK, playlists)
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.reporter.Labels(r.Context())
	if err != nil {
		s.writeError(w, "label query failed", err)
		return
	}
	if labels == nil {
		labels = []string{}
	}

	s.writeJSON(w, http.StatusOK, labels)
}

func (s *Server) handlePlacements(w http.ResponseWriter, r *http.Request) {
	playlistKey, err := queryKey(r, "playlist")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	from, err := queryDate(r, "from")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	placements, err := s.reporter.LabelPlacements(r.Context(), playlistKey, from, to)
	if err != nil {
		s.writeError(w, "placement query failed", err)
		return
	}
	if placements == nil {
		placements = []warehouse.LabelPlacement{}
	}

	s.writeJSON(w, http.StatusOK, placements)
}

func (s *Server) handlePopularity(w http.ResponseWriter, r *http.Request) {
	trackKey, err := queryKey(r, "track")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	artistKey, err := queryKey(r, "artist")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	history, err := s.reporter.PopularityHistory(r.Context(), trackKey, artistKey)
	if err != nil {
		s.writeError(w, "popularity query failed", err)
		return
	}
	if history == nil {
		history = []warehouse.PopularityPoint{}
	}

	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

func queryKey(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing query parameter %q", name)
	}

	key, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid query parameter %q: %v", name, err)
	}

	return key, nil
}

func queryDate(r *http.Request, name string) (string, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return "", fmt.Errorf("missing query parameter %q", name)
	}
	if _, err := time.Parse("2006-01-02", raw); err != nil {
		return "", fmt.Errorf("invalid query parameter %q: %v", name, err)
	}

	return raw, nil
}

func (s *Server) RecordRun(status string) {
	s.metrics.RunsTotal.WithLabelValues(status).Inc()
}

func (s *Server) RecordRunDuration(d time.Duration) {
	s.metrics.RunDuration.Observe(d.Seconds())
}

func (s *Server) RecordRowsInserted(table string, n int) {
	s.metrics.RowsInserted.WithLabelValues(table).Add(float64(n))
}

func (s *Server) RecordDuplicate(table string) {
	s.metrics.DuplicatesTotal.WithLabelValues(table).Inc()
}
