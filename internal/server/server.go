// Package server is the HTTP and WebSocket shell around the playback engine:
// presentation listing, deck detail, audio asset serving, health and metrics
// endpoints, and one live playback session per WebSocket connection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/narradeck/narradeck/internal/config"
	"github.com/narradeck/narradeck/internal/deck"
	"github.com/narradeck/narradeck/internal/health"
	"github.com/narradeck/narradeck/internal/observe"
	"github.com/narradeck/narradeck/internal/record"
	"github.com/narradeck/narradeck/internal/timing"
	"github.com/narradeck/narradeck/pkg/audio"
)

// shutdownTimeout bounds graceful HTTP shutdown once the run context ends.
const shutdownTimeout = 10 * time.Second

// Server serves the narradeck HTTP API and WebSocket playback sessions.
type Server struct {
	cfg      config.ServerConfig
	registry *deck.Registry
	loader   audio.Loader
	store    record.Store
	metrics  *observe.Metrics
	audioDir string

	// timingDefaults supplies the current server-wide delay overrides; it
	// is consulted once per session so config edits reach new sessions.
	// Nil means built-in defaults only.
	timingDefaults func() *timing.Config

	httpSrv *http.Server
}

// New assembles a Server from its dependencies. The record store may be nil,
// in which case measured runtimes are neither persisted nor listed. A nil
// timingDefaults leaves the per-deck delay hierarchy on built-in defaults.
func New(cfg config.ServerConfig, registry *deck.Registry, loader audio.Loader, store record.Store, metrics *observe.Metrics, audioDir string, timingDefaults func() *timing.Config) *Server {
	s := &Server{
		cfg:            cfg,
		registry:       registry,
		loader:         observe.InstrumentLoader(loader, metrics),
		store:          store,
		metrics:        metrics,
		audioDir:       audioDir,
		timingDefaults: timingDefaults,
	}

	mux := http.NewServeMux()

	h := health.New([]health.Checker{
		{Name: "presentations", Check: s.checkRegistry},
		{Name: "records", Check: s.checkStore},
	})
	h.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/presentations", s.handleList)
	mux.HandleFunc("GET /api/presentations/{id}", s.handleDetail)
	mux.Handle("GET /audio/", http.StripPrefix("/audio/", http.FileServer(http.Dir(audioDir))))
	mux.HandleFunc("GET /ws/{id}", s.handleSession)

	s.httpSrv = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: observe.Middleware(metrics)(mux),
	}
	return s
}

// Handler returns the assembled HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server listening", "addr", s.cfg.ListenAddr, "tls", s.cfg.TLS != nil)
		var err error
		if s.cfg.TLS != nil {
			err = s.httpSrv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ─── readiness checks ────────────────────────────────────────────────────────

func (s *Server) checkRegistry(_ context.Context) error {
	if s.registry.Len() == 0 {
		return errors.New("no presentations loaded")
	}
	return nil
}

func (s *Server) checkStore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	// Any non-storage error (including not-found) means the store answers.
	_, err := s.store.Load(ctx, "readyz-probe")
	if err != nil && !errors.Is(err, record.ErrNotFound) {
		return err
	}
	return nil
}

// ─── REST handlers ───────────────────────────────────────────────────────────

// handleList returns the presentation summaries. Persisted runtime records
// are validated against the current planned total here: a stale record is
// deleted and reported as absent, never shown.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	summaries := s.registry.List()
	out := make([]PresentationSummary, 0, len(summaries))

	for _, sum := range summaries {
		ps := PresentationSummary{
			ID:           sum.Meta.ID,
			Title:        sum.Meta.Title,
			Description:  sum.Meta.Description,
			Author:       sum.Meta.Author,
			SlideCount:   sum.SlideCount,
			SegmentCount: sum.SegmentCount,
			PlannedTotal: sum.PlannedTotal,
		}
		ps.MeasuredRuntime = s.measuredRuntime(r.Context(), sum.Meta.ID, sum.PlannedTotal)
		out = append(out, ps)
	}

	writeJSON(w, http.StatusOK, out)
}

// measuredRuntime loads and validates the runtime record for a presentation,
// deleting it when the deck content has changed since the measurement.
func (s *Server) measuredRuntime(ctx context.Context, id string, plannedTotal float64) *float64 {
	if s.store == nil {
		return nil
	}
	rec, err := s.store.Load(ctx, id)
	if errors.Is(err, record.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.Warn("failed to load runtime record", "presentation", id, "error", err)
		return nil
	}
	if record.Stale(rec, plannedTotal) {
		slog.Info("discarding stale runtime record",
			"presentation", id, "recorded", rec.PlannedTotal, "planned", plannedTotal)
		if err := s.store.Delete(ctx, id); err != nil {
			slog.Warn("failed to delete stale runtime record", "presentation", id, "error", err)
		}
		return nil
	}
	return &rec.Elapsed
}

// detailResponse is the deck detail payload: the full slide list plus the
// duration breakdown used by the start screen.
type detailResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Author      string              `json:"author,omitempty"`
	Slides      []slideDetail       `json:"slides"`
	Duration    deck.DurationReport `json:"duration"`
}

type slideDetail struct {
	Chapter  int                 `json:"chapter"`
	Slide    int                 `json:"slide"`
	Title    string              `json:"title,omitempty"`
	Segments []deck.AudioSegment `json:"segments"`
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, report, ok := s.registry.Get(id)
	if !ok {
		http.Error(w, "presentation not found", http.StatusNotFound)
		return
	}

	resp := detailResponse{
		ID:          d.Meta.ID,
		Title:       d.Meta.Title,
		Description: d.Meta.Description,
		Author:      d.Meta.Author,
		Duration:    report,
		Slides:      make([]slideDetail, 0, len(d.Slides)),
	}
	for i := range d.Slides {
		sl := &d.Slides[i]
		resp.Slides = append(resp.Slides, slideDetail{
			Chapter:  sl.Chapter,
			Slide:    sl.Number,
			Title:    sl.Title,
			Segments: sl.Segments,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
