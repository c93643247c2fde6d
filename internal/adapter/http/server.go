// Package http exposes the scenario and ocean advisory pipelines over HTTP,
// including the SSE streaming transport for scenario turns.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danbi-studio/disaster-sim-service/internal/domain"
	"github.com/danbi-studio/disaster-sim-service/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ScenarioRunner drives one scenario turn, streaming or aggregate.
type ScenarioRunner interface {
	Run(ctx context.Context, req domain.ScenarioRequest, emit pipeline.EmitFunc) error
	Collect(ctx context.Context, req domain.ScenarioRequest) (pipeline.TurnResult, error)
}

// OceanService serves location-based tide lookups and safety guides.
type OceanService interface {
	Tide(ctx context.Context, q pipeline.OceanQuery) (pipeline.TideObservation, error)
	SafetyGuide(ctx context.Context, q pipeline.OceanQuery) (pipeline.GuideResult, error)
}

// Server exposes the API plus health, readiness, and metrics endpoints.
// ocean may be nil when no tide-data backend is configured; its routes then
// answer 503.
type Server struct {
	httpServer *http.Server
	scenario   ScenarioRunner
	ocean      OceanService
	modelName  string
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(addr string, scenario ScenarioRunner, ocean OceanService, ready ReadinessChecker, modelName string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: withCORS(mux),
			// No WriteTimeout: scenario streams stay open for the full
			// generation, bounded by the client and backend instead.
			ReadTimeout: 10 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		scenario:  scenario,
		ocean:     ocean,
		modelName: modelName,
		logger:    logger,
	}

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/query/stream", s.handleQueryStream)
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/ocean/tide", s.handleTide)
	mux.HandleFunc("GET /api/ocean/safety-guide", s.handleSafetyGuide)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// withCORS allows browser clients from any origin; the API carries no
// credentials.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "disaster scenario simulation API",
		"endpoints": map[string]string{
			"stream":       "/api/query/stream",
			"normal":       "/api/query",
			"tide":         "/api/ocean/tide",
			"safety_guide": "/api/ocean/safety-guide",
			"health":       "/healthz",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"model":  s.modelName,
	})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleQueryStream runs one scenario turn as a Server-Sent Events stream.
// Empty choice entries are not sent as events; aggregate consumers see them,
// streaming ones do not.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	if s.scenario == nil {
		writeError(w, http.StatusServiceUnavailable, "generation backend not configured")
		return
	}

	var req domain.ScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	err := s.scenario.Run(r.Context(), req, func(ev domain.ScenarioEvent) {
		writeSSEEvent(w, flusher, ev)
	})
	if err != nil {
		// already delivered to the client as an error event
		s.logger.Error("scenario stream failed", "error", err, "scenario", req.Scenario.Title)
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, ev domain.ScenarioEvent) {
	switch ev.Type {
	case domain.EventSituation:
		writeSSE(w, flusher, "situation", map[string]string{"content": ev.Content})
	case domain.EventChoice:
		if ev.Content == "" {
			return
		}
		writeSSE(w, flusher, fmt.Sprintf("choice%d", ev.Index), map[string]string{"content": ev.Content})
	case domain.EventSurvival:
		writeSSE(w, flusher, "survival_rate", ev.Survival)
	case domain.EventFeedback:
		writeSSE(w, flusher, "feedback", ev.Feedback)
	case domain.EventDone:
		writeSSE(w, flusher, "done", map[string]bool{"done": true})
	case domain.EventError:
		writeSSE(w, flusher, "error", map[string]string{"error": ev.Err.Error()})
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}

// queryResponse is the aggregate scenario turn, choices flattened the way
// streaming clients already name them.
type queryResponse struct {
	Situation      string                 `json:"situation"`
	Choice1        string                 `json:"choice1"`
	Choice2        string                 `json:"choice2"`
	Choice3        string                 `json:"choice3"`
	SurvivalRate   int                    `json:"survival_rate"`
	SurvivalChange string                 `json:"survival_change"`
	Model          string                 `json:"model"`
	Feedback       *domain.ChoiceFeedback `json:"feedback,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.scenario == nil {
		writeError(w, http.StatusServiceUnavailable, "generation backend not configured")
		return
	}

	var req domain.ScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.scenario.Collect(r.Context(), req)
	if err != nil {
		s.logger.Error("scenario query failed", "error", err, "scenario", req.Scenario.Title)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := queryResponse{
		Situation:      result.Situation,
		SurvivalRate:   result.Survival.Rate,
		SurvivalChange: result.Survival.Change,
		Model:          s.modelName,
		Feedback:       result.Feedback,
	}
	if len(result.Choices) > 0 {
		resp.Choice1 = result.Choices[0]
	}
	if len(result.Choices) > 1 {
		resp.Choice2 = result.Choices[1]
	}
	if len(result.Choices) > 2 {
		resp.Choice3 = result.Choices[2]
	}

	writeJSON(w, http.StatusOK, resp)
}

// tideResponse flattens the resolved station next to the raw series payload.
type tideResponse struct {
	ObsCode          string  `json:"obs_code"`
	ObsName          string  `json:"obs_name"`
	StationLatitude  float64 `json:"station_latitude"`
	StationLongitude float64 `json:"station_longitude"`
	DistanceKM       float64 `json:"distance_km"`
	Data             any     `json:"data"`
}

func (s *Server) handleTide(w http.ResponseWriter, r *http.Request) {
	if s.ocean == nil {
		writeError(w, http.StatusServiceUnavailable, "ocean data backend not configured")
		return
	}

	query, err := parseOceanQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obs, err := s.ocean.Tide(r.Context(), query)
	if err != nil {
		s.writeOceanError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tideResponse{
		ObsCode:          obs.Station.ObsCode,
		ObsName:          obs.Station.ObsName,
		StationLatitude:  obs.Station.Latitude,
		StationLongitude: obs.Station.Longitude,
		DistanceKM:       obs.Station.DistanceKM,
		Data:             obs.Data,
	})
}

// safetyGuideResponse is the generated guide plus its supporting data.
type safetyGuideResponse struct {
	domain.SafetyGuide
	OceanData   domain.TideSummary `json:"ocean_data"`
	StationInfo domain.StationInfo `json:"station_info"`
}

func (s *Server) handleSafetyGuide(w http.ResponseWriter, r *http.Request) {
	if s.ocean == nil {
		writeError(w, http.StatusServiceUnavailable, "ocean data backend not configured")
		return
	}

	query, err := parseOceanQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.ocean.SafetyGuide(r.Context(), query)
	if err != nil {
		s.writeOceanError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, safetyGuideResponse{
		SafetyGuide: result.Guide,
		OceanData:   result.Summary,
		StationInfo: result.Station,
	})
}

func parseOceanQuery(r *http.Request) (pipeline.OceanQuery, error) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("latitude"), 64)
	if err != nil {
		return pipeline.OceanQuery{}, errors.New("latitude is required and must be a number")
	}
	lon, err := strconv.ParseFloat(q.Get("longitude"), 64)
	if err != nil {
		return pipeline.OceanQuery{}, errors.New("longitude is required and must be a number")
	}

	return pipeline.OceanQuery{
		Latitude:    lat,
		Longitude:   lon,
		Date:        q.Get("date"),
		DataKind:    q.Get("data_type"),
		StationKind: q.Get("station_data_type"),
	}, nil
}

// writeOceanError maps the advisory error taxonomy to status codes: bad
// station queries are the caller's fault, upstream fetch failures are a bad
// gateway, generation failures are internal.
func (s *Server) writeOceanError(w http.ResponseWriter, err error) {
	var fetchErr *domain.StationFetchError
	var genErr *domain.GenerationError

	switch {
	case errors.Is(err, domain.ErrNoStationFound), errors.Is(err, domain.ErrNoCoordinateData):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &fetchErr):
		s.logger.Error("ocean data fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "ocean data backend error: "+err.Error())
	case errors.As(err, &genErr):
		s.logger.Error("safety guide generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.logger.Error("ocean request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
