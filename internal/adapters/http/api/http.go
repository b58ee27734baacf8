// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	app "github.com/okian/parrot/internal/app"
	"github.com/okian/parrot/internal/domain/model"
	"github.com/okian/parrot/internal/domain/types"
	"github.com/okian/parrot/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Assess scores one uploaded recording.
	Assess(ctx context.Context, sub app.Submission) (types.Assessment, error)

	Languages() []types.LanguageInfo
	SupportsLanguage(code string) bool

	// OpenAudio returns a stored recording or reference clip by id.
	OpenAudio(ctx context.Context, id string) (io.ReadSeekCloser, model.Object, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps           Dependencies
	logger         logger.Logger
	maxUploadBytes int64

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		maxUploadBytes: defaultMaxUploadBytes,
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", MetricsMiddleware(s.handleInfo, "root"))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /languages", MetricsMiddleware(s.handleLanguages, "languages"))
	mux.HandleFunc("POST /set_language", MetricsMiddleware(s.handleSetLanguage, "set_language"))
	mux.HandleFunc("POST /upload_audio", MetricsMiddleware(s.handleUploadAudio, "upload_audio"))
	mux.HandleFunc("GET /get_audio/{filename}", MetricsMiddleware(s.handleGetAudio, "get_audio"))
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

type infoResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Status:  statusSuccess,
		Message: "Pronunciation Coach API is running",
		Endpoints: map[string]string{
			"/upload_audio":         "POST - Upload and analyze audio",
			"/get_audio/<filename>": "GET - Retrieve audio file",
			"/set_language":         "POST - Validate a language for analysis",
			"/languages":            "GET - List supported languages",
			"/stats":                "GET - Service statistics",
			"/healthz":              "GET - Prometheus metrics",
		},
	})
}

type errorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Status: statusError, Code: code, Message: msg})
}
