package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"clinical-scribe/internal/api/ws"
	"clinical-scribe/internal/app"
	"clinical-scribe/internal/extract"
	"clinical-scribe/internal/observability"
)

// NewRouter constructs the HTTP router for the scribe service.
func NewRouter(application *app.Application) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger())

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		ws.New(application).RegisterRoutes(r)
		r.Post("/notes/extract", extractHandler(application))
	})

	return r
}

type extractRequest struct {
	Transcript string `json:"transcript"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// extractHandler extracts a clinical note from a transcript submitted
// directly, without a recognition session.
func extractHandler(application *app.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
			return
		}
		if strings.TrimSpace(req.Transcript) == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "transcript is required"})
			return
		}

		note, err := application.Extractor.Extract(r.Context(), req.Transcript)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, note)
		case err == extract.ErrDisabled:
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		case r.Context().Err() == context.DeadlineExceeded:
			writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "extraction timed out"})
		default:
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
