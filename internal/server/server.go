package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apperrors "bitor-console/internal/errors"
	"bitor-console/internal/settings"
	"bitor-console/internal/types"
)

const maxBodySize = 64 << 10

// ScanSource looks up scan progress on the backend
type ScanSource interface {
	GetScanProgress(ctx context.Context, scanID string) (*types.ScanProgress, error)
}

// Options holds the server's dependencies. Stream and Scans are optional.
type Options struct {
	Settings *settings.Store
	Stream   http.Handler
	Scans    ScanSource
	Logger   *slog.Logger
}

type handler struct {
	settings *settings.Store
	scans    ScanSource
	logger   *slog.Logger
}

type healthResponse struct {
	Status    string `json:"status"`
	Settings  bool   `json:"settingsLoaded"`
	Timestamp string `json:"timestamp"`
}

// NewRouter builds the console HTTP API
func NewRouter(opts Options) http.Handler {
	h := &handler{
		settings: opts.Settings,
		scans:    opts.Scans,
		logger:   opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/api/health", h.health)

	r.Route("/api/settings", func(r chi.Router) {
		r.Get("/", h.getSettings)
		r.Put("/", h.putSettings)
		r.Patch("/", h.patchSettings)
		r.Delete("/", h.deleteSettings)
		if opts.Stream != nil {
			r.Method(http.MethodGet, "/stream", opts.Stream)
		}
	})

	if opts.Scans != nil {
		r.Get("/api/scans/{id}/progress", h.scanProgress)
	}

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.OK(healthResponse{
		Status:    "healthy",
		Settings:  h.settings.Loaded(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}))
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	writeSettings(w, h.settings.Get())
}

func (h *handler) putSettings(w http.ResponseWriter, r *http.Request) {
	s, err := decodeSettings(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.settings.Set(s)
	writeSettings(w, h.settings.Get())
}

func (h *handler) patchSettings(w http.ResponseWriter, r *http.Request) {
	patch, err := decodeSettings(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.settings.Update(func(cur *types.AppSettings) *types.AppSettings {
		return cur.Merge(patch)
	})
	writeSettings(w, h.settings.Get())
}

func (h *handler) deleteSettings(w http.ResponseWriter, r *http.Request) {
	h.settings.Reset()
	writeSettings(w, nil)
}

func (h *handler) scanProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.scans.GetScanProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.OK(*progress))
}

func decodeSettings(w http.ResponseWriter, r *http.Request) (*types.AppSettings, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	var s *types.AppSettings
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidBody, err)
	}
	// The body must be exactly one JSON document.
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after settings", apperrors.ErrInvalidBody)
	}
	// Only the JSON shape is checked; values are stored as sent.
	if s == nil {
		return nil, apperrors.ErrInvalidBody
	}
	return s, nil
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, status, types.Failure[struct{}](err))
}

func writeSettings(w http.ResponseWriter, s *types.AppSettings) {
	resp := types.ApiResponse[types.AppSettings]{Success: true, Data: s}
	if s == nil {
		resp.Message = "settings not loaded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
