package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tracebench/internal/aggregator"
	"tracebench/internal/metrics"
	"tracebench/internal/models"
	"tracebench/internal/orchestrator"
)

// Handler holds the server dependencies
type Handler struct {
	orchestrator  *orchestrator.Orchestrator
	recorder      *metrics.Recorder
	defaultWindow *models.Window
	logger        *slog.Logger
}

// NewHandler creates a new handler. defaultWindow applies when a request does not name one.
func NewHandler(orch *orchestrator.Orchestrator, rec *metrics.Recorder, defaultWindow *models.Window, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		orchestrator:  orch,
		recorder:      rec,
		defaultWindow: defaultWindow,
		logger:        logger,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/datasets", h.HandleDatasets)
	r.Get("/datasets/{name}/summary", h.HandleSummary)
	r.Get("/compare", h.HandleCompare)
	if h.recorder != nil {
		r.Method(http.MethodGet, "/metrics", h.recorder.Handler())
	}
}

// HandleHealth returns health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type datasetView struct {
	Name  string   `json:"name"`
	Rate  int      `json:"rate"`
	Files []string `json:"files"`
}

// HandleDatasets lists the configured datasets.
func (h *Handler) HandleDatasets(w http.ResponseWriter, r *http.Request) {
	datasets := h.orchestrator.Datasets()
	out := make([]datasetView, 0, len(datasets))
	for _, d := range datasets {
		out = append(out, datasetView{Name: d.Name, Rate: d.Rate, Files: d.Files})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSummary recomputes the summary of one dataset.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	window, err := h.windowFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := chi.URLParam(r, "name")
	res, err := h.orchestrator.RunDataset(r.Context(), name, window)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrUnknownDataset):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, aggregator.ErrNoData):
			if h.recorder != nil {
				h.recorder.Forget(name)
			}
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("Failed to compute summary", "dataset", name, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to compute summary")
		}
		return
	}

	if h.recorder != nil {
		h.recorder.Observe(res.Name, *res.Summary)
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleCompare recomputes the summaries of every dataset.
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	window, err := h.windowFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.orchestrator.Compare(r.Context(), window)
	if err != nil {
		h.logger.Error("Failed to compare datasets", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compare datasets")
		return
	}

	if h.recorder != nil {
		for _, res := range results {
			if res.Summary != nil {
				h.recorder.Observe(res.Name, *res.Summary)
			} else {
				h.recorder.Forget(res.Name)
			}
		}
	}
	writeJSON(w, http.StatusOK, results)
}

// windowFrom reads ?window=<duration> or ?window_minutes=<float>, falling back to the default.
// window=none disables the default window.
func (h *Handler) windowFrom(r *http.Request) (*models.Window, error) {
	q := r.URL.Query()
	if v := q.Get("window"); v != "" {
		if v == "none" {
			return nil, nil
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, errors.New("invalid window: expected a non-negative duration such as 30m")
		}
		return &models.Window{Length: d}, nil
	}
	if v := q.Get("window_minutes"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil || m < 0 || math.IsNaN(m) {
			return nil, errors.New("invalid window_minutes: expected a non-negative number")
		}
		return models.WindowMinutes(m), nil
	}
	return h.defaultWindow, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
