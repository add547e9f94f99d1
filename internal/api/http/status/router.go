package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/oshokin/outage-watch/internal/domain/outage"
	"github.com/oshokin/outage-watch/internal/logger"
	repo "github.com/oshokin/outage-watch/internal/repository/state"
)

// Store reads the persisted state.
type Store interface {
	LoadHistory(ctx context.Context) (outage.History, error)
	LoadRendered(ctx context.Context) (outage.Rendered, error)
}

// Health reports the watcher liveness.
type Health interface {
	Healthy() bool
	LastReport() *outage.CycleReport
}

// Window query values.
const (
	windowDay = "24h"
	windowAll = "all"
)

// handler holds the route dependencies.
type handler struct {
	store  Store
	health Health
	now    func() time.Time
}

// NewRouter builds the API. metrics may be nil.
func NewRouter(store Store, health Health, metrics http.Handler, now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}

	h := &handler{
		store:  store,
		health: health,
		now:    now,
	}

	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/history/{address}", h.history).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/rendered", h.rendered).Methods(http.MethodGet)

	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	logged := handlers.CustomLoggingHandler(io.Discard, r, logRequest)

	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(logged)
}

// healthResponse is the body of /healthz.
type healthResponse struct {
	Status    string       `json:"status"`
	LastCycle *cycleReport `json:"last_cycle,omitempty"`
}

// cycleReport is the JSON view of a cycle report.
type cycleReport struct {
	CycleID   string    `json:"cycle_id"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Rows      int       `json:"rows"`
	Appended  int       `json:"appended"`
	Notified  int       `json:"notified"`
	Failed    int       `json:"failed"`
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	response := healthResponse{Status: "serving"}
	code := http.StatusOK

	if !h.health.Healthy() {
		response.Status = "not_serving"
		code = http.StatusServiceUnavailable
	}

	if report := h.health.LastReport(); report != nil {
		response.LastCycle = &cycleReport{
			CycleID:   report.CycleID,
			StartedAt: report.StartedAt,
			Duration:  report.Duration.String(),
			Rows:      report.Rows,
			Appended:  report.Appended,
			Notified:  report.Notified,
			Failed:    report.Failed,
		}
	}

	writeJSON(w, code, response)
}

// historyResponse is the body of /api/v1/history/{address}.
type historyResponse struct {
	Address string         `json:"address"`
	Window  string         `json:"window"`
	Events  []outage.Event `json:"events"`
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	window := r.URL.Query().Get("window")
	if window == "" {
		window = windowDay
	}

	if window != windowDay && window != windowAll {
		writeError(w, http.StatusBadRequest, "window must be 24h or all")

		return
	}

	history, err := h.store.LoadHistory(r.Context())
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		logger.ErrorKV(r.Context(), "Unable to load history", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to load history")

		return
	}

	if _, ok := history[address]; !ok {
		writeError(w, http.StatusNotFound, "address is not known")

		return
	}

	events := history.Events(address)
	if window == windowDay {
		events = outage.Recent(events, h.now(), outage.VisualizationSpan)
	}

	if events == nil {
		events = []outage.Event{}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Address: address,
		Window:  window,
		Events:  events,
	})
}

func (h *handler) rendered(w http.ResponseWriter, r *http.Request) {
	rendered, err := h.store.LoadRendered(r.Context())
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		logger.ErrorKV(r.Context(), "Unable to load rendered state", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to load rendered state")

		return
	}

	if rendered == nil {
		rendered = outage.NewRendered()
	}

	writeJSON(w, http.StatusOK, rendered)
}

// writeJSON encodes body with the status code.
func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(body)
}

// writeError sends {"error": message}.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// logRequest sends access logs to the application logger.
func logRequest(_ io.Writer, params handlers.LogFormatterParams) {
	logger.DebugKV(params.Request.Context(), "HTTP request",
		"method", params.Request.Method,
		"path", params.URL.Path,
		"status", params.StatusCode,
		"size", params.Size)
}
