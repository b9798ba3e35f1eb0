// internal/server/handler.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"triage/internal/diagnosis"
	"triage/internal/docker"
	"triage/internal/flow"
	"triage/internal/store"
	"triage/internal/sweep"
)

// ContainerSource is what the API needs from the container runtime side:
// sweepable plus single-subject diagnosis.
type ContainerSource interface {
	sweep.Source
	Diagnose(ctx context.Context, name string, reg *diagnosis.Registry) (diagnosis.Report, error)
}

// ExecutionSource is the workflow engine side.
type ExecutionSource interface {
	Diagnose(ctx context.Context, id string) (flow.Execution, diagnosis.Detail, string, error)
}

// Handler routes the diagnosis API.
type Handler struct {
	db              *store.DB
	reg             *diagnosis.Registry
	containers      ContainerSource
	executions      ExecutionSource
	apiKey          string
	maxPayloadBytes int64
	workers         int
	sweepTimeout    time.Duration
}

// NewHandler wires the API. containers and executions may be nil when the
// corresponding collaborator is not configured; their endpoints then return
// 503.
func NewHandler(db *store.DB, reg *diagnosis.Registry, containers ContainerSource, executions ExecutionSource,
	apiKey string, maxPayloadBytes int64, workers int, sweepTimeout time.Duration) *Handler {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = 1 << 20
	}
	return &Handler{
		db:              db,
		reg:             reg,
		containers:      containers,
		executions:      executions,
		apiKey:          apiKey,
		maxPayloadBytes: maxPayloadBytes,
		workers:         workers,
		sweepTimeout:    sweepTimeout,
	}
}

// Mux returns the routed handler.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /api/classify", h.auth(h.handleClassify))
	mux.HandleFunc("GET /api/containers/{name}/diagnosis", h.auth(h.handleContainerDiagnosis))
	mux.HandleFunc("GET /api/executions/{id}/diagnosis", h.auth(h.handleExecutionDiagnosis))
	mux.HandleFunc("GET /api/sweep", h.auth(h.handleSweep))
	mux.HandleFunc("GET /api/reports", h.auth(h.handleReports))
	return mux
}

func (h *Handler) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != h.apiKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// classifyRequest is raw material pushed by a caller that already holds the
// logs (CI jobs, remote agents).
type classifyRequest struct {
	Subject diagnosis.Subject `json:"subject"`
	Text    string            `json:"text"`
}

func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxPayloadBytes {
		http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxPayloadBytes+1))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > h.maxPayloadBytes {
		http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
		return
	}

	var req classifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	report := diagnosis.BuildReport(req.Subject, h.reg.Classify(req.Text), req.Text)

	if err := h.db.InsertReport("", report); err != nil {
		log.Printf("DB error storing classify report: %v", err)
	}

	writeJSON(w, report)
}

func (h *Handler) handleContainerDiagnosis(w http.ResponseWriter, r *http.Request) {
	if h.containers == nil {
		http.Error(w, "container runtime not configured", http.StatusServiceUnavailable)
		return
	}

	name := r.PathValue("name")
	report, err := h.containers.Diagnose(r.Context(), name, h.reg)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, docker.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}

	if err := h.db.InsertReport("", report); err != nil {
		log.Printf("DB error storing report for %s: %v", name, err)
	}

	writeJSON(w, report)
}

func (h *Handler) handleExecutionDiagnosis(w http.ResponseWriter, r *http.Request) {
	if h.executions == nil {
		http.Error(w, "workflow engine not configured", http.StatusServiceUnavailable)
		return
	}

	id := r.PathValue("id")
	exec, detail, recommendation, err := h.executions.Diagnose(r.Context(), id)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, flow.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"execution_id": exec.ID.String(),
		"workflow": map[string]interface{}{
			"workflow_id":   exec.WorkflowID.String(),
			"workflow_name": exec.WorkflowData.Name,
			"status":        exec.Status,
			"mode":          exec.Mode,
			"started_at":    exec.StartedAt,
			"finished_at":   exec.StoppedAt,
		},
		"diagnosis":      detail,
		"recommendation": recommendation,
	})
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	if h.containers == nil {
		http.Error(w, "container runtime not configured", http.StatusServiceUnavailable)
		return
	}

	sweeper := sweep.New(h.containers, h.reg, h.workers, h.sweepTimeout)
	report, err := sweeper.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	for _, entry := range report.Subjects {
		if err := h.db.InsertReport(report.SweepID, entry.Report); err != nil {
			log.Printf("DB error storing sweep report for %s: %v", entry.Subject.Name, err)
		}
	}

	writeJSON(w, report)
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var (
		reports []store.StoredReport
		err     error
	)
	if subject := r.URL.Query().Get("subject"); subject != "" {
		reports, err = h.db.ReportsBySubject(subject, limit)
	} else {
		reports, err = h.db.RecentReports(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"count":   len(reports),
		"reports": reports,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Response encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
