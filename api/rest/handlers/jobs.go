package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"hypertuner/core/controller"
	"hypertuner/core/export"
	"hypertuner/core/models"
	"hypertuner/core/spec"
)

// JobHandler handles tuning-job HTTP requests
type JobHandler struct {
	manager *controller.Manager
	// baseCtx bounds controller lifetimes to the server, not a request
	baseCtx context.Context
}

// NewJobHandler creates a new job handler
func NewJobHandler(baseCtx context.Context, manager *controller.Manager) *JobHandler {
	return &JobHandler{manager: manager, baseCtx: baseCtx}
}

// SubmitJobRequest represents the request to submit a tuning job
type SubmitJobRequest struct {
	Name     string `json:"name"`
	SpecYAML string `json:"spec_yaml"`
}

// SubmitJobResponse represents the response after submitting a job
type SubmitJobResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitJob handles POST /v1/jobs
func (h *JobHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := spec.ParseTuningSpec(req.SpecYAML)
	if err != nil {
		http.Error(w, "Invalid tuning spec: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name != "" {
		job.Name = req.Name
	}

	c, err := h.manager.StartJob(h.baseCtx, job)
	if err != nil {
		http.Error(w, "Failed to start job: "+err.Error(), http.StatusBadRequest)
		return
	}

	started := c.Job()
	resp := SubmitJobResponse{
		ID:        started.ID,
		Status:    string(started.Status),
		CreatedAt: started.CreatedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// GetJob handles GET /v1/jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	job := c.Job()
	trials := c.Ledger()

	response := map[string]interface{}{
		"id":               job.ID,
		"name":             job.Name,
		"status":           job.Status,
		"strategy":         job.Strategy,
		"objective_metric": job.ObjectiveMetric,
		"direction":        job.Direction,
		"max_trials":       job.MaxTrials,
		"max_parallel":     job.MaxParallel,
		"exhausted":        job.Exhausted,
		"trials": map[string]interface{}{
			"total":     trials.Len(),
			"pending":   trials.CountStatus(models.TrialStatusPending),
			"running":   trials.CountStatus(models.TrialStatusRunning),
			"completed": trials.CountStatus(models.TrialStatusCompleted),
			"failed":    trials.CountStatus(models.TrialStatusFailed),
		},
		"timestamps": map[string]interface{}{
			"created_at":  job.CreatedAt,
			"finished_at": job.CompletedAt,
		},
	}

	if best := trials.Best(); best != nil {
		response["best"] = bestPayload(best)
	} else {
		response["best"] = nil
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListJobs handles GET /v1/jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	controllers := h.manager.List()

	items := make([]map[string]interface{}, 0, len(controllers))
	for _, c := range controllers {
		job := c.Job()
		items = append(items, map[string]interface{}{
			"id":         job.ID,
			"name":       job.Name,
			"status":     job.Status,
			"strategy":   job.Strategy,
			"max_trials": job.MaxTrials,
			"trials":     c.Ledger().Len(),
			"created_at": job.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// GetBest handles GET /v1/jobs/{id}/best
func (h *JobHandler) GetBest(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	// A job with no completed trials reports best = null, not an error
	response := map[string]interface{}{"best": nil}
	if best := c.Ledger().Best(); best != nil {
		response["best"] = bestPayload(best)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetResults handles GET /v1/jobs/{id}/results
func (h *JobHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	job := c.Job()
	trials := c.Ledger().Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items":   export.Table(trials, job.Direction),
		"summary": export.Summarize(trials),
	})
}

// GetJobEvents handles GET /v1/jobs/{id}/events
func (h *JobHandler) GetJobEvents(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	events := c.Events()
	items := make([]map[string]interface{}, len(events))
	for i, event := range events {
		item := map[string]interface{}{
			"at":        event.At,
			"to_status": event.ToStatus,
			"reason":    event.Reason,
		}
		if event.FromStatus != nil {
			item["from_status"] = *event.FromStatus
		}
		items[i] = item
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// StopJob handles POST /v1/jobs/{id}/stop
func (h *JobHandler) StopJob(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	c.Stop()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     c.Job().ID,
		"status": "stop_requested",
	})
}

func (h *JobHandler) controllerFor(w http.ResponseWriter, r *http.Request) (*controller.Controller, bool) {
	vars := mux.Vars(r)
	c, ok := h.manager.Get(vars["id"])
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return nil, false
	}
	return c, true
}

func bestPayload(best *models.Trial) map[string]interface{} {
	return map[string]interface{}{
		"trial_id":     best.ID,
		"parameters":   best.Assignment,
		"objective":    best.Objective,
		"completed_at": best.CompletedAt,
	}
}
