package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
	"github.com/fluxarr/fluxarr/internal/scheduler"
)

type JobHandler struct {
	scheduler *scheduler.Scheduler
	logger    zerolog.Logger
}

func NewJobHandler(sched *scheduler.Scheduler, logger zerolog.Logger) *JobHandler {
	return &JobHandler{scheduler: sched, logger: logger}
}

func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.scheduler.JobsStatus())
}

func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]

	var patch models.JobConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if patch.IntervalMinutes != nil && *patch.IntervalMinutes <= 0 {
		http.Error(w, "Interval must be positive", http.StatusBadRequest)
		return
	}

	cfg, err := h.scheduler.UpdateJobConfig(r.Context(), jobID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Unknown job", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("job", jobID).Msg("update job failed")
		http.Error(w, "Failed to update job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

// TriggerJob starts a job immediately. 409 when a run is already in flight.
func (h *JobHandler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]

	if !h.scheduler.TriggerJob(jobID) {
		http.Error(w, "Job unknown or already running", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started", "job": jobID})
}
