package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

type SyncStatusHandler struct {
	status repository.SyncStatusRepository
	logger zerolog.Logger
}

func NewSyncStatusHandler(status repository.SyncStatusRepository, logger zerolog.Logger) *SyncStatusHandler {
	return &SyncStatusHandler{status: status, logger: logger}
}

// GetStatus reports the sync state of every domain.
func (h *SyncStatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]models.SyncStatus)
	for _, domain := range []models.SyncDomain{models.SyncDomainShows, models.SyncDomainMovies} {
		status, err := h.status.Get(r.Context(), domain)
		if err != nil {
			h.logger.Error().Err(err).Str("domain", string(domain)).Msg("get sync status failed")
			http.Error(w, "Failed to get sync status", http.StatusInternalServerError)
			return
		}
		out[string(domain)] = status
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
