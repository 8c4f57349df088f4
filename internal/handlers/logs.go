package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/repository"
)

type LogHandler struct {
	logs   repository.LogRepository
	logger zerolog.Logger
}

func NewLogHandler(logs repository.LogRepository, logger zerolog.Logger) *LogHandler {
	return &LogHandler{logs: logs, logger: logger}
}

func (h *LogHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}
	level := r.URL.Query().Get("level")

	entries, err := h.logs.List(r.Context(), level, limit)
	if err != nil {
		http.Error(w, "Failed to list logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
