package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/repository"
)

type ShowHandler struct {
	shows  repository.ShowRepository
	logger zerolog.Logger
}

func NewShowHandler(shows repository.ShowRepository, logger zerolog.Logger) *ShowHandler {
	return &ShowHandler{shows: shows, logger: logger}
}

func (h *ShowHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ShowFilter{
		Search:   q.Get("search"),
		Genre:    q.Get("genre"),
		Status:   q.Get("status"),
		Network:  q.Get("network"),
		SortBy:   q.Get("sort"),
		SortDesc: q.Get("order") == "desc",
	}
	if v := q.Get("min_rating"); v != "" {
		if rating, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinRating = &rating
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filter.Limit = limit
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil {
			filter.Offset = offset
		}
	}

	shows, total, err := h.shows.List(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("list shows failed")
		http.Error(w, "Failed to list shows", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"shows": shows,
		"total": total,
	})
}

func (h *ShowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["showID"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid show id", http.StatusBadRequest)
		return
	}

	show, err := h.shows.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Show not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get show", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(show)
}
