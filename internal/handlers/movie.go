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

type MovieHandler struct {
	movies repository.MovieRepository
	logger zerolog.Logger
}

func NewMovieHandler(movies repository.MovieRepository, logger zerolog.Logger) *MovieHandler {
	return &MovieHandler{movies: movies, logger: logger}
}

func (h *MovieHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.MovieFilter{
		Search:   q.Get("search"),
		Genre:    q.Get("genre"),
		Year:     q.Get("year"),
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

	movies, total, err := h.movies.List(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("list movies failed")
		http.Error(w, "Failed to list movies", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"movies": movies,
		"total":  total,
	})
}

func (h *MovieHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["movieID"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid movie id", http.StatusBadRequest)
		return
	}

	movie, err := h.movies.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Movie not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get movie", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(movie)
}
