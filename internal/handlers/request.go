package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/authz"
	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

type RequestHandler struct {
	requests repository.RequestRepository
	logger   zerolog.Logger
}

func NewRequestHandler(requests repository.RequestRepository, logger zerolog.Logger) *RequestHandler {
	return &RequestHandler{
		requests: requests,
		logger:   logger.With().Str("component", "requests").Logger(),
	}
}

// ListRequests returns the caller's requests. Admins can pass ?all=true to
// see every user's.
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	role, _ := authz.RoleFromRequest(r)

	var (
		views []models.ShowRequestView
		err   error
	)
	if r.URL.Query().Get("all") == "true" && role == models.RoleAdmin {
		views, err = h.requests.ListAll(r.Context())
	} else {
		views, err = h.requests.ListForUser(r.Context(), userID)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("list requests failed")
		http.Error(w, "Failed to list requests", http.StatusInternalServerError)
		return
	}
	if views == nil {
		views = []models.ShowRequestView{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// DeleteRequest removes a request. Users can remove their own; admins any.
func (h *RequestHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	role, _ := authz.RoleFromRequest(r)

	id, err := strconv.ParseInt(mux.Vars(r)["requestID"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid request id", http.StatusBadRequest)
		return
	}

	req, err := h.requests.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Request not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load request", http.StatusInternalServerError)
		return
	}
	if req.UserID != userID && role != models.RoleAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.requests.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Request not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete request", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
