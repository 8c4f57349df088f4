package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/arr/radarr"
	"github.com/fluxarr/fluxarr/internal/arr/sonarr"
	"github.com/fluxarr/fluxarr/internal/authz"
	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

// arrConfigOps abstracts over the Sonarr and Radarr config tables so both
// handlers share one CRUD implementation.
type arrConfigOps struct {
	list   func(ctx context.Context) ([]models.ArrConfig, error)
	get    func(ctx context.Context, id int64) (models.ArrConfig, error)
	save   func(ctx context.Context, cfg models.ArrConfig) (models.ArrConfig, error)
	delete func(ctx context.Context, id int64) error
	test   func(ctx context.Context, cfg models.ArrConfig) error
}

type ArrHandler struct {
	settings repository.SettingsRepository
	library  repository.SonarrLibraryRepository
	requests repository.RequestRepository
	logger   zerolog.Logger

	sonarrOps arrConfigOps
	radarrOps arrConfigOps
}

func NewArrHandler(settings repository.SettingsRepository, library repository.SonarrLibraryRepository, requests repository.RequestRepository, logger zerolog.Logger) *ArrHandler {
	h := &ArrHandler{
		settings: settings,
		library:  library,
		requests: requests,
		logger:   logger.With().Str("component", "arr").Logger(),
	}
	h.sonarrOps = arrConfigOps{
		list:   settings.ListSonarrConfigs,
		get:    settings.GetSonarrConfig,
		save:   settings.SaveSonarrConfig,
		delete: settings.DeleteSonarrConfig,
		test: func(ctx context.Context, cfg models.ArrConfig) error {
			return sonarr.NewClient(cfg).Test(ctx)
		},
	}
	h.radarrOps = arrConfigOps{
		list:   settings.ListRadarrConfigs,
		get:    settings.GetRadarrConfig,
		save:   settings.SaveRadarrConfig,
		delete: settings.DeleteRadarrConfig,
		test: func(ctx context.Context, cfg models.ArrConfig) error {
			return radarr.NewClient(cfg).Test(ctx)
		},
	}
	return h
}

func (h *ArrHandler) listConfigs(ops arrConfigOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		configs, err := ops.list(r.Context())
		if err != nil {
			http.Error(w, "Failed to list instances", http.StatusInternalServerError)
			return
		}
		for i := range configs {
			configs[i].APIKey = maskedKey(configs[i].APIKey)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(configs)
	}
}

func (h *ArrHandler) saveConfig(ops arrConfigOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg models.ArrConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "Invalid request payload", http.StatusBadRequest)
			return
		}
		if cfg.Name == "" || cfg.URL == "" || cfg.APIKey == "" {
			http.Error(w, "Name, URL and API key are required", http.StatusBadRequest)
			return
		}

		saved, err := ops.save(r.Context(), cfg)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				http.Error(w, "Instance not found", http.StatusNotFound)
				return
			}
			h.logger.Error().Err(err).Msg("save instance failed")
			http.Error(w, "Failed to save instance", http.StatusInternalServerError)
			return
		}

		saved.APIKey = maskedKey(saved.APIKey)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(saved)
	}
}

func (h *ArrHandler) deleteConfig(ops arrConfigOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["configID"], 10, 64)
		if err != nil {
			http.Error(w, "Invalid instance id", http.StatusBadRequest)
			return
		}
		if err := ops.delete(r.Context(), id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				http.Error(w, "Instance not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to delete instance", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// testConfig checks connectivity with the payload's settings, falling back to
// a stored instance when an id is supplied.
func (h *ArrHandler) testConfig(ops arrConfigOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			ID     int64  `json:"id"`
			URL    string `json:"url"`
			APIKey string `json:"api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid request payload", http.StatusBadRequest)
			return
		}

		cfg := models.ArrConfig{URL: payload.URL, APIKey: payload.APIKey}
		if payload.URL == "" && payload.ID != 0 {
			stored, err := ops.get(r.Context(), payload.ID)
			if err != nil {
				http.Error(w, "Instance not found", http.StatusNotFound)
				return
			}
			cfg = stored
		}
		if cfg.URL == "" || cfg.APIKey == "" {
			http.Error(w, "URL and API key are required", http.StatusBadRequest)
			return
		}

		if err := ops.test(r.Context(), cfg); err != nil {
			http.Error(w, "Connection test failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (h *ArrHandler) ListSonarr(w http.ResponseWriter, r *http.Request)   { h.listConfigs(h.sonarrOps)(w, r) }
func (h *ArrHandler) SaveSonarr(w http.ResponseWriter, r *http.Request)   { h.saveConfig(h.sonarrOps)(w, r) }
func (h *ArrHandler) DeleteSonarr(w http.ResponseWriter, r *http.Request) { h.deleteConfig(h.sonarrOps)(w, r) }
func (h *ArrHandler) TestSonarr(w http.ResponseWriter, r *http.Request)   { h.testConfig(h.sonarrOps)(w, r) }

func (h *ArrHandler) ListRadarr(w http.ResponseWriter, r *http.Request)   { h.listConfigs(h.radarrOps)(w, r) }
func (h *ArrHandler) SaveRadarr(w http.ResponseWriter, r *http.Request)   { h.saveConfig(h.radarrOps)(w, r) }
func (h *ArrHandler) DeleteRadarr(w http.ResponseWriter, r *http.Request) { h.deleteConfig(h.radarrOps)(w, r) }
func (h *ArrHandler) TestRadarr(w http.ResponseWriter, r *http.Request)   { h.testConfig(h.radarrOps)(w, r) }

// resolveConfig picks the requested instance, or the default, or the only one.
func resolveConfig(configs []models.ArrConfig, id int64) (models.ArrConfig, bool) {
	if id != 0 {
		for _, cfg := range configs {
			if cfg.ID == id {
				return cfg, true
			}
		}
		return models.ArrConfig{}, false
	}
	for _, cfg := range configs {
		if cfg.IsDefault {
			return cfg, true
		}
	}
	if len(configs) == 1 {
		return configs[0], true
	}
	return models.ArrConfig{}, false
}

// AddToSonarr looks a series up by TVDB id on the chosen instance and submits
// it for monitoring. When the payload carries the catalog show id, the
// outcome is recorded as a tracked request.
func (h *ArrHandler) AddToSonarr(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TVDBID   int64 `json:"tvdb_id"`
		ConfigID int64 `json:"config_id"`
		ShowID   int64 `json:"show_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.TVDBID == 0 {
		http.Error(w, "A tvdb_id is required", http.StatusBadRequest)
		return
	}

	configs, err := h.settings.ListSonarrConfigs(r.Context())
	if err != nil {
		http.Error(w, "Failed to load Sonarr instances", http.StatusInternalServerError)
		return
	}
	cfg, ok := resolveConfig(configs, payload.ConfigID)
	if !ok {
		http.Error(w, "No Sonarr instance configured", http.StatusBadRequest)
		return
	}

	client := sonarr.NewClient(cfg)
	series, err := client.LookupByTVDB(r.Context(), payload.TVDBID)
	if err != nil {
		h.trackRequest(r, payload.ShowID, cfg.ID, nil, payload.TVDBID, models.RequestStatusFailed)
		http.Error(w, "Series lookup failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	added, err := client.Add(r.Context(), sonarr.NewAddRequest(series, cfg))
	if err != nil {
		h.trackRequest(r, payload.ShowID, cfg.ID, nil, payload.TVDBID, models.RequestStatusFailed)
		http.Error(w, "Failed to add series: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.trackRequest(r, payload.ShowID, cfg.ID, &added.ID, payload.TVDBID, models.RequestStatusAdded)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(added)
}

// trackRequest records the add outcome. Tracking never fails the response.
func (h *ArrHandler) trackRequest(r *http.Request, showID, configID int64, seriesID *int64, tvdbID int64, status string) {
	if showID == 0 {
		return
	}
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		return
	}
	req := models.ShowRequest{
		UserID:         userID,
		ShowID:         showID,
		SonarrConfigID: configID,
		SonarrSeriesID: seriesID,
		Status:         status,
	}
	if tvdbID != 0 {
		req.TVDBID = &tvdbID
	}
	if err := h.requests.Create(r.Context(), req); err != nil {
		h.logger.Error().Err(err).Int64("show_id", showID).Msg("record request failed")
	}
}

// AddToRadarr looks a movie up by TMDB id on the chosen instance and submits
// it for monitoring.
func (h *ArrHandler) AddToRadarr(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TMDBID   int64 `json:"tmdb_id"`
		ConfigID int64 `json:"config_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.TMDBID == 0 {
		http.Error(w, "A tmdb_id is required", http.StatusBadRequest)
		return
	}

	configs, err := h.settings.ListRadarrConfigs(r.Context())
	if err != nil {
		http.Error(w, "Failed to load Radarr instances", http.StatusInternalServerError)
		return
	}
	cfg, ok := resolveConfig(configs, payload.ConfigID)
	if !ok {
		http.Error(w, "No Radarr instance configured", http.StatusBadRequest)
		return
	}

	client := radarr.NewClient(cfg)
	movie, err := client.LookupByTMDB(r.Context(), payload.TMDBID)
	if err != nil {
		http.Error(w, "Movie lookup failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	added, err := client.Add(r.Context(), movie, cfg)
	if err != nil {
		http.Error(w, "Failed to add movie: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(added)
}

// SonarrLibrary returns the cached library of one instance.
func (h *ArrHandler) SonarrLibrary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["configID"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid instance id", http.StatusBadRequest)
		return
	}

	entries, err := h.library.List(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to list library", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
