package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/catalog/omdb"
	"github.com/fluxarr/fluxarr/internal/catalog/tmdb"
	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

type SettingsHandler struct {
	settings repository.SettingsRepository
	logger   zerolog.Logger
}

func NewSettingsHandler(settings repository.SettingsRepository, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logger.With().Str("component", "settings").Logger(),
	}
}

// maskedKey hides all but the last 4 characters of an API key in responses.
func maskedKey(key string) string {
	if len(key) <= 4 {
		return key
	}
	return "****" + key[len(key)-4:]
}

func (h *SettingsHandler) GetOMDB(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.GetOMDBConfig(r.Context())
	if err != nil {
		http.Error(w, "Failed to get OMDB config", http.StatusInternalServerError)
		return
	}
	cfg.APIKey = maskedKey(cfg.APIKey)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

func (h *SettingsHandler) SaveOMDB(w http.ResponseWriter, r *http.Request) {
	var cfg models.OMDBConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := h.settings.SaveOMDBConfig(r.Context(), cfg); err != nil {
		h.logger.Error().Err(err).Msg("save omdb config failed")
		http.Error(w, "Failed to save OMDB config", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TestOMDB verifies the key supplied in the payload, or the stored key when
// none is given.
func (h *SettingsHandler) TestOMDB(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		APIKey string `json:"api_key"`
	}
	json.NewDecoder(r.Body).Decode(&payload)

	key := payload.APIKey
	if key == "" {
		cfg, err := h.settings.GetOMDBConfig(r.Context())
		if err != nil {
			http.Error(w, "Failed to load OMDB config", http.StatusInternalServerError)
			return
		}
		key = cfg.APIKey
	}
	if key == "" {
		http.Error(w, "No API key configured", http.StatusBadRequest)
		return
	}

	client := omdb.NewClient(key, h.logger)
	if err := client.Test(r.Context(), key); err != nil {
		http.Error(w, "OMDB test failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *SettingsHandler) GetTMDB(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.GetTMDBConfig(r.Context())
	if err != nil {
		http.Error(w, "Failed to get TMDB config", http.StatusInternalServerError)
		return
	}
	cfg.APIKey = maskedKey(cfg.APIKey)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

func (h *SettingsHandler) SaveTMDB(w http.ResponseWriter, r *http.Request) {
	var cfg models.TMDBConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := h.settings.SaveTMDBConfig(r.Context(), cfg); err != nil {
		h.logger.Error().Err(err).Msg("save tmdb config failed")
		http.Error(w, "Failed to save TMDB config", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SettingsHandler) TestTMDB(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		APIKey string `json:"api_key"`
	}
	json.NewDecoder(r.Body).Decode(&payload)

	key := payload.APIKey
	if key == "" {
		cfg, err := h.settings.GetTMDBConfig(r.Context())
		if err != nil {
			http.Error(w, "Failed to load TMDB config", http.StatusInternalServerError)
			return
		}
		key = cfg.APIKey
	}
	if key == "" {
		http.Error(w, "No API key configured", http.StatusBadRequest)
		return
	}

	client := tmdb.NewClient(key, h.logger)
	if err := client.TestKey(r.Context()); err != nil {
		http.Error(w, "TMDB test failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
