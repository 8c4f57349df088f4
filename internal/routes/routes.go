package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fluxarr/fluxarr/internal/authz"
	"github.com/fluxarr/fluxarr/internal/handlers"
)

// NewRouter sets up the API routes
func NewRouter(
	auth *handlers.AuthHandler,
	shows *handlers.ShowHandler,
	movies *handlers.MovieHandler,
	jobs *handlers.JobHandler,
	syncStatus *handlers.SyncStatusHandler,
	settings *handlers.SettingsHandler,
	arr *handlers.ArrHandler,
	requests *handlers.RequestHandler,
	logs *handlers.LogHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/auth/register", auth.Register).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", auth.Login).Methods(http.MethodPost)

	// Everything below requires a valid token.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	api.HandleFunc("/shows", shows.List).Methods(http.MethodGet)
	api.HandleFunc("/shows/{showID:[0-9]+}", shows.Get).Methods(http.MethodGet)
	api.HandleFunc("/movies", movies.List).Methods(http.MethodGet)
	api.HandleFunc("/movies/{movieID:[0-9]+}", movies.Get).Methods(http.MethodGet)

	api.HandleFunc("/sync/status", syncStatus.GetStatus).Methods(http.MethodGet)

	api.HandleFunc("/sonarr/add", arr.AddToSonarr).Methods(http.MethodPost)
	api.HandleFunc("/radarr/add", arr.AddToRadarr).Methods(http.MethodPost)

	// Ownership is enforced in the handler, so these stay outside the admin
	// subrouter.
	api.HandleFunc("/requests", requests.ListRequests).Methods(http.MethodGet)
	api.HandleFunc("/requests/{requestID:[0-9]+}", requests.DeleteRequest).Methods(http.MethodDelete)

	// Admin-only management surface.
	admin := api.NewRoute().Subrouter()
	admin.Use(authz.RequireAdmin)

	admin.HandleFunc("/jobs", jobs.ListJobs).Methods(http.MethodGet)
	admin.HandleFunc("/jobs/{jobID}", jobs.UpdateJob).Methods(http.MethodPut)
	admin.HandleFunc("/jobs/{jobID}/run", jobs.TriggerJob).Methods(http.MethodPost)

	admin.HandleFunc("/omdb", settings.GetOMDB).Methods(http.MethodGet)
	admin.HandleFunc("/omdb", settings.SaveOMDB).Methods(http.MethodPut)
	admin.HandleFunc("/omdb/test", settings.TestOMDB).Methods(http.MethodPost)
	admin.HandleFunc("/tmdb", settings.GetTMDB).Methods(http.MethodGet)
	admin.HandleFunc("/tmdb", settings.SaveTMDB).Methods(http.MethodPut)
	admin.HandleFunc("/tmdb/test", settings.TestTMDB).Methods(http.MethodPost)

	admin.HandleFunc("/sonarr", arr.ListSonarr).Methods(http.MethodGet)
	admin.HandleFunc("/sonarr", arr.SaveSonarr).Methods(http.MethodPost)
	admin.HandleFunc("/sonarr/test", arr.TestSonarr).Methods(http.MethodPost)
	admin.HandleFunc("/sonarr/{configID:[0-9]+}", arr.DeleteSonarr).Methods(http.MethodDelete)
	admin.HandleFunc("/sonarr/{configID:[0-9]+}/library", arr.SonarrLibrary).Methods(http.MethodGet)
	admin.HandleFunc("/radarr", arr.ListRadarr).Methods(http.MethodGet)
	admin.HandleFunc("/radarr", arr.SaveRadarr).Methods(http.MethodPost)
	admin.HandleFunc("/radarr/test", arr.TestRadarr).Methods(http.MethodPost)
	admin.HandleFunc("/radarr/{configID:[0-9]+}", arr.DeleteRadarr).Methods(http.MethodDelete)

	admin.HandleFunc("/logs", logs.ListLogs).Methods(http.MethodGet)

	return router
}
