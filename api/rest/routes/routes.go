package routes

import (
	"context"

	"hypertuner/api/rest/handlers"
	"hypertuner/core/controller"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, baseCtx context.Context, manager *controller.Manager) {
	jobHandler := handlers.NewJobHandler(baseCtx, manager)

	api := r.PathPrefix("/v1").Subrouter()

	// Job endpoints
	api.HandleFunc("/jobs", jobHandler.SubmitJob).Methods("POST")
	api.HandleFunc("/jobs", jobHandler.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", jobHandler.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/best", jobHandler.GetBest).Methods("GET")
	api.HandleFunc("/jobs/{id}/results", jobHandler.GetResults).Methods("GET")
	api.HandleFunc("/jobs/{id}/events", jobHandler.GetJobEvents).Methods("GET")
	api.HandleFunc("/jobs/{id}/stop", jobHandler.StopJob).Methods("POST")
}
