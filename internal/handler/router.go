package handler

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-crm/internal/middleware"
)

// NewRouter wires every route. All routes except /health require a staff token.
func NewRouter(h *Handler, jwtSecret string, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/health", h.Health).Methods("GET")

	// Protected routes
	api := r.PathPrefix("/").Subrouter()
	api.Use(middleware.AuthMiddleware(jwtSecret, log))

	api.HandleFunc("/lenders", h.ListLenders).Methods("GET")
	api.HandleFunc("/lenders", h.CreateLender).Methods("POST")
	api.HandleFunc("/lenders/{id}", h.GetLender).Methods("GET")
	api.HandleFunc("/lenders/{id}", h.UpdateLender).Methods("PUT")

	api.HandleFunc("/users", h.ListUsers).Methods("GET")
	api.HandleFunc("/users/export", h.ExportUsers).Methods("GET")
	api.HandleFunc("/users/import", h.ImportUsers).Methods("POST")
	api.HandleFunc("/users/import/validate", h.ValidateUpload).Methods("POST")
	api.HandleFunc("/users/import/commit", h.CommitUpload).Methods("POST")
	api.HandleFunc("/users/{id}", h.GetUser).Methods("GET")
	api.HandleFunc("/users/{id}", h.UpdateUser).Methods("PUT")

	api.HandleFunc("/applications", h.ListApplications).Methods("GET")
	api.HandleFunc("/applications", h.CreateApplication).Methods("POST")
	api.HandleFunc("/applications/{id}", h.GetApplication).Methods("GET")
	api.HandleFunc("/applications/{id}", h.UpdateApplication).Methods("PUT")
	api.HandleFunc("/applications/{id}", h.DeleteApplication).Methods("DELETE")

	api.HandleFunc("/disbursals", h.ListDisbursals).Methods("GET")
	api.HandleFunc("/disbursals", h.CreateDisbursal).Methods("POST")
	api.HandleFunc("/disbursals/{id}", h.DeleteDisbursal).Methods("DELETE")

	api.HandleFunc("/leads", h.CreateLead).Methods("POST")
	api.HandleFunc("/leads/{id}", h.GetLead).Methods("GET")
	api.HandleFunc("/leads/{id}", h.UpdateLead).Methods("PUT")
	api.HandleFunc("/leads/{id}", h.DeleteLead).Methods("DELETE")

	api.HandleFunc("/admin/migrations/leads", h.RunMigration).Methods("POST")
	return r
}
