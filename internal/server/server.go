// Package server exposes the detection and reconciliation pipeline over
// HTTP: multipart comparison uploads, per-session reconciliation,
// discrepancy resolution, and inventory queries.
package server

import (
	"encoding/json"
	"net/http"

	"rackdiff/internal/config"
	"rackdiff/internal/detect"
	"rackdiff/internal/inventory"
	"rackdiff/internal/reconcile"
	"rackdiff/internal/report"
	"rackdiff/internal/session"
	"rackdiff/internal/version"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Server struct {
	router   *chi.Mux
	cfg      config.DetectionConfig
	detector *detect.Detector
	store    inventory.Store
	engine   *reconcile.Engine
	sessions *session.Store
	reports  *report.Store
}

func New(cfg config.DetectionConfig, detector *detect.Detector, store inventory.Store, sessions *session.Store, reports *report.Store) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s := &Server{
		router:   r,
		cfg:      cfg,
		detector: detector,
		store:    store,
		engine:   reconcile.New(store),
		sessions: sessions,
		reports:  reports,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/compare", s.handleCompare)
		r.Get("/sessions/{sessionID}/changes", s.handleGetChanges)

		r.Post("/reconcile/{sessionID}", s.handleReconcile)
		r.Get("/discrepancies/{sessionID}", s.handleListDiscrepancies)
		r.Get("/discrepancy/{discrepancyID}", s.handleGetDiscrepancy)
		r.Post("/discrepancy/{discrepancyID}/resolve", s.handleResolveDiscrepancy)

		r.Get("/reports/{sessionID}/{reportID}", s.handleGetReport)

		r.Route("/racks", func(r chi.Router) {
			r.Get("/", s.handleListRacks)
			r.Get("/{rackID}", s.handleGetRack)
			r.Get("/{rackID}/assets", s.handleListAssets)
			r.Post("/{rackID}/assets", s.handleAddAsset)
			r.Get("/{rackID}/utilization", s.handleUtilization)
		})
		r.Route("/assets/{assetID}", func(r chi.Router) {
			r.Get("/", s.handleGetAsset)
			r.Put("/", s.handleUpdateAsset)
			r.Delete("/", s.handleRemoveAsset)
		})
	})

	// Rendered artifacts (visual diff, change mask, reports)
	s.router.Handle("/results/*", http.StripPrefix("/results/",
		http.FileServer(http.Dir(s.sessions.BaseDir()))))
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
