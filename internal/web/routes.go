package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-compare/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	svc := s.services

	// Create handlers
	configHandler := handlers.NewConfigHandler(s.config)
	imagesHandler := handlers.NewImagesHandler(svc.Images, svc.Points)
	pointsHandler := handlers.NewPointsHandler(svc.Points)
	autoHandler := handlers.NewAutoFeaturesHandler(svc.Images, svc.Points, svc.Extractor)
	facesHandler := handlers.NewFacesHandler(svc.Images, svc.Faces, svc.Normalizer)
	compareHandler := handlers.NewCompareHandler(svc.Points, svc.Scorer)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/config", configHandler.Get)

		// Images
		r.Post("/images", imagesHandler.Upload)
		r.Get("/images/{id}", imagesHandler.Get)
		r.Delete("/images/{id}", imagesHandler.Delete)

		// Manual feature points
		r.Post("/feature-points", pointsHandler.Save)
		r.Get("/feature-points/{id}", pointsHandler.Get)

		// Automatic extraction
		r.Post("/auto-features/extract", autoHandler.Extract)
		r.Post("/auto-features/validate", autoHandler.Validate)
		r.Get("/auto-features/info", autoHandler.Info)
		r.Get("/auto-features/types", autoHandler.Types)
		r.Delete("/auto-features/{id}", autoHandler.Clear)
		r.Get("/auto-features/{id}/status", autoHandler.Status)

		// Face detection and normalization
		r.Post("/faces/detect", facesHandler.Detect)

		// Comparison
		r.Post("/compare", compareHandler.Compare)
		r.Get("/compare/status", compareHandler.Status)
	})

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusFound)
	})
}
