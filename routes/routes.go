// Package routes configures the HTTP router.
package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upb/knowledge-engine/app"
	"github.com/upb/knowledge-engine/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Logger)
	kbHandler := handlers.NewKnowledgeBaseHandler(deps.KnowledgeBases, deps.Logger)
	docHandler := handlers.NewDocumentHandler(deps.Ingest, deps.Parser, deps.Logger)
	chatHandler := handlers.NewChatHandler(deps.Retrieval, deps.Synthesis, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealthz)
	r.Get("/readyz", healthHandler.HandleReadyz)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/knowledge-bases", func(r chi.Router) {
			r.Get("/", kbHandler.HandleList)
			r.Post("/", kbHandler.HandleCreate)

			r.Route("/{kbID}", func(r chi.Router) {
				r.Get("/", kbHandler.HandleGet)
				r.Delete("/", kbHandler.HandleDelete)
				r.Get("/stats", kbHandler.HandleStats)

				r.Route("/documents", func(r chi.Router) {
					r.Get("/", kbHandler.HandleListDocuments)
					r.Post("/", docHandler.HandleUpload)
					r.Delete("/{docID}", kbHandler.HandleDeleteDocument)
				})

				r.Post("/search", chatHandler.HandleSearch)
				r.Post("/chat", chatHandler.HandleChat)
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"The requested resource was not found"}`))
	})

	return r
}
