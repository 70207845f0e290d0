package app

import (
	"database/sql"
	"net/http"
	"time"

	"mockexam/internal/answerkey"
	"mockexam/internal/app/observability"
	"mockexam/internal/grading"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", csrfHeaderName},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limiter := NewIPRateLimiter(cfg.RateLimitPerMin, time.Minute)
	r.Use(RateLimitMiddleware(limiter))
	r.Use(CSRFMiddleware(cfg.CSRFEnforced))

	keySvc := answerkey.NewService(db)
	keyHandler := answerkey.NewHandler(keySvc, cfg.MaxUploadBytes)

	gradeSvc := grading.NewService(db)
	gradeHandler := grading.NewHandler(gradeSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/answer-keys/template.json", keyHandler.TemplateJSON)
		api.Get("/answer-keys/template.xlsx", keyHandler.TemplateXLSX)
		api.Post("/answer-keys", keyHandler.Upload)
		api.Post("/answer-keys/import", keyHandler.ImportXLSX)
		api.Get("/answer-keys", keyHandler.List)
		api.Get("/answer-keys/{id}", keyHandler.Get)
		api.Delete("/answer-keys/{id}", keyHandler.Delete)

		api.Post("/scores", gradeHandler.Score)
		api.Get("/scores", gradeHandler.ListResults)
		api.Get("/scores/{id}", gradeHandler.GetResult)
		api.Get("/scores/{id}/export.xlsx", gradeHandler.ExportResult)
	})

	return r
}
