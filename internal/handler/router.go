package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/poivault/poivault-go/internal/ids"
	"github.com/poivault/poivault-go/internal/middleware"
	"go.uber.org/zap"
)

// RouterConfig carries the cross-cutting dependencies of the HTTP surface.
type RouterConfig struct {
	// Context bounds background work started by the router, such as the
	// rate limiter sweep. Nil means context.Background().
	Context     context.Context
	JWTSecret   string
	CORSOrigins []string
	Revocations middleware.RevocationChecker
	RequestIDs  *ids.RequestIDs
	Logger      *zap.Logger
}

// NewRouter mounts every API route.
func NewRouter(cfg RouterConfig, auth *AuthHandler, pois *POIHandler, search *SearchHandler) http.Handler {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID(cfg.RequestIDs))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(ctx, 5, 10))
			r.Post("/auth/register", auth.HandleRegister)
			r.Post("/auth/login", auth.HandleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(cfg.JWTSecret, cfg.Revocations, cfg.Logger))

			r.Post("/auth/logout", auth.HandleLogout)
			r.Get("/auth/profile", auth.HandleProfile)

			r.Get("/pois", pois.HandleList)
			r.Post("/pois", pois.HandleCreate)
			r.Post("/pois/bulk", pois.HandleBulkCreate)
			r.Put("/pois/{id}", pois.HandleUpdate)
			r.Delete("/pois/{id}", pois.HandleDelete)

			r.Post("/search", search.HandleSearch)
			r.Get("/search/history", search.HandleHistory)
		})
	})

	return r
}
