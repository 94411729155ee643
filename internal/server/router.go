// Package server exposes the homepage service over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mesh-intelligence/homepage/internal/homepage"
	"github.com/mesh-intelligence/homepage/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Service *homepage.Service
	Store   *storage.Manager
	Logger  *slog.Logger
}

// NewRouter creates the HTTP router.
func NewRouter(deps *Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "server")
	}
	h := &handler{svc: deps.Service, store: deps.Store, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/folders", h.listFolders)
		r.Post("/folders", h.createFolder)
		r.Patch("/folders/{id}", h.renameFolder)
		r.Delete("/folders/{id}", h.deleteFolder)
		r.Get("/folders/{id}/bookmarks", h.listBookmarks)
		r.Get("/folders/{id}/background", h.getBackground)
		r.Put("/folders/{id}/background", h.putBackground)

		r.Post("/bookmarks", h.addBookmark)
		r.Delete("/bookmarks/{id}", h.deleteBookmark)
		r.Post("/bookmarks/{id}/move", h.moveBookmark)

		r.Get("/settings", h.getSettings)
		r.Put("/settings", h.putSettings)
		r.Get("/stats", h.getStats)
	})
	r.Get("/blob/{handle}", h.getBlob)

	return r
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
