package router

import (
	"log"
	"net/http"

	"github.com/cateradmin/api/internal/config"
	"github.com/cateradmin/api/internal/handler"
	mw "github.com/cateradmin/api/internal/middleware"
	"github.com/cateradmin/api/internal/service"
	"github.com/cateradmin/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, sessions *service.Manager, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))
	ws.SetAllowedOrigins(cfg.AllowedOrigins)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	sessionHandler := handler.NewSessionHandler(sessions)
	sessionHandler.RegisterRoutes(r)

	// Live feed of one session's edits
	r.With(mw.SessionCtx(sessions)).Get("/ws/sessions/{sid}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	})

	log.Println("Router initialized with all handlers")
	return r
}
