package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"trivia-live-service/internal/app"
)

// NewRouter mounts the websocket endpoint and the read-only REST routes.
func NewRouter(coord *app.Coordinator, lister app.CompetitionLister, opts WSOptions, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	ws := NewWSHandler(coord, opts, log)
	api := &restHandler{coord: coord, lister: lister, log: log}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/live-competitions", api.listCompetitions)
		r.Get("/live-competitions/{id}", api.getCompetition)
		r.Get("/live-rooms", api.activeRooms)
	})
	return r
}
