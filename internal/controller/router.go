package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Get("/health", c.getHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", c.getHealth)
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", c.getRooms)
			r.Post("/", c.createRoom)
			r.Route("/{room-id}", func(r chi.Router) {
				r.Get("/", c.getRoom)
				r.Put("/", c.updateRoom)
				r.Delete("/", c.removeRoom)
				r.Post("/leave", c.leaveRoom)
			})
		})
		r.Post("/video/metadata", c.getVideoMetadata)
		r.Post("/playlist/metadata", c.getPlaylistMetadata)
	})

	return r
}
