// Package api exposes the catalog service over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"catalog-service/internal/auth"
	"catalog-service/internal/library"
	"catalog-service/internal/logging"
	"catalog-service/internal/media"
	"catalog-service/internal/metrics"
)

// Options tune the router. Zero values disable the optional parts.
type Options struct {
	CORSOrigins    []string
	RateLimitRPS   int
	RequestTimeout time.Duration
	CookieSecure   bool
}

type Server struct {
	lib    *library.Service
	users  *auth.Directory
	tokens *auth.Issuer
	// media and ws may be nil; their routes are then not mounted.
	media *media.FileStore
	ws    http.Handler
	opts  Options
	log   zerolog.Logger
}

func NewServer(lib *library.Service, users *auth.Directory, tokens *auth.Issuer, store *media.FileStore, ws http.Handler, opts Options) *Server {
	return &Server{
		lib:    lib,
		users:  users,
		tokens: tokens,
		media:  store,
		ws:     ws,
		opts:   opts,
		log:    logging.Component("api"),
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if s.opts.RateLimitRPS > 0 {
		r.Use(httprate.LimitByIP(s.opts.RateLimitRPS, time.Second))
	}
	r.Use(auth.Identify(s.tokens))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	if s.ws != nil {
		r.Handle("/ws", s.ws)
	}
	if s.media != nil {
		r.Get("/uploads/{kind}/{file}", s.handleMedia)
	}

	if s.opts.RateLimitRPS > 0 {
		// password guessing gets a much tighter budget than the API
		r.With(httprate.LimitByIP(10, time.Minute)).Post("/login", s.handleLogin)
	} else {
		r.Post("/login", s.handleLogin)
	}
	r.Get("/logout", s.handleLogout)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		if s.opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.opts.RequestTimeout))
		}

		r.Get("/songs", s.handleListSongs)
		r.Get("/songs/{id}", s.handleGetSong)
		r.Get("/search", s.handleSearch)
		r.Get("/recommendations/{id}", s.handleRecommendations)
		r.Get("/play_next/{id}", s.handlePlayNext)

		// Anonymous callers get empty lists.
		r.Get("/favorites", s.handleGetFavorites)
		r.Get("/queue", s.handleGetQueue)
		r.Get("/history", s.handleGetHistory)
		r.Get("/playlists", s.handleListPlaylists)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)

			r.Post("/favorites/{id}", s.handleAddFavorite)
			r.Delete("/favorites/{id}", s.handleRemoveFavorite)

			// static segments win over {id} in chi
			r.Post("/queue/next", s.handleDequeue)
			r.Post("/queue/clear", s.handleClearQueue)
			r.Post("/queue/{id}", s.handleEnqueue)
			r.Delete("/queue/{id}", s.handleRemoveFromQueue)

			r.Post("/history/{id}", s.handlePushHistory)

			r.Post("/playlists", s.handleCreatePlaylist)
			r.Delete("/playlists/{name}", s.handleDeletePlaylist)
			r.Post("/playlists/{name}/songs/{id}", s.handleAddToPlaylist)
			r.Delete("/playlists/{name}/songs/{id}", s.handleRemoveFromPlaylist)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))

			r.Post("/songs", s.handleAddSong)
			r.Put("/songs/{id}", s.handleUpdateSong)
			r.Delete("/songs/{id}", s.handleDeleteSong)
			r.Get("/stats", s.handleStats)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "catalog-service",
	})
}

// GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.lib.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_songs":      st.Tracks,
		"total_users":      s.users.CountRole(auth.RoleUser),
		"total_playlists":  st.Playlists,
		"active_listeners": st.Listeners,
	})
}

// GET /uploads/{kind}/{file}
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	ref := "/uploads/" + chi.URLParam(r, "kind") + "/" + chi.URLParam(r, "file")
	path, err := s.media.Path(ref)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeFile(w, r, path)
}
