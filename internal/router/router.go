package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/karafriends/backend/internal/broker"
	"github.com/karafriends/backend/internal/config"
	"github.com/karafriends/backend/internal/handlers"
	"github.com/karafriends/backend/internal/middleware"
	"github.com/karafriends/backend/internal/services"
	"github.com/karafriends/backend/internal/session"
)

// Dependencies are the long-lived components the routes are served from.
type Dependencies struct {
	Store    *session.Store
	Broker   *broker.Broker
	Acquirer handlers.Acquirer
	Identity *services.IdentityService
	Limits   handlers.QueueLimits

	YouTube  handlers.YouTubeCatalog
	Nico     handlers.NicoCatalog
	Dam      handlers.DamCatalog
	Joysound handlers.JoysoundCatalog
}

func New(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewRealIPMiddleware(cfg.TrustedProxies).Handler)
	r.Use(middleware.RequestContextMiddleware)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	// Handlers
	configHandler := handlers.NewConfigHandler(deps.Limits, cfg.UseLowBitrateURL)
	identityHandler := handlers.NewIdentityHandler(deps.Identity)
	queueHandler := handlers.NewQueueHandler(deps.Store, deps.Acquirer)
	playbackHandler := handlers.NewPlaybackHandler(deps.Store)
	catalogHandler := handlers.NewCatalogHandler(deps.YouTube, deps.Nico, deps.Dam, deps.Joysound)
	sseHandler := handlers.NewSSEHandler(deps.Broker)
	wsHandler := handlers.NewWSHandler(deps.Broker, cfg.CORSAllowedOrigins)
	tunnelHandler := handlers.NewSentryTunnelHandler(cfg.SentryDSNFrontend)

	// Rate limiters: catalog lookups and identity issuance share one budget,
	// emotes get their own
	searchRateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	emoteRateLimiter := middleware.NewRateLimiter(cfg.EmoteRateLimitPerMinute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Get("/config", configHandler.PublicConfig)
		r.With(searchRateLimiter.Middleware).Post("/identity", identityHandler.Issue)
		r.Post("/sentry-tunnel", tunnelHandler.Tunnel)

		// Everything else names the caller
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(deps.Identity))
			r.Use(middleware.UpdateRequestContextMiddleware)

			r.Route("/queue", func(r chi.Router) {
				r.Get("/", queueHandler.Get)
				r.Post("/dam", queueHandler.QueueDam)
				r.Post("/joysound", queueHandler.QueueJoysound)
				r.Post("/youtube", queueHandler.QueueYoutube)
				r.Post("/nico", queueHandler.QueueNico)
				r.Post("/pop", queueHandler.Pop)
				r.Delete("/{songId}/{timestamp}", queueHandler.Remove)
			})
			r.Get("/current-song", queueHandler.CurrentSong)
			r.Get("/history", queueHandler.History)
			r.Get("/downloads", queueHandler.Downloads)
			r.Get("/downloads/progress", queueHandler.DownloadProgress)

			r.Get("/adhoc-lyrics/{songId}", playbackHandler.AdhocLyrics)
			r.Post("/adhoc-lyrics", playbackHandler.PushAdhocLyric)
			r.Get("/pitch-shift", playbackHandler.PitchShift)
			r.Put("/pitch-shift", playbackHandler.SetPitchShift)
			r.Get("/playback-state", playbackHandler.PlaybackState)
			r.Put("/playback-state", playbackHandler.SetPlaybackState)
			r.With(emoteRateLimiter.Middleware).Post("/emotes", playbackHandler.SendEmote)

			// Catalog pass-through (rate limited per device)
			r.Route("/catalog", func(r chi.Router) {
				r.Use(searchRateLimiter.Middleware)
				r.Get("/youtube/search", catalogHandler.YoutubeSearch)
				r.Get("/youtube/videos/{id}", catalogHandler.YoutubeVideo)
				r.Get("/nico/videos/{id}", catalogHandler.NicoVideo)
				r.Get("/dam/search", catalogHandler.DamSearch)
				r.Get("/dam/songs/{id}", catalogHandler.DamSong)
				r.Get("/dam/songs/{id}/streaming-urls", catalogHandler.DamStreamingURLs)
				r.Get("/joysound/search", catalogHandler.JoysoundSearch)
				r.Get("/joysound/songs/{id}", catalogHandler.JoysoundSong)
			})

			// Subscriptions
			r.Get("/events", sseHandler.Stream)
			r.Get("/ws", wsHandler.Stream)
		})
	})

	return r
}
