/*
Package handler provides the HTTP handlers and routing setup for the signaling relay.

This file defines the main Router, applying logging, CORS and IP-based rate limiting
before delegating to the page, API and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"rtcsignal/internal/pkg/limiter"
	"rtcsignal/internal/pkg/logx"
	"rtcsignal/internal/pkg/resp"
)

const (
	CreateRate   = 0.2
	CreateBurst  = 5
	ConnectRate  = 0.5
	ConnectBurst = 10
)

// Limiters are the per-IP limiters used by the router. Stop them on shutdown.
type Limiters struct {
	Create  *limiter.IPRateLimiter
	Connect *limiter.IPRateLimiter
}

// NewLimiters builds the default per-IP limiters.
func NewLimiters() *Limiters {
	return &Limiters{
		Create:  limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst),
		Connect: limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst),
	}
}

// Stop ends the limiters' background sweeps.
func (l *Limiters) Stop() {
	l.Create.Stop()
	l.Connect.Stop()
}

// Router sets up the application's routing table.
func Router(deps *AppDeps, limiters *Limiters) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":      "ok",
			"service":     "rtcsignal",
			"rooms":       deps.Manager.Directory().Len(),
			"connections": deps.Manager.Registry().Len(),
		})
	})
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Get("/", HandleIndexPage())
	r.With(limiters.Create.Middleware).Get("/create-room", HandleCreateRoomRedirect())
	r.Get("/room/{roomID}", HandleRoomPage())

	r.Route("/api", func(api chi.Router) {
		api.Use(c.Handler)

		api.With(limiters.Create.Middleware).Post("/rooms", HandleCreateRoom())
		api.Get("/rooms/{roomID}", HandleGetRoom(deps))
		api.Get("/ice-servers", HandleICEServers(deps))
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, limiters.Connect, deps))

	return r
}
