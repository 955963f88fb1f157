/*
Package handler provides the HTTP handler for WebSocket connection upgrading and initialization.

HandleWebSocket rate limits the caller, upgrades the connection, attaches it to the
signaling Manager and runs the client's pumps until it disconnects.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"rtcsignal/internal/app/signaling"
	"rtcsignal/internal/pkg/errs"
	"rtcsignal/internal/pkg/limiter"
	"rtcsignal/internal/pkg/logx"
	"rtcsignal/internal/pkg/randx"
	"rtcsignal/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "remote_ip", logx.AnonymizeIP(r.RemoteAddr))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := signaling.NewClient(deps.Manager, conn, signaling.ClientOptions{
			ID:            randx.ConnectionID(),
			SendQueueSize: deps.Config.SendQueueSize,
			EventRate:     rate.Limit(deps.Config.EventRate),
			EventBurst:    deps.Config.EventBurst,
		})

		go client.WritePump()

		deps.Manager.Connect(client)

		logx.Info("WebSocket connection established", "conn_id", client.ID(), "remote_ip", logx.AnonymizeIP(r.RemoteAddr))

		client.ReadPump()
	}
}
