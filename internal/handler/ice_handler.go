package handler

import (
	"net/http"

	"github.com/pion/webrtc/v4"

	"rtcsignal/internal/pkg/resp"
)

// HandleICEServers returns the STUN/TURN servers clients should pass to RTCPeerConnection.
func HandleICEServers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		servers := deps.Config.ICEServers
		if servers == nil {
			servers = []webrtc.ICEServer{}
		}

		w.Header().Set("Cache-Control", "no-store")
		resp.RespondSuccess(w, r, map[string]any{
			"iceServers": servers,
		})
	}
}
