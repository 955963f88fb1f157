package configs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
)

// iceServerJSON accepts "urls" as either a string or a list, matching RTCIceServer.
type iceServerJSON struct {
	URLs       urlList `json:"urls"`
	Username   string  `json:"username,omitempty"`
	Credential string  `json:"credential,omitempty"`
}

type urlList []string

func (u *urlList) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*u = urlList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*u = many
	return nil
}

// ParseICEServers builds the advertised ICE server list. A non-empty iceServersJSON
// (an RTCIceServer array) takes precedence over the comma-separated STUN/TURN lists.
func ParseICEServers(iceServersJSON, stunURLs, turnURLs, turnUsername, turnCredential string) ([]webrtc.ICEServer, error) {
	if raw := strings.TrimSpace(iceServersJSON); raw != "" {
		var entries []iceServerJSON
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, fmt.Errorf("ICE_SERVERS_JSON: %w", err)
		}

		servers := make([]webrtc.ICEServer, 0, len(entries))
		for i, entry := range entries {
			server := webrtc.ICEServer{
				URLs:     splitCommaSeparated(strings.Join(entry.URLs, ",")),
				Username: strings.TrimSpace(entry.Username),
			}
			if cred := strings.TrimSpace(entry.Credential); cred != "" {
				server.Credential = cred
			}
			if err := validateICEServer(server); err != nil {
				return nil, fmt.Errorf("ICE_SERVERS_JSON[%d]: %w", i, err)
			}
			servers = append(servers, server)
		}
		return servers, nil
	}

	servers := []webrtc.ICEServer{}

	if stun := splitCommaSeparated(stunURLs); len(stun) > 0 {
		server := webrtc.ICEServer{URLs: stun}
		if err := validateICEServer(server); err != nil {
			return nil, fmt.Errorf("STUN_URLS: %w", err)
		}
		servers = append(servers, server)
	}

	if turn := splitCommaSeparated(turnURLs); len(turn) > 0 {
		server := webrtc.ICEServer{
			URLs:     turn,
			Username: strings.TrimSpace(turnUsername),
		}
		if cred := strings.TrimSpace(turnCredential); cred != "" {
			server.Credential = cred
		}
		if err := validateICEServer(server); err != nil {
			return nil, fmt.Errorf("TURN_URLS: %w", err)
		}
		servers = append(servers, server)
	}

	return servers, nil
}

// validateICEServer checks URL schemes and that TURN entries carry credentials.
func validateICEServer(server webrtc.ICEServer) error {
	if len(server.URLs) == 0 {
		return errors.New("missing urls")
	}

	needsCredentials := false
	for _, url := range server.URLs {
		scheme, _, ok := strings.Cut(strings.ToLower(url), ":")
		if !ok {
			return fmt.Errorf("url without scheme: %q", url)
		}

		switch scheme {
		case "stun", "stuns":
		case "turn", "turns":
			needsCredentials = true
		default:
			return fmt.Errorf("unsupported url scheme: %q", url)
		}
	}

	if needsCredentials {
		if server.Username == "" {
			return errors.New("turn urls require a username")
		}
		if cred, _ := server.Credential.(string); cred == "" {
			return errors.New("turn urls require a credential")
		}
	}

	return nil
}
