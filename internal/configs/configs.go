/*
Package configs loads the relay's configuration from environment variables.

A .env file in the working directory is read first when present; real environment
variables always win. Every setting has a default so the server starts with no
configuration in development.
*/
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pion/webrtc/v4"
)

const (
	// EnvDevelopment is the default ENVIRONMENT value.
	EnvDevelopment = "development"

	defaultPort              = 8080
	defaultEventRate         = 20.0
	defaultEventBurst        = 40
	defaultMaxUsernameLength = 64
	defaultSendQueueSize     = 256
	defaultStunURL           = "stun:stun.l.google.com:19302"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Signaling Settings
	ImplicitLeaveOnDisconnect bool
	EventRate                 float64
	EventBurst                int
	MaxUsernameLength         int
	SendQueueSize             int

	// ICE servers advertised to clients.
	ICEServers []webrtc.ICEServer

	// Logging Settings
	LogFile string
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// LoadConfig reads .env (if any) and then parses the configuration from the environment.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return FromEnv(os.Getenv)
}

// FromEnv parses the configuration using getenv as the variable source.
func FromEnv(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = EnvDevelopment
	}

	port, err := intFromEnv(getenv, "PORT", defaultPort)
	if err != nil {
		return nil, err
	}
	if port < 1024 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", port, 1024, 65535)
	}
	cfg.Port = port

	// --- Security Settings ---
	cfg.AllowedOrigins = splitCommaSeparated(getenv("ALLOWED_ORIGINS"))
	if !cfg.IsDevelopment() && len(cfg.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("ALLOWED_ORIGINS environment variable is required in %s environment", cfg.Environment)
	}

	// --- Signaling Settings ---
	cfg.ImplicitLeaveOnDisconnect = true
	if raw := strings.TrimSpace(getenv("IMPLICIT_LEAVE_ON_DISCONNECT")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid IMPLICIT_LEAVE_ON_DISCONNECT environment variable: %w", err)
		}
		cfg.ImplicitLeaveOnDisconnect = v
	}

	cfg.EventRate = defaultEventRate
	if raw := strings.TrimSpace(getenv("EVENT_RATE")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid EVENT_RATE environment variable: %w", err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("EVENT_RATE must be positive, got %v", v)
		}
		cfg.EventRate = v
	}

	if cfg.EventBurst, err = positiveIntFromEnv(getenv, "EVENT_BURST", defaultEventBurst); err != nil {
		return nil, err
	}
	if cfg.MaxUsernameLength, err = positiveIntFromEnv(getenv, "MAX_USERNAME_LENGTH", defaultMaxUsernameLength); err != nil {
		return nil, err
	}
	if cfg.SendQueueSize, err = positiveIntFromEnv(getenv, "SEND_QUEUE_SIZE", defaultSendQueueSize); err != nil {
		return nil, err
	}

	// --- ICE Settings ---
	stunURLs := getenv("STUN_URLS")
	if strings.TrimSpace(getenv("ICE_SERVERS_JSON")) == "" && strings.TrimSpace(stunURLs) == "" && strings.TrimSpace(getenv("TURN_URLS")) == "" {
		stunURLs = defaultStunURL
	}
	cfg.ICEServers, err = ParseICEServers(
		getenv("ICE_SERVERS_JSON"),
		stunURLs,
		getenv("TURN_URLS"),
		getenv("TURN_USERNAME"),
		getenv("TURN_CREDENTIAL"),
	)
	if err != nil {
		return nil, err
	}

	// --- Logging Settings ---
	cfg.LogFile = strings.TrimSpace(getenv("LOG_FILE"))

	return cfg, nil
}

func intFromEnv(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func positiveIntFromEnv(getenv func(string) string, key string, def int) (int, error) {
	v, err := intFromEnv(getenv, key, def)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, v)
	}
	return v, nil
}

func splitCommaSeparated(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
