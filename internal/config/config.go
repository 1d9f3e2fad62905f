package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the conversation-api service.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"conversation-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"CONVERSATION_API_PORT" envDefault:"8188"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	// Auth (JWT bearer tokens against a JWKS endpoint)
	AuthEnabled  bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer   string `env:"ISSUER"`
	AuthAudience string `env:"AUDIENCE"`
	AuthJWKSURL  string `env:"JWKS_URL"`

	// Conversation store
	StorageDir string `env:"CONVERSATION_STORAGE_DIR" envDefault:"./data/conversations"`

	// Interaction platform
	InteractionAPIURL    string `env:"INTERACTION_API_URL" envDefault:"http://localhost:8090"`
	InteractionAPIToken  string `env:"INTERACTION_API_TOKEN"`
	InteractionEventsURL string `env:"INTERACTION_EVENTS_URL" envDefault:"http://localhost:8090/api/v1/events"`

	// LiveKit
	LiveKitWsURL     string `env:"LIVEKIT_WS_URL" envDefault:"ws://localhost:7880"`
	LiveKitAPIKey    string `env:"LIVEKIT_API_KEY"`
	LiveKitAPISecret string `env:"LIVEKIT_API_SECRET"`

	// Rooms
	RoomJoinBaseURL  string        `env:"ROOM_JOIN_BASE_URL" envDefault:"http://localhost:3000/join"`
	RoomEmptyTimeout time.Duration `env:"ROOM_EMPTY_TIMEOUT" envDefault:"1h"`

	// Reconciliation
	ReconcileSettleDelay time.Duration `env:"RECONCILE_SETTLE_DELAY" envDefault:"5s"`
	ReconcileWorkers     int           `env:"RECONCILE_WORKERS" envDefault:"4"`

	// Attribute sync retries after interaction recreation
	AttributeSyncRetries int           `env:"ATTRIBUTE_SYNC_RETRIES" envDefault:"3"`
	AttributeSyncBackoff time.Duration `env:"ATTRIBUTE_SYNC_BACKOFF" envDefault:"2s"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	// Validate auth configuration
	if cfg.AuthEnabled {
		if strings.TrimSpace(cfg.AuthIssuer) == "" {
			return nil, fmt.Errorf("ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(cfg.AuthAudience) == "" {
			return nil, fmt.Errorf("AUDIENCE is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(cfg.AuthJWKSURL) == "" {
			return nil, fmt.Errorf("JWKS_URL is required when AUTH_ENABLED is true")
		}
	}

	// Validate LiveKit configuration
	if strings.TrimSpace(cfg.LiveKitAPIKey) == "" {
		return nil, fmt.Errorf("LIVEKIT_API_KEY is required")
	}
	if strings.TrimSpace(cfg.LiveKitAPISecret) == "" {
		return nil, fmt.Errorf("LIVEKIT_API_SECRET is required")
	}

	if cfg.ReconcileWorkers < 1 {
		return nil, fmt.Errorf("RECONCILE_WORKERS must be at least 1")
	}

	return cfg, nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
