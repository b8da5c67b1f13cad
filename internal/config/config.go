package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// NATS configuration
	NatsURL            string
	NatsRequestSubject string
	NatsTimeout        time.Duration

	// Redis session store
	RedisURL   string
	SessionTTL time.Duration

	// LLM configuration
	OpenAIAPIKey string
	OpenAIModel  string
	LLMTimeout   time.Duration

	// Network participant identity
	BapID  string
	BapURI string

	// Resource files
	RegistryPath string
	SchemaDir    string

	// Outbound network calls
	NetworkTimeout time.Duration

	// Operator webhook API
	HTTPPort int

	// Messaging (WhatsApp-style sender)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioNumber     string
	DefaultRecipient string

	// Order-management backend
	BackendURL   string
	BackendToken string

	// Service configuration
	ServiceName string
}

func Load() (*Config, error) {
	cfg := &Config{
		// NATS settings
		NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		NatsRequestSubject: getEnv("NATS_REQUEST_SUBJECT", "beckn.chat"),
		NatsTimeout:        getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		// Redis settings
		RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL: getDurationEnv("SESSION_TTL", 30*time.Minute),

		// LLM settings
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o"),
		LLMTimeout:   getDurationEnv("LLM_TIMEOUT", 30*time.Second),

		// Participant identity on the network
		BapID:  getEnv("BAP_ID", ""),
		BapURI: getEnv("BAP_URI", ""),

		// Resources
		RegistryPath: getEnv("REGISTRY_PATH", "config/registry.yaml"),
		SchemaDir:    getEnv("SCHEMA_DIR", "config/schemas"),

		// Outbound network calls
		NetworkTimeout: getDurationEnv("NETWORK_TIMEOUT", 30*time.Second),

		// Webhook API
		HTTPPort: getIntEnv("HTTP_PORT", 8080),

		// Messaging
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioNumber:     getEnv("TWILIO_NUMBER", ""),
		DefaultRecipient: getEnv("DEFAULT_RECIPIENT", ""),

		// Backend
		BackendURL:   getEnv("BACKEND_URL", ""),
		BackendToken: getEnv("BACKEND_TOKEN", ""),

		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "beckn-intent"),
	}

	if cfg.BapID == "" || cfg.BapURI == "" {
		return nil, fmt.Errorf("BAP_ID and BAP_URI are required")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
