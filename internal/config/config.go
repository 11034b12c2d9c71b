package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all environment-provided settings for the timely backend.
// Required fields are validated at startup; a missing key is fatal.
type Config struct {
	// Completion API
	LlamaAPIURL string
	LlamaAPIKey string

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Telephony vendor
	ElevenLabsAPIKey        string
	ElevenLabsAgentID       string
	ElevenLabsPhoneNumberID string

	// Session signing secret
	SessionSecret string

	// Optional server settings
	HTTPAddr    string
	MetricsAddr string
	BaseURL     string
}

// Default addresses used when the corresponding env vars are unset.
const (
	DefaultHTTPAddr    = ":3000"
	DefaultMetricsAddr = ":9090"
)

// envKeys maps struct fields to their environment variable names.
// Kept in one place so the error message can list every missing key at once.
var requiredKeys = []string{
	"LLAMA_API_URL",
	"LLAMA_API_KEY",
	"GOOGLE_CLIENT_ID",
	"GOOGLE_CLIENT_SECRET",
	"GOOGLE_REDIRECT_URL",
	"ELEVENLABS_API_KEY",
	"ELEVENLABS_AGENT_ID",
	"ELEVENLABS_PHONE_NUMBER_ID",
	"SESSION_SECRET",
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored for local development but its absence is not an error.
func Load() (*Config, error) {
	// Ignore error: .env is optional, the environment is authoritative
	_ = godotenv.Load()

	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using the given lookup function.
// Extracted from Load so tests can supply their own environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	var missing []string
	for _, key := range requiredKeys {
		if getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		LlamaAPIURL:             getenv("LLAMA_API_URL"),
		LlamaAPIKey:             getenv("LLAMA_API_KEY"),
		GoogleClientID:          getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:      getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:       getenv("GOOGLE_REDIRECT_URL"),
		ElevenLabsAPIKey:        getenv("ELEVENLABS_API_KEY"),
		ElevenLabsAgentID:       getenv("ELEVENLABS_AGENT_ID"),
		ElevenLabsPhoneNumberID: getenv("ELEVENLABS_PHONE_NUMBER_ID"),
		SessionSecret:           getenv("SESSION_SECRET"),
		HTTPAddr:                getenv("HTTP_ADDR"),
		MetricsAddr:             getenv("METRICS_ADDR"),
		BaseURL:                 getenv("BASE_URL"),
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = DefaultMetricsAddr
	}

	return cfg, nil
}
