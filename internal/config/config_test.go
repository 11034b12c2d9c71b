package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullEnv() map[string]string {
	return map[string]string{
		"LLAMA_API_URL":              "https://llama.example.com/v1/chat/completions",
		"LLAMA_API_KEY":              "llama-key",
		"GOOGLE_CLIENT_ID":           "client-id",
		"GOOGLE_CLIENT_SECRET":       "client-secret",
		"GOOGLE_REDIRECT_URL":        "https://timely.example.com/auth/google/callback",
		"ELEVENLABS_API_KEY":         "el-key",
		"ELEVENLABS_AGENT_ID":        "agent-1",
		"ELEVENLABS_PHONE_NUMBER_ID": "phone-1",
		"SESSION_SECRET":             "secret",
	}
}

func lookup(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func TestFromEnv(t *testing.T) {
	cfg, err := FromEnv(lookup(fullEnv()))
	require.NoError(t, err)

	assert.Equal(t, "llama-key", cfg.LlamaAPIKey)
	assert.Equal(t, "agent-1", cfg.ElevenLabsAgentID)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, DefaultMetricsAddr, cfg.MetricsAddr)
}

func TestFromEnvMissingKeys(t *testing.T) {
	env := fullEnv()
	delete(env, "LLAMA_API_KEY")
	delete(env, "SESSION_SECRET")

	_, err := FromEnv(lookup(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLAMA_API_KEY")
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestFromEnvOptionalOverrides(t *testing.T) {
	env := fullEnv()
	env["HTTP_ADDR"] = ":8080"
	env["METRICS_ADDR"] = ":9999"
	env["BASE_URL"] = "https://timely.example.com"

	cfg, err := FromEnv(lookup(env))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9999", cfg.MetricsAddr)
	assert.Equal(t, "https://timely.example.com", cfg.BaseURL)
}
