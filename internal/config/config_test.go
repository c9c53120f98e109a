package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so host settings do not leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"DATABASE_URL", "PORT", "LOG_LEVEL", "FRONTEND_URL", "ENABLE_PERFORMANCE_LOGGING",
		"LLM_PROVIDER", "OPENAI_API_KEY", "GOOGLE_API_KEY", "CHAT_MODEL", "LLM_TIMEOUT",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"MAX_REQUEST_BODY_BYTES", "RABBITMQ_URL", "ORDER_EVENTS_EXCHANGE",
		"MENU_INDEX_WORKERS", "MESSAGE_PUBLISHER_BUFFER_SIZE", "MESSAGE_PUBLISHER_PER_EVENT_TIMEOUT",
		"METRICS_ENABLED", "OTEL_TRACES_EXPORTER",
	} {
		t.Setenv(key, "")
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		shouldSet    bool
		want         string
	}{
		{"returns environment variable when set", "TEST_VAR", "default", "custom", true, "custom"},
		{"returns default when environment variable not set", "TEST_VAR_MISSING", "default", "", false, "default"},
		{"returns default when environment variable is empty string", "TEST_VAR_EMPTY", "default", "", true, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			assert.Equal(t, tt.want, getEnv(tt.key, tt.defaultValue))
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{"valid integer", "200", 200},
		{"empty uses default", "", 100},
		{"invalid uses default", "abc", 100},
		{"negative is parsed", "-5", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT_VAR", tt.envValue)
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT_VAR", 100))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		envValue string
		want     bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"", false},
		{"yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VAR", tt.envValue)
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL_VAR", false))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		envValue string
		want     time.Duration
	}{
		{"5s", 5 * time.Second},
		{"2m", 2 * time.Minute},
		{"", 30 * time.Second},
		{"thirty", 30 * time.Second},
		{"-1s", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_DURATION_VAR", tt.envValue)
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION_VAR", 30*time.Second))
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "3001", cfg.Port)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "http://localhost:5173", cfg.FrontendURL)
		assert.False(t, cfg.PerformanceLogging)
		assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
		assert.Equal(t, ProviderOpenAI, cfg.EmbeddingProvider)
		assert.Equal(t, "gpt-4", cfg.ChatModel)
		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, 1536, cfg.EmbeddingDimensions)
		assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
		assert.Equal(t, int64(1<<20), cfg.MaxRequestBodyBytes)
		assert.Equal(t, "orders_topic", cfg.OrderEventsExchange)
		assert.Empty(t, cfg.RabbitMQURL)
		assert.Equal(t, 1, cfg.MenuIndexWorkers)
	})

	t.Run("google provider picks gemini defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "google")
		t.Setenv("GOOGLE_API_KEY", "g-key")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "gemini-2.0-flash", cfg.ChatModel)
		assert.Equal(t, ProviderGoogle, cfg.EmbeddingProvider)
		assert.Equal(t, "gemini-embedding-001", cfg.EmbeddingModel)
		assert.Equal(t, "g-key", cfg.LLMAPIKey())
		assert.Equal(t, "g-key", cfg.EmbeddingAPIKey())
	})

	t.Run("hashing embeddings need no key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EMBEDDING_PROVIDER", "hashing")
		t.Setenv("OPENAI_API_KEY", "sk-test")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "hashing-v1", cfg.EmbeddingModel)
		assert.Empty(t, cfg.EmbeddingAPIKey())
		assert.Equal(t, "sk-test", cfg.LLMAPIKey())
	})

	t.Run("performance logging flag", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENABLE_PERFORMANCE_LOGGING", "true")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.PerformanceLogging)
	})

	t.Run("unsupported llm provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "anthropic")

		_, err := Load()
		require.ErrorIs(t, err, errUnsupportedLLMProvider)
	})

	t.Run("unsupported embedding provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EMBEDDING_PROVIDER", "local")

		_, err := Load()
		require.ErrorIs(t, err, errUnsupportedEmbeddingProvider)
	})

	t.Run("non-positive dimensions rejected", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EMBEDDING_DIMENSIONS", "0")

		_, err := Load()
		require.Error(t, err)
	})
}

func TestHasUsableCredential(t *testing.T) {
	assert.False(t, HasUsableCredential(""))
	assert.False(t, HasUsableCredential("   "))
	assert.False(t, HasUsableCredential(PlaceholderAPIKey))
	assert.True(t, HasUsableCredential("sk-live-123"))
}
