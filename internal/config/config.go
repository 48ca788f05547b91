package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderStub        = "stub"
	ProviderOpenAI      = "openai"
	ProviderGemini      = "gemini"
	ProviderDeepgram    = "deepgram"
	ProviderGoogle      = "google"
	ProviderOpenWeather = "openweather"
)

type Config struct {
	AppEnv      string
	HTTPPort    string
	LogMode     string
	DatabaseURL string

	AuthIssuerBaseURL string
	AuthClientID      string
	AuthClientSecret  string
	AuthRedirectURL   string
	AuthSiteURL       string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	OpenAIEmbedModel string
	GeminiAPIKey     string
	GeminiModel      string
	DeepgramAPIKey   string
	OpenWeatherKey   string

	CompletionProvider    string
	EmbeddingProvider     string
	TranscriptionProvider string
	WeatherProvider       string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	appEnv := strings.ToLower(getEnv("APP_ENV", "development"))
	defaultAI := ProviderOpenAI
	defaultTranscription := ProviderDeepgram
	defaultWeather := ProviderOpenWeather
	if appEnv == "test" {
		defaultAI = ProviderStub
		defaultTranscription = ProviderStub
		defaultWeather = ProviderStub
	}

	cfg := &Config{
		AppEnv:      appEnv,
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		LogMode:     getEnv("LOG_MODE", "dev"),
		DatabaseURL: getEnv("DATABASE_URL", "jeff.db"),

		AuthIssuerBaseURL: strings.TrimRight(getEnv("AUTH_ISSUER_BASE_URL", ""), "/"),
		AuthClientID:      getEnv("AUTH_CLIENT_ID", ""),
		AuthClientSecret:  getEnv("AUTH_CLIENT_SECRET", ""),
		AuthRedirectURL:   getEnv("AUTH_REDIRECT_URL", ""),
		AuthSiteURL:       getEnv("AUTH_SITE_URL", ""),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    strings.TrimRight(getEnv("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel: getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		DeepgramAPIKey:   getEnv("DEEPGRAM_API_KEY", ""),
		OpenWeatherKey:   getEnv("OPENWEATHER_API_KEY", ""),

		CompletionProvider:    strings.ToLower(getEnv("COMPLETION_PROVIDER", defaultAI)),
		EmbeddingProvider:     strings.ToLower(getEnv("EMBEDDING_PROVIDER", defaultAI)),
		TranscriptionProvider: strings.ToLower(getEnv("TRANSCRIPTION_PROVIDER", defaultTranscription)),
		WeatherProvider:       strings.ToLower(getEnv("WEATHER_PROVIDER", defaultWeather)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every selected provider has the credentials it needs.
func (c *Config) Validate() error {
	var errs []error
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s environment variable is required", key))
		}
	}

	if c.AppEnv != "test" {
		require("AUTH_ISSUER_BASE_URL", c.AuthIssuerBaseURL)
		require("AUTH_CLIENT_ID", c.AuthClientID)
	}

	switch c.CompletionProvider {
	case ProviderOpenAI:
		require("OPENAI_API_KEY", c.OpenAIAPIKey)
	case ProviderGemini:
		require("GEMINI_API_KEY", c.GeminiAPIKey)
	case ProviderStub:
	default:
		errs = append(errs, fmt.Errorf("unknown COMPLETION_PROVIDER %q", c.CompletionProvider))
	}

	switch c.EmbeddingProvider {
	case ProviderOpenAI:
		require("OPENAI_API_KEY", c.OpenAIAPIKey)
	case ProviderStub:
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider))
	}

	switch c.TranscriptionProvider {
	case ProviderDeepgram:
		require("DEEPGRAM_API_KEY", c.DeepgramAPIKey)
	case ProviderGoogle, ProviderStub:
	default:
		errs = append(errs, fmt.Errorf("unknown TRANSCRIPTION_PROVIDER %q", c.TranscriptionProvider))
	}

	switch c.WeatherProvider {
	case ProviderOpenWeather:
		require("OPENWEATHER_API_KEY", c.OpenWeatherKey)
	case ProviderStub:
	default:
		errs = append(errs, fmt.Errorf("unknown WEATHER_PROVIDER %q", c.WeatherProvider))
	}

	return errors.Join(errs...)
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
