package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeff-ai/jeff-api/internal/config"
	"github.com/jeff-ai/jeff-api/internal/logger"
)

// ErrNoTranscript is returned when the speech provider answers without any text.
var ErrNoTranscript = errors.New("no transcript in provider response")

type Embedder interface {
	// Embed returns a store.EmbeddingDimensions long vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionRequest asks for a JSON object matching Schema.
type CompletionRequest struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

type Completer interface {
	// CompleteJSON returns the raw JSON object produced by the model.
	CompleteJSON(ctx context.Context, req CompletionRequest) ([]byte, error)
}

type TranscribeOptions struct {
	MimeType string
	// Language is an optional BCP-47 tag; empty lets the provider decide.
	Language string
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions) (string, error)
}

// Gateway bundles the external AI and weather capabilities chosen by configuration.
type Gateway struct {
	Embedder    Embedder
	Completer   Completer
	Transcriber Transcriber
	Weather     WeatherProvider

	closers []io.Closer
}

// NewGateway builds one client per configured provider. Stubs need no credentials.
func NewGateway(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Gateway, error) {
	g := &Gateway{}

	var openai *OpenAIClient
	openAI := func() *OpenAIClient {
		if openai == nil {
			openai = NewOpenAIClient(OpenAIConfig{
				APIKey:     cfg.OpenAIAPIKey,
				BaseURL:    cfg.OpenAIBaseURL,
				Model:      cfg.OpenAIModel,
				EmbedModel: cfg.OpenAIEmbedModel,
			}, log)
		}
		return openai
	}

	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		g.Embedder = openAI()
	default:
		g.Embedder = StubEmbedder{}
	}

	switch cfg.CompletionProvider {
	case config.ProviderOpenAI:
		g.Completer = openAI()
	case config.ProviderGemini:
		gemini, err := NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			return nil, err
		}
		g.Completer = gemini
		g.closers = append(g.closers, gemini)
	default:
		g.Completer = StubCompleter{}
	}

	switch cfg.TranscriptionProvider {
	case config.ProviderDeepgram:
		g.Transcriber = NewDeepgramTranscriber(cfg.DeepgramAPIKey, "", log)
	case config.ProviderGoogle:
		speech, err := NewGoogleSpeechTranscriber(ctx, log)
		if err != nil {
			return nil, err
		}
		g.Transcriber = speech
		g.closers = append(g.closers, speech)
	default:
		g.Transcriber = StubTranscriber{}
	}

	switch cfg.WeatherProvider {
	case config.ProviderOpenWeather:
		g.Weather = NewOpenWeatherClient(cfg.OpenWeatherKey, "", log)
	default:
		g.Weather = StubWeather{}
	}

	log.Info("AI gateway ready",
		"embedding", cfg.EmbeddingProvider,
		"completion", cfg.CompletionProvider,
		"transcription", cfg.TranscriptionProvider,
		"weather", cfg.WeatherProvider,
	)
	return g, nil
}

func (g *Gateway) Close() error {
	var errs []error
	for _, c := range g.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close gateway: %w", errors.Join(errs...))
	}
	return nil
}
