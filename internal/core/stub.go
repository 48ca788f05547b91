package core

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeff-ai/jeff-api/internal/store"
	"github.com/jeff-ai/jeff-api/internal/utils"
)

// Deterministic stand-ins used when APP_ENV=test or a provider is set to "stub".

type StubEmbedder struct{}

// Embed expands a SHA-256 chain of text into a unit vector. Equal text gives equal vectors.
func (StubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, store.EmbeddingDimensions)
	block := sha256.Sum256([]byte(text))
	for i := range vec {
		offset := (i % 8) * 4
		if i > 0 && offset == 0 {
			block = sha256.Sum256(block[:])
		}
		n := binary.BigEndian.Uint32(block[offset : offset+4])
		vec[i] = float32(n)/float32(1<<32) - 0.5
	}
	return utils.Normalize(vec), nil
}

type StubCompleter struct{}

// CompleteJSON fills every schema property with "This is a test <property name>".
func (StubCompleter) CompleteJSON(_ context.Context, req CompletionRequest) ([]byte, error) {
	props, _ := req.Schema["properties"].(map[string]any)
	out := make(map[string]string, len(props))
	for name := range props {
		out[name] = "This is a test " + strings.ReplaceAll(name, "_", " ")
	}
	return json.Marshal(out)
}

type StubTranscriber struct{}

func (StubTranscriber) Transcribe(_ context.Context, audio []byte, _ TranscribeOptions) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoTranscript
	}
	return "This is a test transcription", nil
}

type StubWeather struct{}

func (StubWeather) Current(_ context.Context, q WeatherQuery) (json.RawMessage, error) {
	doc := map[string]any{
		"lat":      q.Lat,
		"lon":      q.Lon,
		"timezone": "UTC",
		"current": map[string]any{
			"temp":    21.5,
			"weather": []map[string]any{{"id": 800, "main": "Clear", "description": "clear sky", "icon": "01d"}},
		},
		"units": q.Units,
		"lang":  q.Lang,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("stub weather: %w", err)
	}
	return raw, nil
}

func (StubWeather) Geocode(_ context.Context, query string, limit int) ([]Location, error) {
	locations := []Location{
		{Name: query, Lat: 40.7128, Lon: -74.006, Country: "US", State: "New York"},
	}
	if limit < len(locations) {
		locations = locations[:limit]
	}
	return locations, nil
}
