package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jeff-ai/jeff-api/internal/logger"
)

const defaultGeminiModelName = "gemini-1.5-flash-latest"

// GeminiCompleter produces JSON completions with Gemini. Embeddings stay on OpenAI
// because Gemini vectors do not have the stored dimension count.
type GeminiCompleter struct {
	client    *genai.Client
	modelName string
	log       *logger.Logger
}

func NewGeminiCompleter(ctx context.Context, apiKey, modelName string, log *logger.Logger) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if modelName == "" {
		modelName = defaultGeminiModelName
	}
	return &GeminiCompleter{client: client, modelName: modelName, log: log.With("client", "gemini")}, nil
}

func (g *GeminiCompleter) Close() error {
	if g.client == nil {
		return nil
	}
	if err := g.client.Close(); err != nil {
		return fmt.Errorf("close GenAI client: %w", err)
	}
	g.log.Info("GenAI client closed")
	return nil
}

func (g *GeminiCompleter) CompleteJSON(ctx context.Context, req CompletionRequest) ([]byte, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.System)},
	}
	model.ResponseMIMEType = "application/json"
	if req.Schema != nil {
		model.ResponseSchema = geminiSchema(req.Schema)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return nil, fmt.Errorf("gemini completion request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return nil, fmt.Errorf("gemini returned an empty completion")
	}
	return []byte(out.String()), nil
}

// geminiSchema converts the flat object schemas used for completions.
func geminiSchema(schema map[string]any) *genai.Schema {
	out := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
	props, _ := schema["properties"].(map[string]any)
	for name := range props {
		out.Properties[name] = &genai.Schema{Type: genai.TypeString}
	}
	if required, ok := schema["required"].([]string); ok {
		out.Required = required
	}
	return out
}
