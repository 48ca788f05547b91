package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeff-ai/jeff-api/internal/logger"
	"github.com/jeff-ai/jeff-api/internal/store"
	"github.com/jeff-ai/jeff-api/internal/utils"
)

const refineSystemInstruction = `You are a professional copy editor dedicated to refining the original text provided.
Your mission is to:
- Focus exclusively on refining the original text.
- Eliminate redundant or filler words.
- Enhance clarity and flow.
- Preserve the original message and tone.

IMPORTANT:
- Do not edit the additional context; it is provided solely for informational purposes to guide your refinement of the original text.
- Your task is to refine only the original text, using the context to inform your edits without altering it.
- Be sure to make grammatical changes to the original text where necessary.
- There's a translation trigger phrase that you should be aware of:
  - "Hey Jeff, translate this to <target language>"
  - If you see this as the start of the original text, you should translate the original text to the target language.

Provide the following JSON:
{
  refined_copy: string,
  explanation: string,
}

The refined_copy should be a string of the refined text.
The explanation, where applicable, should be a string explaining the changes made.`

const markdownSystemInstruction = `You are a professional text converter specializing in transforming HTML content into Markdown format.
Your mission is to:
- Accurately convert HTML elements to their Markdown equivalents.
- Preserve the structure and content of the original HTML.
- Ensure the Markdown output is clean, readable, and maintains the original intent.
- <code> tags should be converted to markdown code blocks.

IMPORTANT:
- Focus solely on converting the HTML provided.
- Do not alter the content or structure beyond necessary Markdown formatting.
- Ensure that all HTML tags are appropriately converted to Markdown syntax.

Provide the following JSON:
{
  markdown: string,
}

The markdown should be a string representing the converted Markdown text.`

var refinedCopySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"refined_copy": map[string]any{"type": "string"},
		"explanation":  map[string]any{"type": "string"},
	},
	"required":             []string{"refined_copy", "explanation"},
	"additionalProperties": false,
}

var markdownSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"markdown": map[string]any{"type": "string"},
	},
	"required":             []string{"markdown"},
	"additionalProperties": false,
}

// RefinedCopy is the model's answer to a refinement request.
type RefinedCopy struct {
	RefinedCopy string `json:"refined_copy"`
	Explanation string `json:"explanation"`
}

// RefineService rewrites text through the completion provider and stores the result.
type RefineService struct {
	completer Completer
	embedder  Embedder
	store     *store.Store
	log       *logger.Logger
}

func NewRefineService(completer Completer, embedder Embedder, db *store.Store, log *logger.Logger) *RefineService {
	return &RefineService{
		completer: completer,
		embedder:  embedder,
		store:     db,
		log:       log.With("service", "refine"),
	}
}

// Refine asks the model to tidy original. additionalContext only informs the edit.
func (s *RefineService) Refine(ctx context.Context, original, additionalContext string) (*RefinedCopy, error) {
	user := "Help me refine the following text, please only refine the original text,\n" +
		"DO NOT include any text from the additional context.\n" +
		"Original Text: " + original
	if strings.TrimSpace(additionalContext) != "" {
		user += "\n\nHere's some additional context to help you understand the context of the original text:\n" +
			"Additional Context: " + additionalContext
	}

	raw, err := s.completer.CompleteJSON(ctx, CompletionRequest{
		System:     refineSystemInstruction,
		User:       user,
		SchemaName: "refined_copy",
		Schema:     refinedCopySchema,
	})
	if err != nil {
		return nil, fmt.Errorf("refine completion: %w", err)
	}

	var out RefinedCopy
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("refine completion decode: %w", err)
	}
	if strings.TrimSpace(out.RefinedCopy) == "" {
		return nil, fmt.Errorf("refine completion returned no refined copy")
	}
	return &out, nil
}

// ConvertToMarkdown turns an HTML fragment into Markdown. Nothing is stored.
func (s *RefineService) ConvertToMarkdown(ctx context.Context, html string) (string, error) {
	raw, err := s.completer.CompleteJSON(ctx, CompletionRequest{
		System:     markdownSystemInstruction,
		User:       "Convert the following HTML to markdown.\n\nHTML:\n" + html,
		SchemaName: "markdown",
		Schema:     markdownSchema,
	})
	if err != nil {
		return "", fmt.Errorf("markdown completion: %w", err)
	}

	var out struct {
		Markdown string `json:"markdown"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("markdown completion decode: %w", err)
	}
	return out.Markdown, nil
}

// CreateRefinement refines original, embeds the refined copy and persists both for userID.
// userID must already exist.
func (s *RefineService) CreateRefinement(ctx context.Context, userID, original, additionalContext string) (*store.Refinement, error) {
	refined, err := s.Refine(ctx, original, additionalContext)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, refined.RefinedCopy)
	if err != nil {
		return nil, fmt.Errorf("embed refined copy: %w", err)
	}

	refinement := &store.Refinement{
		UserID:                userID,
		OriginalText:          original,
		OriginalTextWordCount: utils.WordCount(original),
		RefinedText:           refined.RefinedCopy,
		RefinedTextWordCount:  utils.WordCount(refined.RefinedCopy),
		Vector:                vector,
	}
	if refined.Explanation != "" {
		refinement.Explanation = &refined.Explanation
	}
	if err := s.store.CreateRefinement(ctx, refinement); err != nil {
		return nil, err
	}

	s.log.Info("Refinement created", "refinement_id", refinement.ID, "user_id", userID,
		"original_words", refinement.OriginalTextWordCount, "refined_words", refinement.RefinedTextWordCount)
	return refinement, nil
}
