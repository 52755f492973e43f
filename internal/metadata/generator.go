package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
)

// DefaultMaxTokens is the maximum content length before truncation (in tokens).
const DefaultMaxTokens = 16000

// Metadata keys produced by the generator.
const (
	KeySummary  = "summary"
	KeyKeywords = "keywords"
)

// DocumentMetadata contains LLM-generated metadata for a document.
type DocumentMetadata struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// Fields returns the metadata as record fields. Empty values are omitted.
func (m *DocumentMetadata) Fields() map[string]any {
	fields := make(map[string]any, 2)
	if m.Summary != "" {
		fields[KeySummary] = m.Summary
	}
	if len(m.Keywords) > 0 {
		fields[KeyKeywords] = m.Keywords
	}
	return fields
}

// Generator produces document summaries with an OpenAI chat model.
type Generator struct {
	client    *openai.Client
	model     openai.ChatModel
	maxTokens int
	logger    *slog.Logger
}

// NewGenerator creates a metadata generator with the given OpenAI client.
// Optional maxTokens parameter sets truncation limit (defaults to DefaultMaxTokens).
func NewGenerator(client *openai.Client, logger *slog.Logger, maxTokens ...int) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	max := DefaultMaxTokens
	if len(maxTokens) > 0 && maxTokens[0] > 0 {
		max = maxTokens[0]
	}
	return &Generator{
		client:    client,
		model:     openai.ChatModelGPT4oMini,
		maxTokens: max,
		logger:    logger,
	}
}

// GenerateMetadata analyzes document content and produces a summary and keyword list.
func (g *Generator) GenerateMetadata(ctx context.Context, name, content string) (*DocumentMetadata, error) {
	truncated := g.truncateContent(name, content)

	prompt := fmt.Sprintf(`Analyze this document and provide:
1. A concise summary (1-2 sentences) capturing the main topic and key points
2. A list of up to 10 keywords: named concepts, terms, people, organisations or products

Document name: %s

Document content:
%s

Respond in JSON format:
{"summary": "Brief description of what this document covers", "keywords": ["Keyword1", "Keyword2"]}`, name, truncated)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: g.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	return parseResponse(resp.Choices[0].Message.Content)
}

func parseResponse(content string) (*DocumentMetadata, error) {
	var metadata DocumentMetadata
	if err := json.Unmarshal([]byte(content), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &metadata, nil
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (g *Generator) truncateContent(name, content string) string {
	maxChars := g.maxTokens * 4
	if len(content) <= maxChars {
		return content
	}

	g.logger.Warn("Truncating content for summary",
		"file", name,
		"from", len(content),
		"to", maxChars,
		"tokens", g.maxTokens,
	)

	// Back off to a rune boundary.
	cut := maxChars
	for cut > 0 && !isRuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
