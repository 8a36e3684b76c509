package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/dossier/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// ExtractFacts reads field values out of a document
	ExtractFacts(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Field is one value the model is asked to find
type Field struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"question"`
	Type    string   `json:"type"`
	Choices []string `json:"choices,omitempty"`
}

// FieldsFromDefinitions converts catalog definitions into request fields
func FieldsFromDefinitions(defs []model.FactDefinition) []Field {
	fields := make([]Field, 0, len(defs))
	for _, d := range defs {
		fields = append(fields, Field{
			ID:      d.ID,
			Prompt:  d.Prompt,
			Type:    string(d.Type),
			Choices: d.Choices,
		})
	}
	return fields
}

// ExtractRequest contains the input for LLM extraction
type ExtractRequest struct {
	// Category describes the document (passport, bank_statement, ...)
	Category string

	// Content is the document text
	Content string

	// Fields is the STRICT allowlist of field ids the model may return
	Fields []Field

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// FieldValue is a value the model found, with its own confidence estimate
type FieldValue struct {
	FactID     string  `json:"id"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ExtractResponse contains the model's extraction output
type ExtractResponse struct {
	// Values are the accepted field values
	Values []FieldValue

	// Rejected are ids the model returned that were not requested
	Rejected []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 1500,
	}
}

// maxContentRunes keeps prompts within small model context windows
const maxContentRunes = 24000

// BuildPrompt constructs the default extraction prompt
func BuildPrompt(req ExtractRequest) string {
	fields, _ := json.MarshalIndent(req.Fields, "", "  ")

	content := req.Content
	if utf8.RuneCountInString(content) > maxContentRunes {
		content = string([]rune(content)[:maxContentRunes])
	}

	return fmt.Sprintf(`You are reading a %s supplied by a visa applicant. Extract values for the fields below.

CRITICAL RULES:
1. Only use ids from this field list:
%s

2. Only report values that are written in the document. Never guess or infer.
3. For each value give a confidence between 0 and 1 reflecting how clearly the document states it.
4. Dates are YYYY-MM-DD. For choice fields use one of the listed choices.
5. Leave out fields the document does not mention.

Respond with JSON only, in this shape:
{"facts": [{"id": "<field id>", "value": "<value>", "confidence": 0.0}]}

Document:
---
%s
---
`, strings.ReplaceAll(req.Category, "_", " "), fields, content)
}

type rawValue struct {
	ID         string          `json:"id"`
	Value      json.RawMessage `json:"value"`
	Confidence float64         `json:"confidence"`
}

// ParseResponse decodes the model's JSON answer. Ids outside fields are
// rejected, blank values dropped and confidences clamped to [0,1].
func ParseResponse(content string, fields []Field) ([]FieldValue, []string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var payload struct {
		Facts []rawValue `json:"facts"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		allowed[f.ID] = true
	}

	var values []FieldValue
	var rejected []string
	for _, r := range payload.Facts {
		if !allowed[r.ID] {
			rejected = append(rejected, r.ID)
			continue
		}
		value := rawString(r.Value)
		if value == "" {
			continue
		}
		confidence := r.Confidence
		if confidence < 0 {
			confidence = 0
		} else if confidence > 1 {
			confidence = 1
		}
		values = append(values, FieldValue{FactID: r.ID, Value: value, Confidence: confidence})
	}
	return values, rejected, nil
}

// rawString renders a JSON value as text: strings unquoted, arrays and
// objects compacted, null as empty
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}
