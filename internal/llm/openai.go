package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/dossier/internal/util"
)

// DefaultOllamaURL is the OpenAI-compatible endpoint of a local Ollama
const DefaultOllamaURL = "http://localhost:11434/v1"

// OpenAIProvider implements the Provider interface for OpenAI models and
// OpenAI-compatible servers such as Ollama
type OpenAIProvider struct {
	name   string
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}
	return newProvider("openai", config), nil
}

// NewOllamaProvider creates a provider for a local Ollama server. No API
// key is needed; a model must be named.
func NewOllamaProvider(config Config) (*OpenAIProvider, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("Ollama model is required (e.g. llama3.1)")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultOllamaURL
	}
	if config.APIKey == "" {
		config.APIKey = "ollama"
	}
	return newProvider("ollama", config), nil
}

func newProvider(name string, config Config) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = util.NewHTTPClient(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)

	return &OpenAIProvider{
		name:   name,
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Simple check: try to list models (lightweight API call)
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// ExtractFacts asks the model for field values in JSON mode
func (p *OpenAIProvider) ExtractFacts(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	if len(req.Fields) == 0 {
		return &ExtractResponse{}, nil
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req)
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1500
	}

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You extract structured facts from applicant documents and answer in JSON. You never invent values.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	values, rejected, err := ParseResponse(strings.TrimSpace(resp.Choices[0].Message.Content), req.Fields)
	if err != nil {
		return nil, err
	}

	return &ExtractResponse{
		Values:     values,
		Rejected:   rejected,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
