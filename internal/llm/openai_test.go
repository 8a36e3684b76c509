package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

var testFields = []Field{
	{ID: "identity.full_name", Prompt: "What is your full name?", Type: "short_text"},
	{ID: "identity.date_of_birth", Prompt: "When were you born?", Type: "date"},
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
			t.Errorf("Expected JSON response format, got %+v", req.ResponseFormat)
		}

		resp := openai.ChatCompletionResponse{
			ID:      "chatcmpl-123",
			Object:  "chat.completion",
			Created: 1677652288,
			Model:   "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Index: 0,
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: content,
					},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{
				TotalTokens: 100,
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIProvider_ExtractFacts_Success(t *testing.T) {
	server := chatServer(t, `{"facts": [
		{"id": "identity.full_name", "value": "Jane Doe", "confidence": 0.92},
		{"id": "identity.date_of_birth", "value": "1990-04-12", "confidence": 1.4},
		{"id": "identity.shoe_size", "value": "38", "confidence": 0.9}
	]}`)
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-4o-mini", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.ExtractFacts(context.Background(), ExtractRequest{
		Category: "passport",
		Content:  "Surname: DOE\nGiven names: JANE",
		Fields:   testFields,
	})
	if err != nil {
		t.Fatalf("ExtractFacts failed: %v", err)
	}

	if len(resp.Values) != 2 {
		t.Fatalf("Expected 2 values, got %+v", resp.Values)
	}
	if resp.Values[0].Value != "Jane Doe" || resp.Values[0].Confidence != 0.92 {
		t.Errorf("Unexpected first value: %+v", resp.Values[0])
	}
	if resp.Values[1].Confidence != 1 {
		t.Errorf("Expected confidence clamped to 1, got %v", resp.Values[1].Confidence)
	}
	if len(resp.Rejected) != 1 || resp.Rejected[0] != "identity.shoe_size" {
		t.Errorf("Expected undeclared field to be rejected, got %v", resp.Rejected)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Expected 100 tokens, got %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_ExtractFacts_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.ExtractFacts(context.Background(), ExtractRequest{Content: "x", Fields: testFields})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOpenAIProvider_ExtractFacts_NotJSON(t *testing.T) {
	server := chatServer(t, "I could not find anything useful.")
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.ExtractFacts(context.Background(), ExtractRequest{Content: "x", Fields: testFields})
	if err == nil {
		t.Fatal("Expected error for non-JSON answer, got nil")
	}
}

func TestOpenAIProvider_ExtractFacts_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = provider.ExtractFacts(ctx, ExtractRequest{Content: "x", Fields: testFields})
	if err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
}

func TestOpenAIProvider_ExtractFacts_NoFields(t *testing.T) {
	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.ExtractFacts(context.Background(), ExtractRequest{Content: "x"})
	if err != nil || len(resp.Values) != 0 {
		t.Errorf("Expected empty response without a call, got %+v, %v", resp, err)
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestNewProvider(t *testing.T) {
	if p, err := NewProvider(Config{}); p != nil || err != nil {
		t.Errorf("Expected disabled provider, got %v, %v", p, err)
	}

	if _, err := NewProvider(Config{Provider: "openai"}); err == nil {
		t.Error("Expected error for missing API key")
	}

	p, err := NewProvider(Config{Provider: "Ollama", Model: "llama3.1"})
	if err != nil {
		t.Fatalf("Failed to create ollama provider: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Expected ollama, got %s", p.Name())
	}

	if _, err := NewProvider(Config{Provider: "anthropic"}); err == nil || !strings.Contains(err.Error(), "unknown LLM provider") {
		t.Errorf("Expected unknown provider error, got %v", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(ExtractRequest{
		Category: "bank_statement",
		Content:  "Closing balance: 4,500.00 EUR",
		Fields:   testFields,
	})

	for _, want := range []string{"bank statement", "identity.full_name", "Closing balance: 4,500.00 EUR", "JSON"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}

func TestBuildPrompt_TruncatesContent(t *testing.T) {
	prompt := BuildPrompt(ExtractRequest{Content: strings.Repeat("z", maxContentRunes+500), Fields: testFields})
	if got := strings.Count(prompt, "z"); got != maxContentRunes {
		t.Errorf("Expected content truncated to %d runes, got %d", maxContentRunes, got)
	}
}

func TestParseResponse(t *testing.T) {
	content := "```json\n" + `{"facts": [
		{"id": "identity.full_name", "value": "  ", "confidence": 0.9},
		{"id": "identity.date_of_birth", "value": null, "confidence": 0.9},
		{"id": "identity.full_name", "value": ["Jane", "Doe"], "confidence": -1}
	]}` + "\n```"

	values, rejected, err := ParseResponse(content, testFields)
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if len(rejected) != 0 {
		t.Errorf("Expected no rejected ids, got %v", rejected)
	}
	if len(values) != 1 || values[0].Value != `["Jane","Doe"]` || values[0].Confidence != 0 {
		t.Errorf("Unexpected values: %+v", values)
	}
}
