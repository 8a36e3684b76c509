package adapters

import (
	"context"

	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/llm"
	"github.com/ppiankov/dossier/internal/model"
)

// LLMAdapter reads free-form documents through a language model. It takes
// text and markdown ahead of the line-based fallback.
type LLMAdapter struct {
	BaseAdapter
	provider llm.Provider
}

// NewLLMAdapter creates a new LLM adapter
func NewLLMAdapter(provider llm.Provider) *LLMAdapter {
	return &LLMAdapter{BaseAdapter: BaseAdapter{weight: 1.0}, provider: provider}
}

// Name returns the adapter name
func (a *LLMAdapter) Name() string {
	return "llm:" + a.provider.Name()
}

// CanHandle accepts unstructured documents
func (a *LLMAdapter) CanHandle(doc extract.Document) bool {
	return formatIn(doc, extract.FormatText, extract.FormatMarkdown, "")
}

// Extract asks the model for every field and normalizes its answers. The
// model's own confidence is kept; values of the wrong shape are halved.
func (a *LLMAdapter) Extract(ctx context.Context, doc extract.Document, fields []model.FactDefinition) ([]extract.Observation, error) {
	resp, err := a.provider.ExtractFacts(ctx, llm.ExtractRequest{
		Category: doc.Category,
		Content:  doc.Content,
		Fields:   llm.FieldsFromDefinitions(fields),
	})
	if err != nil {
		return nil, err
	}

	defs := make(map[string]model.FactDefinition, len(fields))
	for _, f := range fields {
		defs[f.ID] = f
	}

	out := make([]extract.Observation, 0, len(resp.Values))
	for _, v := range resp.Values {
		def, ok := defs[v.FactID]
		if !ok {
			continue
		}
		value, valid := a.Normalize(def, v.Value)
		confidence := v.Confidence * a.weight
		if !valid {
			confidence *= invalidPenalty
		}
		out = append(out, extract.Observation{FactID: v.FactID, Value: value, Confidence: confidence})
	}
	return out, nil
}
