package adapters

import (
	"context"

	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/model"
)

// StructuredAdapter reads YAML and JSON exports (form data, OCR output)
type StructuredAdapter struct {
	BaseAdapter
}

// NewStructuredAdapter creates a new structured document adapter
func NewStructuredAdapter() *StructuredAdapter {
	return &StructuredAdapter{BaseAdapter: BaseAdapter{weight: 1.0}}
}

// Name returns the adapter name
func (a *StructuredAdapter) Name() string {
	return "structured"
}

// CanHandle accepts YAML and JSON documents
func (a *StructuredAdapter) CanHandle(doc extract.Document) bool {
	return formatIn(doc, extract.FormatYAML, extract.FormatJSON)
}

// Extract matches keys by fact id, alias or last path segment
func (a *StructuredAdapter) Extract(ctx context.Context, doc extract.Document, fields []model.FactDefinition) ([]extract.Observation, error) {
	pairs, err := extract.ParseStructured(doc.Content)
	if err != nil {
		return nil, err
	}
	return a.Observe(pairs, fields, true), nil
}
