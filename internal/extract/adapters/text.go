package adapters

import (
	"context"

	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/model"
)

// TextAdapter is the fallback for plain text and markdown, typically OCR
// output or pasted letters
type TextAdapter struct {
	BaseAdapter
}

// NewTextAdapter creates a new text adapter
func NewTextAdapter() *TextAdapter {
	return &TextAdapter{BaseAdapter: BaseAdapter{weight: 0.85}}
}

// Name returns the adapter name
func (a *TextAdapter) Name() string {
	return "text"
}

// CanHandle accepts text, markdown and documents without a declared format
func (a *TextAdapter) CanHandle(doc extract.Document) bool {
	return formatIn(doc, extract.FormatText, extract.FormatMarkdown, "")
}

// Extract reads "label: value" lines
func (a *TextAdapter) Extract(ctx context.Context, doc extract.Document, fields []model.FactDefinition) ([]extract.Observation, error) {
	return a.Observe(extract.ParseLabelLines(doc.Content), fields, false), nil
}
