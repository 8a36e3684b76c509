package adapters

import (
	"context"
	"fmt"

	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/model"
)

// HTMLAdapter reads HTML pages such as booking confirmations and online
// bank statements
type HTMLAdapter struct {
	BaseAdapter
}

// NewHTMLAdapter creates a new HTML adapter
func NewHTMLAdapter() *HTMLAdapter {
	return &HTMLAdapter{BaseAdapter: BaseAdapter{weight: 0.9}}
}

// Name returns the adapter name
func (a *HTMLAdapter) Name() string {
	return "html"
}

// CanHandle accepts HTML documents
func (a *HTMLAdapter) CanHandle(doc extract.Document) bool {
	return formatIn(doc, extract.FormatHTML)
}

// Extract reads table rows, definition lists and labelled text lines
func (a *HTMLAdapter) Extract(ctx context.Context, doc extract.Document, fields []model.FactDefinition) ([]extract.Observation, error) {
	pairs, err := extract.ParseHTMLPairs(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return a.Observe(pairs, fields, false), nil
}
