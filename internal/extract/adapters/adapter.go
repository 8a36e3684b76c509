package adapters

import (
	"strings"
	"time"

	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/llm"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/validate"
)

// Adapter is an extractor for one family of documents
type Adapter = extract.Extractor

// Registry manages extraction adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in adapters. A nil provider
// leaves the LLM adapter out.
func NewRegistry(provider llm.Provider) *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	// Register built-in adapters
	registry.Register(NewStructuredAdapter())
	registry.Register(NewHTMLAdapter())
	if provider != nil {
		registry.Register(NewLLMAdapter(provider))
	}

	// Set text adapter as fallback
	registry.generic = NewTextAdapter()

	return registry
}

// Register registers a new adapter. Adapters are consulted in registration order.
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// Find returns the first adapter that can handle doc, falling back to the
// text adapter
func (r *Registry) Find(doc extract.Document) extract.Extractor {
	// Try specific adapters first
	for _, adapter := range r.adapters {
		if adapter.CanHandle(doc) {
			return adapter
		}
	}

	if r.generic != nil && r.generic.CanHandle(doc) {
		return r.generic
	}
	return nil
}

// Names lists the registered adapters, fallback last
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters)+1)
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	if r.generic != nil {
		names = append(names, r.generic.Name())
	}
	return names
}

// invalidPenalty scales the confidence of values that fail type validation
const invalidPenalty = 0.5

// dateLayouts are the date spellings forms commonly use, besides ISO
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02.01.2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/01/02",
}

// BaseAdapter provides common functionality for rule-based adapters
type BaseAdapter struct {
	// weight scales match confidence by how reliable the document family is
	weight float64
}

// Observe turns labelled values into observations. Labels are matched via
// the catalog aliases; values are normalized to the fact's data type, and
// values that do not fit it are kept at reduced confidence so the applicant
// is asked to verify them.
func (b *BaseAdapter) Observe(pairs []extract.LabeledValue, fields []model.FactDefinition, tailMatch bool) []extract.Observation {
	matcher := extract.NewMatcher(fields)
	defs := make(map[string]model.FactDefinition, len(fields))
	for _, f := range fields {
		defs[f.ID] = f
	}

	var out []extract.Observation
	for _, p := range pairs {
		factID, confidence, ok := matcher.Match(p.Label)
		if !ok && tailMatch {
			if i := strings.LastIndex(p.Label, "."); i >= 0 {
				factID, confidence, ok = matcher.Match(p.Label[i+1:])
				confidence *= 0.9
			}
		}
		if !ok {
			continue
		}

		value, valid := b.Normalize(defs[factID], p.Value)
		confidence *= b.weight
		if !valid {
			confidence *= invalidPenalty
		}
		out = append(out, extract.Observation{FactID: factID, Value: value, Confidence: confidence})
	}
	return out
}

// Normalize coerces a raw value to the fact's data type. The second result
// reports whether the value passed validation.
func (b *BaseAdapter) Normalize(def model.FactDefinition, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if def.Type == model.TypeDate {
		raw = normalizeDate(raw)
	}
	if def.Type == model.TypeNumber {
		raw = strings.NewReplacer(",", "", " ", "").Replace(raw)
	}
	value, err := validate.Value(def, raw)
	if err != nil {
		return raw, false
	}
	return value, true
}

func normalizeDate(raw string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

func formatIn(doc extract.Document, formats ...extract.Format) bool {
	for _, f := range formats {
		if doc.Format == f {
			return true
		}
	}
	return false
}
