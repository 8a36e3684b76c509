package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/dossier/internal/model"
)

// ErrNoExtractor is returned when no registered extractor accepts a document
var ErrNoExtractor = errors.New("no extractor for document")

// Format identifies how a document's content is encoded
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatYAML     Format = "yaml"
	FormatJSON     Format = "json"
)

// Document is one source the applicant supplied (passport scan text, bank
// statement export, booking confirmation). Category becomes the source tag
// of every fact extracted from it.
type Document struct {
	ID       string `json:"id,omitempty"`
	Category string `json:"category"`
	Format   Format `json:"format"`
	Content  string `json:"content"`
}

// Validate checks the fields every extractor relies on
func (d Document) Validate() error {
	if strings.TrimSpace(d.Category) == "" {
		return fmt.Errorf("document %q: category is required", d.ID)
	}
	if d.Category == model.SourceQuestionnaire {
		return fmt.Errorf("document %q: category %q is reserved for applicant answers", d.ID, d.Category)
	}
	return nil
}

// FormatFromPath guesses the format from a file extension
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".html", ".htm":
		return FormatHTML
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatText
	}
}

// Observation is a value an extractor found for one fact, before it is
// attributed to an application
type Observation struct {
	FactID     string  `json:"fact_id"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Extractor turns a document into observations for the given fields
type Extractor interface {
	// Name returns the extractor name, used as the rate limit key
	Name() string

	// CanHandle checks if this extractor understands the document
	CanHandle(doc Document) bool

	// Extract reads observations for fields out of the document
	Extract(ctx context.Context, doc Document, fields []model.FactDefinition) ([]Observation, error)
}

// Resolver picks the extractor for a document
type Resolver interface {
	Find(doc Document) Extractor
}

// LabeledValue is a "label: value" pair found in a document
type LabeledValue struct {
	Label string
	Value string
}
