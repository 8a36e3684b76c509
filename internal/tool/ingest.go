package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/model"
)

// MetadataIngestFacts describes the ingest_facts tool.
var MetadataIngestFacts = &mcp.Tool{
	Name: "ingest_facts",
	Description: "Store facts extracted elsewhere for an application. Each fact needs a catalog fact id, " +
		"a value, a confidence between 0 and 1 and the source document category. " +
		"Facts with ids the catalog does not define are skipped.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"application_id", "facts"},
		"properties": map[string]interface{}{
			"application_id": applicationIDProp,
			"facts": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []string{"fact_id", "value", "source"},
					"properties": map[string]interface{}{
						"fact_id":    stringProp("Catalog fact id"),
						"value":      stringProp("Extracted value"),
						"confidence": map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
						"source":     stringProp("Category of the source document, e.g. passport"),
					},
				},
			},
		},
	},
}

// FactInput is one fact supplied to the IngestFacts tool.
type FactInput struct {
	FactID     string  `json:"fact_id"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// InputIngestFacts is the input for the IngestFacts tool.
type InputIngestFacts struct {
	ApplicationID string      `json:"application_id"`
	Facts         []FactInput `json:"facts"`
}

// OutputIngestFacts is the output for the IngestFacts tool.
type OutputIngestFacts struct {
	Stored  int `json:"stored"`
	Skipped int `json:"skipped"`
}

// IngestFacts appends externally extracted facts to the application's history
func (t *Tools) IngestFacts(ctx context.Context, _ *mcp.CallToolRequest, input InputIngestFacts) (*mcp.CallToolResult, OutputIngestFacts, error) {
	if input.ApplicationID == "" {
		return nil, OutputIngestFacts{}, fmt.Errorf("application_id is required")
	}

	facts := make([]model.ExtractedFact, 0, len(input.Facts))
	for i, f := range input.Facts {
		if err := model.CheckConfidence(f.Confidence); err != nil {
			return nil, OutputIngestFacts{}, fmt.Errorf("facts[%d] (%s): %w", i, f.FactID, err)
		}
		facts = append(facts, model.ExtractedFact{
			ApplicationID: input.ApplicationID,
			FactID:        f.FactID,
			Value:         f.Value,
			Confidence:    f.Confidence,
			Source:        f.Source,
		})
	}

	stored, err := t.pipeline.Ingest(ctx, input.ApplicationID, facts)
	if err != nil {
		return nil, OutputIngestFacts{}, err
	}
	return nil, OutputIngestFacts{Stored: stored, Skipped: len(facts) - stored}, nil
}

// MetadataExtractDocument describes the extract_document tool.
var MetadataExtractDocument = &mcp.Tool{
	Name: "extract_document",
	Description: "Extract facts from a submitted document and store them for the application. " +
		"Supported formats: text, markdown, html, yaml, json. " +
		"A document that cannot be read yields no facts rather than an error.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"application_id", "category", "content"},
		"properties": map[string]interface{}{
			"application_id": applicationIDProp,
			"category":       stringProp("Document category, e.g. passport or bank_statement"),
			"content":        stringProp("Raw document content"),
			"format": map[string]interface{}{
				"type":        "string",
				"description": "Document format. Defaults to text.",
				"enum":        []string{"text", "markdown", "html", "yaml", "json"},
			},
			"document_id": stringProp("Optional identifier used in logs"),
		},
	},
}

// InputExtractDocument is the input for the ExtractDocument tool.
type InputExtractDocument struct {
	ApplicationID string `json:"application_id"`
	Category      string `json:"category"`
	Content       string `json:"content"`
	Format        string `json:"format,omitempty"`
	DocumentID    string `json:"document_id,omitempty"`
}

// OutputExtractDocument is the output for the ExtractDocument tool.
type OutputExtractDocument struct {
	Facts []model.ExtractedFact `json:"facts"`
}

// ExtractDocument runs document extraction and stores the result
func (t *Tools) ExtractDocument(ctx context.Context, _ *mcp.CallToolRequest, input InputExtractDocument) (*mcp.CallToolResult, OutputExtractDocument, error) {
	if input.ApplicationID == "" {
		return nil, OutputExtractDocument{}, fmt.Errorf("application_id is required")
	}
	if input.Content == "" {
		return nil, OutputExtractDocument{}, fmt.Errorf("content is required")
	}

	format := extract.Format(input.Format)
	if format == "" {
		format = extract.FormatText
	}
	facts, err := t.pipeline.Extract(ctx, input.ApplicationID, extract.Document{
		ID:       input.DocumentID,
		Category: input.Category,
		Format:   format,
		Content:  input.Content,
	})
	if err != nil {
		return nil, OutputExtractDocument{}, err
	}
	if facts == nil {
		facts = []model.ExtractedFact{}
	}
	return nil, OutputExtractDocument{Facts: facts}, nil
}
