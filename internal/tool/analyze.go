package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/dossier/internal/model"
)

// MetadataAnalyzeApplication describes the analyze_application tool.
var MetadataAnalyzeApplication = &mcp.Tool{
	Name: "analyze_application",
	Description: "Compare what is known about an application against what its target artifacts need " +
		"and return the questions still worth asking. Facts extracted below the confidence floor come " +
		"back as verification questions showing the extracted value. Every question is optional.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"application_id"},
		"properties": map[string]interface{}{
			"application_id": applicationIDProp,
			"targets": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Artifact ids to prepare. If omitted, the configured targets or every artifact are used.",
			},
		},
	},
}

// InputAnalyzeApplication is the input for the AnalyzeApplication tool.
type InputAnalyzeApplication struct {
	ApplicationID string   `json:"application_id"`
	Targets       []string `json:"targets,omitempty"`
}

// OutputAnalyzeApplication is the output for the AnalyzeApplication tool.
type OutputAnalyzeApplication struct {
	Questionnaire model.Questionnaire `json:"questionnaire"`
	Readiness     model.Readiness     `json:"readiness"`
	Degraded      bool                `json:"degraded,omitempty"`
	Warnings      []string            `json:"warnings,omitempty"`
	// Markdown is the questionnaire rendered for display
	Markdown string `json:"markdown"`
}

// AnalyzeApplication runs one questionnaire pass for an application
func (t *Tools) AnalyzeApplication(ctx context.Context, _ *mcp.CallToolRequest, input InputAnalyzeApplication) (*mcp.CallToolResult, OutputAnalyzeApplication, error) {
	if input.ApplicationID == "" {
		return nil, OutputAnalyzeApplication{}, fmt.Errorf("application_id is required")
	}

	report, err := t.pipeline.Questionnaire(ctx, input.ApplicationID, input.Targets)
	if err != nil {
		return nil, OutputAnalyzeApplication{}, err
	}

	return nil, OutputAnalyzeApplication{
		Questionnaire: report.Questionnaire,
		Readiness:     report.Readiness,
		Degraded:      report.Degraded,
		Warnings:      report.Warnings,
		Markdown:      t.renderer.Markdown(report),
	}, nil
}

// MetadataListArtifacts describes the list_artifacts tool.
var MetadataListArtifacts = &mcp.Tool{
	Name:        "list_artifacts",
	Description: "List the artifacts the catalog can prepare and the facts each one needs.",
	InputSchema: map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	},
}

// InputListArtifacts is the input for the ListArtifacts tool.
type InputListArtifacts struct{}

// OutputListArtifacts is the output for the ListArtifacts tool.
type OutputListArtifacts struct {
	CatalogVersion string                      `json:"catalog_version"`
	Artifacts      []model.ArtifactRequirement `json:"artifacts"`
}

// ListArtifacts returns the catalog's artifacts in declaration order
func (t *Tools) ListArtifacts(_ context.Context, _ *mcp.CallToolRequest, _ InputListArtifacts) (*mcp.CallToolResult, OutputListArtifacts, error) {
	cat := t.pipeline.Catalog()
	return nil, OutputListArtifacts{
		CatalogVersion: cat.Version(),
		Artifacts:      cat.Artifacts(),
	}, nil
}
