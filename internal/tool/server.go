// Package tool exposes the pipeline as Model Context Protocol tools so an
// assistant can drive the questionnaire conversationally.
package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/dossier/internal/pipeline"
)

// Tools binds the MCP tool handlers to a pipeline
type Tools struct {
	pipeline *pipeline.Pipeline
	renderer *pipeline.Renderer
}

// New creates the tool handlers
func New(p *pipeline.Pipeline) *Tools {
	return &Tools{pipeline: p, renderer: pipeline.NewRenderer()}
}

// NewServer creates an MCP server with every tool registered
func NewServer(p *pipeline.Pipeline, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "dossier", Version: version}, nil)

	t := New(p)
	mcp.AddTool(server, MetadataAnalyzeApplication, t.AnalyzeApplication)
	mcp.AddTool(server, MetadataRecordAnswer, t.RecordAnswer)
	mcp.AddTool(server, MetadataListAnswers, t.ListAnswers)
	mcp.AddTool(server, MetadataIngestFacts, t.IngestFacts)
	mcp.AddTool(server, MetadataExtractDocument, t.ExtractDocument)
	mcp.AddTool(server, MetadataListArtifacts, t.ListArtifacts)
	return server
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

var applicationIDProp = stringProp("Identifier of the application being prepared")
