package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/tool"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Serve exposes Dossier as Model Context Protocol tools over stdin/stdout so an
assistant can run the questionnaire conversationally:
  analyze_application, record_answer, list_answers,
  ingest_facts, extract_document, list_artifacts

Logs go to stderr; stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, _, err := openPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	fmt.Fprintf(os.Stderr, "✓ dossier MCP server v%s on stdio (catalog %s)\n", version, p.Catalog().Version())

	server := tool.NewServer(p, version)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
