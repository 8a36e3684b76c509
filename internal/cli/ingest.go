package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/model"
)

var (
	docCategory string
	docFormat   string
	factsFile   bool
	ingestWait  time.Duration
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <app> <document>",
	Short: "Extract facts from a document and store them",
	Long: `Ingest runs a submitted document through the matching extractor and appends
the extracted facts to the application's history. Earlier facts are kept;
analysis picks the most recent value per fact.

Structured documents (YAML, JSON) are matched by key, HTML by table rows,
definition lists and "label: value" text, plain text and Markdown by
"label: value" lines. With an LLM provider configured, free text goes to the
model instead.

With --facts the file is read as a list of already extracted facts
(fact_id, value, confidence, source).

Example:
  dossier ingest APP-1042 passport.txt --category passport
  dossier ingest APP-1042 booking.html --category hotel_booking
  dossier ingest APP-1042 form.json --category visa_form --format json
  dossier ingest APP-1042 extracted.yaml --facts`,
	Args: cobra.ExactArgs(2),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&docCategory, "category", "", "document category, e.g. passport or bank_statement")
	ingestCmd.Flags().StringVar(&docFormat, "format", "", "document format (text, markdown, html, yaml, json; default: from extension)")
	ingestCmd.Flags().BoolVar(&factsFile, "facts", false, "read the file as a list of extracted facts")
	ingestCmd.Flags().DurationVar(&ingestWait, "timeout", 2*time.Minute, "overall ingest timeout")
}

func runIngest(cmd *cobra.Command, args []string) error {
	appID, path := args[0], args[1]
	ctx, cancel := context.WithTimeout(context.Background(), ingestWait)
	defer cancel()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	p, _, err := openPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if factsFile {
		var facts []model.ExtractedFact
		if err := yaml.Unmarshal(data, &facts); err != nil {
			return fmt.Errorf("decode facts %s: %w", path, err)
		}
		stored, err := p.Ingest(ctx, appID, facts)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Stored %d of %d facts for %s\n", stored, len(facts), appID)
		return nil
	}

	if docCategory == "" {
		return fmt.Errorf("--category is required")
	}
	format := extract.Format(docFormat)
	if format == "" {
		format = extract.FormatFromPath(path)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Extracting %s (%s, %s)...\n", path, docCategory, format)
	}

	facts, err := p.Extract(ctx, appID, extract.Document{
		ID:       filepath.Base(path),
		Category: docCategory,
		Format:   format,
		Content:  string(data),
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if len(facts) == 0 {
		fmt.Fprintf(os.Stderr, "⚠ No facts extracted from %s\n", path)
		return nil
	}
	fmt.Fprintf(os.Stderr, "✓ Extracted %d facts from %s\n", len(facts), path)
	for _, f := range facts {
		fmt.Fprintf(os.Stderr, "  %-36s %-30q confidence %.2f\n", f.FactID, f.Value, f.Confidence)
	}
	return nil
}
