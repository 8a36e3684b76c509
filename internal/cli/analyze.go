package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/pipeline"
	"github.com/ppiankov/dossier/internal/worker"
)

var (
	analyzeApp     string
	analyzeTargets []string
	outJSON        string
	outMD          string
	outFormat      string
	timeout        time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [snapshot.yaml|snapshot.json]",
	Short: "Generate the questionnaire for an application",
	Long: `Analyze compares what is known about an application against what the
target artifacts need and prints the questions still worth asking:
- Facts nobody has supplied are asked openly
- Facts extracted below the confidence floor are asked for verification
- Conditional questions carry the answer that unlocks them

Facts come either from the store (--app) or from a snapshot file holding an
application id, optional targets and a list of extracted facts.

Example:
  dossier analyze --app APP-1042
  dossier analyze --app APP-1042 --target cover_letter --target hotel_voucher
  dossier analyze snapshot.yaml --json report.json --md questionnaire.md
  dossier analyze --app APP-1042 --floor 0.9 --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeApp, "app", "", "application id to analyse from the store")
	analyzeCmd.Flags().StringSliceVar(&analyzeTargets, "target", nil, "target artifact (repeatable; default: configured targets or every artifact)")

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON report path (optional)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown questionnaire path (optional)")
	analyzeCmd.Flags().StringVar(&outFormat, "format", "text", "stdout format (text, json)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && analyzeApp == "" {
		return fmt.Errorf("either a snapshot file or --app is required")
	}
	if len(args) == 1 && analyzeApp != "" {
		return fmt.Errorf("use either a snapshot file or --app, not both")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	p, _, err := openPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	var report *model.Report
	if len(args) == 1 {
		snap, err := worker.ReadSnapshot(args[0])
		if err != nil {
			return err
		}
		if len(analyzeTargets) > 0 {
			snap.Targets = analyzeTargets
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Analysing snapshot %s (%d facts)...\n", args[0], len(snap.Facts))
		}
		report, err = p.AnalyzeSnapshot(ctx, *snap)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
	} else {
		if verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Analysing application %s...\n", analyzeApp)
		}
		report, err = p.Questionnaire(ctx, analyzeApp, analyzeTargets)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
	}

	return writeReport(report, outJSON, outMD, outFormat)
}

// writeReport writes the requested files, prints the questionnaire to
// stdout and the summary to stderr
func writeReport(report *model.Report, jsonPath, mdPath, format string) error {
	renderer := pipeline.NewRenderer()

	if jsonPath != "" {
		if err := renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ JSON report: %s\n", jsonPath)
	}
	if mdPath != "" {
		if err := renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown questionnaire: %s\n", mdPath)
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		fmt.Println(string(data))
	case "text", "":
		renderer.RenderSummary(os.Stderr, report)
		fmt.Print(renderer.Markdown(report))
	default:
		return fmt.Errorf("unknown format: %s (supported: text, json)", format)
	}
	return nil
}
