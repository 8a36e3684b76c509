package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/pipeline"
	"github.com/ppiankov/dossier/internal/util"
	"github.com/ppiankov/dossier/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|file...>",
	Short: "Analyse many application snapshots in parallel",
	Long: `Batch analyses snapshot files concurrently:
- Directories contribute their *.yaml, *.yml and *.json files
- A *.txt argument lists snapshot paths, one per line
- Snapshots are analysed in parallel with a configurable worker count
- Each application gets a JSON report and a Markdown questionnaire

Example:
  dossier batch ./snapshots
  dossier batch ./snapshots --concurrency 8 --output-dir ./questionnaires
  dossier batch list.txt --target cover_letter`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./dossier-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringSliceVar(&analyzeTargets, "target", nil, "target artifact for snapshots that name none (repeatable)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	paths, err := worker.CollectSnapshotPaths(args)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Dossier Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Snapshots:    %d\n", len(paths))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Snapshots carry their own facts
	cfg.Store.Driver = "memory"
	cfg.Cache.Enabled = false
	if len(analyzeTargets) > 0 {
		cfg.Analysis.Targets = analyzeTargets
	}
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.Workers
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.FromConfig(cfg, util.NewLogger(os.Stderr, cfg.Output.Verbose))
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	processor := worker.NewBatchProcessor(p, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Processing snapshots with %d workers...\n", concurrency)
	fmt.Fprintf(os.Stderr, "\n")
	results := processor.ProcessFiles(ctx, paths)

	successCount := 0
	failureCount := 0
	renderer := pipeline.NewRenderer()

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		slug := sanitizeFilename(result.ApplicationID)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Path, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Path, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (readiness: %d/100, questions: %d)\n",
			result.ApplicationID, result.Report.Readiness.Index, len(result.Report.Questionnaire.Questions))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d snapshots\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d snapshots failed", failureCount, len(results))
	}
	return nil
}

// sanitizeFilename turns an application id into a safe file name
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		s = "application"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
