package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/catalog"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/pipeline"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the field catalog",
	Long: `The field catalog declares every fact an application can need, how to ask
for it, and which artifacts consume it. Without --catalog the embedded visa
application catalog is used.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories, facts and artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cat, err := pipeline.LoadCatalog(cfg)
		if err != nil {
			return err
		}
		printCatalog(cmd, cat)
		return nil
	},
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check [catalog.yaml]",
	Short: "Validate a field catalog file",
	Long: `Check loads a catalog and reports every problem found: duplicate ids,
dangling references, unknown types or tiers, missing choices and cyclic
parent chains.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cat    *catalog.Catalog
			err    error
			source = "embedded catalog"
		)
		switch {
		case len(args) == 1:
			source = args[0]
			cat, err = catalog.Load(args[0])
		case catalogPath != "":
			source = catalogPath
			cat, err = catalog.Load(catalogPath)
		default:
			cat, err = catalog.Default()
		}

		if err != nil {
			var cfgErr *catalog.ConfigError
			if errors.As(err, &cfgErr) {
				fmt.Fprintf(os.Stderr, "✗ %s: %d problems\n", source, len(cfgErr.Problems))
				for _, p := range cfgErr.Problems {
					fmt.Fprintf(os.Stderr, "  - %s\n", p)
				}
				return fmt.Errorf("catalog check failed")
			}
			return err
		}

		fmt.Fprintf(os.Stderr, "✓ %s: %d categories, %d facts, %d artifacts (version %s)\n",
			source, len(cat.Categories()), len(cat.Facts()), len(cat.Artifacts()), cat.Version())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogCheckCmd)
}

func printCatalog(cmd *cobra.Command, cat *catalog.Catalog) {
	out := cmd.OutOrStdout()

	byCategory := make(map[string][]model.FactDefinition)
	for _, f := range cat.Facts() {
		byCategory[f.Category] = append(byCategory[f.Category], f)
	}

	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(out, "  Field Catalog (version %s)\n", cat.Version())
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(out)

	for _, c := range cat.Categories() {
		fmt.Fprintf(out, "%s (%s)\n", c.Title, c.ID)
		for _, f := range byCategory[c.ID] {
			line := fmt.Sprintf("  %-36s %-20s %s", f.ID, f.Type, f.Tier)
			if f.IsConditional() {
				line += fmt.Sprintf("  if %s in [%s]", f.Parent, strings.Join(f.ShowWhen, ", "))
			}
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Artifacts")
	for _, a := range cat.Artifacts() {
		fmt.Fprintf(out, "  %-24s %d facts  %s\n", a.ID, len(a.Facts), a.Title)
	}
}
