package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	answersFile string
	clearAnswer bool
)

// answerCmd represents the answer command
var answerCmd = &cobra.Command{
	Use:   "answer <app> [fact] [value]",
	Short: "Record the applicant's answers",
	Long: `Answer records applicant answers. Answers always take precedence over
extracted facts. Saving only some answers is fine: the rest stay open.

A file of answers (YAML or JSON map of fact id to value) is saved all or
nothing: if any value is invalid, none is stored.

Example:
  dossier answer APP-1042 identity.full_name "Jane Doe"
  dossier answer APP-1042 --file answers.yaml
  dossier answer APP-1042 travel.purpose --clear`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runAnswer,
}

// answersCmd represents the answers command
var answersCmd = &cobra.Command{
	Use:   "answers <app>",
	Short: "List the answers recorded for an application",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnswers,
}

func init() {
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(answersCmd)

	answerCmd.Flags().StringVar(&answersFile, "file", "", "YAML or JSON file mapping fact ids to answers")
	answerCmd.Flags().BoolVar(&clearAnswer, "clear", false, "withdraw the answer so the question is asked again")
}

func runAnswer(cmd *cobra.Command, args []string) error {
	appID := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	p, _, err := openPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	switch {
	case answersFile != "":
		if len(args) > 1 {
			return fmt.Errorf("--file cannot be combined with a fact argument")
		}
		values, err := readAnswers(answersFile)
		if err != nil {
			return err
		}
		recorded, err := p.AnswerBatch(ctx, appID, values)
		if err != nil {
			return fmt.Errorf("answers not saved: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Saved %d answers for %s\n", len(recorded), appID)

	case clearAnswer:
		if len(args) != 2 {
			return fmt.Errorf("--clear needs exactly one fact id")
		}
		if _, err := p.Clear(ctx, appID, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Cleared %s for %s\n", args[1], appID)

	default:
		if len(args) != 3 {
			return fmt.Errorf("usage: dossier answer <app> <fact> <value>")
		}
		a, err := p.Answer(ctx, appID, args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ %s = %q\n", a.FactID, a.Value)
	}

	report, err := p.Questionnaire(ctx, appID, nil)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "  %d questions remaining, readiness %d/100\n",
		len(report.Questionnaire.Questions), report.Readiness.Index)
	return nil
}

func runAnswers(cmd *cobra.Command, args []string) error {
	appID := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	p, _, err := openPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	answers, err := p.Answers(ctx, appID)
	if err != nil {
		return err
	}
	if len(answers) == 0 {
		fmt.Fprintf(os.Stderr, "No answers recorded for %s\n", appID)
		return nil
	}

	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := cmd.OutOrStdout()
	for _, id := range ids {
		a := answers[id]
		fmt.Fprintf(out, "%-36s %-30s %s\n", id, a.Value, a.AnsweredAt.Local().Format(time.RFC3339))
	}
	return nil
}

// readAnswers decodes a map of fact id to value. JSON is valid YAML.
func readAnswers(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	var values map[string]string
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode answers %s: %w", path, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no answers in %s", path)
	}
	return values, nil
}
