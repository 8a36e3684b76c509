package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/dossier/internal/model"
)

// Renderer writes reports as JSON, as a Markdown questionnaire, or as a
// short terminal summary
type Renderer struct{}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the questionnaire as Markdown
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// Markdown renders the questionnaire grouped by category
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	q := report.Questionnaire
	s := q.Summary

	fmt.Fprintf(&b, "# Questionnaire: %s\n\n", report.ApplicationID)
	if report.Degraded {
		b.WriteString("> **Degraded:** facts could not be loaded; every fact is treated as missing.\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "> - %s\n", w)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "- Artifacts ready: %d/%d\n", s.ArtifactsSatisfied, s.ArtifactsTargeted)
	fmt.Fprintf(&b, "- Facts available: %d/%d (%d to verify)\n", s.FactsAvailable, s.FactsNeeded, s.FactsLowConfidence)
	fmt.Fprintf(&b, "- Readiness: %d/100\n", report.Readiness.Index)
	fmt.Fprintf(&b, "- Questions: %d (critical %d, important %d, optional %d)\n\n",
		q.ByTier.Total(), q.ByTier.Critical, q.ByTier.Important, q.ByTier.Optional)

	if len(q.Questions) == 0 {
		b.WriteString("Nothing left to ask. Every targeted artifact has what it needs.\n")
		return b.String()
	}

	for _, g := range q.Groups {
		title := g.Title
		if title == "" {
			title = g.Category
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, spec := range g.Questions {
			fmt.Fprintf(&b, "- [ ] **%s** _(%s)_\n", spec.Prompt, spec.Tier)
			if len(spec.Choices) > 0 {
				fmt.Fprintf(&b, "  - Choices: %s\n", strings.Join(spec.Choices, ", "))
			}
			if spec.ShowIf != nil {
				fmt.Fprintf(&b, "  - Only if `%s` is %s\n", spec.ShowIf.FactID, showIfValues(spec.ShowIf))
			}
			if len(spec.Blocked) > 0 {
				fmt.Fprintf(&b, "  - Needed for: %s\n", strings.Join(spec.Blocked, ", "))
			}
			fmt.Fprintf(&b, "  - Field: `%s`\n", spec.FactID)
		}
		b.WriteString("\n")
	}

	b.WriteString("Every question is optional. Skipped questions stay open for later.\n")
	return b.String()
}

// RenderSummary prints a short summary of the report
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	s := report.Questionnaire.Summary
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Application: %s\n", report.ApplicationID)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	if report.Degraded {
		fmt.Fprintf(w, "  ⚠ Degraded: %s\n", strings.Join(report.Warnings, "; "))
	}
	fmt.Fprintf(w, "  Readiness:        %d/100\n", report.Readiness.Index)
	fmt.Fprintf(w, "  Artifacts ready:  %d/%d\n", s.ArtifactsSatisfied, s.ArtifactsTargeted)
	fmt.Fprintf(w, "  Facts available:  %d/%d\n", s.FactsAvailable, s.FactsNeeded)
	fmt.Fprintf(w, "  Missing:          %d\n", s.FactsMissing)
	fmt.Fprintf(w, "  To verify:        %d\n", s.FactsLowConfidence)
	if s.FactsNotApplicable > 0 {
		fmt.Fprintf(w, "  Not applicable:   %d\n", s.FactsNotApplicable)
	}
	fmt.Fprintf(w, "  Questions:        %d\n", len(report.Questionnaire.Questions))
	fmt.Fprintf(w, "\n")

	for _, art := range report.Analysis.Artifacts {
		mark := "✗"
		if art.Ready {
			mark = "✓"
		}
		fmt.Fprintf(w, "  %s %-28s missing %d, verify %d\n", mark, art.ID, len(art.Missing), len(art.LowConfidence))
	}
	fmt.Fprintf(w, "\n")
}

func showIfValues(s *model.ShowIf) string {
	if len(s.AnyOf) == 0 {
		return "answered"
	}
	quoted := make([]string, len(s.AnyOf))
	for i, v := range s.AnyOf {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, " or ")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
