package question

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/dossier/internal/catalog"
	"github.com/ppiankov/dossier/internal/model"
)

// valuePlaceholder is replaced by the extracted value in verify prompts
const valuePlaceholder = "{value}"

// Generator turns the gaps of an analysis into an ordered, grouped questionnaire
type Generator struct {
	catalog *catalog.Catalog
}

// NewGenerator creates a new question generator
func NewGenerator(cat *catalog.Catalog) *Generator {
	return &Generator{catalog: cat}
}

// Generate builds one question per gap. Missing facts get their open prompt,
// low-confidence facts get a verification prompt with the extracted value.
// Conditional facts are emitted only when their parent is asked too or the
// parent's known value opens the branch.
func (g *Generator) Generate(a *model.Analysis) model.Questionnaire {
	q := model.Questionnaire{
		ApplicationID: a.ApplicationID,
		Summary:       a.Summary,
	}

	gaps := make(map[string]model.GapEntry)
	for _, e := range a.Entries {
		if e.IsGap() {
			gaps[e.FactID] = e
		}
	}

	gate := &gating{gaps: gaps, known: a.Known, asked: make(map[string]bool)}
	for _, e := range a.Entries {
		if e.Status == model.StatusNotApplicable {
			q.Suppressed = append(q.Suppressed, e.FactID)
			continue
		}
		if !e.IsGap() {
			continue
		}
		if !gate.asks(e.FactID) {
			q.Suppressed = append(q.Suppressed, e.FactID)
			continue
		}
		q.Questions = append(q.Questions, g.spec(e))
	}

	g.sortQuestions(q.Questions)
	for _, s := range q.Questions {
		q.ByTier.Add(s.Tier)
	}
	q.Groups = g.group(q.Questions)
	return q
}

// spec renders the question for one gap entry
func (g *Generator) spec(e model.GapEntry) model.QuestionSpec {
	def := e.Definition
	s := model.QuestionSpec{
		FactID:   e.FactID,
		Prompt:   def.Prompt,
		Kind:     model.KindOpen,
		Type:     def.Type,
		Tier:     def.Tier,
		Category: def.Category,
		Required: false,
		Choices:  append([]string(nil), def.Choices...),
		Blocked:  append([]string{}, e.Blocked()...),
	}
	if def.IsConditional() {
		s.ShowIf = &model.ShowIf{
			FactID: def.Parent,
			AnyOf:  append([]string(nil), def.ShowWhen...),
		}
	}
	if e.Status == model.StatusLowConfidence && e.Current != nil {
		s.Kind = model.KindVerify
		s.Prompt = VerificationPrompt(def, *e.Current)
		s.Current = e.Current.Value
		s.Confidence = e.Current.Confidence
		s.Source = e.Current.Source
	}
	return s
}

// VerificationPrompt asks the applicant to confirm or correct an extracted value
func VerificationPrompt(def model.FactDefinition, f model.ExtractedFact) string {
	if def.VerifyPrompt != "" {
		return strings.ReplaceAll(def.VerifyPrompt, valuePlaceholder, f.Value)
	}
	if f.Source != "" {
		return fmt.Sprintf("%s We read %q from your %s. Is that correct? Confirm it or enter the right value.",
			def.Prompt, f.Value, strings.ReplaceAll(f.Source, "_", " "))
	}
	return fmt.Sprintf("%s We have %q on file. Is that correct? Confirm it or enter the right value.", def.Prompt, f.Value)
}

// sortQuestions orders by tier, then category, then catalog declaration
func (g *Generator) sortQuestions(qs []model.QuestionSpec) {
	sort.SliceStable(qs, func(i, j int) bool {
		if ri, rj := qs[i].Tier.Rank(), qs[j].Tier.Rank(); ri != rj {
			return ri < rj
		}
		if ci, cj := g.catalog.CategoryIndex(qs[i].Category), g.catalog.CategoryIndex(qs[j].Category); ci != cj {
			return ci < cj
		}
		return g.catalog.Index(qs[i].FactID) < g.catalog.Index(qs[j].FactID)
	})
}

// group buckets sorted questions by category. Empty categories are omitted.
func (g *Generator) group(qs []model.QuestionSpec) []model.QuestionGroup {
	buckets := make(map[string][]model.QuestionSpec)
	for _, s := range qs {
		buckets[s.Category] = append(buckets[s.Category], s)
	}

	var groups []model.QuestionGroup
	for _, cat := range g.catalog.Categories() {
		specs, ok := buckets[cat.ID]
		if !ok {
			continue
		}
		groups = append(groups, model.QuestionGroup{
			Category:  cat.ID,
			Title:     cat.Title,
			Questions: specs,
		})
	}
	return groups
}

// gating decides, with memoization, which gaps are asked
type gating struct {
	gaps  map[string]model.GapEntry
	known map[string]model.ExtractedFact
	asked map[string]bool
}

func (g *gating) asks(factID string) bool {
	if v, ok := g.asked[factID]; ok {
		return v
	}
	g.asked[factID] = false // re-entry guard while the parent chain resolves

	e, ok := g.gaps[factID]
	if !ok {
		return false
	}
	def := e.Definition
	result := true
	if def.IsConditional() {
		branch := model.ShowIf{FactID: def.Parent, AnyOf: def.ShowWhen}
		parent, known := g.known[def.Parent]
		_, parentIsGap := g.gaps[def.Parent]
		switch {
		case parentIsGap && g.asks(def.Parent):
			result = true
		case known && branch.Matches(parent.Value):
			result = true
		default:
			result = false
		}
	}
	g.asked[factID] = result
	return result
}
