package gap

import (
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/dossier/internal/catalog"
	"github.com/ppiankov/dossier/internal/model"
)

// Analyzer reconciles the facts known about an application against the
// facts its target artifacts need
type Analyzer struct {
	catalog *catalog.Catalog
	floor   float64
}

// NewAnalyzer creates an analyzer. A floor that is NaN or outside [0,1]
// falls back to model.DefaultConfidenceFloor.
func NewAnalyzer(cat *catalog.Catalog, floor float64) *Analyzer {
	if math.IsNaN(floor) || floor < 0 || floor > 1 {
		floor = model.DefaultConfidenceFloor
	}
	return &Analyzer{catalog: cat, floor: floor}
}

// Floor returns the confidence floor in use
func (a *Analyzer) Floor() float64 {
	return a.floor
}

// Analyze computes one gap entry per fact required by targets. An empty
// target set analyses every catalog artifact. The result is a pure function
// of its inputs: the order of facts does not matter.
func (a *Analyzer) Analyze(appID string, targets []string, facts []model.ExtractedFact) (*model.Analysis, error) {
	targets, err := a.resolveTargets(targets)
	if err != nil {
		return nil, err
	}

	required, prereqs := a.requiredFacts(targets)

	relevant := make([]model.ExtractedFact, 0, len(facts))
	for _, f := range facts {
		if f.ApplicationID != "" && f.ApplicationID != appID {
			continue
		}
		if a.catalog.Index(f.FactID) < 0 {
			continue
		}
		relevant = append(relevant, f)
	}
	known := model.SelectAuthoritative(relevant)

	analysis := &model.Analysis{
		ApplicationID:   appID,
		Targets:         targets,
		ConfidenceFloor: a.floor,
		Known:           known,
	}

	statuses := make(map[string]model.GapStatus, len(required))
	for _, def := range a.catalog.Facts() {
		arts, ok := required[def.ID]
		if !ok {
			continue
		}
		entry := model.GapEntry{
			FactID:     def.ID,
			Definition: def,
			Artifacts:  a.sortArtifacts(arts),
			Prereq:     prereqs[def.ID],
		}
		if f, ok := known[def.ID]; ok {
			fact := f
			entry.Current = &fact
		}
		entry.Status = a.classify(entry.Current)
		statuses[def.ID] = entry.Status
		analysis.Entries = append(analysis.Entries, entry)
	}

	// A gap behind a closed branch is never asked, so it cannot block anything
	var closed []string
	for _, e := range analysis.Entries {
		if e.IsGap() && a.branchClosed(e.Definition, statuses, known) {
			closed = append(closed, e.FactID)
		}
	}
	for _, id := range closed {
		statuses[id] = model.StatusNotApplicable
	}
	for i := range analysis.Entries {
		analysis.Entries[i].Status = statuses[analysis.Entries[i].FactID]
	}

	analysis.Artifacts, analysis.Summary = a.summarize(targets, analysis.Entries, statuses)
	return analysis, nil
}

// classify applies the confidence floor. Questionnaire facts are always
// satisfied since the floor only gates machine extraction.
func (a *Analyzer) classify(current *model.ExtractedFact) model.GapStatus {
	switch {
	case current == nil:
		return model.StatusMissing
	case current.FromQuestionnaire():
		return model.StatusSatisfied
	case current.Confidence >= a.floor:
		return model.StatusSatisfied
	default:
		return model.StatusLowConfidence
	}
}

// branchClosed reports whether a conditional fact sits behind a branch the
// applicant has closed: the parent is settled on a value outside show_when,
// or the parent is itself behind a closed branch. A parent still being asked
// or verified keeps the branch open.
func (a *Analyzer) branchClosed(def model.FactDefinition, statuses map[string]model.GapStatus, known map[string]model.ExtractedFact) bool {
	if !def.IsConditional() {
		return false
	}
	switch statuses[def.Parent] {
	case model.StatusSatisfied:
		branch := model.ShowIf{FactID: def.Parent, AnyOf: def.ShowWhen}
		return !branch.Matches(known[def.Parent].Value)
	case model.StatusMissing, model.StatusLowConfidence:
		parent, err := a.catalog.DefinitionOf(def.Parent)
		return err == nil && a.branchClosed(parent, statuses, known)
	default:
		return false
	}
}

// resolveTargets validates, deduplicates and orders the target artifacts
func (a *Analyzer) resolveTargets(targets []string) ([]string, error) {
	if len(targets) == 0 {
		return a.catalog.ArtifactIDs(), nil
	}
	seen := make(map[string]bool, len(targets))
	out := make([]string, 0, len(targets))
	for _, id := range targets {
		if a.catalog.ArtifactIndex(id) < 0 {
			return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownArtifact, id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return a.sortArtifacts(out), nil
}

// requiredFacts unions the facts of every target. Parents of conditional
// facts are pulled in as prerequisites and inherit the child's artifacts.
func (a *Analyzer) requiredFacts(targets []string) (map[string][]string, map[string]bool) {
	required := make(map[string][]string)
	for _, id := range targets {
		art, _ := a.catalog.Artifact(id)
		for _, factID := range art.Facts {
			required[factID] = appendUnique(required[factID], id)
		}
	}

	prereqs := make(map[string]bool)
	direct := make([]string, 0, len(required))
	for factID := range required {
		direct = append(direct, factID)
	}
	sort.Strings(direct)

	for _, factID := range direct {
		arts := required[factID]
		def, err := a.catalog.DefinitionOf(factID)
		if err != nil {
			continue
		}
		for parent := def.Parent; parent != ""; {
			if _, isDirect := required[parent]; !isDirect {
				prereqs[parent] = true
			}
			for _, art := range arts {
				required[parent] = appendUnique(required[parent], art)
			}
			pdef, err := a.catalog.DefinitionOf(parent)
			if err != nil {
				break
			}
			parent = pdef.Parent
		}
	}
	return required, prereqs
}

func (a *Analyzer) summarize(targets []string, entries []model.GapEntry, statuses map[string]model.GapStatus) ([]model.ArtifactStatus, model.Summary) {
	summary := model.Summary{
		ArtifactsTargeted: len(targets),
		FactsNeeded:       len(entries),
	}
	for _, e := range entries {
		switch e.Status {
		case model.StatusNotApplicable:
			summary.FactsNotApplicable++
			summary.FactsNeeded--
		case model.StatusMissing:
			summary.FactsMissing++
		case model.StatusLowConfidence:
			summary.FactsLowConfidence++
			summary.FactsAvailable++
		default:
			summary.FactsAvailable++
		}
	}

	artifacts := make([]model.ArtifactStatus, 0, len(targets))
	for _, id := range targets {
		art, _ := a.catalog.Artifact(id)
		status := model.ArtifactStatus{ID: art.ID, Title: art.Title}
		for _, factID := range art.Facts {
			switch statuses[factID] {
			case model.StatusMissing:
				status.Missing = append(status.Missing, factID)
			case model.StatusLowConfidence:
				status.LowConfidence = append(status.LowConfidence, factID)
			case model.StatusNotApplicable:
				status.NotApplicable = append(status.NotApplicable, factID)
			}
		}
		status.Ready = len(status.Missing) == 0 && len(status.LowConfidence) == 0
		if status.Ready {
			summary.ArtifactsSatisfied++
		}
		artifacts = append(artifacts, status)
	}
	return artifacts, summary
}

// sortArtifacts orders artifact ids by catalog declaration
func (a *Analyzer) sortArtifacts(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool {
		return a.catalog.ArtifactIndex(out[i]) < a.catalog.ArtifactIndex(out[j])
	})
	return out
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
