package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/dossier/internal/model"
)

// Tier weights for the readiness index. A low-confidence fact earns half.
const (
	weightCritical  = 3
	weightImportant = 2
	weightOptional  = 1
)

// Scorer calculates the readiness index and generates signals. Readiness is
// informative only; it never blocks artifact generation.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate scores every target artifact and the application as a whole
func (s *Scorer) Calculate(a *model.Analysis) model.Readiness {
	entries := make(map[string]model.GapEntry, len(a.Entries))
	for _, e := range a.Entries {
		entries[e.FactID] = e
	}

	var r model.Readiness
	for _, art := range a.Artifacts {
		r.Artifacts = append(r.Artifacts, s.artifactReadiness(art, entries))
	}

	var earned, possible float64
	for _, e := range a.Entries {
		got, max := points(e)
		earned += got
		possible += max
	}
	r.Index = percent(earned, possible)

	if len(a.Known) == 0 {
		r.Signals = append(r.Signals, model.Signal{
			Type:        model.SignalNoFacts,
			Severity:    model.SeverityCritical,
			Description: "No facts known about this application yet",
			Data:        map[string]interface{}{"facts": 0},
		})
	}
	r.Signals = append(r.Signals, s.criticalMissing(a.Entries))
	if sig, ok := s.lowConfidence(a); ok {
		r.Signals = append(r.Signals, sig)
	}
	r.Signals = append(r.Signals, s.artifactsReady(a))
	return r
}

func (s *Scorer) artifactReadiness(art model.ArtifactStatus, entries map[string]model.GapEntry) model.ArtifactReadiness {
	missing := make(map[string]bool, len(art.Missing))
	for _, id := range art.Missing {
		missing[id] = true
	}
	low := make(map[string]bool, len(art.LowConfidence))
	for _, id := range art.LowConfidence {
		low[id] = true
	}

	var earned, possible float64
	for id, e := range entries {
		if !contains(e.Artifacts, art.ID) || e.Prereq || e.Status == model.StatusNotApplicable {
			continue
		}
		w := weight(e.Definition.Tier)
		possible += w
		switch {
		case missing[id]:
		case low[id]:
			earned += w / 2
		default:
			earned += w
		}
	}
	return model.ArtifactReadiness{
		ID:    art.ID,
		Index: percent(earned, possible),
		Ready: art.Ready,
	}
}

// criticalMissing counts critical facts with no value at all
func (s *Scorer) criticalMissing(entries []model.GapEntry) model.Signal {
	var ids []string
	for _, e := range entries {
		if e.Definition.Tier == model.TierCritical && e.Status == model.StatusMissing {
			ids = append(ids, e.FactID)
		}
	}

	severity := model.SeverityInfo
	if len(ids) > 0 {
		severity = model.SeverityCritical
	}
	return model.Signal{
		Type:        model.SignalCriticalMissing,
		Severity:    severity,
		Description: fmt.Sprintf("%d critical facts missing", len(ids)),
		Data: map[string]interface{}{
			"count": len(ids),
			"facts": ids,
		},
	}
}

// lowConfidence reports extracted values awaiting confirmation
func (s *Scorer) lowConfidence(a *model.Analysis) (model.Signal, bool) {
	var ids []string
	lowest := 1.0
	for _, e := range a.Entries {
		if e.Status != model.StatusLowConfidence || e.Current == nil {
			continue
		}
		ids = append(ids, e.FactID)
		lowest = math.Min(lowest, e.Current.Confidence)
	}
	if len(ids) == 0 {
		return model.Signal{}, false
	}
	return model.Signal{
		Type:        model.SignalLowConfidence,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("%d extracted facts below confidence floor %.2f", len(ids), a.ConfidenceFloor),
		Data: map[string]interface{}{
			"count":  len(ids),
			"facts":  ids,
			"floor":  a.ConfidenceFloor,
			"lowest": lowest,
		},
	}, true
}

// artifactsReady reports how many target artifacts have every fact
func (s *Scorer) artifactsReady(a *model.Analysis) model.Signal {
	var ready []string
	for _, art := range a.Artifacts {
		if art.Ready {
			ready = append(ready, art.ID)
		}
	}
	return model.Signal{
		Type:        model.SignalArtifactReady,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%d of %d artifacts have every fact", len(ready), len(a.Artifacts)),
		Data: map[string]interface{}{
			"ready":    ready,
			"targeted": len(a.Artifacts),
		},
	}
}

// points returns what an entry earns and could earn
func points(e model.GapEntry) (float64, float64) {
	w := weight(e.Definition.Tier)
	switch e.Status {
	case model.StatusSatisfied:
		return w, w
	case model.StatusLowConfidence:
		return w / 2, w
	case model.StatusNotApplicable:
		return 0, 0
	default:
		return 0, w
	}
}

func weight(t model.Tier) float64 {
	switch t {
	case model.TierCritical:
		return weightCritical
	case model.TierImportant:
		return weightImportant
	default:
		return weightOptional
	}
}

// percent returns earned/possible as 0-100; nothing to earn counts as ready
func percent(earned, possible float64) int {
	if possible == 0 {
		return 100
	}
	return int(math.Round(earned / possible * 100))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
