package extract

import (
	"strings"
	"unicode"

	"github.com/ppiankov/dossier/internal/model"
)

// Match confidences. A full fact id is unambiguous; aliases and bare field
// names are how forms usually label things but collide more often.
const (
	MatchExact = 0.95
	MatchAlias = 0.85
)

// Matcher maps document labels onto catalog fact ids
type Matcher struct {
	labels map[string]labelMatch
}

type labelMatch struct {
	factID     string
	confidence float64
}

// NewMatcher indexes fields by id, alias and bare field name. When two facts
// share a label the first declared one keeps it.
func NewMatcher(fields []model.FactDefinition) *Matcher {
	m := &Matcher{labels: make(map[string]labelMatch)}
	for _, f := range fields {
		m.add(f.ID, f.ID, MatchExact)
	}
	for _, f := range fields {
		for _, alias := range f.Aliases {
			m.add(alias, f.ID, MatchAlias)
		}
	}
	for _, f := range fields {
		if i := strings.LastIndex(f.ID, "."); i >= 0 {
			m.add(f.ID[i+1:], f.ID, MatchAlias)
		}
	}
	return m
}

func (m *Matcher) add(label, factID string, confidence float64) {
	key := NormalizeLabel(label)
	if key == "" {
		return
	}
	if _, taken := m.labels[key]; taken {
		return
	}
	m.labels[key] = labelMatch{factID: factID, confidence: confidence}
}

// Match returns the fact a label refers to and how sure the match is
func (m *Matcher) Match(label string) (string, float64, bool) {
	hit, ok := m.labels[NormalizeLabel(label)]
	if !ok {
		return "", 0, false
	}
	return hit.factID, hit.confidence, true
}

// NormalizeLabel lowercases a label and collapses punctuation and
// separators into single spaces
func NormalizeLabel(label string) string {
	var buf strings.Builder
	space := false
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteRune(r)
			space = false
			continue
		}
		space = true
	}
	return buf.String()
}
