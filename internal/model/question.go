package model

import "strings"

// QuestionKind tells the presentation layer how a question was phrased
type QuestionKind string

const (
	KindOpen   QuestionKind = "open"   // Ask for the value from scratch
	KindVerify QuestionKind = "verify" // Confirm or correct an extracted value
)

// ShowIf is a display predicate evaluated by the presentation layer against
// the live, in-progress answers. The question is shown when the parent fact
// has a value and, if AnyOf is set, that value matches one of AnyOf.
type ShowIf struct {
	FactID string   `json:"fact_id"`
	AnyOf  []string `json:"any_of,omitempty"`
}

// Matches evaluates the predicate against a single parent value
func (s ShowIf) Matches(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if len(s.AnyOf) == 0 {
		return true
	}
	for _, v := range s.AnyOf {
		if strings.EqualFold(strings.TrimSpace(v), value) {
			return true
		}
	}
	return false
}

// Evaluate evaluates the predicate against a fact id → value map
func (s ShowIf) Evaluate(answers map[string]string) bool {
	return s.Matches(answers[s.FactID])
}

// QuestionSpec is one question offered to the applicant.
// Required is always false: every question can be skipped.
type QuestionSpec struct {
	FactID     string       `json:"fact_id"`
	Prompt     string       `json:"prompt"`
	Kind       QuestionKind `json:"kind"`
	Type       DataType     `json:"type"`
	Tier       Tier         `json:"tier"`
	Category   string       `json:"category"`
	Required   bool         `json:"is_required"`
	ShowIf     *ShowIf      `json:"show_if,omitempty"`
	Choices    []string     `json:"choices,omitempty"`
	Current    string       `json:"current_value,omitempty"` // Extracted value being verified
	Confidence float64      `json:"confidence,omitempty"`
	Source     string       `json:"source,omitempty"`
	Blocked    []string     `json:"blocked_artifacts"`
}

// QuestionGroup is a non-empty bucket of questions sharing a category
type QuestionGroup struct {
	Category  string         `json:"category"`
	Title     string         `json:"title,omitempty"`
	Questions []QuestionSpec `json:"questions"`
}

// TierCounts breaks question counts down by importance tier
type TierCounts struct {
	Critical  int `json:"critical"`
	Important int `json:"important"`
	Optional  int `json:"optional"`
}

// Add counts one question of the given tier
func (c *TierCounts) Add(t Tier) {
	switch t {
	case TierCritical:
		c.Critical++
	case TierImportant:
		c.Important++
	default:
		c.Optional++
	}
}

// Total returns the number of counted questions
func (c TierCounts) Total() int {
	return c.Critical + c.Important + c.Optional
}

// Questionnaire is the generated, ordered question set
type Questionnaire struct {
	ApplicationID string          `json:"application_id"`
	Questions     []QuestionSpec  `json:"questions"` // Tier, category, declaration order
	Groups        []QuestionGroup `json:"groups"`
	Suppressed    []string        `json:"suppressed,omitempty"` // Conditional facts whose branch is closed
	Summary       Summary         `json:"summary"`
	ByTier        TierCounts      `json:"by_tier"`
}

// Question looks up the question for a fact identifier
func (q *Questionnaire) Question(factID string) (QuestionSpec, bool) {
	for _, s := range q.Questions {
		if s.FactID == factID {
			return s, true
		}
	}
	return QuestionSpec{}, false
}
