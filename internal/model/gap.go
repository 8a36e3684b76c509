package model

// GapStatus classifies a required fact after reconciliation
type GapStatus string

const (
	StatusMissing       GapStatus = "missing"        // No authoritative fact
	StatusLowConfidence GapStatus = "low_confidence" // Extracted below the confidence floor
	StatusSatisfied     GapStatus = "satisfied"      // Known well enough
	StatusNotApplicable GapStatus = "not_applicable" // Conditional fact whose branch is closed
)

// GapEntry is the reconciliation result for one required fact.
// Entries are computed on every analysis pass and never persisted.
type GapEntry struct {
	FactID     string         `json:"fact_id"`
	Status     GapStatus      `json:"status"`
	Definition FactDefinition `json:"definition"`
	Artifacts  []string       `json:"artifacts"`              // Target artifacts referencing the fact, catalog order
	Current    *ExtractedFact `json:"current,omitempty"`      // Authoritative fact, if any
	Prereq     bool           `json:"prerequisite,omitempty"` // Pulled in as the parent of a required fact
}

// IsGap reports whether the entry still needs the applicant's input
func (e GapEntry) IsGap() bool {
	return e.Status == StatusMissing || e.Status == StatusLowConfidence
}

// Blocked returns the artifacts waiting on this fact; empty when satisfied
func (e GapEntry) Blocked() []string {
	if !e.IsGap() {
		return nil
	}
	return e.Artifacts
}

// ArtifactStatus summarizes what one target artifact is waiting for
type ArtifactStatus struct {
	ID            string   `json:"id"`
	Title         string   `json:"title,omitempty"`
	Ready         bool     `json:"ready"`
	Missing       []string `json:"missing,omitempty"`
	LowConfidence []string `json:"low_confidence,omitempty"`
	NotApplicable []string `json:"not_applicable,omitempty"`
}

// Summary carries the counters shown next to a questionnaire
type Summary struct {
	ArtifactsTargeted  int `json:"artifacts_targeted"`
	ArtifactsSatisfied int `json:"artifacts_satisfied"`
	FactsNeeded        int `json:"facts_needed"`
	FactsAvailable     int `json:"facts_available"`
	FactsMissing       int `json:"facts_missing"`
	FactsLowConfidence int `json:"facts_low_confidence"`
	FactsNotApplicable int `json:"facts_not_applicable,omitempty"`
}

// Analysis is the output of one gap analysis pass
type Analysis struct {
	ApplicationID   string                   `json:"application_id"`
	Targets         []string                 `json:"targets"`
	ConfidenceFloor float64                  `json:"confidence_floor"`
	Entries         []GapEntry               `json:"entries"` // Catalog declaration order
	Artifacts       []ArtifactStatus         `json:"artifacts"`
	Known           map[string]ExtractedFact `json:"-"` // Authoritative fact for every known identifier
	Summary         Summary                  `json:"summary"`
}

// Gaps returns the entries that are not satisfied, in entry order
func (a *Analysis) Gaps() []GapEntry {
	var gaps []GapEntry
	for _, e := range a.Entries {
		if e.IsGap() {
			gaps = append(gaps, e)
		}
	}
	return gaps
}

// Entry looks up the entry for a fact identifier
func (a *Analysis) Entry(factID string) (GapEntry, bool) {
	for _, e := range a.Entries {
		if e.FactID == factID {
			return e, true
		}
	}
	return GapEntry{}, false
}
