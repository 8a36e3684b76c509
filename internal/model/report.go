package model

import "time"

// Report is the complete output of one questionnaire pass for an application
type Report struct {
	ApplicationID string        `json:"application_id"`
	GeneratedAt   time.Time     `json:"generated_at"`
	Analysis      Analysis      `json:"analysis"`
	Questionnaire Questionnaire `json:"questionnaire"`
	Readiness     Readiness     `json:"readiness"`
	FactCount     int           `json:"fact_count"`         // Facts considered, history included
	Degraded      bool          `json:"degraded,omitempty"` // Fact source failed; analysed with no facts
	Warnings      []string      `json:"warnings,omitempty"`
}

// Readiness is the informative artifact readiness breakdown
type Readiness struct {
	Index     int                 `json:"index"` // Overall readiness (0-100)
	Artifacts []ArtifactReadiness `json:"artifacts"`
	Signals   []Signal            `json:"signals"`
}

// ArtifactReadiness is the readiness index of a single artifact
type ArtifactReadiness struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Ready bool   `json:"ready"`
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`           // Signal classification
	Severity    SignalSeverity         `json:"severity"`       // info, warning, critical
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Transparent scoring data (formulas, inputs)
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalCriticalMissing SignalType = "critical_missing" // Critical facts nobody supplied yet
	SignalLowConfidence   SignalType = "low_confidence"   // Extracted values awaiting confirmation
	SignalArtifactReady   SignalType = "artifact_ready"   // Artifacts with every fact satisfied
	SignalNoFacts         SignalType = "no_facts"         // Nothing known about the application
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// Snapshot is a self-contained analysis input: the facts known about one
// application and the artifacts still to be produced
type Snapshot struct {
	ApplicationID string          `json:"application_id" yaml:"application_id"`
	Targets       []string        `json:"targets,omitempty" yaml:"targets,omitempty"`
	Facts         []ExtractedFact `json:"facts" yaml:"facts"`
}
