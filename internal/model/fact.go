package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DataType is the declared shape of a fact value
type DataType string

const (
	TypeShortText        DataType = "short_text"         // Single line of free text
	TypeLongText         DataType = "long_text"          // Multi-line free text
	TypeNumber           DataType = "number"             // Decimal number
	TypeDate             DataType = "date"               // Calendar date (YYYY-MM-DD)
	TypeSingleChoice     DataType = "single_choice"      // One value out of Choices
	TypeMultiEntryRecord DataType = "multi_entry_record" // JSON array of objects (e.g. previous trips)
)

// Valid reports whether t is one of the known data types
func (t DataType) Valid() bool {
	switch t {
	case TypeShortText, TypeLongText, TypeNumber, TypeDate, TypeSingleChoice, TypeMultiEntryRecord:
		return true
	}
	return false
}

// Tier ranks how much a fact matters for the generated artifacts
type Tier string

const (
	TierCritical  Tier = "critical"
	TierImportant Tier = "important"
	TierOptional  Tier = "optional"
)

// Rank orders tiers for sorting: critical first. Unknown tiers sort last.
func (t Tier) Rank() int {
	switch t {
	case TierCritical:
		return 0
	case TierImportant:
		return 1
	case TierOptional:
		return 2
	default:
		return 3
	}
}

// Valid reports whether t is one of the known tiers
func (t Tier) Valid() bool {
	return t.Rank() < 3
}

// SourceQuestionnaire tags facts supplied by the applicant through the questionnaire.
const SourceQuestionnaire = "questionnaire"

// FactDefinition describes one atomic fact the catalog knows about.
// Definitions are immutable once the catalog is loaded.
type FactDefinition struct {
	ID           string   `json:"id" yaml:"id"`
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Type         DataType `json:"type" yaml:"type"`
	Tier         Tier     `json:"tier" yaml:"tier"`
	Category     string   `json:"category" yaml:"category"`
	Parent       string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	ShowWhen     []string `json:"show_when,omitempty" yaml:"show_when,omitempty"`
	Choices      []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	Aliases      []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	VerifyPrompt string   `json:"verify_prompt,omitempty" yaml:"verify_prompt,omitempty"`
}

// IsConditional reports whether the fact is only relevant under a parent branch
func (d FactDefinition) IsConditional() bool {
	return d.Parent != ""
}

// ArtifactRequirement lists the facts an output artifact consumes, in order
type ArtifactRequirement struct {
	ID    string   `json:"id" yaml:"id"`
	Title string   `json:"title,omitempty" yaml:"title,omitempty"`
	Facts []string `json:"facts" yaml:"facts"`
}

// Category groups questions for presentation
type Category struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// ExtractedFact is one observation of a fact value for an application.
// Several may exist per (application, fact); see SelectAuthoritative.
type ExtractedFact struct {
	ID            string    `json:"id,omitempty" yaml:"id,omitempty"`
	ApplicationID string    `json:"application_id" yaml:"application_id"`
	FactID        string    `json:"fact_id" yaml:"fact_id"`
	Value         string    `json:"value" yaml:"value"`
	Confidence    float64   `json:"confidence" yaml:"confidence"`
	Source        string    `json:"source" yaml:"source"`
	Cleared       bool      `json:"cleared,omitempty" yaml:"cleared,omitempty"`
	RecordedAt    time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// ErrInvalidConfidence is returned for a confidence that is not a finite number
var ErrInvalidConfidence = errors.New("invalid confidence")

// CheckConfidence rejects NaN and infinite confidences
func CheckConfidence(c float64) error {
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidConfidence, c)
	}
	return nil
}

// FromQuestionnaire reports whether the applicant supplied this fact
func (f ExtractedFact) FromQuestionnaire() bool {
	return f.Source == SourceQuestionnaire
}

// Answer is an applicant-supplied value for a fact
type Answer struct {
	ApplicationID string    `json:"application_id" yaml:"application_id"`
	FactID        string    `json:"fact_id" yaml:"fact_id"`
	Value         string    `json:"value" yaml:"value"`
	AnsweredAt    time.Time `json:"answered_at" yaml:"answered_at"`
}

// AsFact converts the answer into the fact it contributes to analysis.
// An empty value is an explicit clear.
func (a Answer) AsFact() ExtractedFact {
	return ExtractedFact{
		ApplicationID: a.ApplicationID,
		FactID:        a.FactID,
		Value:         a.Value,
		Confidence:    1.0,
		Source:        SourceQuestionnaire,
		Cleared:       a.Value == "",
		RecordedAt:    a.AnsweredAt,
	}
}

// SelectAuthoritative reduces a fact history to one authoritative fact per
// identifier. The rule, applied per identifier:
//
//  1. The latest questionnaire fact wins over any extraction. If that fact is
//     a clear, the answer is gone and only extractions recorded after the
//     clear are considered.
//  2. Among extractions with a non-blank value: the most recent wins; equal
//     timestamps go to the higher confidence, then the lower source tag,
//     then the lower value.
//
// The result does not depend on the order of facts.
func SelectAuthoritative(facts []ExtractedFact) map[string]ExtractedFact {
	answers := make(map[string]ExtractedFact)
	for _, f := range facts {
		if !f.FromQuestionnaire() {
			continue
		}
		f.Confidence = clampConfidence(f.Confidence)
		if cur, ok := answers[f.FactID]; !ok || supersedes(f, cur) {
			answers[f.FactID] = f
		}
	}

	result := make(map[string]ExtractedFact)
	for id, a := range answers {
		if !a.Cleared {
			result[id] = a
		}
	}

	for _, f := range facts {
		if f.FromQuestionnaire() || strings.TrimSpace(f.Value) == "" {
			continue
		}
		if a, ok := answers[f.FactID]; ok {
			if !a.Cleared || !f.RecordedAt.After(a.RecordedAt) {
				continue
			}
		}
		f.Confidence = clampConfidence(f.Confidence)
		if cur, ok := result[f.FactID]; !ok || supersedes(f, cur) {
			result[f.FactID] = f
		}
	}
	return result
}

// supersedes reports whether a beats b under the tie-break order
func supersedes(a, b ExtractedFact) bool {
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.After(b.RecordedAt)
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	// Clears lose ties so a simultaneous write keeps the value
	if a.Cleared != b.Cleared {
		return !a.Cleared
	}
	return a.Value < b.Value
}

// clampConfidence maps c into [0,1]; NaN counts as no confidence at all
func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// SortFacts orders facts by fact id, then recorded time, for stable output
func SortFacts(facts []ExtractedFact) {
	sort.SliceStable(facts, func(i, j int) bool {
		if facts[i].FactID != facts[j].FactID {
			return facts[i].FactID < facts[j].FactID
		}
		return facts[i].RecordedAt.Before(facts[j].RecordedAt)
	})
}
