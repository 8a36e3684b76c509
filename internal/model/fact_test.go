package model

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSelectAuthoritative_MostRecentWins(t *testing.T) {
	facts := []ExtractedFact{
		{FactID: "travel.purpose", Value: "Tourism", Confidence: 0.9, Source: "visa_form", RecordedAt: t0},
		{FactID: "travel.purpose", Value: "Business", Confidence: 0.6, Source: "invitation", RecordedAt: t0.Add(time.Hour)},
	}

	got := SelectAuthoritative(facts)
	if got["travel.purpose"].Value != "Business" {
		t.Errorf("expected most recent value Business, got %q", got["travel.purpose"].Value)
	}
}

func TestSelectAuthoritative_TieGoesToHigherConfidence(t *testing.T) {
	facts := []ExtractedFact{
		{FactID: "identity.full_name", Value: "J. Doe", Confidence: 0.5, Source: "bank_statement", RecordedAt: t0},
		{FactID: "identity.full_name", Value: "Jane Doe", Confidence: 0.95, Source: "passport", RecordedAt: t0},
	}

	got := SelectAuthoritative(facts)
	if got["identity.full_name"].Value != "Jane Doe" {
		t.Errorf("expected higher confidence value on timestamp tie, got %q", got["identity.full_name"].Value)
	}
}

func TestSelectAuthoritative_FullTieIsOrderIndependent(t *testing.T) {
	facts := []ExtractedFact{
		{FactID: "travel.cities", Value: "Rome", Confidence: 0.8, Source: "itinerary", RecordedAt: t0},
		{FactID: "travel.cities", Value: "Milan", Confidence: 0.8, Source: "itinerary", RecordedAt: t0},
		{FactID: "travel.cities", Value: "Naples", Confidence: 0.8, Source: "booking", RecordedAt: t0},
	}

	want := SelectAuthoritative(facts)["travel.cities"]
	if want.Value != "Naples" {
		t.Fatalf("expected lowest source tag to win a full tie, got %q", want.Value)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]ExtractedFact(nil), facts...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := SelectAuthoritative(shuffled)["travel.cities"]; got != want {
			t.Fatalf("selection depends on order: got %+v, want %+v", got, want)
		}
	}
}

func TestSelectAuthoritative_QuestionnaireOutranksExtraction(t *testing.T) {
	facts := []ExtractedFact{
		{FactID: "travel.purpose", Value: "Tourism", Confidence: 0.4, Source: "visa_form", RecordedAt: t0},
		{FactID: "travel.purpose", Value: "Business", Confidence: 1.0, Source: SourceQuestionnaire, RecordedAt: t0.Add(time.Minute)},
		// A later, confident extraction still does not displace the answer
		{FactID: "travel.purpose", Value: "Conference", Confidence: 0.99, Source: "invitation", RecordedAt: t0.Add(time.Hour)},
	}

	got := SelectAuthoritative(facts)["travel.purpose"]
	if got.Value != "Business" || got.Source != SourceQuestionnaire {
		t.Errorf("expected questionnaire answer Business, got %+v", got)
	}
}

func TestSelectAuthoritative_ClearedAnswer(t *testing.T) {
	facts := []ExtractedFact{
		{FactID: "travel.purpose", Value: "Tourism", Confidence: 0.95, Source: "visa_form", RecordedAt: t0},
		{FactID: "travel.purpose", Value: "Business", Confidence: 1.0, Source: SourceQuestionnaire, RecordedAt: t0.Add(time.Minute)},
		{FactID: "travel.purpose", Confidence: 1.0, Source: SourceQuestionnaire, Cleared: true, RecordedAt: t0.Add(2 * time.Minute)},
	}

	if _, ok := SelectAuthoritative(facts)["travel.purpose"]; ok {
		t.Fatal("expected cleared fact to have no authoritative value")
	}

	facts = append(facts, ExtractedFact{
		FactID: "travel.purpose", Value: "Conference", Confidence: 0.9, Source: "invitation", RecordedAt: t0.Add(time.Hour),
	})
	if got := SelectAuthoritative(facts)["travel.purpose"]; got.Value != "Conference" {
		t.Errorf("expected extraction after the clear to count, got %+v", got)
	}
}

func TestSelectAuthoritative_AnswerAfterClear(t *testing.T) {
	facts := []ExtractedFact{
		{FactID: "travel.purpose", Confidence: 1.0, Source: SourceQuestionnaire, Cleared: true, RecordedAt: t0},
		{FactID: "travel.purpose", Value: "Medical", Confidence: 1.0, Source: SourceQuestionnaire, RecordedAt: t0.Add(time.Second)},
	}
	if got := SelectAuthoritative(facts)["travel.purpose"]; got.Value != "Medical" {
		t.Errorf("expected new answer after clear, got %+v", got)
	}
}

func TestSelectAuthoritative_SimultaneousClearLoses(t *testing.T) {
	facts := []ExtractedFact{
		{FactID: "travel.purpose", Confidence: 1.0, Source: SourceQuestionnaire, Cleared: true, RecordedAt: t0},
		{FactID: "travel.purpose", Value: "Medical", Confidence: 1.0, Source: SourceQuestionnaire, RecordedAt: t0},
	}
	if got := SelectAuthoritative(facts)["travel.purpose"]; got.Value != "Medical" {
		t.Errorf("expected value to survive a simultaneous clear, got %+v", got)
	}
}

func TestSelectAuthoritative_IgnoresBlankExtractions(t *testing.T) {
	facts := []ExtractedFact{
		{FactID: "identity.nationality", Value: "  ", Confidence: 0.99, Source: "passport", RecordedAt: t0},
	}
	if _, ok := SelectAuthoritative(facts)["identity.nationality"]; ok {
		t.Error("blank extraction should not become authoritative")
	}
}

func TestSelectAuthoritative_ClampsConfidence(t *testing.T) {
	facts := []ExtractedFact{
		{FactID: "a.b", Value: "x", Confidence: 1.7, Source: "ocr", RecordedAt: t0},
		{FactID: "c.d", Value: "y", Confidence: -0.2, Source: "ocr", RecordedAt: t0},
	}
	got := SelectAuthoritative(facts)
	if got["a.b"].Confidence != 1 || got["c.d"].Confidence != 0 {
		t.Errorf("expected confidences clamped to [0,1], got %v and %v", got["a.b"].Confidence, got["c.d"].Confidence)
	}
}

func TestSelectAuthoritative_NaNConfidence(t *testing.T) {
	facts := []ExtractedFact{
		{FactID: "travel.purpose", Value: "Alpha", Confidence: math.NaN(), Source: "ocr", RecordedAt: t0},
		{FactID: "travel.purpose", Value: "Beta", Confidence: 0.9, Source: "ocr", RecordedAt: t0},
	}
	reversed := []ExtractedFact{facts[1], facts[0]}

	first := SelectAuthoritative(facts)["travel.purpose"]
	second := SelectAuthoritative(reversed)["travel.purpose"]
	if first.Value != "Beta" || second.Value != "Beta" {
		t.Errorf("expected Beta regardless of order, got %q and %q", first.Value, second.Value)
	}

	only := SelectAuthoritative(facts[:1])["travel.purpose"]
	if only.Confidence != 0 {
		t.Errorf("expected NaN confidence to count as 0, got %v", only.Confidence)
	}
}

func TestCheckConfidence(t *testing.T) {
	for _, c := range []float64{0, 0.5, 1, 1.7, -0.2} {
		if err := CheckConfidence(c); err != nil {
			t.Errorf("CheckConfidence(%v) = %v, want nil", c, err)
		}
	}
	for _, c := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := CheckConfidence(c); !errors.Is(err, ErrInvalidConfidence) {
			t.Errorf("CheckConfidence(%v) = %v, want ErrInvalidConfidence", c, err)
		}
	}
}

func TestAnswer_AsFact(t *testing.T) {
	a := Answer{ApplicationID: "app-1", FactID: "travel.purpose", Value: "Business", AnsweredAt: t0}
	f := a.AsFact()
	if f.Confidence != 1.0 || f.Source != SourceQuestionnaire || f.Cleared {
		t.Errorf("unexpected fact from answer: %+v", f)
	}

	cleared := Answer{ApplicationID: "app-1", FactID: "travel.purpose", AnsweredAt: t0}.AsFact()
	if !cleared.Cleared {
		t.Error("empty answer should become a clear")
	}
}

func TestShowIf(t *testing.T) {
	s := ShowIf{FactID: "accommodation.has_booking", AnyOf: []string{"no"}}

	if !s.Evaluate(map[string]string{"accommodation.has_booking": " No "}) {
		t.Error("expected case-insensitive, trimmed match")
	}
	if s.Evaluate(map[string]string{"accommodation.has_booking": "yes"}) {
		t.Error("did not expect match for yes")
	}
	if s.Evaluate(map[string]string{}) {
		t.Error("did not expect match without a parent answer")
	}

	any := ShowIf{FactID: "employment.status"}
	if !any.Matches("student") || any.Matches("") {
		t.Error("predicate without values should match any non-empty answer")
	}
}

func TestTierRank(t *testing.T) {
	if !(TierCritical.Rank() < TierImportant.Rank() && TierImportant.Rank() < TierOptional.Rank()) {
		t.Error("expected critical < important < optional")
	}
	if Tier("urgent").Valid() {
		t.Error("unknown tier should be invalid")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cfg.Analysis.ConfidenceFloor = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for floor above 1")
	}

	cfg.Analysis.ConfidenceFloor = math.NaN()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for NaN floor")
	}

	cfg.Analysis.ConfidenceFloor = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("floor 0 should validate: %v", err)
	}

	cfg = DefaultConfig()
	cfg.Store.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown driver")
	}
}
