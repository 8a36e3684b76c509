package gap

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/dossier/internal/catalog"
	"github.com/ppiankov/dossier/internal/catalog/catalogtest"
	"github.com/ppiankov/dossier/internal/model"
)

var base = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func extracted(factID, value string, confidence float64, source string, offset time.Duration) model.ExtractedFact {
	return model.ExtractedFact{
		ApplicationID: "app-1",
		FactID:        factID,
		Value:         value,
		Confidence:    confidence,
		Source:        source,
		RecordedAt:    base.Add(offset),
	}
}

func statusOf(t *testing.T, a *model.Analysis, factID string) model.GapStatus {
	t.Helper()
	e, ok := a.Entry(factID)
	require.True(t, ok, "no entry for %s", factID)
	return e.Status
}

// ----------------------------------------------------------------------------
// Scenarios
// ----------------------------------------------------------------------------

func TestAnalyze_NoFacts(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)

	a, err := an.Analyze("app-1", []string{"cover_letter", "hotel_voucher"}, nil)
	require.NoError(t, err)

	require.Len(t, a.Entries, 3)
	for _, e := range a.Entries {
		assert.Equal(t, model.StatusMissing, e.Status, e.FactID)
	}

	name, _ := a.Entry("identity.full_name")
	assert.Equal(t, []string{"cover_letter"}, name.Blocked())

	assert.Equal(t, model.Summary{
		ArtifactsTargeted: 2,
		FactsNeeded:       3,
		FactsMissing:      3,
	}, a.Summary)
}

func TestAnalyze_ConfidentExtractionSatisfies(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)
	facts := []model.ExtractedFact{extracted("identity.full_name", "Jane Doe", 0.95, "passport", 0)}

	a, err := an.Analyze("app-1", []string{"cover_letter", "hotel_voucher"}, facts)
	require.NoError(t, err)

	assert.Equal(t, model.StatusSatisfied, statusOf(t, a, "identity.full_name"))
	assert.Len(t, a.Gaps(), 2)
	assert.Equal(t, 1, a.Summary.FactsAvailable)

	name, _ := a.Entry("identity.full_name")
	require.NotNil(t, name.Current)
	assert.Equal(t, "Jane Doe", name.Current.Value)
	assert.Empty(t, name.Blocked())
}

func TestAnalyze_LowConfidence(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)
	facts := []model.ExtractedFact{extracted("travel.purpose", "Tourism", 0.4, "visa_form", 0)}

	a, err := an.Analyze("app-1", []string{"cover_letter"}, facts)
	require.NoError(t, err)

	assert.Equal(t, model.StatusLowConfidence, statusOf(t, a, "travel.purpose"))
	assert.Equal(t, 1, a.Summary.FactsLowConfidence)
	assert.Equal(t, []string{"travel.purpose"}, a.Artifacts[0].LowConfidence)
	assert.False(t, a.Artifacts[0].Ready)
}

func TestAnalyze_QuestionnaireSupersedesExtraction(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)
	facts := []model.ExtractedFact{
		extracted("travel.purpose", "Tourism", 0.3, "visa_form", 0),
		model.Answer{ApplicationID: "app-1", FactID: "travel.purpose", Value: "Business", AnsweredAt: base.Add(time.Minute)}.AsFact(),
	}

	a, err := an.Analyze("app-1", []string{"cover_letter"}, facts)
	require.NoError(t, err)

	e, _ := a.Entry("travel.purpose")
	assert.Equal(t, model.StatusSatisfied, e.Status)
	require.NotNil(t, e.Current)
	assert.Equal(t, "Business", e.Current.Value)
	assert.Equal(t, model.SourceQuestionnaire, e.Current.Source)
}

func TestAnalyze_QuestionnaireIgnoresFloor(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 1.0)
	facts := []model.ExtractedFact{
		{ApplicationID: "app-1", FactID: "identity.full_name", Value: "Jane Doe", Confidence: 0.2, Source: model.SourceQuestionnaire, RecordedAt: base},
	}

	a, err := an.Analyze("app-1", []string{"cover_letter"}, facts)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSatisfied, statusOf(t, a, "identity.full_name"))
}

func TestAnalyze_FloorIsStrict(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)
	facts := []model.ExtractedFact{extracted("identity.full_name", "Jane Doe", 0.75, "passport", 0)}

	a, err := an.Analyze("app-1", []string{"cover_letter"}, facts)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSatisfied, statusOf(t, a, "identity.full_name"))
}

// ----------------------------------------------------------------------------
// Properties
// ----------------------------------------------------------------------------

func TestAnalyze_Deterministic(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)
	facts := []model.ExtractedFact{
		extracted("identity.full_name", "Jane Doe", 0.95, "passport", 0),
		extracted("identity.full_name", "J. Doe", 0.95, "bank_statement", 0),
		extracted("travel.purpose", "Tourism", 0.4, "visa_form", time.Minute),
		extracted("travel.purpose", "Leisure", 0.6, "itinerary", time.Minute),
		extracted("travel.arrival_date", "2026-07-01", 0.9, "ticket", 2*time.Minute),
	}

	want, err := an.Analyze("app-1", nil, facts)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := append([]model.ExtractedFact(nil), facts...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := an.Analyze("app-1", nil, shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAnalyze_FanIn(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)

	a, err := an.Analyze("app-1", []string{"itinerary", "cover_letter"}, nil)
	require.NoError(t, err)

	var count int
	for _, e := range a.Entries {
		if e.FactID == "identity.full_name" {
			count++
			assert.Equal(t, []string{"cover_letter", "itinerary"}, e.Artifacts)
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"cover_letter", "itinerary"}, a.Targets)
}

func TestAnalyze_PrerequisiteParent(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)

	a, err := an.Analyze("app-1", []string{"itinerary"}, nil)
	require.NoError(t, err)

	parent, ok := a.Entry("accommodation.has_booking")
	require.True(t, ok, "parent of a required conditional fact should be analysed")
	assert.True(t, parent.Prereq)
	assert.Equal(t, []string{"itinerary"}, parent.Artifacts)

	child, _ := a.Entry("accommodation.preferred_hotel")
	assert.False(t, child.Prereq)

	// Prerequisites do not count against the artifact itself
	assert.NotContains(t, a.Artifacts[0].Missing, "accommodation.has_booking")
}

func TestAnalyze_EntriesFollowCatalogOrder(t *testing.T) {
	c := catalogtest.Travel(t)
	an := NewAnalyzer(c, 0.75)

	a, err := an.Analyze("app-1", nil, nil)
	require.NoError(t, err)

	for i := 1; i < len(a.Entries); i++ {
		assert.Less(t, c.Index(a.Entries[i-1].FactID), c.Index(a.Entries[i].FactID))
	}
}

func TestAnalyze_IgnoresForeignAndUnknownFacts(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)
	foreign := extracted("identity.full_name", "John Roe", 0.99, "passport", 0)
	foreign.ApplicationID = "app-2"
	facts := []model.ExtractedFact{
		foreign,
		extracted("identity.shoe_size", "42", 0.99, "passport", 0),
	}

	a, err := an.Analyze("app-1", []string{"cover_letter"}, facts)
	require.NoError(t, err)

	assert.Equal(t, model.StatusMissing, statusOf(t, a, "identity.full_name"))
	assert.NotContains(t, a.Known, "identity.shoe_size")
}

func TestAnalyze_MonotonicImprovement(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)
	facts := []model.ExtractedFact{extracted("travel.purpose", "Tourism", 0.4, "visa_form", 0)}

	before, err := an.Analyze("app-1", nil, facts)
	require.NoError(t, err)

	facts = append(facts, extracted("travel.hotel_name", "Hotel Roma", 0.9, "booking", time.Minute))
	after, err := an.Analyze("app-1", nil, facts)
	require.NoError(t, err)

	assert.Equal(t, model.StatusMissing, statusOf(t, before, "travel.hotel_name"))
	assert.Equal(t, model.StatusSatisfied, statusOf(t, after, "travel.hotel_name"))
	assert.Len(t, after.Gaps(), len(before.Gaps())-1)
	assert.True(t, after.Artifacts[1].Ready)
	assert.Equal(t, before.Summary.ArtifactsSatisfied+1, after.Summary.ArtifactsSatisfied)
}

func TestAnalyze_UnknownTarget(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)

	_, err := an.Analyze("app-1", []string{"cover_letter", "boarding_pass"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrUnknownArtifact))
}

func TestAnalyze_DuplicateTargets(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)

	a, err := an.Analyze("app-1", []string{"hotel_voucher", "hotel_voucher"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"hotel_voucher"}, a.Targets)
	assert.Equal(t, 1, a.Summary.ArtifactsTargeted)
}

func TestNewAnalyzer_InvalidFloor(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 2)
	assert.Equal(t, model.DefaultConfidenceFloor, an.Floor())
}

func TestNewAnalyzer_NaNFloor(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), math.NaN())
	assert.Equal(t, model.DefaultConfidenceFloor, an.Floor())

	facts := []model.ExtractedFact{extracted("travel.purpose", "Tourism", 0.1, "visa_form", 0)}
	a, err := an.Analyze("app-1", []string{"cover_letter"}, facts)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLowConfidence, statusOf(t, a, "travel.purpose"))
}

func TestAnalyze_NaNConfidenceNeedsVerification(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)
	facts := []model.ExtractedFact{extracted("travel.purpose", "Tourism", math.NaN(), "visa_form", 0)}

	a, err := an.Analyze("app-1", []string{"cover_letter"}, facts)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLowConfidence, statusOf(t, a, "travel.purpose"))
}

func answered(factID, value string) model.ExtractedFact {
	return model.Answer{ApplicationID: "app-1", FactID: factID, Value: value, AnsweredAt: base}.AsFact()
}

func TestAnalyze_ClosedBranchIsNotApplicable(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)
	facts := []model.ExtractedFact{
		answered("identity.full_name", "Jane Doe"),
		answered("travel.arrival_date", "2026-06-01"),
		answered("travel.party_size", "2"),
		answered("accommodation.has_booking", "yes"),
	}

	a, err := an.Analyze("app-1", []string{"itinerary"}, facts)
	require.NoError(t, err)

	assert.Equal(t, model.StatusNotApplicable, statusOf(t, a, "accommodation.preferred_hotel"))
	assert.Empty(t, a.Gaps())

	require.Len(t, a.Artifacts, 1)
	itinerary := a.Artifacts[0]
	assert.True(t, itinerary.Ready)
	assert.Empty(t, itinerary.Missing)
	assert.Equal(t, []string{"accommodation.preferred_hotel"}, itinerary.NotApplicable)

	assert.Equal(t, model.Summary{
		ArtifactsTargeted:  1,
		ArtifactsSatisfied: 1,
		FactsNeeded:        4,
		FactsAvailable:     4,
		FactsNotApplicable: 1,
	}, a.Summary)
}

func TestAnalyze_BranchOpenWhileParentUncertain(t *testing.T) {
	an := NewAnalyzer(catalogtest.Travel(t), 0.75)

	missing, err := an.Analyze("app-1", []string{"itinerary"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusMissing, statusOf(t, missing, "accommodation.preferred_hotel"))

	facts := []model.ExtractedFact{extracted("accommodation.has_booking", "yes", 0.3, "email", 0)}
	low, err := an.Analyze("app-1", []string{"itinerary"}, facts)
	require.NoError(t, err)
	assert.Equal(t, model.StatusMissing, statusOf(t, low, "accommodation.preferred_hotel"))

	facts = []model.ExtractedFact{answered("accommodation.has_booking", "no")}
	open, err := an.Analyze("app-1", []string{"itinerary"}, facts)
	require.NoError(t, err)
	assert.Equal(t, model.StatusMissing, statusOf(t, open, "accommodation.preferred_hotel"))
}
