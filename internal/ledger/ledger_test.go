package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/dossier/internal/catalog/catalogtest"
	"github.com/ppiankov/dossier/internal/gap"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/store"
	"github.com/ppiankov/dossier/internal/validate"
)

// fixedClock returns increasing timestamps one second apart
type fixedClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func newLedger(t *testing.T) (*Ledger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	l := New(catalogtest.Travel(t), mem, mem, nil)
	clock := &fixedClock{cur: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	l.now = clock.now
	return l, mem
}

func TestRecord_StoresAnswerAndFact(t *testing.T) {
	ctx := context.Background()
	l, mem := newLedger(t)

	a, err := l.Record(ctx, "app-1", "travel.purpose", "  Business ")
	require.NoError(t, err)
	assert.Equal(t, "Business", a.Value)

	answers, err := l.AnswersFor(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, "Business", answers["travel.purpose"].Value)

	facts, err := mem.Facts(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, model.SourceQuestionnaire, facts[0].Source)
	assert.Equal(t, 1.0, facts[0].Confidence)
	assert.Equal(t, a.AnsweredAt, facts[0].RecordedAt)
}

func TestRecord_Resubmission(t *testing.T) {
	ctx := context.Background()
	l, mem := newLedger(t)

	_, err := l.Record(ctx, "app-1", "travel.purpose", "Business")
	require.NoError(t, err)
	_, err = l.Record(ctx, "app-1", "travel.purpose", "Medical")
	require.NoError(t, err)

	answers, _ := l.AnswersFor(ctx, "app-1")
	require.Len(t, answers, 1)
	assert.Equal(t, "Medical", answers["travel.purpose"].Value)

	// History keeps both; the latest is authoritative
	facts, _ := mem.Facts(ctx, "app-1")
	assert.Len(t, facts, 2)
	assert.Equal(t, "Medical", model.SelectAuthoritative(facts)["travel.purpose"].Value)
}

func TestRecord_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	l, mem := newLedger(t)

	_, err := l.Record(ctx, "app-1", "travel.purpose", "Business")
	require.NoError(t, err)

	_, err = l.Record(ctx, "app-1", "travel.arrival_date", "next tuesday")
	assert.True(t, errors.Is(err, validate.ErrInvalidValue))

	_, err = l.Record(ctx, "app-1", "travel.party_size", "three")
	assert.True(t, errors.Is(err, validate.ErrInvalidValue))

	_, err = l.Record(ctx, "app-1", "accommodation.has_booking", "perhaps")
	assert.True(t, errors.Is(err, validate.ErrInvalidValue))

	_, err = l.Record(ctx, "app-1", "travel.shoe_size", "42")
	assert.True(t, errors.Is(err, ErrUnknownFact))

	_, err = l.Record(ctx, "", "travel.purpose", "Business")
	assert.True(t, errors.Is(err, ErrEmptyApplication))

	// Rejected writes leave earlier answers untouched
	answers, _ := l.AnswersFor(ctx, "app-1")
	assert.Len(t, answers, 1)
	facts, _ := mem.Facts(ctx, "app-1")
	assert.Len(t, facts, 1)
}

func TestRecord_NormalizesChoice(t *testing.T) {
	l, _ := newLedger(t)
	a, err := l.Record(context.Background(), "app-1", "accommodation.has_booking", "NO")
	require.NoError(t, err)
	assert.Equal(t, "no", a.Value)
}

func TestRecordBatch_PartialSave(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	saved, err := l.RecordBatch(ctx, "app-1", map[string]string{
		"identity.full_name":  "Jane Doe",
		"travel.arrival_date": "2026-07-01",
	})
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	// Resume later with one more answer
	_, err = l.Record(ctx, "app-1", "travel.purpose", "Business")
	require.NoError(t, err)

	answers, _ := l.AnswersFor(ctx, "app-1")
	assert.Len(t, answers, 3)
}

func TestRecordBatch_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	l, mem := newLedger(t)

	_, err := l.RecordBatch(ctx, "app-1", map[string]string{
		"identity.full_name":  "Jane Doe",
		"travel.arrival_date": "July",
		"travel.shoe_size":    "42",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, validate.ErrInvalidValue))
	assert.True(t, errors.Is(err, ErrUnknownFact))

	answers, _ := l.AnswersFor(ctx, "app-1")
	assert.Empty(t, answers)
	facts, _ := mem.Facts(ctx, "app-1")
	assert.Empty(t, facts)
}

func TestClear_ReopensGap(t *testing.T) {
	ctx := context.Background()
	l, mem := newLedger(t)
	an := gap.NewAnalyzer(catalogtest.Travel(t), 0.75)

	require.NoError(t, mem.Append(ctx, model.ExtractedFact{
		ApplicationID: "app-1", FactID: "travel.purpose", Value: "Tourism", Confidence: 0.4,
		Source: "visa_form", RecordedAt: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC),
	}))

	_, err := l.Record(ctx, "app-1", "travel.purpose", "Business")
	require.NoError(t, err)

	facts, _ := mem.Facts(ctx, "app-1")
	a, err := an.Analyze("app-1", []string{"cover_letter"}, facts)
	require.NoError(t, err)
	e, _ := a.Entry("travel.purpose")
	assert.Equal(t, model.StatusSatisfied, e.Status)

	_, err = l.Clear(ctx, "app-1", "travel.purpose")
	require.NoError(t, err)

	answers, _ := l.AnswersFor(ctx, "app-1")
	assert.NotContains(t, answers, "travel.purpose")

	facts, _ = mem.Facts(ctx, "app-1")
	a, err = an.Analyze("app-1", []string{"cover_letter"}, facts)
	require.NoError(t, err)
	e, _ = a.Entry("travel.purpose")
	assert.Equal(t, model.StatusMissing, e.Status, "the old extraction predates the clear")

	_, err = l.Clear(ctx, "app-1", "travel.nope")
	assert.True(t, errors.Is(err, ErrUnknownFact))
}

func TestRecord_StaleWriteIsIgnored(t *testing.T) {
	ctx := context.Background()
	l, mem := newLedger(t)

	_, err := mem.Put(ctx, "app-1", "travel.purpose", "Medical", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	a, err := l.Record(ctx, "app-1", "travel.purpose", "Business")
	require.NoError(t, err)
	assert.Equal(t, "Medical", a.Value, "the newer stored answer wins")

	facts, _ := mem.Facts(ctx, "app-1")
	assert.Empty(t, facts)
}

func TestRecord_ConcurrentSameFact(t *testing.T) {
	ctx := context.Background()
	l, mem := newLedger(t)

	var wg sync.WaitGroup
	for _, v := range []string{"Business", "Tourism", "Medical", "Study"} {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			_, _ = l.Record(ctx, "app-1", "travel.purpose", v)
		}(v)
	}
	wg.Wait()

	answers, _ := l.AnswersFor(ctx, "app-1")
	facts, _ := mem.Facts(ctx, "app-1")
	require.Len(t, facts, 4)
	// The stored answer and the authoritative fact agree
	assert.Equal(t, answers["travel.purpose"].Value, model.SelectAuthoritative(facts)["travel.purpose"].Value)
}
