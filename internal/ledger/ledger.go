// Package ledger records applicant answers and feeds them back into the
// fact history as questionnaire facts.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ppiankov/dossier/internal/catalog"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/store"
	"github.com/ppiankov/dossier/internal/util"
	"github.com/ppiankov/dossier/internal/validate"
	"github.com/ppiankov/dossier/internal/worker"
)

var (
	// ErrUnknownFact is returned for a fact id the catalog does not define
	ErrUnknownFact = errors.New("unknown fact")

	// ErrEmptyApplication is returned when no application id is given
	ErrEmptyApplication = store.ErrEmptyApplication
)

// Ledger validates answers, keeps the latest per fact, and appends each
// accepted answer to the fact history
type Ledger struct {
	catalog *catalog.Catalog
	answers store.AnswerRepository
	facts   store.FactStore
	locks   *worker.KeyedMutex
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a ledger. A nil logger discards.
func New(cat *catalog.Catalog, answers store.AnswerRepository, facts store.FactStore, logger *slog.Logger) *Ledger {
	return &Ledger{
		catalog: cat,
		answers: answers,
		facts:   facts,
		locks:   worker.NewKeyedMutex(),
		now:     time.Now,
		logger:  util.OrDiscard(logger),
	}
}

// Record validates and stores one answer. Re-answering a fact overwrites the
// previous answer. Wrong-type input is rejected and nothing is written.
func (l *Ledger) Record(ctx context.Context, appID, factID, value string) (model.Answer, error) {
	normalized, err := l.check(appID, factID, value)
	if err != nil {
		return model.Answer{}, err
	}

	unlock := l.locks.Lock(appID)
	defer unlock()
	return l.write(ctx, appID, factID, normalized, l.now().UTC())
}

// RecordBatch stores a partial set of answers. Every value is validated
// before anything is written; one bad value rejects the whole batch.
func (l *Ledger) RecordBatch(ctx context.Context, appID string, values map[string]string) (map[string]model.Answer, error) {
	if appID == "" {
		return nil, ErrEmptyApplication
	}

	factIDs := make([]string, 0, len(values))
	for id := range values {
		factIDs = append(factIDs, id)
	}
	sort.Strings(factIDs)

	normalized := make(map[string]string, len(values))
	var errs []error
	for _, id := range factIDs {
		v, err := l.check(appID, id, values[id])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		normalized[id] = v
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	unlock := l.locks.Lock(appID)
	defer unlock()

	at := l.now().UTC()
	out := make(map[string]model.Answer, len(factIDs))
	for _, id := range factIDs {
		a, err := l.write(ctx, appID, id, normalized[id], at)
		if err != nil {
			return out, err
		}
		out[id] = a
	}
	return out, nil
}

// Clear explicitly removes the answer for a fact. The fact becomes a gap
// again unless a later extraction supplies it.
func (l *Ledger) Clear(ctx context.Context, appID, factID string) (model.Answer, error) {
	if appID == "" {
		return model.Answer{}, ErrEmptyApplication
	}
	if _, err := l.catalog.DefinitionOf(factID); err != nil {
		return model.Answer{}, fmt.Errorf("%w: %q", ErrUnknownFact, factID)
	}

	unlock := l.locks.Lock(appID)
	defer unlock()
	return l.write(ctx, appID, factID, "", l.now().UTC())
}

// AnswersFor returns the current answers of an application keyed by fact id.
// Cleared answers are omitted.
func (l *Ledger) AnswersFor(ctx context.Context, appID string) (map[string]model.Answer, error) {
	all, err := l.answers.GetAll(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	for id, a := range all {
		if a.Value == "" {
			delete(all, id)
		}
	}
	return all, nil
}

// check validates the target and the value shape
func (l *Ledger) check(appID, factID, value string) (string, error) {
	if appID == "" {
		return "", ErrEmptyApplication
	}
	def, err := l.catalog.DefinitionOf(factID)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownFact, factID)
	}
	return validate.Value(def, value)
}

// write persists the answer, then appends the questionnaire fact it implies.
// A write that loses to a newer stored answer appends nothing.
func (l *Ledger) write(ctx context.Context, appID, factID, value string, at time.Time) (model.Answer, error) {
	stored, err := l.answers.Put(ctx, appID, factID, value, at)
	if err != nil {
		return model.Answer{}, fmt.Errorf("store answer %s: %w", factID, err)
	}
	if !stored.AnsweredAt.Equal(at) || stored.Value != value {
		l.logger.Debug("answer superseded by a newer write", "app", appID, "fact", factID)
		return stored, nil
	}

	if err := l.facts.Append(ctx, stored.AsFact()); err != nil {
		// Analysis merges stored answers; only the history row is lost
		l.logger.Warn("append questionnaire fact failed", "app", appID, "fact", factID, "error", err)
	}
	l.logger.Debug("answer recorded", "app", appID, "fact", factID, "cleared", value == "")
	return stored, nil
}
