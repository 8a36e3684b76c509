// Package store holds the facts and answers known about each application.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/dossier/internal/model"
)

// ErrEmptyApplication is returned when a write names no application
var ErrEmptyApplication = errors.New("application id is required")

// FactStore is the append-only history of facts per application.
// Facts are never updated or deleted; superseding facts are appended.
type FactStore interface {
	Append(ctx context.Context, facts ...model.ExtractedFact) error
	Facts(ctx context.Context, appID string) ([]model.ExtractedFact, error)
}

// AnswerRepository keeps the latest answer per (application, fact).
// Put applies last-write-wins by timestamp and returns the answer that won.
type AnswerRepository interface {
	Put(ctx context.Context, appID, factID, value string, at time.Time) (model.Answer, error)
	GetAll(ctx context.Context, appID string) (map[string]model.Answer, error)
}

// Store is a complete persistence backend
type Store interface {
	FactStore
	AnswerRepository
	Applications(ctx context.Context) ([]string, error)
	Close() error
}

// Prepare fills the id and timestamp of a fact about to be appended
func Prepare(f model.ExtractedFact, now time.Time) model.ExtractedFact {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.RecordedAt.IsZero() {
		f.RecordedAt = now
	}
	f.RecordedAt = f.RecordedAt.UTC()
	return f
}

// Memory is an in-process Store. Each application's state is private to it.
type Memory struct {
	mu      sync.RWMutex
	facts   map[string][]model.ExtractedFact
	answers map[string]map[string]model.Answer
	now     func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		facts:   make(map[string][]model.ExtractedFact),
		answers: make(map[string]map[string]model.Answer),
		now:     time.Now,
	}
}

// Append adds facts to their application's history
func (m *Memory) Append(ctx context.Context, facts ...model.ExtractedFact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, f := range facts {
		if f.ApplicationID == "" {
			return ErrEmptyApplication
		}
	}

	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range facts {
		m.facts[f.ApplicationID] = append(m.facts[f.ApplicationID], Prepare(f, now))
	}
	return nil
}

// Facts returns a copy of an application's fact history
func (m *Memory) Facts(ctx context.Context, appID string) ([]model.ExtractedFact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.ExtractedFact(nil), m.facts[appID]...), nil
}

// Put records an answer unless a later one is already stored
func (m *Memory) Put(ctx context.Context, appID, factID, value string, at time.Time) (model.Answer, error) {
	if err := ctx.Err(); err != nil {
		return model.Answer{}, err
	}
	if appID == "" {
		return model.Answer{}, ErrEmptyApplication
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	answers, ok := m.answers[appID]
	if !ok {
		answers = make(map[string]model.Answer)
		m.answers[appID] = answers
	}
	if cur, ok := answers[factID]; ok && at.Before(cur.AnsweredAt) {
		return cur, nil
	}
	a := model.Answer{ApplicationID: appID, FactID: factID, Value: value, AnsweredAt: at.UTC()}
	answers[factID] = a
	return a, nil
}

// GetAll returns a copy of an application's answers keyed by fact id
func (m *Memory) GetAll(ctx context.Context, appID string) (map[string]model.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]model.Answer, len(m.answers[appID]))
	for id, a := range m.answers[appID] {
		out[id] = a
	}
	return out, nil
}

// Applications lists every application with facts or answers, sorted
func (m *Memory) Applications(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	for id := range m.facts {
		seen[id] = true
	}
	for id := range m.answers {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}
var _ Store = (*Memory)(nil)
