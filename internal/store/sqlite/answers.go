package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/store"
)

// Put upserts an answer with last-write-wins by timestamp and returns the
// answer stored afterwards
func (s *Store) Put(ctx context.Context, appID, factID, value string, at time.Time) (model.Answer, error) {
	if appID == "" {
		return model.Answer{}, store.ErrEmptyApplication
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO answers (application_id, fact_id, value, answered_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(application_id, fact_id) DO UPDATE SET
			value = excluded.value,
			answered_at = excluded.answered_at
		WHERE excluded.answered_at >= answers.answered_at
	`, appID, factID, value, toNanos(at))
	if err != nil {
		return model.Answer{}, fmt.Errorf("put answer %s: %w", factID, err)
	}

	var (
		a          = model.Answer{ApplicationID: appID, FactID: factID}
		answeredAt int64
	)
	err = s.conn.QueryRowContext(ctx, `
		SELECT value, answered_at FROM answers
		WHERE application_id = ? AND fact_id = ?
	`, appID, factID).Scan(&a.Value, &answeredAt)
	if err != nil {
		return model.Answer{}, fmt.Errorf("read answer %s: %w", factID, err)
	}
	a.AnsweredAt = fromNanos(answeredAt)
	return a, nil
}

// GetAll returns an application's answers keyed by fact id
func (s *Store) GetAll(ctx context.Context, appID string) (map[string]model.Answer, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT fact_id, value, answered_at FROM answers
		WHERE application_id = ?
	`, appID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	answers := make(map[string]model.Answer)
	for rows.Next() {
		var (
			a          = model.Answer{ApplicationID: appID}
			answeredAt int64
		)
		if err := rows.Scan(&a.FactID, &a.Value, &answeredAt); err != nil {
			return nil, err
		}
		a.AnsweredAt = fromNanos(answeredAt)
		answers[a.FactID] = a
	}
	return answers, rows.Err()
}

var _ store.Store = (*Store)(nil)
