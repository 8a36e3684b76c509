package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/store"
)

// Append inserts facts in one transaction. Existing rows are never touched.
func (s *Store) Append(ctx context.Context, facts ...model.ExtractedFact) error {
	for _, f := range facts {
		if f.ApplicationID == "" {
			return store.ErrEmptyApplication
		}
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts (id, application_id, fact_id, value, confidence, source, cleared, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := s.now()
	for _, f := range facts {
		f = store.Prepare(f, now)
		confidence := f.Confidence
		if confidence < 0 {
			confidence = 0
		} else if confidence > 1 {
			confidence = 1
		}
		if _, err := stmt.ExecContext(ctx, f.ID, f.ApplicationID, f.FactID, f.Value,
			confidence, f.Source, f.Cleared, toNanos(f.RecordedAt)); err != nil {
			return fmt.Errorf("append fact %s: %w", f.FactID, err)
		}
	}
	return tx.Commit()
}

// Facts returns an application's fact history in recording order
func (s *Store) Facts(ctx context.Context, appID string) ([]model.ExtractedFact, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, application_id, fact_id, value, confidence, source, cleared, recorded_at
		FROM facts
		WHERE application_id = ?
		ORDER BY recorded_at, rowid
	`, appID)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanFacts(rows)
}

func scanFacts(rows *sql.Rows) ([]model.ExtractedFact, error) {
	var facts []model.ExtractedFact
	for rows.Next() {
		var (
			f          model.ExtractedFact
			recordedAt int64
		)
		if err := rows.Scan(&f.ID, &f.ApplicationID, &f.FactID, &f.Value, &f.Confidence,
			&f.Source, &f.Cleared, &recordedAt); err != nil {
			return nil, err
		}
		f.RecordedAt = fromNanos(recordedAt)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// Applications lists every application with facts or answers
func (s *Store) Applications(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT application_id FROM facts
		UNION
		SELECT application_id FROM answers
		ORDER BY application_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
