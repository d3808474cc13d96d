package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Attempt is one journaled check-in attempt.
type Attempt struct {
	ID           string    `json:"id"`
	Seq          int64     `json:"seq"`
	ActivationID string    `json:"activation_id,omitempty"`
	ClassCode    string    `json:"class_code"`
	SessionID    *int64    `json:"session_id,omitempty"`
	StudentID    *int64    `json:"student_id,omitempty"`
	Kind         string    `json:"kind"`
	Title        string    `json:"title,omitempty"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecordAttempt appends an attempt to the journal. ID, Seq and CreatedAt
// are assigned by the store; the returned Attempt carries them.
func (s *Store) RecordAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	a.ID = s.newID()
	ts := s.timestamp()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts
		(id, activation_id, class_code, session_id, student_id, kind, title, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID,
		a.ActivationID,
		a.ClassCode,
		nullInt(a.SessionID),
		nullInt(a.StudentID),
		a.Kind,
		a.Title,
		a.Message,
		ts,
	)
	if err != nil {
		return Attempt{}, fmt.Errorf("record attempt: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return Attempt{}, fmt.Errorf("record attempt: %w", err)
	}
	a.Seq = seq
	a.CreatedAt, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Attempt{}, fmt.Errorf("record attempt: %w", err)
	}
	return a, nil
}

// ListAttempts returns journaled attempts, newest first. A limit of zero or
// less returns every attempt.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, activation_id, class_code, session_id, student_id, kind, title, message, created_at
		FROM attempts
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	attempts := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

func scanAttempt(rows *sql.Rows) (Attempt, error) {
	var (
		a         Attempt
		sessionID sql.NullInt64
		studentID sql.NullInt64
		createdAt string
	)
	if err := rows.Scan(
		&a.Seq,
		&a.ID,
		&a.ActivationID,
		&a.ClassCode,
		&sessionID,
		&studentID,
		&a.Kind,
		&a.Title,
		&a.Message,
		&createdAt,
	); err != nil {
		return Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	if sessionID.Valid {
		a.SessionID = &sessionID.Int64
	}
	if studentID.Valid {
		a.StudentID = &studentID.Int64
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Attempt{}, fmt.Errorf("parse created_at for attempt %s: %w", a.ID, err)
	}
	a.CreatedAt = t
	return a, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
