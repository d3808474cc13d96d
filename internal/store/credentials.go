package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNoToken is returned by Token when no credential is stored.
var ErrNoToken = errors.New("no session token stored")

// Token returns the stored bearer token. It implements api.TokenSource.
func (s *Store) Token(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM credentials WHERE id = 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return token, nil
}

// SetToken stores token, replacing any previous credential.
// Surrounding whitespace is trimmed; an empty token is rejected.
func (s *Store) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("set token: token is empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, token, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`, token, s.timestamp())
	if err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	return nil
}

// ClearToken removes the stored credential. Clearing an empty store is not
// an error.
func (s *Store) ClearToken(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = 1`); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
