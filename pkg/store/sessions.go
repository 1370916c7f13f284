package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vango-dev/postboard/pkg/model"
)

const sessionColumns = `id, identifier, account_id, created_at, updated_at`

// CreateSession starts a session for the account and returns it with its
// new identifier. An unknown account returns ErrNotFound.
func (s *Store) CreateSession(ctx context.Context, accountID int64) (*model.Session, error) {
	query := s.q(`INSERT INTO sessions (identifier, account_id, created_at, updated_at)
VALUES (?, ?, ?, ?)
RETURNING ` + sessionColumns)

	for attempt := 0; ; attempt++ {
		now := s.now()
		var sess model.Session
		err := castErr(s.db.GetContext(ctx, &sess, query, newToken(), accountID, now, now))
		switch {
		case err == nil:
			return &sess, nil
		case errors.Is(err, ErrForeignKey):
			return nil, ErrNotFound
		case errors.Is(err, ErrConflict) && attempt+1 < tokenAttempts:
			s.logger.Warn("session identifier collision, retrying", "attempt", attempt+1)
		default:
			return nil, fmt.Errorf("store: create session: %w", err)
		}
	}
}

// SessionByToken returns the session with the given identifier or ErrNotFound.
func (s *Store) SessionByToken(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var sess model.Session
	err := s.db.GetContext(ctx, &sess, s.q(`SELECT `+sessionColumns+` FROM sessions WHERE identifier = ?`), token)
	if err != nil {
		return nil, castErr(err)
	}
	return &sess, nil
}

type sessionAccountRow struct {
	SessionID        int64   `db:"session_id"`
	Identifier       string  `db:"identifier"`
	SessionCreatedAt float64 `db:"session_created_at"`
	SessionUpdatedAt float64 `db:"session_updated_at"`
	model.Account
}

// SessionAccount resolves a token to its session and account in one query.
// Unknown tokens return ErrNotFound.
func (s *Store) SessionAccount(ctx context.Context, token string) (*model.Session, *model.Account, error) {
	if token == "" {
		return nil, nil, ErrNotFound
	}
	var row sessionAccountRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT
    s.id AS session_id, s.identifier, s.created_at AS session_created_at, s.updated_at AS session_updated_at,
    a.id, a.name, a.login_code, a.created_at, a.updated_at
FROM sessions s
JOIN accounts a ON a.id = s.account_id
WHERE s.identifier = ?`), token)
	if err != nil {
		return nil, nil, castErr(err)
	}

	acc := row.Account
	sess := &model.Session{
		ID:         row.SessionID,
		Identifier: row.Identifier,
		AccountID:  acc.ID,
		CreatedAt:  row.SessionCreatedAt,
		UpdatedAt:  row.SessionUpdatedAt,
	}
	return sess, &acc, nil
}

// DeleteSession removes the session with the given identifier. Deleting a
// session that does not exist is not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM sessions WHERE identifier = ?`), token); err != nil {
		return fmt.Errorf("store: delete session: %w", castErr(err))
	}
	return nil
}
