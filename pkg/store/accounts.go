package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vango-dev/postboard/pkg/model"
)

const accountColumns = `id, name, login_code, created_at, updated_at`

// tokenAttempts bounds retries after a random token collides with an
// existing one.
const tokenAttempts = 3

// CreateAccount validates name and inserts a new account with a fresh
// login code. Refused names return a *NameError whose Check reports each
// rule; taken names unwrap to ErrNameTaken.
func (s *Store) CreateAccount(ctx context.Context, name string) (*model.Account, error) {
	check := model.ValidateName(name)
	if !check.Valid() {
		return nil, &NameError{Name: name, Check: check, Err: ErrInvalidName}
	}

	query := s.q(`INSERT INTO accounts (name, login_code, created_at, updated_at)
VALUES (?, ?, ?, ?)
RETURNING ` + accountColumns)

	for attempt := 0; ; attempt++ {
		now := s.now()
		var acc model.Account
		err := castErr(s.db.GetContext(ctx, &acc, query, name, newToken(), now, now))
		if err == nil {
			return &acc, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("store: create account: %w", err)
		}

		taken, terr := s.nameExists(ctx, name)
		if terr != nil {
			return nil, fmt.Errorf("store: create account: %w", terr)
		}
		if taken {
			check.Available = model.CheckInvalid
			return nil, &NameError{Name: name, Check: check, Err: ErrNameTaken}
		}
		if attempt+1 >= tokenAttempts {
			return nil, fmt.Errorf("store: create account: %w", err)
		}
		s.logger.Warn("login code collision, retrying", "attempt", attempt+1)
	}
}

func (s *Store) nameExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM accounts WHERE name = ?`), name)
	return n > 0, err
}

// AccountByID returns the account with the given id or ErrNotFound.
func (s *Store) AccountByID(ctx context.Context, id int64) (*model.Account, error) {
	var acc model.Account
	err := s.db.GetContext(ctx, &acc, s.q(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`), id)
	if err != nil {
		return nil, castErr(err)
	}
	return &acc, nil
}

// AccountByLoginCode returns the account owning code or ErrNotFound.
func (s *Store) AccountByLoginCode(ctx context.Context, code string) (*model.Account, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	var acc model.Account
	err := s.db.GetContext(ctx, &acc, s.q(`SELECT `+accountColumns+` FROM accounts WHERE login_code = ?`), code)
	if err != nil {
		return nil, castErr(err)
	}
	return &acc, nil
}

// DeleteAccount removes the account. Its sessions, posts, likes and
// comments go with it through ON DELETE CASCADE, as do likes and comments
// other accounts left on its posts.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM accounts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("store: delete account %d: %w", id, castErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete account %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
