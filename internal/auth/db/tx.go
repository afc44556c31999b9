package db

import (
	"database/sql"

	"github.com/tmorioka/sharefood/internal/auth"
)

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateUser creates a user in the database.
func (t *Tx) CreateUser(u *auth.User) error {
	return insertUser(t.tx.Exec, u)
}

// UpdateUser updates a user in the database.
// It returns errorz.ErrNotFound if no user is found.
func (t *Tx) UpdateUser(u *auth.User) error {
	return updateUser(t.tx.Exec, u)
}

// FindUsers queries for users based on the provided filter.
// It returns an empty slice if no users are found.
func (t *Tx) FindUsers(filter *auth.UserFilter) ([]auth.User, error) {
	return selectUsers(t.tx.Query, filter)
}

// CreateConsumedToken records a consumed verification token.
func (t *Tx) CreateConsumedToken(tok *auth.ConsumedToken) error {
	return insertConsumedToken(t.tx.Exec, tok)
}

// FindConsumedTokens queries for consumed tokens based on the provided filter.
func (t *Tx) FindConsumedTokens(filter *auth.ConsumedTokenFilter) ([]auth.ConsumedToken, error) {
	return selectConsumedTokens(t.tx.Query, filter)
}
