package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tmorioka/sharefood/internal/auth"
	"github.com/tmorioka/sharefood/internal/db"
	"github.com/tmorioka/sharefood/internal/email"
	"github.com/tmorioka/sharefood/internal/errorz"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertUser(ef execFunc, u *auth.User) error {
	if u.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	var q db.Query
	q.Unsafe(`INSERT INTO users (id, username, email, password_hash, is_verified, verification_token, token_expires_at, created_at, updated_at) VALUES (`)
	q.Params(u.ID, u.Username, string(u.Email), u.PasswordHash.String(), u.IsVerified, tokenParam(u.VerificationToken), timeParam(u.TokenExpiresAt), u.CreatedAt, u.UpdatedAt)
	q.Unsafe(`)`)

	s, params := q.Get()

	_, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func updateUser(ef execFunc, u *auth.User) error {
	var q db.Query
	q.Unsafe(`UPDATE users SET `)

	q.Unsafe(`username = `)
	q.Param(u.Username)

	q.Unsafe(`, email = `)
	q.Param(string(u.Email))

	q.Unsafe(`, password_hash = `)
	q.Param(u.PasswordHash.String())

	q.Unsafe(`, is_verified = `)
	q.Param(u.IsVerified)

	q.Unsafe(`, verification_token = `)
	q.Param(tokenParam(u.VerificationToken))

	q.Unsafe(`, token_expires_at = `)
	q.Param(timeParam(u.TokenExpiresAt))

	q.Unsafe(`, updated_at = `)
	q.Param(u.UpdatedAt)

	q.Unsafe(` WHERE id = `)
	q.Param(u.ID)

	s, params := q.Get()

	result, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("user not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectUsers(qf queryFunc, f *auth.UserFilter) ([]auth.User, error) {
	var q db.Query
	q.Unsafe(`SELECT id, username, email, password_hash, is_verified, verification_token, token_expires_at, created_at, updated_at FROM users WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.Emails) > 0 {
		q.Unsafe(`AND email IN (`)
		q.Params(anySlice(f.Emails)...)
		q.Unsafe(`) `)
	}

	if len(f.VerificationTokens) > 0 {
		q.Unsafe(`AND verification_token IN (`)
		q.Params(anySlice(f.VerificationTokens)...)
		q.Unsafe(`) `)
	}

	if f.IsVerified != nil {
		q.Unsafe(`AND is_verified = `)
		q.Param(*f.IsVerified)
	}

	q.Unsafe(` ORDER BY created_at ASC`)

	s, params := q.Get()

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.User, 0)
	for rows.Next() {
		var (
			u         auth.User
			emailStr  string
			token     sql.NullString
			expiresAt sql.NullTime
		)

		err := rows.Scan(&u.ID, &u.Username, &emailStr, &u.PasswordHash, &u.IsVerified, &token, &expiresAt, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		u.Email = email.Address(emailStr)

		if token.Valid {
			t := auth.VerificationToken(token.String)
			u.VerificationToken = &t
		}

		if expiresAt.Valid {
			t := expiresAt.Time.UTC()
			u.TokenExpiresAt = &t
		}

		u.CreatedAt = u.CreatedAt.UTC()
		u.UpdatedAt = u.UpdatedAt.UTC()

		out = append(out, u)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertConsumedToken(ef execFunc, tok *auth.ConsumedToken) error {
	var q db.Query
	q.Unsafe(`INSERT INTO consumed_tokens (token, user_id, consumed_at) VALUES (`)
	q.Params(string(tok.Token), tok.UserID, tok.ConsumedAt)
	q.Unsafe(`)`)

	s, params := q.Get()

	_, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func selectConsumedTokens(qf queryFunc, f *auth.ConsumedTokenFilter) ([]auth.ConsumedToken, error) {
	var q db.Query
	q.Unsafe(`SELECT token, user_id, consumed_at FROM consumed_tokens WHERE 1=1 `)

	if len(f.Tokens) > 0 {
		q.Unsafe(`AND token IN (`)
		q.Params(anySlice(f.Tokens)...)
		q.Unsafe(`) `)
	}

	s, params := q.Get()

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.ConsumedToken, 0)
	for rows.Next() {
		var (
			tok      auth.ConsumedToken
			tokenStr string
		)

		err := rows.Scan(&tokenStr, &tok.UserID, &tok.ConsumedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		tok.Token = auth.VerificationToken(tokenStr)
		tok.ConsumedAt = tok.ConsumedAt.UTC()

		out = append(out, tok)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

// tokenParam converts an optional verification token to a bind parameter.
func tokenParam(t *auth.VerificationToken) any {
	if t == nil {
		return nil
	}
	return string(*t)
}

// timeParam converts an optional time to a bind parameter.
func timeParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func anySlice[T any](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}
