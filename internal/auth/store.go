package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tmorioka/sharefood/internal/email"
)

// UserFilter is used to filter users.
// Returned users must match all the provided fields.
// If a field is empty or nil, it's ignored.
type UserFilter struct {
	IDs                []uuid.UUID
	Emails             []email.Address
	VerificationTokens []VerificationToken
	IsVerified         *bool
}

// ConsumedToken records a verification token that was successfully
// consumed. Consumption clears the token from the user row, keeping
// the consumed value around lets us distinguish a replayed token from
// a token that never existed.
type ConsumedToken struct {
	Token      VerificationToken
	UserID     uuid.UUID
	ConsumedAt time.Time
}

// ConsumedTokenFilter is used to filter consumed tokens.
type ConsumedTokenFilter struct {
	Tokens []VerificationToken
}

// Store provides access to the user store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
	FindUsers(ctx context.Context, filter *UserFilter) ([]User, error)
}

// Tx is a transaction. If an error occurs on any of the Create/Update/Find
// methods, the transaction is considered to have failed and should be
// rolled back. Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateUser(u *User) error
	UpdateUser(u *User) error
	FindUsers(filter *UserFilter) ([]User, error)

	CreateConsumedToken(t *ConsumedToken) error
	FindConsumedTokens(filter *ConsumedTokenFilter) ([]ConsumedToken, error)
}
