package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/tmorioka/sharefood/internal/email"
	"github.com/tmorioka/sharefood/internal/krypto"
)

// User contains the data for a user account.
//
// VerificationToken and TokenExpiresAt are either both set or both nil.
// They are only set while a verification request is outstanding, a
// verified user never has them set.
type User struct {
	ID                uuid.UUID
	Username          string
	Email             email.Address
	PasswordHash      krypto.Argon2Hash
	IsVerified        bool
	VerificationToken *VerificationToken
	TokenExpiresAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
