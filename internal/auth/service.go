package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tmorioka/sharefood/internal/email"
	"github.com/tmorioka/sharefood/internal/errorz"
	"github.com/tmorioka/sharefood/internal/krypto"
)

var (
	// ErrDuplicateEmail indicates the email address belongs to a verified account.
	ErrDuplicateEmail = errors.New("email address already in use")
	// ErrInvalidCredentials indicates an unknown email address or a wrong
	// password. Callers get the same error for both, revealing which one
	// it was would allow user enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified indicates the credentials are correct but the email
	// address was never verified.
	ErrNotVerified = errors.New("account not verified")
	// ErrTokenExpired indicates the verification token is past its expiry.
	ErrTokenExpired = errors.New("verification token expired")
	// ErrAlreadyVerified indicates the token was already consumed and the
	// account is verified.
	ErrAlreadyVerified = errors.New("account already verified")
)

// Emailer is used to send templated emails.
type Emailer interface {
	Send(ctx context.Context, template string, to email.Address, data any) error
}

// ErrFunc is a function that handles errors that should not fail the
// operation they occurred in.
type ErrFunc func(error)

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// TokenExpiry is the duration a verification token is valid.
	TokenExpiry time.Duration
}

// Service provides the main rules for registration, email verification
// and authentication.
type Service struct {
	store      Store
	emailer    Emailer
	errHandler ErrFunc
	cfg        ServiceConfig

	// comparisonHash is used to compare passwords when no user was found.
	comparisonHash krypto.Argon2Hash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, emailer Emailer, errHandler ErrFunc, cfg ServiceConfig) (*Service, error) {
	tok, err := krypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	hash, err := krypto.HashArgon2(tok[:])
	if err != nil {
		return nil, err
	}

	svc := &Service{
		store:          s,
		emailer:        emailer,
		errHandler:     errHandler,
		cfg:            cfg,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}

	return svc, nil
}

// Registration is a request to register a new account.
type Registration struct {
	Username string
	Email    email.Address
	Password Password
}

// RegisterStatus indicates how a registration request was resolved.
type RegisterStatus string

const (
	// StatusCreated means a new unverified account was created.
	StatusCreated RegisterStatus = "created"
	// StatusResent means an unverified account with the same email already
	// existed. Its credentials were replaced and a fresh verification
	// email was sent.
	StatusResent RegisterStatus = "resent"
)

// RegisterResult is the outcome of a successful registration request.
type RegisterResult struct {
	User   User
	Status RegisterStatus
}

// Credentials are used to authenticate a user.
type Credentials struct {
	Email    email.Address
	Password Password
}

// VerificationMail is the template data for the verification email.
type VerificationMail struct {
	Username  string
	Token     VerificationToken
	ExpiresAt time.Time
}

// Register registers the account for the provided registration request.
//
// If the email address is unknown a new unverified account is created.
// If an unverified account with the same email exists, its username and
// password are replaced and a new verification token is issued, the
// previous token stops being valid. Both cases send a verification
// email. If a verified account exists, ErrDuplicateEmail is returned
// and nothing is changed.
//
// A failure to send the verification email does not fail the
// registration, it is reported to the error handler instead. The
// account and token are already persisted at that point, so the user
// can re-register to trigger a new email.
func (s *Service) Register(ctx context.Context, reg Registration) (RegisterResult, error) {
	pwdHash, err := reg.Password.Hash()
	if err != nil {
		return RegisterResult{}, err
	}

	now := s.NowFunc().UTC()

	token, err := GenerateVerificationToken(reg.Email, now)
	if err != nil {
		return RegisterResult{}, err
	}

	expiresAt := now.Add(s.cfg.TokenExpiry)

	result := RegisterResult{}

	err = s.inTx(ctx, func(tx Tx) error {
		users, txErr := tx.FindUsers(&UserFilter{
			Emails: []email.Address{reg.Email},
		})
		if txErr != nil {
			return txErr
		}

		if len(users) > 0 {
			user := users[0]
			if user.IsVerified {
				return ErrDuplicateEmail
			}

			// Re-registration of an unverified account. Overwrite the
			// credentials and issue a fresh token, only the latest token
			// is valid.
			user.Username = reg.Username
			user.PasswordHash = pwdHash
			user.VerificationToken = &token
			user.TokenExpiresAt = &expiresAt
			user.UpdatedAt = now

			if txErr := tx.UpdateUser(&user); txErr != nil {
				return txErr
			}

			result = RegisterResult{User: user, Status: StatusResent}
			return nil
		}

		user := User{
			ID:                uuid.New(),
			Username:          reg.Username,
			Email:             reg.Email,
			PasswordHash:      pwdHash,
			IsVerified:        false,
			VerificationToken: &token,
			TokenExpiresAt:    &expiresAt,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		if txErr := tx.CreateUser(&user); txErr != nil {
			return txErr
		}

		result = RegisterResult{User: user, Status: StatusCreated}
		return nil
	})

	if err != nil {
		// Two concurrent registrations for the same new address can both
		// pass the duplicate check, the unique constraint on the email
		// column is the source of truth. Report the loser the same way as
		// a regular duplicate.
		if errors.Is(err, errorz.ErrConstraintViolated) {
			return RegisterResult{}, ErrDuplicateEmail
		}
		return RegisterResult{}, err
	}

	// The email is sent outside the transaction, it can fail
	// independently. That is acceptable, the token is persisted and the
	// user can always register again to get a new email.
	err = s.emailer.Send(ctx, "verify-email", reg.Email, VerificationMail{
		Username:  result.User.Username,
		Token:     token,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		s.errHandler(fmt.Errorf("failed to send verification email: %w", err))
	}

	return result, nil
}

// VerifyEmail consumes the provided verification token.
//
// On success the account is marked verified and the token fields are
// cleared in the same transaction, a token can only be consumed once.
// Consuming a token that was already consumed yields ErrAlreadyVerified.
// Consuming an expired token yields ErrTokenExpired and leaves the
// token fields in place, so re-registering can issue a replacement.
// Any other token yields ErrTokenInvalid.
func (s *Service) VerifyEmail(ctx context.Context, raw string) (User, error) {
	token, err := ParseVerificationToken(raw)
	if err != nil {
		return User{}, err
	}

	var user User

	err = s.inTx(ctx, func(tx Tx) error {
		users, txErr := tx.FindUsers(&UserFilter{
			VerificationTokens: []VerificationToken{token},
		})
		if txErr != nil {
			return txErr
		}

		if len(users) != 1 {
			// No outstanding token with this value. If it was consumed
			// before, the account is verified, report that instead of
			// pretending the token never existed.
			consumed, txErr := tx.FindConsumedTokens(&ConsumedTokenFilter{
				Tokens: []VerificationToken{token},
			})
			if txErr != nil {
				return txErr
			}

			if len(consumed) > 0 {
				return ErrAlreadyVerified
			}

			return ErrTokenInvalid
		}

		user = users[0]
		now := s.NowFunc().UTC()

		if user.TokenExpiresAt == nil || now.After(user.TokenExpiresAt.UTC()) {
			return ErrTokenExpired
		}

		user.IsVerified = true
		user.VerificationToken = nil
		user.TokenExpiresAt = nil
		user.UpdatedAt = now

		if txErr := tx.UpdateUser(&user); txErr != nil {
			return txErr
		}

		return tx.CreateConsumedToken(&ConsumedToken{
			Token:      token,
			UserID:     user.ID,
			ConsumedAt: now,
		})
	})

	if err != nil {
		return User{}, err
	}

	return user, nil
}

// Login checks the provided credentials and returns the matching user.
//
// Unknown email addresses and wrong passwords both yield
// ErrInvalidCredentials. Correct credentials for an unverified account
// yield ErrNotVerified, at that point the caller has already proven
// they know the password, so distinguishing is acceptable.
func (s *Service) Login(ctx context.Context, c Credentials) (User, error) {
	users, err := s.store.FindUsers(ctx, &UserFilter{
		Emails: []email.Address{c.Email},
	})
	if err != nil {
		return User{}, err
	}

	if len(users) != 1 {
		// Even if no user is found we compare to a hash to prevent timing
		// differences that could result in user enumeration attacks.
		_ = c.Password.Match(s.comparisonHash)
		return User{}, ErrInvalidCredentials
	}

	user := users[0]

	if !c.Password.Match(user.PasswordHash) {
		return User{}, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return User{}, ErrNotVerified
	}

	return user, nil
}

// GetUser returns the user with the provided id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	users, err := s.store.FindUsers(ctx, &UserFilter{
		IDs: []uuid.UUID{id},
	})
	if err != nil {
		return User{}, err
	}

	if len(users) != 1 {
		return User{}, errorz.ErrNotFound
	}

	return users[0], nil
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	return tx.Commit()
}
