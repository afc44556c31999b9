package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode"
	"unicode/utf8"

	"github.com/tmorioka/sharefood/internal/krypto"
)

const (
	minPasswordLen = 8
	// We put a generous upper cap on password length, so people can use
	// passphrases but we don't allow MBs of data as a password.
	maxPasswordLen = 512
)

var (
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", minPasswordLen)
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d characters", maxPasswordLen)
	ErrPasswordNeedsUpper = errors.New("password must contain an uppercase letter")
	ErrPasswordNeedsLower = errors.New("password must contain a lowercase letter")
	ErrPasswordNeedsDigit = errors.New("password must contain a digit")
)

// Password is a plaintext password.
//
// It should never be persisted, logged or exposed in any other way. To
// protect ourselves from accidentally doing so, the type implements
// several common interfaces that would allow it to be used inappropriately.
//
// There are only two operations allowed on a Password:
// - Converting it to a hash.
// - Comparing it with an existing hash to see if they match.
type Password struct {
	plain []byte
}

// ParsePassword creates a new Password from a plaintext string.
// It errors if the password is too short, too long or does not meet
// the strength requirements.
func ParsePassword(pwd string) (Password, error) {
	// Length limits count characters, not bytes, so multibyte
	// passwords are not cut short.
	n := utf8.RuneCountInString(pwd)

	if n < minPasswordLen {
		return Password{}, ErrPasswordTooShort
	}

	if n > maxPasswordLen {
		return Password{}, ErrPasswordTooLong
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range pwd {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	switch {
	case !hasUpper:
		return Password{}, ErrPasswordNeedsUpper
	case !hasLower:
		return Password{}, ErrPasswordNeedsLower
	case !hasDigit:
		return Password{}, ErrPasswordNeedsDigit
	}

	return Password{
		plain: []byte(pwd),
	}, nil
}

// Match checks if the plaintext password matches the given hash.
func (p Password) Match(h krypto.Argon2Hash) bool {
	return h.MatchBytes(p.plain)
}

// Hash hashes the plaintext password using the argon2id algorithm.
func (p Password) Hash() (krypto.Argon2Hash, error) {
	return krypto.HashArgon2(p.plain)
}

func (p Password) Format(f fmt.State, verb rune) {
	f.Write([]byte(krypto.SecretMarker))
}

func (p Password) MarshalText() ([]byte, error) {
	return []byte(krypto.SecretMarker), nil
}

// LogValue implements the slog.Valuer interface.
func (p Password) LogValue() slog.Value {
	return slog.StringValue(krypto.SecretMarker)
}
