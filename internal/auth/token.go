package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmorioka/sharefood/internal/email"
	"github.com/tmorioka/sharefood/internal/krypto"
)

// verificationTokenLen is the length of a verification token in hex
// characters, the output length of a sha256 digest.
const verificationTokenLen = 64

var ErrTokenInvalid = errors.New("invalid verification token")

// VerificationToken is a single-use token that proves control over an
// email address. The value is the hex encoded sha256 digest of a
// cryptographically random token mixed with account and time specific
// entropy, so tokens cannot be guessed or enumerated.
//
// Tokens are confidential, the only place they appear in plaintext is
// in the verification email itself.
type VerificationToken string

// GenerateVerificationToken creates a new verification token for the
// given email address.
func GenerateVerificationToken(addr email.Address, now time.Time) (VerificationToken, error) {
	rnd, err := krypto.GenerateToken()
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", addr, rnd, now.UTC().Format(time.RFC3339Nano))))

	return VerificationToken(hex.EncodeToString(sum[:])), nil
}

// ParseVerificationToken checks that raw is shaped like a verification
// token. It does not check whether the token is known.
func ParseVerificationToken(raw string) (VerificationToken, error) {
	if len(raw) != verificationTokenLen {
		return "", ErrTokenInvalid
	}

	if _, err := hex.DecodeString(raw); err != nil {
		return "", ErrTokenInvalid
	}

	return VerificationToken(raw), nil
}

// LogValue implements the slog.Valuer interface.
func (t VerificationToken) LogValue() slog.Value {
	return slog.StringValue(krypto.SecretMarker)
}
