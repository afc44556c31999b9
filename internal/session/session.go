// Package session mints and validates the session tokens that identify
// logged-in users.
//
// Tokens are self-contained signed JWTs, validation only needs the
// signing key, no store lookup. The tradeoff is that a token cannot be
// revoked before it expires, which is why access tokens are short-lived.
// Refresh tokens are not rotated when they are used, an accepted
// limitation of the stateless design.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tmorioka/sharefood/internal/krypto"
)

// TokenType discriminates access tokens from refresh tokens. A token of
// one type is never accepted where the other is expected.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

var (
	// ErrMissingToken indicates no token was provided.
	ErrMissingToken = errors.New("missing session token")
	// ErrMalformedToken indicates the token is structurally invalid or
	// its signature does not check out.
	ErrMalformedToken = errors.New("malformed session token")
	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("session token expired")
	// ErrWrongTokenType indicates a valid token of the wrong type.
	ErrWrongTokenType = errors.New("wrong session token type")
)

// Config is the configuration for the Issuer.
type Config struct {
	// SigningKey signs all tokens. Changing it invalidates every token
	// that was issued before.
	SigningKey krypto.Key
	// Issuer is the iss claim on issued tokens.
	Issuer string
	// AccessTTL is the lifetime of access tokens.
	AccessTTL time.Duration
	// RefreshTTL is the lifetime of refresh tokens.
	RefreshTTL time.Duration
}

// claims are the JWT claims carried by a session token.
type claims struct {
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer mints and validates session tokens.
type Issuer struct {
	cfg Config

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.SigningKey.SecretValue()) == 0 {
		return nil, errors.New("signing key is required")
	}

	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	return &Issuer{
		cfg:     cfg,
		NowFunc: time.Now,
	}, nil
}

// IssueAccess mints a new access token for the provided subject.
func (i *Issuer) IssueAccess(subject uuid.UUID) (string, error) {
	return i.issue(subject, TypeAccess, i.cfg.AccessTTL)
}

// IssueRefresh mints a new refresh token for the provided subject.
func (i *Issuer) IssueRefresh(subject uuid.UUID) (string, error) {
	return i.issue(subject, TypeRefresh, i.cfg.RefreshTTL)
}

func (i *Issuer) issue(subject uuid.UUID, typ TokenType, ttl time.Duration) (string, error) {
	now := i.NowFunc()

	c := claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			// The canonical subject representation is the string form of
			// the account uuid, both here and in Validate.
			Subject:   subject.String(),
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)

	return token.SignedString(i.cfg.SigningKey.SecretValue())
}

// Validate checks the provided token and returns the subject it was
// issued for. The token must be of the expected type.
func (i *Issuer) Validate(raw string, expect TokenType) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, ErrMissingToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.NowFunc),
		jwt.WithExpirationRequired(),
	}
	if i.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.cfg.Issuer))
	}

	parser := jwt.NewParser(options...)

	var c claims
	_, err := parser.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return i.cfg.SigningKey.SecretValue(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, ErrMalformedToken
	}

	if c.TokenType != expect {
		return uuid.Nil, ErrWrongTokenType
	}

	subject, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrMalformedToken
	}

	return subject, nil
}
