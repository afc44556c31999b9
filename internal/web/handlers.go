package web

import (
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tmorioka/sharefood/internal/auth"
	"github.com/tmorioka/sharefood/internal/email"
	"github.com/tmorioka/sharefood/internal/errorz"
	"github.com/tmorioka/sharefood/internal/session"
)

const (
	minUsernameLen = 1
	maxUsernameLen = 30
)

var (
	errUsernameRequired = errors.New("username is required")
	errUsernameTooLong  = errors.New("username must be at most 30 characters")
)

// accountJSON is the public projection of an account. The password
// hash and verification token never leave the auth package.
type accountJSON struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

func accountToJSON(u auth.User) accountJSON {
	return accountJSON{
		ID:         u.ID,
		Username:   u.Username,
		Email:      string(u.Email),
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

func parseUsername(raw string) (string, error) {
	// Limits count characters, not bytes.
	n := utf8.RuneCountInString(raw)

	if n < minUsernameLen {
		return "", errUsernameRequired
	}

	if n > maxUsernameLen {
		return "", errUsernameTooLong
	}

	return raw, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := s.readJSON(r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}

	var invalid errorz.InvalidInput

	username, err := parseUsername(in.Username)
	if err != nil {
		invalid = append(invalid, errorz.Keyed{Key: "username", Err: err})
	}

	addr, err := email.ParseAddress(in.Email)
	if err != nil {
		invalid = append(invalid, errorz.Keyed{Key: "email", Err: err})
	}

	pwd, err := auth.ParsePassword(in.Password)
	if err != nil {
		invalid = append(invalid, errorz.Keyed{Key: "password", Err: err})
	}

	if len(invalid) > 0 {
		s.handleError(w, r, invalid)
		return
	}

	result, err := s.deps.AuthService.Register(r.Context(), auth.Registration{
		Username: username,
		Email:    addr,
		Password: pwd,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Status == auth.StatusResent {
		// Replacing an unverified registration is not a new resource.
		status = http.StatusOK
	}

	s.writeJSON(w, status, map[string]any{
		"user":   accountToJSON(result.User),
		"status": result.Status,
	})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "token query parameter is required",
		})
		return
	}

	user, err := s.deps.AuthService.VerifyEmail(r.Context(), raw)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"user": accountToJSON(user),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := s.readJSON(r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}

	var invalid errorz.InvalidInput

	addr, err := email.ParseAddress(in.Email)
	if err != nil {
		invalid = append(invalid, errorz.Keyed{Key: "email", Err: err})
	}

	if in.Password == "" {
		invalid = append(invalid, errorz.Keyed{Key: "password", Err: errors.New("password is required")})
	}

	if len(invalid) > 0 {
		s.handleError(w, r, invalid)
		return
	}

	// Stored passwords all satisfy the registration policy, so a
	// password that fails it cannot belong to any account. Report it
	// the same way as a wrong password.
	pwd, err := auth.ParsePassword(in.Password)
	if err != nil {
		s.handleError(w, r, auth.ErrInvalidCredentials)
		return
	}

	user, err := s.deps.AuthService.Login(r.Context(), auth.Credentials{
		Email:    addr,
		Password: pwd,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	access, err := s.deps.Sessions.IssueAccess(user.ID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	refresh, err := s.deps.Sessions.IssueRefresh(user.ID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          accountToJSON(user),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := s.readJSON(r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}

	userID, err := s.deps.Sessions.Validate(in.RefreshToken, session.TypeRefresh)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	access, err := s.deps.Sessions.IssueAccess(userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"access_token": access,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless, there is nothing to revoke server-side.
	// Clients discard their tokens, this endpoint confirms the access
	// token was still valid.
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "logged out",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		s.handleError(w, r, session.ErrMissingToken)
		return
	}

	user, err := s.deps.AuthService.GetUser(r.Context(), userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"user": accountToJSON(user),
	})
}
