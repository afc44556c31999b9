package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tmorioka/sharefood/internal/session"
)

type ctxKey string

const userIDKey ctxKey = "sharefoodUserID"

func ContextWithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, false
	}

	return userID, true
}

// bearerToken extracts the token from the Authorization header. An
// absent header returns the empty string, the issuer reports that as
// a missing token.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}

	return token
}

// requireAccessToken authenticates the request using the bearer token
// and puts the account id on the request context.
func (s *Server) requireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.deps.Sessions.Validate(bearerToken(r), session.TypeAccess)
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		ctx := ContextWithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
