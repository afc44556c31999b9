package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tmorioka/sharefood/internal/auth"
	"github.com/tmorioka/sharefood/internal/errorz"
	"github.com/tmorioka/sharefood/internal/item"
	"github.com/tmorioka/sharefood/internal/session"
)

// maxBodyBytes caps the size of request bodies we're willing to decode.
const maxBodyBytes = 1 << 20

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		// Too late to change the response, the status line is out.
		s.deps.Logger.Error("failed to encode response body", "error", err)
	}
}

// readJSON decodes the request body into dst.
func (s *Server) readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		return errorz.InvalidInput{
			fmt.Errorf("malformed request body: %w", err),
		}
	}

	return nil
}

// handleError translates the errors surfaced by the services into HTTP
// responses. Anything unrecognized becomes a 500 and is logged, client
// errors are not.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidInput errorz.InvalidInput
	if errors.As(err, &invalidInput) {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "invalid input",
			Fields: invalidInput.FieldMap(),
		})
		return
	}

	status, ok := statusForErr(err)
	if !ok {
		s.deps.Logger.Error("internal server error", "url", r.URL.String(), "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "internal server error",
		})
		return
	}

	s.writeJSON(w, status, errorResponse{
		Error: err.Error(),
	})
}

func statusForErr(err error) (int, bool) {
	switch {
	case errors.Is(err, errorz.ErrNotFound),
		errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusNotFound, true
	case errors.Is(err, auth.ErrDuplicateEmail),
		errors.Is(err, auth.ErrAlreadyVerified):
		return http.StatusConflict, true
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusBadRequest, true
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, session.ErrMissingToken),
		errors.Is(err, session.ErrMalformedToken),
		errors.Is(err, session.ErrTokenExpired),
		errors.Is(err, session.ErrWrongTokenType):
		return http.StatusUnauthorized, true
	case errors.Is(err, auth.ErrNotVerified),
		errors.Is(err, item.ErrNotOwner):
		return http.StatusForbidden, true
	}

	return 0, false
}
