package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
)

// ErrorBody is the JSON written for rejected requests.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps engine errors to HTTP status codes: 400 for malformed requests, 401 for
// rejected tokens or credentials and 500 for everything else.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, goGuard.ErrMissingHeader), errors.Is(err, goGuard.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, goGuard.ErrMissingToken),
		errors.Is(err, goGuard.ErrInvalidToken),
		errors.Is(err, goGuard.ErrInvalidTokenType),
		errors.Is(err, goGuard.ErrInvalidIssuedUserAgent),
		errors.Is(err, goGuard.ErrAccessTokenIssuerMismatch),
		errors.Is(err, goGuard.ErrUnauthenticated),
		errors.Is(err, goGuard.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Body returns the JSON body for err. Internal errors are not echoed to clients, and every
// invalid token gets the same message whether it was malformed, expired or revoked.
func Body(err error) ErrorBody {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		return ErrorBody{Error: "internal_error", Message: "internal server error"}
	}
	c := code(err)
	if c == "invalid_token" {
		return ErrorBody{Error: c, Message: goGuard.ErrInvalidToken.Error()}
	}
	return ErrorBody{Error: c, Message: err.Error()}
}

func code(err error) string {
	switch {
	case errors.Is(err, goGuard.ErrMissingHeader):
		return "missing_user_agent"
	case errors.Is(err, goGuard.ErrInvalidAction):
		return "invalid_request"
	case errors.Is(err, goGuard.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, goGuard.ErrInvalidTokenType):
		return "invalid_token_type"
	case errors.Is(err, goGuard.ErrInvalidIssuedUserAgent):
		return "invalid_user_agent"
	case errors.Is(err, goGuard.ErrAccessTokenIssuerMismatch):
		return "verifier_mismatch"
	case errors.Is(err, goGuard.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, goGuard.ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "invalid_token"
	}
}

// WriteError writes err as JSON with the status from StatusFor.
func WriteError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(err))
	_ = json.NewEncoder(w).Encode(Body(err))
}
