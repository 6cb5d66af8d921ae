package goGuard

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/keys"
	"github.com/MrEthical07/goGuard/ledger"
)

var (
	// ErrMissingHeader is returned when the request carries no User-Agent.
	ErrMissingHeader = errors.New("user agent header is missing")
	// ErrMissingToken is returned when the request carries no token.
	ErrMissingToken = errors.New("token is missing")
	// ErrInvalidToken is returned for malformed, forged, expired or revoked tokens.
	ErrInvalidToken = jwt.ErrInvalidToken
	// ErrInvalidTokenType is wrapped by InvalidTokenTypeError.
	ErrInvalidTokenType = errors.New("invalid token type")
	// ErrInvalidIssuedUserAgent is returned when a token is presented from another device.
	ErrInvalidIssuedUserAgent = errors.New("token was issued to another user agent")
	// ErrUnauthenticated is returned when the token subject no longer resolves to a user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUndefinedClaim is returned by RequestToken accessors for absent claims.
	ErrUndefinedClaim = errors.New("claim is not defined")
	// ErrAccessTokenIssuerMismatch is returned when the access-token verifier does not match.
	ErrAccessTokenIssuerMismatch = errors.New("access token verifier mismatch")
	// ErrInvalidCredentials is returned by Attempt when credentials are rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound may be returned by a UserDirectory for unknown users.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine is not initialized")
)

// Re-exported so callers can match with errors.Is against the root package.
var (
	ErrKeyNotAvailable      = keys.ErrKeyNotAvailable
	ErrUnsupportedAlgorithm = keys.ErrUnsupportedAlgorithm
	ErrAlgorithmMissing     = keys.ErrAlgorithmMissing
	ErrInvalidAction        = ledger.ErrInvalidAction
	ErrLedgerUnavailable    = ledger.ErrUnavailable
	ErrLedgerConflict       = ledger.ErrConflict
)

// InvalidTokenTypeError reports the token type that was required and the one presented.
type InvalidTokenTypeError struct {
	Expected jwt.TokenType
	Actual   jwt.TokenType
}

func (e *InvalidTokenTypeError) Error() string {
	return fmt.Sprintf("invalid token type: expected %s, got %s", e.Expected, e.Actual)
}

func (e *InvalidTokenTypeError) Unwrap() error {
	return ErrInvalidTokenType
}
