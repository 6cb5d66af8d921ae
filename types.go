package goGuard

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/jwt"
)

// TokenType re-exports jwt.TokenType.
type TokenType = jwt.TokenType

const (
	// AccessToken is the short-lived token presented on every request.
	AccessToken = jwt.Access
	// RefreshToken is the long-lived token exchanged for a new pair.
	RefreshToken = jwt.Refresh
)

// Principal is an authenticated user as resolved by a [UserDirectory].
type Principal interface {
	// AuthIdentifier returns the subject written into the sub claim.
	AuthIdentifier() string
	// CustomClaims returns extra claims merged into every issued token.
	// Keys that collide with reserved claims are ignored.
	CustomClaims() map[string]any
}

// Credentials carries login fields such as identifier and password.
type Credentials map[string]string

// UserDirectory resolves subjects and credentials to principals. A lookup that finds
// nothing returns (nil, nil) or an error wrapping [ErrUserNotFound].
type UserDirectory interface {
	RetrieveByID(ctx context.Context, subject string) (Principal, error)
	RetrieveByCredentials(ctx context.Context, creds Credentials) (Principal, error)
	ValidateCredentials(ctx context.Context, p Principal, creds Credentials) (bool, error)
}

// Issued is a freshly signed token.
type Issued struct {
	Token  string
	Type   TokenType
	Claims jwt.Claims
	// Verifier is the atv claim of access tokens, empty for refresh tokens.
	Verifier string
}

// ExpiresAt returns the exp claim as a time.
func (i Issued) ExpiresAt() time.Time {
	return time.Unix(i.Claims.ExpiresAt, 0)
}

// LoginResult is returned by [Engine.Login], [Engine.Attempt] and [Engine.Refresh].
type LoginResult struct {
	Principal Principal

	AccessToken  string
	RefreshToken string
	// AccessTokenVerifier must be returned to the client (usually as a cookie) when
	// the access-token verifier check is enabled.
	AccessTokenVerifier string

	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthRequest is the transport-independent input of [Engine.Authenticate].
type AuthRequest struct {
	Token     string
	UserAgent string
	// Verifier is the access-token verifier presented alongside the token.
	Verifier string
	Required TokenType
}

// Authenticated is the result of a successful [Engine.Authenticate].
type Authenticated struct {
	Principal Principal
	Token     *RequestToken
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON lines to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
