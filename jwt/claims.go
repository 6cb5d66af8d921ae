package jwt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	// Access tokens authorize requests.
	Access TokenType = "access"
	// Refresh tokens are exchanged for a new pair.
	Refresh TokenType = "refresh"
)

// TokenTypes lists every supported token type.
var TokenTypes = []TokenType{Access, Refresh}

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	return t == Access || t == Refresh
}

func (t TokenType) String() string {
	return string(t)
}

// ParseTokenType resolves a case-insensitive token type name.
func ParseTokenType(s string) (TokenType, error) {
	t := TokenType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown token type %q", s)
	}
	return t, nil
}

// Reserved claim names. Custom claims using one of these keys are dropped on encode.
const (
	ClaimIssuer    = "iss"
	ClaimIssuedAt  = "iat"
	ClaimExpiresAt = "exp"
	ClaimNotBefore = "nbf"
	ClaimID        = "jti"
	ClaimSubject   = "sub"
	ClaimUserAgent = "iua"
	ClaimType      = "type"
	ClaimVerifier  = "atv"
)

var reserved = map[string]struct{}{
	ClaimIssuer:    {},
	ClaimIssuedAt:  {},
	ClaimExpiresAt: {},
	ClaimNotBefore: {},
	ClaimID:        {},
	ClaimSubject:   {},
	ClaimUserAgent: {},
	ClaimType:      {},
	ClaimVerifier:  {},
}

// IsReserved reports whether name is one of the reserved claim keys.
func IsReserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

// Claims is the token payload. Times are unix seconds.
type Claims struct {
	Issuer    string
	IssuedAt  int64
	ExpiresAt int64
	NotBefore int64
	ID        string
	Subject   string
	UserAgent string
	Type      TokenType
	// Verifier is set on access tokens only.
	Verifier *string
	Extra    map[string]any
}

// Collisions returns the custom claim keys that would be shadowed by reserved claims.
func (c Claims) Collisions() []string {
	var out []string
	for k := range c.Extra {
		if IsReserved(k) {
			out = append(out, k)
		}
	}
	return out
}

// MarshalJSON writes custom claims first and reserved claims last so reserved keys win.
func (c Claims) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+len(reserved))
	for k, v := range c.Extra {
		if IsReserved(k) {
			continue
		}
		out[k] = v
	}
	out[ClaimIssuer] = c.Issuer
	out[ClaimIssuedAt] = c.IssuedAt
	out[ClaimExpiresAt] = c.ExpiresAt
	out[ClaimNotBefore] = c.NotBefore
	out[ClaimID] = c.ID
	out[ClaimSubject] = c.Subject
	out[ClaimUserAgent] = c.UserAgent
	out[ClaimType] = string(c.Type)
	if c.Verifier != nil {
		out[ClaimVerifier] = *c.Verifier
	} else {
		out[ClaimVerifier] = nil
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits a payload into reserved fields and Extra.
func (c *Claims) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	*c = Claims{}
	var err error
	if c.Issuer, err = stringClaim(raw, ClaimIssuer); err != nil {
		return err
	}
	if c.IssuedAt, err = intClaim(raw, ClaimIssuedAt); err != nil {
		return err
	}
	if c.ExpiresAt, err = intClaim(raw, ClaimExpiresAt); err != nil {
		return err
	}
	if c.NotBefore, err = intClaim(raw, ClaimNotBefore); err != nil {
		return err
	}
	if c.ID, err = stringClaim(raw, ClaimID); err != nil {
		return err
	}
	if c.Subject, err = stringClaim(raw, ClaimSubject); err != nil {
		return err
	}
	if c.UserAgent, err = stringClaim(raw, ClaimUserAgent); err != nil {
		return err
	}
	typ, err := stringClaim(raw, ClaimType)
	if err != nil {
		return err
	}
	c.Type = TokenType(typ)
	if v, ok := raw[ClaimVerifier]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("claim %q must be a string", ClaimVerifier)
		}
		c.Verifier = &s
	}

	for k, v := range raw {
		if IsReserved(k) {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = v
	}
	return nil
}

func stringClaim(raw map[string]any, name string) (string, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		return "", nil
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		// numeric subjects are rendered in decimal form
		return s.String(), nil
	default:
		return "", fmt.Errorf("claim %q must be a string", name)
	}
}

func intClaim(raw map[string]any, name string) (int64, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("claim %q must be numeric", name)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("claim %q must be numeric", name)
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("claim %q must be a whole number of seconds", name)
	}
	return int64(f), nil
}

// The jwt.Claims interface is implemented so the parser can hand the payload back typed.
// Temporal validation happens in Codec.Decode, not in the library validator.

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return numericDate(c.ExpiresAt), nil }
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return numericDate(c.IssuedAt), nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error)      { return numericDate(c.NotBefore), nil }
func (c Claims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c Claims) GetSubject() (string, error)                  { return c.Subject, nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

func numericDate(sec int64) *jwt.NumericDate {
	if sec == 0 {
		return nil
	}
	return jwt.NewNumericDate(time.Unix(sec, 0))
}

// Lookup returns a claim by name, reserved or custom.
func (c Claims) Lookup(name string) (any, bool) {
	switch name {
	case ClaimIssuer:
		return c.Issuer, c.Issuer != ""
	case ClaimIssuedAt:
		return c.IssuedAt, c.IssuedAt != 0
	case ClaimExpiresAt:
		return c.ExpiresAt, c.ExpiresAt != 0
	case ClaimNotBefore:
		return c.NotBefore, c.NotBefore != 0
	case ClaimID:
		return c.ID, c.ID != ""
	case ClaimSubject:
		return c.Subject, c.Subject != ""
	case ClaimUserAgent:
		return c.UserAgent, c.UserAgent != ""
	case ClaimType:
		return c.Type, c.Type != ""
	case ClaimVerifier:
		if c.Verifier == nil {
			return nil, false
		}
		return *c.Verifier, true
	}
	v, ok := c.Extra[name]
	return v, ok
}
