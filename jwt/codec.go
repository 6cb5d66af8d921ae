package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for every decode failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSubject is returned when encoding claims without a subject.
	ErrMissingSubject = errors.New("token subject is empty")
)

// Codec signs and verifies compact JWS tokens carrying Claims.
//
// A zero Codec is usable: Now defaults to time.Now and Leeway to zero.
type Codec struct {
	// KeyID is written into the kid header when non-empty.
	KeyID string
	// Leeway widens the exp and nbf checks.
	Leeway time.Duration
	Now    func() time.Time
}

func (c Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Encode signs claims with key using method.
func (c Codec) Encode(claims Claims, key any, method jwt.SigningMethod) (string, error) {
	if method == nil {
		return "", errors.New("signing method is nil")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrMissingSubject
	}
	if claims.ExpiresAt <= claims.IssuedAt {
		return "", fmt.Errorf("exp %d must be after iat %d", claims.ExpiresAt, claims.IssuedAt)
	}

	token := jwt.NewWithClaims(method, claims)
	if c.KeyID != "" {
		token.Header["kid"] = c.KeyID
	}
	return token.SignedString(key)
}

// Decode verifies raw with key and returns the typed claims together with the token headers.
//
// The token algorithm must equal method. Expired (now > exp) and not-yet-valid (now < nbf)
// tokens are rejected at second granularity. Every failure wraps ErrInvalidToken.
func (c Codec) Decode(raw string, key any, method jwt.SigningMethod) (*Claims, map[string]any, error) {
	if method == nil {
		return nil, nil, fmt.Errorf("%w: signing method is nil", ErrInvalidToken)
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return key, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	now := c.now().Unix()
	leeway := int64(c.Leeway / time.Second)
	if claims.ExpiresAt == 0 {
		return nil, nil, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}
	if now > claims.ExpiresAt+leeway {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, jwt.ErrTokenExpired)
	}
	if claims.NotBefore != 0 && now+leeway < claims.NotBefore {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, jwt.ErrTokenNotValidYet)
	}

	return claims, token.Header, nil
}

// WellFormed reports whether raw has three non-empty base64url segments.
func WellFormed(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			b := part[i]
			switch {
			case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9', b == '-', b == '_':
			default:
				return false
			}
		}
	}
	return true
}
