package goGuard

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goGuard/internal"
	"github.com/MrEthical07/goGuard/jwt"
)

// Issue signs a token of type typ for principal bound to device (the client user agent)
// and records it in the ledger. The new entry supersedes every earlier token of the same
// subject, device and type.
func (e *Engine) Issue(ctx context.Context, typ TokenType, principal Principal, device string) (Issued, error) {
	if e == nil || e.ledger == nil {
		return Issued{}, ErrEngineNotReady
	}
	if !typ.Valid() {
		return Issued{}, fmt.Errorf("%w: unknown token type %q", ErrInvalidAction, typ)
	}
	if principal == nil {
		return Issued{}, fmt.Errorf("%w: principal is nil", ErrInvalidAction)
	}
	subject := principal.AuthIdentifier()
	if strings.TrimSpace(subject) == "" {
		return Issued{}, ErrInvalidAction
	}
	if strings.TrimSpace(device) == "" {
		return Issued{}, fmt.Errorf("%w: user agent is empty", ErrInvalidAction)
	}

	// The incident clock must predate the first iat.
	if _, err := e.incidents.EnsureInitialized(ctx); err != nil {
		return Issued{}, err
	}

	now := e.now().Unix()
	claims := jwt.Claims{
		Issuer:    e.config.JWT.Issuer,
		IssuedAt:  now,
		ExpiresAt: now + int64(e.ttl(typ).Seconds()),
		NotBefore: now,
		ID:        uuid.NewString(),
		Subject:   subject,
		UserAgent: device,
		Type:      typ,
		Extra:     copyClaims(principal.CustomClaims()),
	}

	var verifier string
	if typ == AccessToken {
		verifier = uuid.NewString()
		claims.Verifier = &verifier
	}

	fields := logrus.Fields{
		"subject":    subject,
		"device":     internal.DeviceFingerprint(device),
		"token_type": string(typ),
		"jti":        claims.ID,
	}
	if collisions := claims.Collisions(); len(collisions) > 0 {
		e.log.WithFields(fields).WithField("claims", collisions).Debug("custom claims shadowed by reserved claims")
	}

	token, err := e.codec.Encode(claims, e.signKey, e.method)
	if err != nil {
		return Issued{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	if err := e.ledger.RecordIssuance(ctx, subject, device, typ, now); err != nil {
		e.log.WithFields(fields).WithError(err).Error("record token issuance")
		return Issued{}, err
	}

	if typ == AccessToken {
		e.metricInc(MetricAccessIssued)
	} else {
		e.metricInc(MetricRefreshIssued)
	}

	return Issued{Token: token, Type: typ, Claims: claims, Verifier: verifier}, nil
}

func copyClaims(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
