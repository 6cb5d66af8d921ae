package goGuard

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goGuard/internal"
	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/ledger"
)

// IsBlacklisted reports whether a verified token has been revoked.
//
// A token is revoked when it was issued at or before the incident clock, when a newer
// token of the same type was issued to the same device, or when its ledger entry is
// flagged. Tokens caught by the incident clock have both types revoked for their device.
func (e *Engine) IsBlacklisted(ctx context.Context, token *RequestToken) (bool, error) {
	if e == nil || e.ledger == nil {
		return false, ErrEngineNotReady
	}
	if token == nil {
		return false, ErrUndefinedClaim
	}
	c := token.claims

	incidentAt, err := e.incidents.Get(ctx)
	if err != nil {
		return false, err
	}
	if incidentAt >= c.IssuedAt {
		if err := e.ledger.RecordRevocations(ctx, c.Subject, c.UserAgent, jwt.TokenTypes, e.now().Unix()); err != nil {
			return false, err
		}
		e.metricInc(MetricIncidentRevoked)
		e.log.WithFields(tokenFields(c)).WithField("incident_at", incidentAt).Warn("token predates incident, device revoked")
		e.emitAudit(ctx, auditEventIncidentRevoked, true, detailsOf(c), nil, func() map[string]string {
			return map[string]string{"incident_at": strconv.FormatInt(incidentAt, 10)}
		})
		return true, nil
	}

	rec, err := e.ledger.Load(ctx, c.Subject)
	if err != nil {
		return false, err
	}
	if !rec.Exists() {
		return false, e.ledger.Initialize(ctx, c.Subject)
	}

	entry, ok := rec.Find(c.UserAgent, c.Type)
	if !ok {
		return false, nil
	}
	return entry.Blacklisted || entry.IssuedAt > c.IssuedAt, nil
}

// Revoke blacklists the subject's tokens of type typ for device, creating the ledger
// entry when none exists.
func (e *Engine) Revoke(ctx context.Context, subject string, typ TokenType, device string) error {
	if e == nil || e.ledger == nil {
		return ErrEngineNotReady
	}
	if err := e.ledger.RecordRevocation(ctx, subject, device, typ, e.now().Unix()); err != nil {
		return err
	}
	e.revoked(ctx, subject, device, "single", 1, typ)
	return nil
}

// RevokeBoth blacklists access and refresh tokens of subject for device.
func (e *Engine) RevokeBoth(ctx context.Context, subject, device string) error {
	if e == nil || e.ledger == nil {
		return ErrEngineNotReady
	}
	if err := e.ledger.RecordRevocations(ctx, subject, device, jwt.TokenTypes, e.now().Unix()); err != nil {
		return err
	}
	e.revoked(ctx, subject, device, "both", len(jwt.TokenTypes), "")
	return nil
}

// RevokeAccess flags an existing access token entry for device. It reports whether an
// entry was found.
func (e *Engine) RevokeAccess(ctx context.Context, subject, device string) (bool, error) {
	return e.revokeExisting(ctx, subject, device, AccessToken)
}

// RevokeRefresh flags an existing refresh token entry for device. It reports whether an
// entry was found.
func (e *Engine) RevokeRefresh(ctx context.Context, subject, device string) (bool, error) {
	return e.revokeExisting(ctx, subject, device, RefreshToken)
}

func (e *Engine) revokeExisting(ctx context.Context, subject, device string, typ TokenType) (bool, error) {
	if e == nil || e.ledger == nil {
		return false, ErrEngineNotReady
	}
	n, err := e.ledger.RevokeEntries(ctx, subject, e.now().Unix(), func(en ledger.Entry) bool {
		return en.UserAgent == device && en.Type == typ
	})
	if err != nil {
		return false, err
	}
	if n > 0 {
		e.revoked(ctx, subject, device, "single", n, typ)
	}
	return n > 0, nil
}

// RevokeAll flags every ledger entry of subject and returns how many were revoked.
func (e *Engine) RevokeAll(ctx context.Context, subject string) (int, error) {
	if e == nil || e.ledger == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.ledger.RevokeEntries(ctx, subject, e.now().Unix(), func(ledger.Entry) bool { return true })
	if err != nil {
		return 0, err
	}
	e.revoked(ctx, subject, "", "all", n, "")
	return n, nil
}

// RevokeAllOtherDevices flags every entry of subject not bound to device.
func (e *Engine) RevokeAllOtherDevices(ctx context.Context, subject, device string) (int, error) {
	if e == nil || e.ledger == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.ledger.RevokeEntries(ctx, subject, e.now().Unix(), func(en ledger.Entry) bool {
		return en.UserAgent != device
	})
	if err != nil {
		return 0, err
	}
	e.revoked(ctx, subject, device, "others", n, "")
	return n, nil
}

// ActiveTokens lists the subject's non-revoked ledger entries, restricted to types when given.
func (e *Engine) ActiveTokens(ctx context.Context, subject string, types ...TokenType) ([]ledger.Entry, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrEngineNotReady
	}
	return e.ledger.Active(ctx, subject, types...)
}

func (e *Engine) revoked(ctx context.Context, subject, device, scope string, n int, typ TokenType) {
	e.metricInc(MetricRevocation)
	fields := logrus.Fields{"subject": subject, "scope": scope, "entries": n}
	if device != "" {
		fields["device"] = internal.DeviceFingerprint(device)
	}
	if typ != "" {
		fields["token_type"] = string(typ)
	}
	e.log.WithFields(fields).Info("tokens revoked")
	e.emitAudit(ctx, auditEventRevoked, true, auditDetails{subject: subject, device: device, tokenType: typ}, nil, func() map[string]string {
		return map[string]string{"scope": scope, "entries": strconv.Itoa(n)}
	})
}

func tokenFields(c jwt.Claims) logrus.Fields {
	return logrus.Fields{
		"subject":    c.Subject,
		"device":     internal.DeviceFingerprint(c.UserAgent),
		"token_type": string(c.Type),
		"jti":        c.ID,
	}
}

func detailsOf(c jwt.Claims) auditDetails {
	return auditDetails{subject: c.Subject, device: c.UserAgent, tokenType: c.Type, tokenID: c.ID}
}
