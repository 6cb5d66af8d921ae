package goGuard

import (
	"context"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goGuard/incident"
	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/keys"
	"github.com/MrEthical07/goGuard/ledger"
)

// Engine issues, verifies and revokes tokens. Its methods are safe for concurrent use
// after [Builder.Build].
type Engine struct {
	config Config

	keys      keys.Provider
	method    jwtlib.SigningMethod
	signKey   any
	verifyKey any
	codec     jwt.Codec

	ledger    *ledger.Ledger
	incidents *incident.Clock
	directory UserDirectory

	audit    *internalaudit.Dispatcher
	auditIDs *internalaudit.IDSource
	metrics  *Metrics
	log      logrus.FieldLogger
	now      func() time.Time
}

// Close flushes the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Ledger exposes the issued-token ledger for tooling.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// Ping checks the ledger backend.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.ledger == nil {
		return ErrEngineNotReady
	}
	return e.ledger.Store().Ping(ctx)
}

// IncidentTime returns the incident clock, initializing it when absent.
func (e *Engine) IncidentTime(ctx context.Context) (time.Time, error) {
	ts, err := e.incidents.Get(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts, 0), nil
}

// DeclareIncident moves the incident clock to now. Every token issued at or before
// that second is treated as revoked from then on.
func (e *Engine) DeclareIncident(ctx context.Context) (time.Time, error) {
	ts, err := e.incidents.Declare(ctx)
	if err != nil {
		return time.Time{}, err
	}
	e.log.WithField("incident_at", ts).Warn("incident declared, all earlier tokens revoked")
	e.emitAudit(ctx, auditEventIncidentDeclared, true, auditDetails{}, nil, nil)
	return time.Unix(ts, 0), nil
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ttl(typ TokenType) time.Duration {
	if typ == RefreshToken {
		return e.config.JWT.RefreshTTL
	}
	return e.config.JWT.AccessTTL
}
