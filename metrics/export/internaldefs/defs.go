package internaldefs

import (
	"strconv"
	"strings"

	goGuard "github.com/MrEthical07/goGuard"
)

// Namespace prefixes every exported metric name.
const Namespace = "goguard"

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

var help = map[goGuard.MetricID]string{
	goGuard.MetricAccessIssued:        "Signed access tokens.",
	goGuard.MetricRefreshIssued:       "Signed refresh tokens.",
	goGuard.MetricVerifyFailure:       "Tokens rejected by signature, shape or lifetime checks.",
	goGuard.MetricBlacklistHit:        "Tokens rejected by the revocation ledger.",
	goGuard.MetricDeviceMismatch:      "Tokens presented from a different user agent.",
	goGuard.MetricIncidentRevoked:     "Tokens issued at or before the latest incident.",
	goGuard.MetricVerifierMismatch:    "Access tokens presented with a wrong verifier cookie.",
	goGuard.MetricRevocation:          "Explicit revocation calls.",
	goGuard.MetricLoginSuccess:        "Issued token pairs.",
	goGuard.MetricLoginFailure:        "Rejected credential attempts.",
	goGuard.MetricLogout:              "Logouts.",
	goGuard.MetricRefresh:             "Refreshed token pairs.",
	goGuard.MetricLedgerConflict:      "Lost ledger compare-and-swap rounds.",
	goGuard.MetricAuthenticateLatency: "Authenticate latency.",
}

// CounterDefs lists every counter in MetricID order.
var CounterDefs = buildCounters()

// HistogramDefs lists the metrics that also export a latency histogram.
var HistogramDefs = []HistogramDef{
	{
		ID:   goGuard.MetricAuthenticateLatency,
		Name: Namespace + "_" + goGuard.MetricAuthenticateLatency.String() + "_seconds",
		Help: help[goGuard.MetricAuthenticateLatency],
	},
}

// HistogramBounds are the Prometheus "le" labels, ending in +Inf.
var HistogramBounds = buildBounds()

// HistogramBoundSuffix are HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = buildSuffixes()

// BucketCount is the number of latency buckets including +Inf.
const BucketCount = len(goGuard.HistogramBounds) + 1

func buildCounters() []CounterDef {
	ids := goGuard.MetricIDs()
	out := make([]CounterDef, 0, len(ids))
	for _, id := range ids {
		out = append(out, CounterDef{
			ID:   id,
			Name: Namespace + "_" + id.String() + "_total",
			Help: help[id],
		})
	}
	return out
}

func buildBounds() []string {
	out := make([]string, 0, BucketCount)
	for _, d := range goGuard.HistogramBounds {
		out = append(out, strconv.FormatFloat(d.Seconds(), 'f', -1, 64))
	}
	return append(out, "+Inf")
}

func buildSuffixes() []string {
	out := make([]string, 0, BucketCount)
	for _, le := range HistogramBounds {
		if le == "+Inf" {
			out = append(out, "inf")
			continue
		}
		out = append(out, strings.ReplaceAll(le, ".", "_"))
	}
	return out
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
