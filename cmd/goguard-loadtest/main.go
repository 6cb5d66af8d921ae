package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/internal/backend"
	"github.com/MrEthical07/goGuard/internal/envconfig"
	"github.com/MrEthical07/goGuard/internal/logging"
)

var devices = []string{
	"Mozilla/5.0 (X11; Linux x86_64)",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
}

type subject string

func (s subject) AuthIdentifier() string       { return string(s) }
func (s subject) CustomClaims() map[string]any { return nil }

type directory struct{}

func (directory) RetrieveByID(_ context.Context, id string) (goGuard.Principal, error) {
	return subject(id), nil
}

func (directory) RetrieveByCredentials(context.Context, goGuard.Credentials) (goGuard.Principal, error) {
	return nil, goGuard.ErrUserNotFound
}

func (directory) ValidateCredentials(context.Context, goGuard.Principal, goGuard.Credentials) (bool, error) {
	return false, nil
}

type seeded struct {
	subject string
	device  string
	token   string
}

func main() {
	settings := envconfig.NewSettings()
	settings.Backend = envconfig.BackendMiniredis
	if err := settings.LoadDotEnv("."); err != nil {
		fail(err)
	}
	if err := settings.LoadEnv(os.Getenv); err != nil {
		fail(err)
	}

	fs := pflag.NewFlagSet("goguard-loadtest", pflag.ExitOnError)
	settings.RegisterFlags(fs)
	users := fs.Int("users", 10000, "number of subjects to seed")
	concurrency := fs.Int("concurrency", 256, "number of concurrent workers")
	ops := fs.Int("ops", 200000, "operations per phase")
	_ = fs.Parse(os.Args[1:])

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}
	if settings.Secret == "" && settings.PrivateKeyPath == "" {
		settings.Secret = "loadtest-secret-loadtest-secret-loadtest"
	}
	if err := settings.Validate(); err != nil {
		fail(err)
	}

	log, err := logging.New(os.Stderr, settings.LogLevel, settings.LogFormat)
	if err != nil {
		fail(err)
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, settings, log)
	if err != nil {
		fail(err)
	}
	defer store.Close()

	cfg := settings.EngineConfig()
	cfg.Ledger.MaxRetries = 64
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := goGuard.New().
		WithConfig(cfg).
		WithBackend(store).
		WithUserDirectory(directory{}).
		WithLogger(log).
		Build()
	if err != nil {
		fail(err)
	}
	defer engine.Close()

	fmt.Printf("using %s backend, seeding %d subjects...\n", store.Name, *users)
	startSeed := time.Now()
	states := make([]seeded, *users)
	for i := range states {
		id := strconv.Itoa(i + 1)
		device := devices[i%len(devices)]
		issued, err := engine.Issue(ctx, goGuard.AccessToken, subject(id), device)
		if err != nil {
			fail(fmt.Errorf("seed %s: %w", id, err))
		}
		states[i] = seeded{subject: id, device: device, token: issued.Token}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		s := states[r.Intn(len(states))]
		_, err := engine.Authenticate(ctx, goGuard.AuthRequest{Token: s.token, UserAgent: s.device})
		return err
	})

	// Issuing on a small hot set forces compare-and-swap contention.
	hot := states[:min(len(states), 16)]
	issueStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		s := hot[r.Intn(len(hot))]
		_, err := engine.Issue(ctx, goGuard.RefreshToken, subject(s.subject), devices[r.Intn(len(devices))])
		return err
	})

	snap := engine.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("issue", issueStats)
	fmt.Printf("ledger conflicts=%d blacklist hits=%d\n",
		snap.Counters[goGuard.MetricLedgerConflict],
		snap.Counters[goGuard.MetricBlacklistHit],
	)
}

func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for atomic.AddInt64(&cursor, 1) <= int64(ops) {
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	switch {
	case len(sorted) == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[(len(sorted)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
