package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goTrust "github.com/MrEthical07/goTrust"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type benchOptions struct {
	users       int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

func newBenchCmd(opts *rootOptions) *cobra.Command {
	bo := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load-test password set and verify against Redis",
		Long: `Seed users with SetPassword, then run concurrent verify operations
and report throughput and latency percentiles.

Uses --redis-addr, then REDIS_ADDR, then an in-process miniredis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bo.users <= 0 || bo.concurrency <= 0 || bo.ops <= 0 {
				return errors.New("users, concurrency and ops must be > 0")
			}
			if bo.redisAddr == "" {
				bo.redisAddr = os.Getenv("REDIS_ADDR")
			}
			return runBench(cmd, opts, bo)
		},
	}

	cmd.Flags().IntVar(&bo.users, "users", 200, "number of users to seed")
	cmd.Flags().IntVar(&bo.concurrency, "concurrency", 16, "number of concurrent workers")
	cmd.Flags().IntVar(&bo.ops, "ops", 2000, "verify operations to run")
	cmd.Flags().StringVar(&bo.redisAddr, "redis-addr", "", "redis address; miniredis when empty")
	cmd.Flags().StringVar(&bo.prefix, "prefix", "bench-cred", "credential key prefix")
	return cmd
}

func runBench(cmd *cobra.Command, opts *rootOptions, bo benchOptions) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	addr := bo.redisAddr
	cleanup := func() {}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer func() { _ = client.Close() }()

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	cfg.Credentials.Backend = goTrust.BackendRedis
	cfg.Credentials.RedisPrefix = bo.prefix
	cfg.Metadata.BlobBackend = goTrust.BackendNone
	cfg.Audit.Enabled = false
	cfg.Metrics.Enabled = true

	engine, err := goTrust.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(log.New(io.Discard, "", 0)).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	users := make([]string, bo.users)
	fmt.Fprintf(out, "seeding %d users...\n", bo.users)
	startSeed := time.Now()
	for i := range users {
		users[i] = fmt.Sprintf("user-%d", i)
		if err := engine.SetPassword(ctx, users[i], benchPassword(i)); err != nil {
			return fmt.Errorf("seed %s: %w", users[i], err)
		}
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	stats := runVerifyPhase(ctx, engine, users, bo.ops, bo.concurrency)

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "verify", stats)
	return nil
}

func benchPassword(i int) string {
	return fmt.Sprintf("bench-password-%d", i)
}

// runVerifyPhase mixes one wrong password in every eight attempts.
func runVerifyPhase(ctx context.Context, engine *goTrust.Engine, users []string, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(users))
				password := benchPassword(idx)
				if i%8 == 7 {
					password += "-wrong"
				}

				t0 := time.Now()
				err := engine.VerifyPassword(ctx, users[idx], password)
				d := time.Since(t0)
				if err != nil && !errors.Is(err, goTrust.ErrInvalidCredentials) {
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
		return phaseStats{total: total, failures: failures}
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

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d errors=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
