// Command linking-loadtest measures issue and consume throughput of the
// confirmation record store against a Redis instance (or miniredis when
// no address is given).
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Kramarich000/sharkflow-linking/internal/stores"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type recordState struct {
	subject string
	hash    [32]byte
}

func main() {
	var (
		records     = flag.Int("records", 100000, "number of confirmation records to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (issue + consume)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "slc", "confirmation key prefix")
	)
	flag.Parse()

	if *records <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "records, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := stores.NewConfirmationStore(client, *prefix, 5*time.Second)

	states := make([]recordState, *records)
	fmt.Printf("seeding %d records...\n", *records)
	now := time.Now()
	startSeed := time.Now()
	for i := 0; i < *records; i++ {
		subject := fmt.Sprintf("subject-%d", i)
		hash := hashFor(i)
		states[i] = recordState{subject: subject, hash: hash}
		record := &stores.ConfirmationRecord{
			CodeHash:  hash,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(time.Hour).Unix(),
		}
		if err := store.Save(ctx, "setup-totp", "0", subject, record, time.Hour); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	issueStats := runIssuePhase(ctx, store, states, *ops, *concurrency)
	consumeStats := runConsumePhase(ctx, store, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("issue", issueStats)
	printStats("consume", consumeStats)
}

// runIssuePhase re-saves records at random, exercising supersession.
func runIssuePhase(ctx context.Context, store *stores.ConfirmationStore, states []recordState, ops, concurrency int) phaseStats {
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
				idx := r.Intn(len(states))
				now := time.Now()
				record := &stores.ConfirmationRecord{
					CodeHash:  states[idx].hash,
					IssuedAt:  now.Unix(),
					ExpiresAt: now.Add(time.Hour).Unix(),
				}
				t0 := time.Now()
				err := store.Save(ctx, "setup-totp", "0", states[idx].subject, record, time.Hour)
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
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runConsumePhase redeems each record once; replays count as failures
// only when they report something other than not-found.
func runConsumePhase(ctx context.Context, store *stores.ConfirmationStore, states []recordState, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				t0 := time.Now()
				_, err := store.Consume(ctx, "setup-totp", "0", states[idx].subject, states[idx].hash, time.Now())
				d := time.Since(t0)
				if err != nil && err != stores.ErrConfirmationNotFound {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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
		p50:      samples[len(samples)*50/100],
		p95:      samples[len(samples)*95/100],
		p99:      samples[len(samples)*99/100],
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-8s ops=%d failures=%d total=%s ops/s=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures, s.total.Round(time.Millisecond), s.opsPerS,
		s.p50, s.p95, s.p99)
}

func hashFor(i int) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("code-%d", i)))
}
