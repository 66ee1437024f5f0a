// Command gosession-loadtest measures login and authenticate latency against a
// real database.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/database"
	"github.com/MrEthical07/goSession/internal/users"
	"github.com/MrEthical07/goSession/password"
	"github.com/google/uuid"
)

const loadPassword = "load-test-password"

func main() {
	var (
		userCount   = flag.Int("users", 1000, "number of users to seed and log in")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "authenticate operations")
		driver      = flag.String("driver", database.DriverSQLite, "database driver (sqlite or postgres)")
		dsn         = flag.String("dsn", "", "database DSN; empty uses a private in-memory sqlite database")
	)
	flag.Parse()

	if *userCount <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	dbCfg := database.DefaultConfig()
	dbCfg.Driver = *driver
	dbCfg.DSN = *dsn
	dbCfg.LogLevel = "silent"
	if dbCfg.DSN == "" {
		dbCfg.Driver = database.DriverSQLite
		dbCfg.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	}
	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = database.Close(db) }()
	if err := users.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "migrate users: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("using %s database\n", dbCfg.Driver)

	cfg := goSession.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(uuid.NewString() + uuid.NewString())
	cfg.Janitor.Enabled = false
	cfg.Audit.Enabled = false
	cfg.Lockout.MaxAttempts = 1 << 20
	// cheap hashes keep the run about the store rather than argon2
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	hasher, err := password.NewArgon2(cfg.Password.Argon2())
	if err != nil {
		fmt.Fprintf(os.Stderr, "argon2: %v\n", err)
		os.Exit(1)
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash: %v\n", err)
		os.Exit(1)
	}

	store := users.NewStore(db)
	names := make([]string, *userCount)
	fmt.Printf("seeding %d users...\n", *userCount)
	startSeed := time.Now()
	for i := range names {
		names[i] = fmt.Sprintf("load-user-%d", i)
		if _, err := store.Create(ctx, users.NewUser{Username: names[i], PasswordHash: hash, Active: true}); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	engine, err := goSession.New().
		WithConfig(cfg).
		WithDB(db).
		WithUserProvider(store).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	tokens, loginStats := runLoginPhase(ctx, engine, names, *concurrency)
	authStats := runAuthenticatePhase(ctx, engine, tokens, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("authenticate", authStats)
}

func runLoginPhase(ctx context.Context, engine *goSession.Engine, names []string, concurrency int) ([]string, phaseStats) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		tokens    = make([]string, len(names))
		latencies = make([]time.Duration, 0, len(names))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			ip := fmt.Sprintf("10.0.%d.%d", worker/256, worker%256)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(names) {
					return
				}
				t0 := time.Now()
				token, err := engine.Login(ctx, names[i], loadPassword, ip, "gosession-loadtest")
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					tokens[i] = token
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)

	live := tokens[:0]
	for _, t := range tokens {
		if t != "" {
			live = append(live, t)
		}
	}
	return live, computeStats(total, latencies, failures)
}

func runAuthenticatePhase(ctx context.Context, engine *goSession.Engine, tokens []string, ops, concurrency int) phaseStats {
	if len(tokens) == 0 {
		return phaseStats{}
	}
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
				t0 := time.Now()
				_, err := engine.Authenticate(ctx, tokens[r.Intn(len(tokens))])
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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
