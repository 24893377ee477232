// README: Booking bench runner; exercises the ride engine against memory or Postgres storage and prints PASS/FAIL per scenario.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	bench, err := NewRunner(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer bench.Close()
	results := bench.RunAll(ctx)

	fmt.Println("\n== Summary ==")
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", counts[statusPass], counts[statusFail], counts[statusSkip])

	if counts[statusFail] > 0 || (cfg.Strict && counts[statusSkip] > 0) {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL        string
	DSN            string
	RedisAddr      string
	MigrationPath  string
	ApplyMigration bool
	Strict         bool
	Timezone       string
	Timeout        time.Duration
	Concurrency    int
	Duration       time.Duration
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", os.Getenv("RIDEPOOL_BENCH_BASE_URL"), "API base URL; empty skips the HTTP check")
	flag.StringVar(&cfg.DSN, "dsn", os.Getenv("RIDEPOOL_DB_DSN"), "Postgres DSN; empty runs against memory storage")
	flag.StringVar(&cfg.RedisAddr, "redis", os.Getenv("RIDEPOOL_REDIS_ADDR"), "Redis address for change fan-out")
	flag.StringVar(&cfg.MigrationPath, "migration", envOrDefault("RIDEPOOL_BENCH_MIGRATION", "migrations"), "Migration .sql file or directory")
	flag.BoolVar(&cfg.ApplyMigration, "apply-migration", envOrDefaultBool("RIDEPOOL_BENCH_APPLY_MIGRATION", false), "Apply migrations before the scenarios")
	flag.BoolVar(&cfg.Strict, "strict", envOrDefaultBool("RIDEPOOL_BENCH_STRICT", false), "Fail on skipped scenarios")
	flag.StringVar(&cfg.Timezone, "tz", envOrDefault("RIDEPOOL_TIMEZONE", "Asia/Kolkata"), "Timezone ride schedules are read in")
	flag.DurationVar(&cfg.Timeout, "timeout", envOrDefaultDuration("RIDEPOOL_BENCH_TIMEOUT", 60*time.Second), "Total timeout")
	flag.IntVar(&cfg.Concurrency, "concurrency", envOrDefaultInt("RIDEPOOL_BENCH_CONCURRENCY", 20), "Concurrent actors per scenario")
	flag.DurationVar(&cfg.Duration, "duration", envOrDefaultDuration("RIDEPOOL_BENCH_DURATION", 5*time.Second), "Duration of the throughput scenario")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
