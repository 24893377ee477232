// README: Bench scenarios for the booking engine; covers environment checks, seat capacity under contention, idempotent joins, host handover and change fan-out.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ridepool/internal/infra"
	"ridepool/internal/modules/ride"
	"ridepool/internal/types"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
	loc   *time.Location
	log   *logrus.Logger
	rides *ride.Service
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(ctx context.Context, cfg Config) (*Runner, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	log, err := infra.NewLogger("warn", "text")
	if err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
		loc:   loc,
		log:   log,
	}
	if cfg.DSN != "" {
		if r.db, err = infra.NewDB(ctx, cfg.DSN); err != nil {
			return nil, err
		}
	}
	if cfg.RedisAddr != "" {
		if r.redis, err = infra.NewRedis(ctx, cfg.RedisAddr); err != nil {
			r.Close()
			return nil, err
		}
	}
	if r.db != nil && cfg.ApplyMigration {
		if err := infra.ApplyMigrations(ctx, r.db, cfg.MigrationPath); err != nil {
			r.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	r.rides = ride.NewService(r.store(), ride.WithLocation(loc), ride.WithLogger(log))
	return r, nil
}

func (r *Runner) store() ride.Store {
	if r.db == nil {
		return ride.NewMemoryStore()
	}
	var notifier ride.Notifier = ride.NewLocalNotifier()
	if r.redis != nil {
		notifier = ride.NewRedisNotifier(r.redis, r.log)
	}
	return ride.NewPostgresStore(r.db, notifier, r.log)
}

func (r *Runner) backend() string {
	if r.db != nil {
		return "postgres"
	}
	return "memory"
}

func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	fmt.Printf("backend=%s concurrency=%d\n", r.backend(), r.cfg.Concurrency)
	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		start := time.Now()
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		if res.Latency == 0 {
			res.Latency = time.Since(start)
		}
		results = append(results, res)
		fmt.Printf("%-5s %s (%s)", res.Status, tc.Name, res.Latency.Round(time.Microsecond))
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: checkPostgres},
		{Name: "Env: Redis connect", Run: checkRedis},
		{Name: "Migration: tables exist", Run: checkTables},
		{Name: "API: health reachable", Run: checkHealth},
		{Name: "Booking: concurrent joins fill a Cab exactly", Run: concurrentJoins},
		{Name: "Booking: repeated join by one actor holds one seat", Run: idempotentJoin},
		{Name: "Booking: resign during joins keeps host off the roster", Run: resignDuringJoins},
		{Name: "Booking: paused ride refuses joins", Run: pausedRide},
		{Name: "Stream: join is delivered to watchers", Run: watchJoin},
		{Name: "Perf: join/leave throughput", Run: joinLeaveThroughput},
	}
}

func checkPostgres(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "no dsn"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func checkRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "no redis address"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "no dsn"}
	}
	tables, err := migrationTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: statusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: statusPass}
}

func checkHealth(ctx context.Context, r *Runner) Result {
	if r.cfg.BaseURL == "" {
		return Result{Status: statusSkip, Note: "no base url"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/health", nil)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	status := statusPass
	if resp.StatusCode != http.StatusOK {
		status = statusFail
	}
	return Result{Status: status, Latency: time.Since(start), Note: fmt.Sprintf("status=%d", resp.StatusCode)}
}

func concurrentJoins(ctx context.Context, r *Runner) Result {
	rd, err := r.newRide(ctx, ride.VehicleCab)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	var seated, full, other int64
	r.parallel(r.cfg.Concurrency, func(i int) {
		_, err := r.rides.Join(ctx, ride.JoinCommand{RideID: rd.ID, Actor: benchActor(fmt.Sprintf("p%d", i))})
		switch {
		case err == nil:
			atomic.AddInt64(&seated, 1)
		case ride.ReasonOf(err) == ride.DenyRideFull:
			atomic.AddInt64(&full, 1)
		default:
			atomic.AddInt64(&other, 1)
		}
	})
	got, err := r.rides.Get(ctx, rd.ID)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	want := ride.Capacity(ride.VehicleCab) - 1
	if r.cfg.Concurrency < want {
		want = r.cfg.Concurrency
	}
	note := fmt.Sprintf("seated=%d full=%d other=%d roster=%d", seated, full, other, len(got.Passengers))
	if int(seated) != len(got.Passengers) || len(got.Passengers) > want {
		return Result{Status: statusFail, Note: note}
	}
	if other == 0 && int(seated) != want {
		return Result{Status: statusFail, Note: note}
	}
	return Result{Status: statusPass, Note: note}
}

func idempotentJoin(ctx context.Context, r *Runner) Result {
	rd, err := r.newRide(ctx, ride.VehicleAuto)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	a := benchActor("repeat")
	var failures int64
	r.parallel(r.cfg.Concurrency, func(int) {
		if _, err := r.rides.Join(ctx, ride.JoinCommand{RideID: rd.ID, Actor: a}); err != nil {
			atomic.AddInt64(&failures, 1)
		}
	})
	got, err := r.rides.Get(ctx, rd.ID)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	note := fmt.Sprintf("roster=%d failures=%d", len(got.Passengers), failures)
	if len(got.Passengers) != 1 || failures != 0 {
		return Result{Status: statusFail, Note: note}
	}
	return Result{Status: statusPass, Note: note}
}

func resignDuringJoins(ctx context.Context, r *Runner) Result {
	rd, err := r.newRide(ctx, ride.VehicleCab)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if _, err := r.rides.Join(ctx, ride.JoinCommand{RideID: rd.ID, Actor: benchActor("first")}); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	var resignErr error
	r.parallel(r.cfg.Concurrency, func(i int) {
		if i == r.cfg.Concurrency/2 {
			_, resignErr = r.rides.ResignHost(ctx, ride.HostCommand{RideID: rd.ID, HostID: rd.Host.ID})
			return
		}
		_, _ = r.rides.Join(ctx, ride.JoinCommand{RideID: rd.ID, Actor: benchActor(fmt.Sprintf("j%d", i))})
	})
	if resignErr != nil {
		return Result{Status: statusFail, Note: resignErr.Error()}
	}
	got, err := r.rides.Get(ctx, rd.ID)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if got.Host.ID == rd.Host.ID {
		return Result{Status: statusFail, Note: "host did not change"}
	}
	if got.IsPassenger(got.Host.ID) || got.Occupied() > ride.Capacity(got.Vehicle) {
		return Result{Status: statusFail, Note: fmt.Sprintf("bad roster host=%s passengers=%d", got.Host.ID, len(got.Passengers))}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("new_host=%s passengers=%d", got.Host.ID, len(got.Passengers))}
}

func pausedRide(ctx context.Context, r *Runner) Result {
	rd, err := r.newRide(ctx, ride.VehicleAuto)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if _, err := r.rides.TogglePause(ctx, ride.HostCommand{RideID: rd.ID, HostID: rd.Host.ID}); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	_, err = r.rides.Join(ctx, ride.JoinCommand{RideID: rd.ID, Actor: benchActor("late")})
	if ride.ReasonOf(err) != ride.DenyBookingPaused {
		return Result{Status: statusFail, Note: fmt.Sprintf("join err=%v", err)}
	}
	return Result{Status: statusPass}
}

func watchJoin(ctx context.Context, r *Runner) Result {
	rd, err := r.newRide(ctx, ride.VehicleAuto)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ch, err := r.rides.Watch(wctx, func(c ride.Change) bool { return c.RideID == rd.ID })
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	start := time.Now()
	if _, err := r.rides.Join(ctx, ride.JoinCommand{RideID: rd.ID, Actor: benchActor("watched")}); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return Result{Status: statusFail, Note: "stream closed"}
			}
			if c.Ride != nil && c.Ride.IsPassenger("watched") {
				return Result{Status: statusPass, Latency: time.Since(start)}
			}
		case <-wctx.Done():
			return Result{Status: statusFail, Note: "no change delivered"}
		}
	}
}

func joinLeaveThroughput(ctx context.Context, r *Runner) Result {
	rd, err := r.newRide(ctx, ride.VehicleCab)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	end := time.Now().Add(r.cfg.Duration)
	var ops, errCount int64
	r.parallel(r.cfg.Concurrency, func(i int) {
		a := benchActor(fmt.Sprintf("t%d", i))
		for time.Now().Before(end) && ctx.Err() == nil {
			_, err := r.rides.Join(ctx, ride.JoinCommand{RideID: rd.ID, Actor: a})
			if err == nil {
				_, err = r.rides.Leave(ctx, ride.LeaveCommand{RideID: rd.ID, ActorID: a.ID})
			}
			if err != nil && !errors.Is(err, ride.ErrNotEligible) {
				atomic.AddInt64(&errCount, 1)
				continue
			}
			atomic.AddInt64(&ops, 1)
		}
	})
	if ops == 0 {
		return Result{Status: statusFail, Note: "no operations completed"}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("ops/s=%.1f errors=%d", float64(ops)/r.cfg.Duration.Seconds(), errCount)}
}

// newRide hosts a fresh ride departing tomorrow morning.
func (r *Runner) newRide(ctx context.Context, v ride.Vehicle) (*ride.Ride, error) {
	host := benchActor("host-" + string(types.NewID()))
	return r.rides.Create(ctx, ride.CreateCommand{
		Host:     host,
		From:     "VIT-AP Campus",
		To:       "Vijayawada Railway Station",
		Date:     time.Now().In(r.loc).AddDate(0, 0, 1).Format("2006-01-02"),
		Hour:     10,
		Minute:   0,
		Meridiem: "AM",
		Vehicle:  v,
	})
}

var createTable = regexp.MustCompile(`(?i)create\s+table\s+(?:if\s+not\s+exists\s+)?([a-zA-Z0-9_]+)`)

// migrationTables lists the tables the migrations at path create.
func migrationTables(path string) ([]string, error) {
	files, err := infra.MigrationFiles(path)
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		for _, m := range createTable.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables declared in %s", path)
	}
	return tables, nil
}

func (r *Runner) parallel(n int, fn func(i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fn(i)
		}(i)
	}
	wg.Wait()
}

func benchActor(id string) ride.Actor {
	return ride.Actor{
		ActorSummary: ride.ActorSummary{ID: types.ID(id), DisplayName: "Bench " + id},
		Gender:       types.GenderMale,
	}
}
