package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RIDEPOOL_STORE", "")
	t.Setenv("RIDEPOOL_TIMEZONE", "")
	t.Setenv("RIDEPOOL_BOOKING_MAX_ATTEMPTS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != BackendPostgres || cfg.Booking.MaxAttempts != 3 || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Schedule.Location == nil || cfg.Schedule.Location.String() != "Asia/Kolkata" {
		t.Fatalf("unexpected location: %v", cfg.Schedule.Location)
	}
	if cfg.Maps.CacheTTL != 10*time.Minute {
		t.Fatalf("cache ttl = %s", cfg.Maps.CacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RIDEPOOL_STORE", "memory")
	t.Setenv("RIDEPOOL_TIMEZONE", "UTC")
	t.Setenv("RIDEPOOL_BOOKING_MAX_ATTEMPTS", "5")
	t.Setenv("RIDEPOOL_MAPS_CACHE_TTL", "30s")
	t.Setenv("RIDEPOOL_PUSH_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != BackendMemory || cfg.Booking.MaxAttempts != 5 || cfg.Schedule.Location != time.UTC || cfg.Maps.CacheTTL != 30*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !cfg.Push.Enabled || cfg.Push.Timeout != 5*time.Second {
		t.Fatalf("push settings = %+v", cfg.Push)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"backend":  {"RIDEPOOL_STORE", "mysql"},
		"timezone": {"RIDEPOOL_TIMEZONE", "Mars/Olympus"},
		"attempts": {"RIDEPOOL_BOOKING_MAX_ATTEMPTS", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}
