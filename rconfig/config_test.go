package rconfig

import (
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load([]byte(`{"health_check_interval":"15s","max_coalesce_bytes":4096}`))
	if err != nil {
		t.Fatal(err)
	}
	if time.Duration(cfg.HealthCheckInterval) != 15*time.Second {
		t.Fatalf("got %v", cfg.HealthCheckInterval)
	}
	if cfg.MaxCoalesceBytes != 4096 {
		t.Fatalf("got %d", cfg.MaxCoalesceBytes)
	}
	if cfg.HealthCheckCommand != "PING" {
		t.Fatal("expected default health check command to survive partial override")
	}
}

func TestDurationRoundTrip(t *testing.T) {
	cfg := Default()
	b, err := cfg.HealthCheckTimeout.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var d Duration
	if err := d.UnmarshalJSON(b); err != nil {
		t.Fatal(err)
	}
	if d != cfg.HealthCheckTimeout {
		t.Fatalf("got %v want %v", d, cfg.HealthCheckTimeout)
	}
}
