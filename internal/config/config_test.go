package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ConfigYAML(t *testing.T) {
	path := filepath.Join("..", "..", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.Host == "" {
		t.Fatalf("expected database.host to be set")
	}
	if cfg.RabbitMQ.Port == 0 {
		t.Fatalf("expected rabbitmq.port to be set")
	}
	if len(cfg.Restaurant.Tables) == 0 {
		t.Fatalf("expected restaurant.tables to be set")
	}

	total := 0
	for _, tbl := range cfg.Restaurant.Tables {
		total += tbl.Capacity
	}
	if total != 40 {
		t.Errorf("total capacity = %d, want 40", total)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Idempotency.TTL(); got != 600*time.Second {
		t.Errorf("TTL = %v, want 600s", got)
	}
	if got := cfg.Restaurant.DeliveryFee().StringFixed(2); got != "5.00" {
		t.Errorf("delivery fee = %s, want 5.00", got)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("idempotency:\n  ttl_seconds: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IDEMPOTENCY_TTL", "90")
	t.Setenv("POSTGRES_HOST", "db.internal")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Idempotency.TTLSeconds != 90 {
		t.Errorf("ttl = %d, want 90", cfg.Idempotency.TTLSeconds)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("host = %q, want db.internal", cfg.Database.Host)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "negative fee", yaml: "restaurant:\n  default_delivery_fee: \"-1\"\n"},
		{name: "garbage fee", yaml: "restaurant:\n  default_delivery_fee: abc\n"},
		{name: "zero ttl", yaml: "idempotency:\n  ttl_seconds: 0\n"},
		{name: "empty table", yaml: "restaurant:\n  tables:\n    - { label: T1, capacity: 0 }\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
