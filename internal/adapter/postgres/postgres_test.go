package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMigrationsAreOrdered(t *testing.T) {
	seen := map[int]bool{}
	for i, m := range migrations {
		if m.version != i+1 {
			t.Fatalf("migration %q has version %d, want %d", m.name, m.version, i+1)
		}
		if seen[m.version] {
			t.Fatalf("duplicate migration version %d", m.version)
		}
		seen[m.version] = true
		if strings.TrimSpace(m.sql) == "" {
			t.Fatalf("migration %d is empty", m.version)
		}
	}
}

func TestSlotLockKey(t *testing.T) {
	evening := time.Date(2026, 3, 20, 23, 59, 0, 0, time.UTC)
	morning := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	if slotLockKey(evening, "19:00") != slotLockKey(morning, "19:00") {
		t.Fatalf("same day and slot produced different lock keys")
	}
	if slotLockKey(morning, "19:00") == slotLockKey(morning, "19:30") {
		t.Fatalf("different slots share a lock key")
	}
	if got := slotLockKey(morning, "19:00"); got != "reservation-slot:2026-03-20T19:00" {
		t.Fatalf("slotLockKey = %q", got)
	}
}

func TestErrorClassification(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "orders_no_key"})
	if !isUniqueViolation(dup) {
		t.Fatalf("unique violation not detected")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation reported as unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatalf("plain error reported as unique violation")
	}
	if !isNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatalf("wrapped ErrNoRows not detected")
	}
}

func TestParseMoney(t *testing.T) {
	d, err := parseMoney("40.20")
	if err != nil || d.StringFixed(2) != "40.20" {
		t.Fatalf("parseMoney = %v, %v", d, err)
	}
	if _, err := parseMoney("forty"); err == nil {
		t.Fatalf("invalid amount accepted")
	}
}
