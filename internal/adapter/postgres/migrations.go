package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "orders",
		sql: `
CREATE TABLE IF NOT EXISTS orders (
	id                    BIGSERIAL PRIMARY KEY,
	no                    TEXT NOT NULL UNIQUE,
	status                TEXT NOT NULL,
	delivery_mode         TEXT NOT NULL,
	payment_mode          TEXT NOT NULL,
	client_first_name     TEXT NOT NULL DEFAULT '',
	client_last_name      TEXT NOT NULL DEFAULT '',
	client_email          TEXT NOT NULL DEFAULT '',
	client_phone          TEXT NOT NULL DEFAULT '',
	delivery_address      TEXT,
	delivery_zip          TEXT,
	delivery_instructions TEXT,
	subtotal              NUMERIC(12,2) NOT NULL,
	tax_amount            NUMERIC(12,2) NOT NULL,
	delivery_fee          NUMERIC(12,2) NOT NULL,
	total                 NUMERIC(12,2) NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL,
	CONSTRAINT orders_total_sum CHECK (total = subtotal + tax_amount + delivery_fee)
);

CREATE TABLE IF NOT EXISTS order_items (
	id           BIGSERIAL PRIMARY KEY,
	order_id     BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id   BIGINT NOT NULL DEFAULT 0,
	product_name TEXT NOT NULL,
	unit_price   NUMERIC(12,2) NOT NULL CHECK (unit_price >= 0),
	quantity     INTEGER NOT NULL CHECK (quantity >= 1),
	total        NUMERIC(12,2) NOT NULL
);
CREATE INDEX IF NOT EXISTS order_items_order_id_idx ON order_items(order_id);

CREATE TABLE IF NOT EXISTS order_status_log (
	id         BIGSERIAL PRIMARY KEY,
	order_id   BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	status     TEXT NOT NULL,
	changed_by TEXT NOT NULL,
	changed_at TIMESTAMPTZ NOT NULL,
	notes      TEXT
);
CREATE INDEX IF NOT EXISTS order_status_log_order_id_idx ON order_status_log(order_id);`,
	},
	{
		version: 2,
		name:    "reservations",
		sql: `
CREATE TABLE IF NOT EXISTS restaurant_tables (
	id       BIGSERIAL PRIMARY KEY,
	label    TEXT NOT NULL UNIQUE,
	capacity INTEGER NOT NULL CHECK (capacity > 0),
	zone     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS reservations (
	id                   BIGSERIAL PRIMARY KEY,
	name                 TEXT NOT NULL,
	email                TEXT NOT NULL DEFAULT '',
	phone                TEXT NOT NULL DEFAULT '',
	date                 DATE NOT NULL,
	time_slot            TEXT NOT NULL,
	guests               INTEGER NOT NULL CHECK (guests >= 1),
	message              TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL,
	is_confirmed         BOOLEAN NOT NULL DEFAULT FALSE,
	confirmed_at         TIMESTAMPTZ,
	confirmation_message TEXT,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL,
	CONSTRAINT reservations_confirmed_flag CHECK (is_confirmed = (status = 'confirmed'))
);
CREATE INDEX IF NOT EXISTS reservations_slot_idx ON reservations(date, time_slot);

CREATE TABLE IF NOT EXISTS reservation_status_log (
	id             BIGSERIAL PRIMARY KEY,
	reservation_id BIGINT NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
	status         TEXT NOT NULL,
	changed_by     TEXT NOT NULL,
	changed_at     TIMESTAMPTZ NOT NULL,
	notes          TEXT
);
CREATE INDEX IF NOT EXISTS reservation_status_log_reservation_id_idx ON reservation_status_log(reservation_id);`,
	},
	{
		version: 3,
		name:    "idempotency_keys",
		sql: `
CREATE TABLE IF NOT EXISTS idempotency_keys (
	key         TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	state       TEXT NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0,
	body        BYTEA,
	expires_at  TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idempotency_keys_expires_at_idx ON idempotency_keys(expires_at);`,
	},
}

// Migrate applies every migration not yet recorded in schema_migrations,
// each in its own transaction.
func Migrate(ctx context.Context, db DB, log logger.Logger) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}

		err := inTx(ctx, db, func(tx Tx) error {
			if _, err := tx.Exec(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}

		log.Info("migration_applied", fmt.Sprintf("Applied migration %d_%s", m.version, m.name), "", map[string]interface{}{
			"version": m.version,
		})
	}
	return nil
}

func appliedVersions(ctx context.Context, db DB) (map[int]bool, error) {
	rows, err := db.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
