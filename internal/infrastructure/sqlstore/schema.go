package sqlstore

import (
	"context"
	"fmt"
)

// Timestamps are stored as UTC unix nanoseconds so both dialects compare and order them the same way.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS instruments (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		category      TEXT NOT NULL DEFAULT '',
		total_stock   INTEGER NOT NULL,
		cssd_stock    INTEGER NOT NULL CHECK (cssd_stock >= 0),
		dirty_stock   INTEGER NOT NULL CHECK (dirty_stock >= 0),
		packing_stock INTEGER NOT NULL CHECK (packing_stock >= 0),
		broken_stock  INTEGER NOT NULL CHECK (broken_stock >= 0),
		is_serialized BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    BIGINT NOT NULL,
		updated_at    BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_snapshots (
		instrument_id TEXT NOT NULL,
		unit_id       TEXT NOT NULL,
		quantity      INTEGER NOT NULL CHECK (quantity >= 0),
		max_stock     INTEGER,
		updated_at    BIGINT NOT NULL,
		PRIMARY KEY (instrument_id, unit_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_unit ON inventory_snapshots (unit_id)`,
	`CREATE TABLE IF NOT EXISTS instrument_assets (
		id            TEXT PRIMARY KEY,
		instrument_id TEXT NOT NULL,
		serial_number TEXT NOT NULL,
		status        TEXT NOT NULL,
		location      TEXT NOT NULL DEFAULT '',
		updated_at    BIGINT NOT NULL,
		UNIQUE (instrument_id, serial_number)
	)`,
	`CREATE TABLE IF NOT EXISTS instrument_sets (
		id      TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sterile_packs (
		id             TEXT PRIMARY KEY,
		status         TEXT NOT NULL,
		target_unit_id TEXT NOT NULL DEFAULT '',
		created_at     BIGINT NOT NULL,
		expires_at     BIGINT,
		payload        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_packs_status_created ON sterile_packs (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id      TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL,
		type    TEXT NOT NULL,
		status  TEXT NOT NULL,
		ts      BIGINT NOT NULL,
		payload TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_unit_ts ON transactions (unit_id, ts)`,
	`CREATE TABLE IF NOT EXISTS sterilization_batches (
		id         TEXT PRIMARY KEY,
		created_at BIGINT NOT NULL,
		payload    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS discrepancy_reports (
		id             TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		created_at     BIGINT NOT NULL,
		payload        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_discrepancies_tx ON discrepancy_reports (transaction_id)`,
	`CREATE TABLE IF NOT EXISTS units (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id             TEXT PRIMARY KEY,
		aggregate_id   TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		topic          TEXT NOT NULL,
		payload        TEXT NOT NULL,
		created_at     BIGINT NOT NULL,
		published_at   BIGINT,
		retry_count    INTEGER NOT NULL DEFAULT 0,
		last_error     TEXT NOT NULL DEFAULT '',
		max_retries    INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_events (published_at, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_aggregate ON outbox_events (aggregate_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		id                  TEXT PRIMARY KEY,
		idem_key            TEXT NOT NULL,
		service_id          TEXT NOT NULL,
		request_path        TEXT NOT NULL,
		request_method      TEXT NOT NULL,
		request_fingerprint TEXT NOT NULL,
		locked_at           BIGINT,
		response_code       INTEGER NOT NULL DEFAULT 0,
		response_body       TEXT NOT NULL DEFAULT '',
		response_headers    TEXT NOT NULL DEFAULT '',
		created_at          BIGINT NOT NULL,
		completed_at        BIGINT,
		expires_at          BIGINT NOT NULL,
		UNIQUE (service_id, idem_key)
	)`,
}

// Migrate applies the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}
