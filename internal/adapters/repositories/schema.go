package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/platform/db"
)

// The statements are written in the subset of SQL shared by SQLite and Postgres.
var schema = []string{
	`
	CREATE TABLE IF NOT EXISTS transactions (
		transaction_id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL DEFAULT '',
		merchant TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		waypoints TEXT NOT NULL DEFAULT '{}',
		route TEXT,
		created TEXT NOT NULL
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_transactions_report
	ON transactions(report_id);
	`,
	`
	CREATE TABLE IF NOT EXISTS route_cache (
		coords_key TEXT PRIMARY KEY,
		distance_meters INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL,
		geometry TEXT NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL
	);
	`,
}

// InitSchema creates the transaction and cache tables.
func InitSchema(ctx context.Context, conn *sql.DB) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// SeedFromJSON upserts the transactions listed in a JSON file.
// Waypoints use the keyed wire form ({"waypoint0": {...}, ...}).
func SeedFromJSON(ctx context.Context, conn *sql.DB, dialect db.Dialect, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed transactions: read %q: %w", jsonPath, err)
	}

	var data []*domain.Transaction
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed transactions: parse json: %w", err)
	}

	for i, item := range data {
		if item == nil || strings.TrimSpace(item.TransactionID) == "" {
			return 0, fmt.Errorf("seed transactions: item at index %d: transaction id cannot be empty", i+1)
		}
		if len(item.Waypoints()) > domain.MaxWaypoints {
			return 0, fmt.Errorf("seed transactions: %q: %w", item.TransactionID, domain.ErrTooManyWaypoints)
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed transactions: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, dialect.Rebind(upsertTransaction))
	if err != nil {
		return 0, fmt.Errorf("seed transactions: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range data {
		args, err := transactionArgs(t)
		if err != nil {
			return 0, fmt.Errorf("seed transactions: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("seed transactions: insert transaction_id=%q: %w", t.TransactionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed transactions: commit tx: %w", err)
	}

	return len(data), nil
}
