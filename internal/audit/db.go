// Package audit implements the append-only sqlite sink that backs both the
// RNG core's entropy/alert trail and the table actor's per-hand action log.
// Every write lands in a table keyed for per-table, time-ranged retrieval,
// with a 90-day retention window enforced by an explicit Cleanup call rather
// than any background goroutine.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vctt94/pokercore/internal/rng"
	"github.com/vctt94/pokercore/internal/table"
)

// DefaultRetention is how long audit rows and RNG state snapshots are kept
// before Cleanup removes them.
const DefaultRetention = 90 * 24 * time.Hour

// DB is the sqlite-backed append-only sink. It implements rng.Sink and
// table.AuditAppender so one store backs both subsystems.
type DB struct {
	*sql.DB
}

// Open creates (or reopens) the audit database at path, creating tables if
// they don't already exist.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &DB{sqlDB}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rng_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id TEXT NOT NULL,
			hand_id TEXT NOT NULL,
			op TEXT NOT NULL,
			entropy_bytes INTEGER NOT NULL,
			input_hash TEXT NOT NULL,
			output_hash TEXT NOT NULL,
			metadata TEXT DEFAULT '{}',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rng_audit_table_time ON rng_audit(table_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS rng_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rng_alerts_table_time ON rng_alerts(table_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS table_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id TEXT NOT NULL,
			hand_id TEXT,
			op TEXT NOT NULL,
			metadata TEXT DEFAULT '{}',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_table_audit_table_time ON table_audit(table_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS rng_state_snapshots (
			table_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			op_counter INTEGER NOT NULL,
			last_refresh TIMESTAMP NOT NULL,
			PRIMARY KEY (table_id, created_at)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("audit: create tables: %w", err)
		}
	}
	return nil
}

// AppendBatch persists one batch of RNG audit records, satisfying
// rng.Sink.
func (db *DB) AppendBatch(tableID string, records []rng.AuditRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO rng_audit (table_id, hand_id, op, entropy_bytes, input_hash, output_hash, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		meta, _ := json.Marshal(rec.Metadata)
		if _, err := stmt.Exec(
			tableID, rec.HandID, rec.Op, rec.EntropyBytes,
			rec.InputHash, rec.OutputHash,
			string(meta), rec.Timestamp,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AppendAlert persists a security alert raised by the RNG core, satisfying
// rng.Sink.
func (db *DB) AppendAlert(alert rng.SecurityAlert) error {
	_, err := db.Exec(`
		INSERT INTO rng_alerts (table_id, severity, reason, created_at)
		VALUES (?, ?, ?, ?)
	`, alert.TableID, alert.Severity, alert.Reason, alert.Timestamp)
	return err
}

// AppendRecord persists one table-actor audit record, satisfying
// table.AuditAppender.
func (db *DB) AppendRecord(tableID string, record table.AuditRecord) error {
	meta, _ := json.Marshal(record.Metadata)
	_, err := db.Exec(`
		INSERT INTO table_audit (table_id, hand_id, op, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, tableID, record.HandID, record.Op, string(meta), record.Timestamp)
	return err
}

// SaveRNGSnapshot persists an RNG core state snapshot for a table, backing
// the rng-backup/{table_id}/{timestamp} recovery path.
func (db *DB) SaveRNGSnapshot(snap rng.StateSnapshot) error {
	_, err := db.Exec(`
		INSERT INTO rng_state_snapshots (table_id, created_at, op_counter, last_refresh)
		VALUES (?, ?, ?, ?)
	`, snap.TableID, snap.Timestamp, snap.OpCounter, snap.LastRefresh)
	return err
}

// LatestRNGSnapshot returns the most recently saved RNG snapshot for a
// table, used to restore entropy bookkeeping after a process restart.
func (db *DB) LatestRNGSnapshot(tableID string) (rng.StateSnapshot, error) {
	var snap rng.StateSnapshot
	snap.TableID = tableID
	err := db.QueryRow(`
		SELECT created_at, op_counter, last_refresh FROM rng_state_snapshots
		WHERE table_id = ? ORDER BY created_at DESC LIMIT 1
	`, tableID).Scan(&snap.Timestamp, &snap.OpCounter, &snap.LastRefresh)
	if err == sql.ErrNoRows {
		return rng.StateSnapshot{}, fmt.Errorf("no snapshot for table %s", tableID)
	}
	return snap, err
}

// RecordsInRange returns every RNG audit record for a table within
// [from, to), for incident investigation.
func (db *DB) RecordsInRange(tableID string, from, to time.Time) ([]rng.AuditRecord, error) {
	rows, err := db.Query(`
		SELECT hand_id, op, entropy_bytes, input_hash, output_hash, metadata, created_at
		FROM rng_audit WHERE table_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at ASC
	`, tableID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rng.AuditRecord
	for rows.Next() {
		var rec rng.AuditRecord
		var meta string
		if err := rows.Scan(&rec.HandID, &rec.Op, &rec.EntropyBytes, &rec.InputHash, &rec.OutputHash, &meta, &rec.Timestamp); err != nil {
			return nil, err
		}
		rec.TableID = tableID
		json.Unmarshal([]byte(meta), &rec.Metadata)
		out = append(out, rec)
	}
	return out, nil
}

// Cleanup deletes every audit row and RNG snapshot older than before. It is
// never invoked automatically; the operator schedules it (e.g. daily) per
// the retention policy.
func (db *DB) Cleanup(before time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, tbl := range []string{"rng_audit", "rng_alerts", "table_audit", "rng_state_snapshots"} {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE created_at < ?", tbl), before); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
