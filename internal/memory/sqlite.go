package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal SQLite export journal
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens or creates the journal database
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	j := &SQLiteJournal{db: db}

	if err := j.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	return j, nil
}

// initTables initializes database tables
func (j *SQLiteJournal) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS exports (
			id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL,
			remote_url TEXT NOT NULL DEFAULT '',
			turns INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exports_created_at ON exports(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_exports_patient_id ON exports(patient_id)`,
	}

	for _, query := range queries {
		if _, err := j.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute SQL: %s, error: %w", query, err)
		}
	}

	return nil
}

// RecordExport stores an export. ID and CreatedAt are filled in when empty.
func (j *SQLiteJournal) RecordExport(rec *ExportRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := j.db.Exec(
		"INSERT INTO exports (id, patient_id, path, remote_url, turns, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.PatientID, rec.Path, rec.RemoteURL, rec.Turns, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record export: %w", err)
	}

	return nil
}

// ListExports returns the newest exports first
func (j *SQLiteJournal) ListExports(limit int) ([]*ExportRecord, error) {
	rows, err := j.db.Query(
		`SELECT id, patient_id, path, remote_url, turns, created_at
		 FROM exports
		 ORDER BY created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	var records []*ExportRecord
	for rows.Next() {
		var rec ExportRecord
		if err := rows.Scan(&rec.ID, &rec.PatientID, &rec.Path, &rec.RemoteURL, &rec.Turns, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Close closes the database connection
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
