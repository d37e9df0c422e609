package memory

import (
	"time"
)

// Journal records conversation exports
type Journal interface {
	RecordExport(rec *ExportRecord) error
	ListExports(limit int) ([]*ExportRecord, error)
	Close() error
}

// ExportRecord one conversation export
type ExportRecord struct {
	ID        string
	PatientID string // empty when no patient was active
	Path      string
	RemoteURL string // empty when not uploaded
	Turns     int
	CreatedAt time.Time
}
