package export

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/glucobot/glucobot/internal/logger"
	"github.com/glucobot/glucobot/internal/memory"
	"github.com/glucobot/glucobot/internal/render"
)

// EmptyMessage reply when there is nothing to export
const EmptyMessage = "No conversation history to export."

// Result of an export
type Result struct {
	Path      string // empty when nothing was written
	RemoteURL string
	Message   string
}

// Exporter writes the conversation log, records it and optionally uploads it
type Exporter struct {
	dir      string
	pdf      *PDFWriter
	journal  memory.Journal
	uploader Uploader
	opener   render.Opener
	now      func() time.Time
}

// Option configures an Exporter
type Option func(*Exporter)

// WithJournal records every export
func WithJournal(j memory.Journal) Option {
	return func(e *Exporter) { e.journal = j }
}

// WithUploader uploads every export under exports/
func WithUploader(u Uploader) Option {
	return func(e *Exporter) { e.uploader = u }
}

// WithOpener opens the PDF after writing it
func WithOpener(o render.Opener) Option {
	return func(e *Exporter) { e.opener = o }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates an Exporter writing into dir
func New(dir string, opts ...Option) *Exporter {
	e := &Exporter{
		dir: dir,
		pdf: NewPDFWriter(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes turns to a PDF. Journal, upload and viewer failures are
// logged and do not fail the export.
func (e *Exporter) Export(ctx context.Context, turns []memory.Turn, patientID string) (*Result, error) {
	if len(turns) == 0 {
		return &Result{Message: EmptyMessage}, nil
	}

	at := e.now()
	name := FileName(patientID, at)
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create output directory", goerr.V("dir", e.dir))
	}
	localPath := filepath.Join(e.dir, name)

	if err := e.pdf.Write(localPath, turns, patientID, at); err != nil {
		return nil, err
	}

	result := &Result{Path: localPath}

	if e.uploader != nil {
		url, err := e.uploader.Upload(ctx, path.Join("exports", name), localPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", localPath).Msg("export upload failed")
		} else {
			result.RemoteURL = url
		}
	}

	if e.journal != nil {
		rec := &memory.ExportRecord{
			PatientID: patientID,
			Path:      localPath,
			RemoteURL: result.RemoteURL,
			Turns:     len(turns),
			CreatedAt: at,
		}
		if err := e.journal.RecordExport(rec); err != nil {
			logger.Warn().Err(err).Str("path", localPath).Msg("failed to record export")
		}
	}

	opened := false
	if e.opener != nil {
		if err := e.opener.Open(localPath); err != nil {
			logger.Warn().Err(err).Str("path", localPath).Msg("could not open the PDF")
		} else {
			opened = true
		}
	}

	result.Message = message(localPath, result.RemoteURL, opened)
	return result, nil
}

func message(localPath, remoteURL string, opened bool) string {
	msg := "Conversation exported to " + localPath
	if opened {
		msg += " and opened in your default PDF viewer."
	} else {
		msg += "."
	}
	if remoteURL != "" {
		msg += " Uploaded to " + remoteURL + "."
	}
	return msg
}
