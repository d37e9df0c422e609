package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/glucobot/glucobot/internal/dataset"
	"github.com/glucobot/glucobot/internal/logger"
	"github.com/glucobot/glucobot/internal/render"
)

// Format requested output format
type Format string

const (
	FormatNone   Format = ""
	FormatRaw    Format = "raw"
	FormatFigure Format = "figure"
)

// NoDataMessage reply when the patient has no dataset
const NoDataMessage = "No data available for this patient."

// ParseFormat accepts raw and figure case-insensitively. Anything else is
// FormatNone.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatRaw:
		return FormatRaw
	case FormatFigure:
		return FormatFigure
	default:
		return FormatNone
	}
}

// Request a fully resolved data request
type Request struct {
	PatientID string
	Format    Format
	Data      *dataset.Dataset // nil when the patient has no data
}

// Renderer writes an artifact for a dataset and returns its path
type Renderer interface {
	Render(ds *dataset.Dataset, patientID string) (string, error)
}

// Dispatcher produces the chart or the raw table for a resolved request
type Dispatcher struct {
	chart  Renderer
	table  Renderer
	opener render.Opener // nil when the viewer is disabled
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithOpener opens every artifact after it is written
func WithOpener(o render.Opener) Option {
	return func(d *Dispatcher) { d.opener = o }
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(chart, table Renderer, opts ...Option) *Dispatcher {
	d := &Dispatcher{chart: chart, table: table}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch produces exactly one artifact and returns the confirmation.
// Renderer failures become a notice.
func (d *Dispatcher) Dispatch(_ context.Context, req Request) string {
	if req.Data == nil {
		return NoDataMessage
	}

	if req.Format == FormatFigure {
		path, err := d.chart.Render(req.Data, req.PatientID)
		if err != nil {
			logger.Error().Err(err).Str("patient_id", req.PatientID).Msg("chart rendering failed")
			return fmt.Sprintf("Sorry, I couldn't generate a plot for patient %s.", req.PatientID)
		}
		if d.open(path) {
			return fmt.Sprintf("Generated plot for patient %s. Opening the plot in your default image viewer and saved as %s", req.PatientID, path)
		}
		return fmt.Sprintf("Generated plot for patient %s. Saved as %s", req.PatientID, path)
	}

	path, err := d.table.Render(req.Data, req.PatientID)
	if err != nil {
		logger.Error().Err(err).Str("patient_id", req.PatientID).Msg("raw data rendering failed")
		return fmt.Sprintf("Sorry, I couldn't display the raw data for patient %s.", req.PatientID)
	}
	if d.open(path) {
		return fmt.Sprintf("Displaying raw data for patient %s in your browser.", req.PatientID)
	}
	return fmt.Sprintf("Raw data for patient %s written to %s", req.PatientID, path)
}

func (d *Dispatcher) open(path string) bool {
	if d.opener == nil {
		return false
	}
	if err := d.opener.Open(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("could not display artifact")
		return false
	}
	return true
}
