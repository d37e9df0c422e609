package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// ErrNoData is returned when a patient folder holds no CSV file
var ErrNoData = errors.New("no data available")

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02",
}

// Reading one row projected onto the timestamp and glucose columns
type Reading struct {
	Timestamp time.Time
	HasTime   bool
	Glucose   float64
	Valid     bool // glucose value present and numeric
}

// Dataset a patient's CSV table
type Dataset struct {
	PatientID       string
	Source          string
	Header          []string
	Rows            [][]string
	Readings        []Reading
	TimestampColumn string
	GlucoseColumn   string
}

// Loader reads patient datasets from the storage layout
type Loader struct {
	root            string
	prefix          string
	timestampColumn string
	glucoseColumn   string
}

// LoaderConfig storage layout and column names
type LoaderConfig struct {
	Root            string
	FolderPrefix    string
	TimestampColumn string
	GlucoseColumn   string
}

// NewLoader creates a Loader
func NewLoader(cfg LoaderConfig) *Loader {
	return &Loader{
		root:            cfg.Root,
		prefix:          cfg.FolderPrefix,
		timestampColumn: cfg.TimestampColumn,
		glucoseColumn:   cfg.GlucoseColumn,
	}
}

// Load reads the first CSV file (by name) of the patient's folder
func (l *Loader) Load(patientID string) (*Dataset, error) {
	folder := filepath.Join(l.root, l.prefix+patientID)
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrNoData, "patient folder missing", goerr.V("folder", folder))
		}
		return nil, goerr.Wrap(err, "failed to read patient folder", goerr.V("folder", folder))
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, goerr.Wrap(ErrNoData, "no csv file", goerr.V("folder", folder))
	}
	sort.Strings(names)

	path := filepath.Join(folder, names[0])
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open csv", goerr.V("path", path))
	}
	defer f.Close()

	ds, err := l.Parse(f)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse csv", goerr.V("path", path))
	}
	ds.PatientID = patientID
	ds.Source = path
	return ds, nil
}

// Parse reads a CSV table and projects the configured columns
func (l *Loader) Parse(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, goerr.Wrap(ErrNoData, "empty csv")
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	tsIdx := indexOf(header, l.timestampColumn)
	glIdx := indexOf(header, l.glucoseColumn)
	if tsIdx < 0 || glIdx < 0 {
		return nil, goerr.New("required column missing",
			goerr.V("timestamp_column", l.timestampColumn),
			goerr.V("glucose_column", l.glucoseColumn),
			goerr.V("header", header))
	}

	ds := &Dataset{
		Header:          header,
		TimestampColumn: l.timestampColumn,
		GlucoseColumn:   l.glucoseColumn,
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read row", goerr.V("row", len(ds.Rows)+1))
		}
		ds.Rows = append(ds.Rows, row)
		ds.Readings = append(ds.Readings, project(row, tsIdx, glIdx))
	}

	return ds, nil
}

func project(row []string, tsIdx, glIdx int) Reading {
	var rd Reading
	if tsIdx < len(row) {
		rd.Timestamp, rd.HasTime = parseTimestamp(row[tsIdx])
	}
	if glIdx < len(row) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(row[glIdx]), 64); err == nil && !math.IsNaN(v) {
			rd.Glucose = v
			rd.Valid = true
		}
	}
	return rd
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// Column returns the raw value of the named column in row, or "" when absent
func (d *Dataset) Column(row []string, name string) string {
	i := indexOf(d.Header, name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Empty reports whether the dataset has no rows
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Rows) == 0
}
