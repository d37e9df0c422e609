package dataset

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary descriptive statistics of the glucose column
type Summary struct {
	First   string // raw timestamp of the first row
	Last    string // raw timestamp of the last row
	Count   int    // number of rows
	Valid   int    // rows with a numeric glucose value
	Min     float64
	Max     float64
	Mean    float64
	StdDev  float64 // sample standard deviation
	MinAt   int     // index into Readings, -1 when Valid == 0
	MaxAt   int
	Unit    string
	Missing bool // true when the dataset is nil or empty
}

// Summarize computes the statistics. Rows without a numeric glucose value
// count towards Count only.
func Summarize(ds *Dataset) Summary {
	s := Summary{MinAt: -1, MaxAt: -1, Unit: "mg/dL", Min: math.NaN(), Max: math.NaN(), Mean: math.NaN(), StdDev: math.NaN()}
	if ds.Empty() {
		s.Missing = true
		return s
	}

	s.Count = len(ds.Rows)
	s.First = ds.Column(ds.Rows[0], ds.TimestampColumn)
	s.Last = ds.Column(ds.Rows[len(ds.Rows)-1], ds.TimestampColumn)

	values := make([]float64, 0, len(ds.Readings))
	index := make([]int, 0, len(ds.Readings))
	for i, r := range ds.Readings {
		if r.Valid {
			values = append(values, r.Glucose)
			index = append(index, i)
		}
	}
	s.Valid = len(values)
	if s.Valid == 0 {
		return s
	}

	minIdx, maxIdx := floats.MinIdx(values), floats.MaxIdx(values)
	s.Min, s.Max = values[minIdx], values[maxIdx]
	s.MinAt, s.MaxAt = index[minIdx], index[maxIdx]
	s.Mean = stat.Mean(values, nil)
	if s.Valid > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}

// String renders the summary block used in analysis prompts
func (s Summary) String() string {
	if s.Missing {
		return "No data available"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Time Range: From %s to %s\n", s.First, s.Last)
	fmt.Fprintf(&sb, "Number of readings: %d\n", s.Count)
	fmt.Fprintf(&sb, "Minimum glucose: %s\n", s.Format(s.Min))
	fmt.Fprintf(&sb, "Maximum glucose: %s\n", s.Format(s.Max))
	fmt.Fprintf(&sb, "Average glucose: %s\n", s.Format(s.Mean))
	fmt.Fprintf(&sb, "Standard deviation: %s\n", s.Format(s.StdDev))
	return sb.String()
}

// Format prints a statistic with two decimals and the unit, or "n/a"
func (s Summary) Format(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f %s", v, s.Unit)
}
