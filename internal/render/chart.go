package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/glucobot/glucobot/internal/dataset"
)

// Reference range shown on every chart, in mg/dL
const (
	RangeLow  = 70.0
	RangeHigh = 140.0
)

var (
	lineColor  = color.RGBA{R: 0x1E, G: 0x88, B: 0xE5, A: 0xFF}
	rangeColor = color.RGBA{R: 0xFF, G: 0xA5, B: 0x00, A: 0xFF}
	maxColor   = color.RGBA{R: 0xE5, G: 0x39, B: 0x35, A: 0xFF}
	minColor   = color.RGBA{R: 0x1E, G: 0x40, B: 0xAF, A: 0xFF}
)

// ChartRenderer writes glucose-over-time PNG charts
type ChartRenderer struct {
	dir    string
	width  vg.Length
	height vg.Length
}

// NewChartRenderer creates a renderer writing into dir
func NewChartRenderer(dir string) *ChartRenderer {
	return &ChartRenderer{dir: dir, width: 14 * vg.Inch, height: 8 * vg.Inch}
}

// ChartFileName is the artifact name for a patient
func ChartFileName(patientID string) string {
	return fmt.Sprintf("patient_%s_glucose.png", patientID)
}

// Render plots the dataset and returns the written file path
func (r *ChartRenderer) Render(ds *dataset.Dataset, patientID string) (string, error) {
	summary := dataset.Summarize(ds)
	if summary.Valid == 0 {
		return "", goerr.Wrap(dataset.ErrNoData, "no glucose values to plot", goerr.V("patient_id", patientID))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Glucose Level Monitoring for Patient %s", patientID)
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Glucose Level (mg/dL)"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	pts, timed := points(ds)
	if timed {
		p.X.Tick.Marker = plot.TimeTicks{Format: "01-02\n15:04"}
	} else {
		p.X.Label.Text = "Reading"
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", goerr.Wrap(err, "failed to build glucose line")
	}
	line.LineStyle.Color = lineColor
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("Glucose Level", line)

	for _, level := range []float64{RangeLow, RangeHigh} {
		level := level
		ref := plotter.NewFunction(func(float64) float64 { return level })
		ref.Color = rangeColor
		ref.Width = vg.Points(1)
		ref.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
		p.Add(ref)
		if level == RangeLow {
			p.Legend.Add(fmt.Sprintf("Normal Range (%.0f-%.0f mg/dL)", RangeLow, RangeHigh), ref)
		}
	}

	x := func(readingIdx int) float64 {
		return xValue(ds.Readings[readingIdx], readingIdx, timed)
	}
	markers := []struct {
		name  string
		at    int
		value float64
		color color.Color
	}{
		{"Max", summary.MaxAt, summary.Max, maxColor},
		{"Min", summary.MinAt, summary.Min, minColor},
	}
	for _, m := range markers {
		xy := plotter.XYs{{X: x(m.at), Y: m.value}}
		sc, err := plotter.NewScatter(xy)
		if err != nil {
			return "", goerr.Wrap(err, "failed to build marker", goerr.V("marker", m.name))
		}
		sc.GlyphStyle.Color = m.color
		sc.GlyphStyle.Radius = vg.Points(5)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(m.name, sc)

		labels, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    xy,
			Labels: []string{fmt.Sprintf("%s: %.1f", m.name, m.value)},
		})
		if err != nil {
			return "", goerr.Wrap(err, "failed to build marker label", goerr.V("marker", m.name))
		}
		labels.Offset = vg.Point{X: vg.Points(8), Y: vg.Points(8)}
		p.Add(labels)
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", goerr.Wrap(err, "failed to create output directory", goerr.V("dir", r.dir))
	}
	path := filepath.Join(r.dir, ChartFileName(patientID))
	if err := p.Save(r.width, r.height, path); err != nil {
		return "", goerr.Wrap(err, "failed to save chart", goerr.V("path", path))
	}

	return path, nil
}

// points builds the line from valid readings. Timestamps are used for X
// only when every valid reading has one.
func points(ds *dataset.Dataset) (plotter.XYs, bool) {
	timed := true
	for _, rd := range ds.Readings {
		if rd.Valid && !rd.HasTime {
			timed = false
			break
		}
	}

	pts := make(plotter.XYs, 0, len(ds.Readings))
	for i, rd := range ds.Readings {
		if !rd.Valid {
			continue
		}
		pts = append(pts, plotter.XY{X: xValue(rd, i, timed), Y: rd.Glucose})
	}
	return pts, timed
}

func xValue(rd dataset.Reading, idx int, timed bool) float64 {
	if timed {
		return float64(rd.Timestamp.Unix())
	}
	return float64(idx)
}
