package render

import (
	"html/template"
	"os"

	"github.com/m-mizutani/goerr/v2"

	"github.com/glucobot/glucobot/internal/dataset"
)

var tableTemplate = template.Must(template.New("raw").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Raw Data for Patient {{.PatientID}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; background-color: #f5f5f5; }
h1 { color: #2c3e50; text-align: center; }
.container { background-color: white; border-radius: 5px; box-shadow: 0 2px 5px rgba(0,0,0,0.1); padding: 20px; max-width: 1200px; margin: 0 auto; overflow-x: auto; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; position: sticky; top: 0; }
tr:nth-child(even) { background-color: #f9f9f9; }
.summary { margin-top: 20px; padding: 15px; background-color: #e3f2fd; border-radius: 5px; }
</style>
</head>
<body>
<h1>Raw Glucose Data for Patient {{.PatientID}}</h1>
<div class="container">
<div class="summary">
<h3>Data Summary:</h3>
<p>Time Range: {{.Summary.First}} to {{.Summary.Last}}</p>
<p>Number of readings: {{.Summary.Count}}</p>
<p>Min: {{.Summary.Format .Summary.Min}}</p>
<p>Max: {{.Summary.Format .Summary.Max}}</p>
<p>Mean: {{.Summary.Format .Summary.Mean}}</p>
<p>Standard deviation: {{.Summary.Format .Summary.StdDev}}</p>
</div>
<table>
<thead><tr><th></th>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range $i, $row := .Rows}}<tr><th>{{$i}}</th>{{range $row}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</div>
</body>
</html>
`))

// TableRenderer writes the raw dataset as a standalone HTML page
type TableRenderer struct {
	dir string
}

// NewTableRenderer creates a renderer writing into dir. An empty dir uses
// the system temp directory.
func NewTableRenderer(dir string) *TableRenderer {
	return &TableRenderer{dir: dir}
}

// Render writes the page and returns its path
func (r *TableRenderer) Render(ds *dataset.Dataset, patientID string) (string, error) {
	if ds == nil {
		return "", goerr.Wrap(dataset.ErrNoData, "nothing to render", goerr.V("patient_id", patientID))
	}

	if r.dir != "" {
		if err := os.MkdirAll(r.dir, 0755); err != nil {
			return "", goerr.Wrap(err, "failed to create output directory", goerr.V("dir", r.dir))
		}
	}
	f, err := os.CreateTemp(r.dir, "glucobot_patient_"+patientID+"_*.html")
	if err != nil {
		return "", goerr.Wrap(err, "failed to create html file")
	}
	defer f.Close()

	data := struct {
		PatientID string
		Summary   dataset.Summary
		Header    []string
		Rows      [][]string
	}{
		PatientID: patientID,
		Summary:   dataset.Summarize(ds),
		Header:    ds.Header,
		Rows:      ds.Rows,
	}
	if err := tableTemplate.Execute(f, data); err != nil {
		return "", goerr.Wrap(err, "failed to render html", goerr.V("path", f.Name()))
	}

	return f.Name(), nil
}
