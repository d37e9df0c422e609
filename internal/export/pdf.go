package export

import (
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/m-mizutani/goerr/v2"

	"github.com/glucobot/glucobot/internal/memory"
)

// PDFTitle heading of every conversation log
const PDFTitle = "Glucose Data Assistant - Conversation Log"

// PDFWriter renders a conversation log as a PDF document
type PDFWriter struct{}

// NewPDFWriter creates a PDFWriter
func NewPDFWriter() *PDFWriter {
	return &PDFWriter{}
}

// Write renders turns into path. patientID is printed under the title when set.
func (w *PDFWriter) Write(path string, turns []memory.Turn, patientID string, generated time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, PDFTitle, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 10, "Generated: "+generated.Format("2006-01-02 15:04:05"), "", 1, "C", false, 0, "")
	if patientID != "" {
		pdf.CellFormat(0, 10, tr("Patient ID: "+patientID), "", 1, "C", false, 0, "")
	}
	pdf.Ln(10)

	for _, turn := range turns {
		if turn.Role == memory.RoleUser {
			pdf.SetFont("Arial", "B", 12)
			pdf.SetTextColor(0, 0, 180)
		} else {
			pdf.SetFont("Arial", "", 12)
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.MultiCell(0, 8, tr(fmt.Sprintf("%s: %s", turn.Role.Label(), turn.Content)), "", "", false)
		pdf.Ln(5)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return goerr.Wrap(err, "failed to write pdf", goerr.V("path", path))
	}
	return nil
}

// FileName builds conversation_log[_patient_{id}]_{YYYYMMDD_HHMMSS}.pdf
func FileName(patientID string, at time.Time) string {
	name := "conversation_log"
	if patientID != "" {
		name += "_patient_" + patientID
	}
	return name + "_" + at.Format("20060102_150405") + ".pdf"
}
