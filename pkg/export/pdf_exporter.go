package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfSlotTicks  = 6
	pdfTimeColumn = 22.0
	pdfRowHeight  = 6.0
)

// PDFExporter renders a landscape weekly grid followed by unscheduled sections.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType implements Renderer.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension implements Renderer.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render draws the schedule document.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, doc.Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s - %s credit hours", doc.TermLabel, doc.CreditLabel()), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	meetings := doc.Meetings()
	if len(meetings) > 0 {
		drawGrid(pdf, meetings)
	}

	if unscheduled := doc.Unscheduled(); len(unscheduled) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, "Unscheduled sections", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, entry := range unscheduled {
			pdf.CellFormat(0, 6, fmt.Sprintf("%s  %s  %s", entry.Label(), entry.Instructor, entry.Location), "", 1, "", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawGrid(pdf *gofpdf.Fpdf, meetings []Entry) {
	first, last := meetings[0].Start/pdfSlotTicks, 0
	for _, m := range meetings {
		if s := m.Start / pdfSlotTicks; s < first {
			first = s
		}
		if s := (m.End + pdfSlotTicks - 1) / pdfSlotTicks; s > last {
			last = s
		}
	}

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	dayWidth := (pageWidth - left - right - pdfTimeColumn) / float64(len(weekdays))

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(pdfTimeColumn, pdfRowHeight, "", "1", 0, "C", false, 0, "")
	for _, day := range weekdays {
		pdf.CellFormat(dayWidth, pdfRowHeight, day, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	for slot := first; slot < last; slot++ {
		pdf.CellFormat(pdfTimeColumn, pdfRowHeight, clock(slot*pdfSlotTicks), "1", 0, "R", false, 0, "")
		for day := range weekdays {
			entry, ok := meetingAt(meetings, day, slot)
			if !ok {
				pdf.CellFormat(dayWidth, pdfRowHeight, "", "1", 0, "", false, 0, "")
				continue
			}
			r, g, b := parseHexColor(entry.Color)
			pdf.SetFillColor(r, g, b)
			text := ""
			if entry.Start/pdfSlotTicks == slot {
				text = entry.Label()
			}
			pdf.CellFormat(dayWidth, pdfRowHeight, text, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}
}

func meetingAt(meetings []Entry, day, slot int) (Entry, bool) {
	for _, m := range meetings {
		if m.Day != day {
			continue
		}
		if m.Start/pdfSlotTicks <= slot && slot < (m.End+pdfSlotTicks-1)/pdfSlotTicks {
			return m, true
		}
	}
	return Entry{}, false
}
