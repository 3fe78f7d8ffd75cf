package export

import (
	"fmt"

	"github.com/gocarina/gocsv"
)

type csvRow struct {
	CourseID      string `csv:"course_id"`
	CourseName    string `csv:"course_name"`
	SectionNumber int    `csv:"section_number"`
	Type          string `csv:"type"`
	Instructor    string `csv:"instructor"`
	Location      string `csv:"location"`
	Day           string `csv:"day"`
	Start         string `csv:"start"`
	End           string `csv:"end"`
}

// CSVExporter renders one row per weekly meeting plus one per unscheduled section.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// ContentType implements Renderer.
func (e *CSVExporter) ContentType() string { return "text/csv" }

// Extension implements Renderer.
func (e *CSVExporter) Extension() string { return "csv" }

// Render produces CSV encoded bytes for the document.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	rows := make([]*csvRow, 0, len(doc.Entries))
	for _, entry := range append(doc.Meetings(), doc.Unscheduled()...) {
		row := &csvRow{
			CourseID:      entry.CourseID,
			CourseName:    entry.CourseName,
			SectionNumber: entry.SectionNumber,
			Type:          entry.Type,
			Instructor:    entry.Instructor,
			Location:      entry.Location,
		}
		if !entry.Unscheduled {
			row.Day = entry.DayName()
			row.Start = clock(entry.Start)
			row.End = clock(entry.End)
		}
		rows = append(rows, row)
	}
	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return data, nil
}
