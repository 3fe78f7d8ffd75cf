package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
)

// CSVRow is one line of a catalog CSV export. A section meeting on several days
// appears once per meeting; rows without a day describe an unscheduled section.
type CSVRow struct {
	CourseID      string `csv:"course_id"`
	CourseName    string `csv:"course_name"`
	Description   string `csv:"description,omitempty"`
	SectionNumber int    `csv:"section_number"`
	Type          string `csv:"type"`
	Instructor    string `csv:"instructor,omitempty"`
	MinCredits    int    `csv:"min_credits"`
	MaxCredits    int    `csv:"max_credits"`
	Topic         string `csv:"topic,omitempty"`
	Location      string `csv:"location,omitempty"`
	OpenSeats     int    `csv:"open_seats"`
	Day           string `csv:"day,omitempty"`
	Start         string `csv:"start,omitempty"`
	End           string `csv:"end,omitempty"`
}

// LoadCSVFile reads a catalog CSV from disk.
func LoadCSVFile(path string, term int, delim rune) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCSV(f, term, delim)
}

// LoadCSV parses catalog rows for the given term. delim defaults to a comma.
func LoadCSV(r io.Reader, term int, delim rune) (*Catalog, error) {
	reader := csv.NewReader(r)
	if delim != 0 {
		reader.Comma = delim
	}
	reader.TrimLeadingSpace = true

	rows := []*CSVRow{}
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("decode catalog csv: %w", err)
	}

	builder := newCourseBuilder()
	for i, row := range rows {
		line := i + 2
		if row.CourseID == "" || row.SectionNumber <= 0 {
			return nil, fmt.Errorf("line %d: course_id and section_number are required", line)
		}
		course := builder.course(strings.TrimSpace(row.CourseID), row.CourseName, row.Description)
		section := models.Section{
			SectionNumber: row.SectionNumber,
			Type:          normalizeCode(row.Type),
			Instructor:    row.Instructor,
			MinCredits:    row.MinCredits,
			MaxCredits:    row.MaxCredits,
			Topic:         row.Topic,
			Location:      row.Location,
			OpenSeats:     row.OpenSeats,
			Times:         models.MeetingTimes{},
		}
		if section.MaxCredits < section.MinCredits {
			section.MaxCredits = section.MinCredits
		}
		if strings.TrimSpace(row.Day) != "" {
			meeting, err := parseMeeting(row.Day, row.Start, row.End)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			section.Times = append(section.Times, meeting)
		}
		if err := builder.addSection(course, section); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	return &Catalog{Term: term, Courses: builder.build(term)}, nil
}
