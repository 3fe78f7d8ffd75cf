package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDocument() Document {
	return Document{
		Title:      "Fall 2025 schedule",
		TermLabel:  "Fall 2025",
		TermStart:  time.Date(2025, time.August, 25, 0, 0, 0, 0, time.UTC),
		Weeks:      15,
		MinCredits: 7,
		MaxCredits: 7,
		Generated:  time.Date(2025, time.August, 1, 12, 0, 0, 0, time.UTC),
		Entries: []Entry{
			{CourseID: "EECS 581", CourseName: "Software Engineering I", SectionNumber: 101, Type: "LEC", Color: "#FF3B30", Day: 3, Start: 108, End: 118},
			{CourseID: "EECS 581", CourseName: "Software Engineering I", SectionNumber: 101, Type: "LEC", Color: "#FF3B30", Day: 1, Start: 108, End: 118},
			{CourseID: "EECS 581", CourseName: "Software Engineering I", SectionNumber: 102, Type: "LBN", Color: "#FF3B30", Day: 2, Start: 156, End: 180},
			{CourseID: "HIST 101", CourseName: "World History", SectionNumber: 300, Type: "LEC", Location: "ONLNE CRSE", Unscheduled: true},
		},
	}
}

func TestDocumentOrdering(t *testing.T) {
	doc := sampleDocument()
	meetings := doc.Meetings()
	require.Len(t, meetings, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{meetings[0].Day, meetings[1].Day, meetings[2].Day})
	assert.Len(t, doc.Unscheduled(), 1)
	assert.Equal(t, "7", doc.CreditLabel())
	doc.MaxCredits = 9
	assert.Equal(t, "7-9", doc.CreditLabel())
	assert.Equal(t, "EECS 581 LBN 102", meetings[1].Label())
}

func TestCSVExporter(t *testing.T) {
	data, err := NewCSVExporter().Render(sampleDocument())
	require.NoError(t, err)

	var rows []*csvRow
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "Monday", rows[0].Day)
	assert.Equal(t, "9:00 AM", rows[0].Start)
	assert.Equal(t, "9:50 AM", rows[0].End)
	assert.Equal(t, 300, rows[3].SectionNumber)
	assert.Empty(t, rows[3].Day)
}

func TestICSExporter(t *testing.T) {
	data, err := NewICSExporter().Render(sampleDocument())
	require.NoError(t, err)

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)

	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.August, 25, 9, 0, 0, 0, time.UTC), start.UTC())
	assert.Contains(t, string(data), "FREQ=WEEKLY;COUNT=15")

	_, err = NewICSExporter().Render(Document{})
	assert.Error(t, err)
}

func TestXLSXExporter(t *testing.T) {
	data, err := NewXLSXExporter().Render(sampleDocument())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	header, err := f.GetCellValue(xlsxSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "Monday", header)

	first, err := f.GetCellValue(xlsxSheet, "C3")
	require.NoError(t, err)
	assert.Equal(t, "EECS 581 LEC 101", first)

	rows, err := f.GetRows("Sections")
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestPDFExporter(t *testing.T) {
	data, err := NewPDFExporter().Render(sampleDocument())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestRenderersDescribeOutput(t *testing.T) {
	renderers := map[Format]Renderer{
		FormatPDF:  NewPDFExporter(),
		FormatICS:  NewICSExporter(),
		FormatXLSX: NewXLSXExporter(),
		FormatCSV:  NewCSVExporter(),
	}
	for format, r := range renderers {
		assert.Equal(t, string(format), r.Extension())
		assert.NotEmpty(t, r.ContentType())
	}
}
