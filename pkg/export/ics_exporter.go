package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

const defaultTermWeeks = 16

// ICSExporter renders each weekly meeting as a recurring calendar event.
type ICSExporter struct {
	productID string
}

// NewICSExporter constructs an iCalendar exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{productID: "-//smart-scheduler//schedule export//EN"}
}

// ContentType implements Renderer.
func (e *ICSExporter) ContentType() string { return "text/calendar" }

// Extension implements Renderer.
func (e *ICSExporter) Extension() string { return "ics" }

// Render builds a VCALENDAR with one weekly VEVENT per meeting, starting on the first
// matching weekday on or after the term start.
func (e *ICSExporter) Render(doc Document) ([]byte, error) {
	if doc.TermStart.IsZero() {
		return nil, fmt.Errorf("ics export requires a term start date")
	}
	loc := doc.Location
	if loc == nil {
		loc = time.UTC
	}
	weeks := doc.Weeks
	if weeks <= 0 {
		weeks = defaultTermWeeks
	}
	stamp := doc.Generated
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productID)
	cal.SetXWRCalName(doc.Title)

	termStart := time.Date(doc.TermStart.Year(), doc.TermStart.Month(), doc.TermStart.Day(), 0, 0, 0, 0, loc)
	for _, entry := range doc.Meetings() {
		offset := (entry.Day - int(termStart.Weekday()) + 7) % 7
		day := termStart.AddDate(0, 0, offset)
		start := day.Add(time.Duration(entry.Start*5) * time.Minute)
		end := day.Add(time.Duration(entry.End*5) * time.Minute)

		event := cal.AddEvent(fmt.Sprintf("%d-%d-%d@smart-scheduler", entry.SectionNumber, entry.Day, entry.Start))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(fmt.Sprintf("%s %s", entry.CourseID, entry.Type))
		event.SetDescription(fmt.Sprintf("%s\nSection %d\n%s", entry.CourseName, entry.SectionNumber, entry.Instructor))
		if entry.Location != "" {
			event.SetLocation(entry.Location)
		}
		event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))
	}

	return []byte(cal.Serialize()), nil
}
