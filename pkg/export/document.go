package export

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Format names an export file type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatICS  Format = "ics"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Entry is one weekly meeting, or one unscheduled section when Unscheduled is set.
type Entry struct {
	CourseID      string
	CourseName    string
	SectionNumber int
	Type          string
	Instructor    string
	Location      string
	Color         string
	Day           int
	Start         int
	End           int
	Unscheduled   bool
}

// Document is a rendered-agnostic view of one weekly schedule.
type Document struct {
	Title      string
	TermLabel  string
	TermStart  time.Time
	Weeks      int
	Location   *time.Location
	MinCredits int
	MaxCredits int
	Entries    []Entry
	Generated  time.Time
}

// Renderer turns a schedule document into file bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// Meetings returns the scheduled entries ordered by day then start.
func (d Document) Meetings() []Entry {
	out := make([]Entry, 0, len(d.Entries))
	for _, e := range d.Entries {
		if !e.Unscheduled {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out
}

// Unscheduled returns entries without a weekly meeting.
func (d Document) Unscheduled() []Entry {
	var out []Entry
	for _, e := range d.Entries {
		if e.Unscheduled {
			out = append(out, e)
		}
	}
	return out
}

// CreditLabel renders the credit range, e.g. "12" or "12-15".
func (d Document) CreditLabel() string {
	if d.MinCredits == d.MaxCredits {
		return strconv.Itoa(d.MinCredits)
	}
	return fmt.Sprintf("%d-%d", d.MinCredits, d.MaxCredits)
}

// Label renders the entry as "CS 101 LEC 12345".
func (e Entry) Label() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %d", e.CourseID, e.Type, e.SectionNumber))
}

// DayName returns the English weekday of the entry.
func (e Entry) DayName() string {
	if e.Day < 0 || e.Day >= len(weekdays) {
		return ""
	}
	return weekdays[e.Day]
}

// clock renders a 5-minute tick as a 12-hour time.
func clock(tick int) string {
	minutes := tick * 5
	hour := (minutes / 60) % 24
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minutes%60, suffix)
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.SectionNumber < b.SectionNumber
	})
}

// parseHexColor converts "#RRGGBB" to components, defaulting to light grey.
func parseHexColor(hex string) (r, g, b int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 220, 220, 220
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 220, 220, 220
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}
