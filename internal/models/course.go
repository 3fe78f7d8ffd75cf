package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SectionType is the normalised kind of a course section.
type SectionType string

const (
	SectionTypeLecture    SectionType = "LEC"
	SectionTypeLab        SectionType = "LAB"
	SectionTypeDiscussion SectionType = "DIS"
	SectionTypeActivity   SectionType = "ACT"
	SectionTypeOther      SectionType = "OTHER"
)

// sectionTypeCodes maps raw catalog codes onto their normalised type.
var sectionTypeCodes = map[string]SectionType{
	"LEC": SectionTypeLecture,
	"LAB": SectionTypeLab,
	"LBN": SectionTypeLab,
	"DIS": SectionTypeDiscussion,
	"DSO": SectionTypeDiscussion,
	"ACT": SectionTypeActivity,
}

// NormalizeSectionType resolves a raw catalog code. Unknown codes map to SectionTypeOther.
func NormalizeSectionType(code string) SectionType {
	if t, ok := sectionTypeCodes[code]; ok {
		return t
	}
	return SectionTypeOther
}

// Location placeholders used by the catalog for sections without a weekly meeting.
const (
	LocationByAppointment = "KULC APPT"
	LocationOnline        = "ONLNE CRSE"
)

// ScheduledTime is one weekly meeting. Day is 0 (Sunday) to 6 (Saturday); times are
// 5-minute ticks from midnight.
type ScheduledTime struct {
	Day       int `json:"day" validate:"min=0,max=6"`
	StartTime int `json:"startTime" validate:"min=0,max=288"`
	EndTime   int `json:"endTime" validate:"min=0,max=288"`
}

// Scheduled reports whether the meeting has a real time interval.
func (t ScheduledTime) Scheduled() bool {
	return t.StartTime < t.EndTime
}

// MeetingTimes is persisted as a JSONB array.
type MeetingTimes []ScheduledTime

// Value marshals the meeting list for persistence.
func (m MeetingTimes) Value() (driver.Value, error) {
	if m == nil {
		m = MeetingTimes{}
	}
	data, err := json.Marshal([]ScheduledTime(m))
	if err != nil {
		return nil, fmt.Errorf("marshal meeting times: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB array into the meeting list.
func (m *MeetingTimes) Scan(value interface{}) error {
	if value == nil {
		*m = MeetingTimes{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for MeetingTimes", value)
	}
	if len(data) == 0 {
		*m = MeetingTimes{}
		return nil
	}
	var times []ScheduledTime
	if err := json.Unmarshal(data, &times); err != nil {
		return fmt.Errorf("unmarshal meeting times: %w", err)
	}
	*m = times
	return nil
}

// Section is one offering of a course. SectionNumber is globally unique within a term.
type Section struct {
	SectionNumber int          `db:"section_number" json:"sectionNumber" validate:"required,min=1"`
	Term          int          `db:"term" json:"term,omitempty"`
	ClassID       string       `db:"course_id" json:"classId"`
	Type          string       `db:"type" json:"type" validate:"omitempty,max=8"`
	Instructor    string       `db:"instructor" json:"instructor"`
	MinCredits    int          `db:"min_credits" json:"minCredits" validate:"min=0"`
	MaxCredits    int          `db:"max_credits" json:"maxCredits" validate:"gtefield=MinCredits"`
	Topic         string       `db:"topic" json:"topic"`
	Location      string       `db:"location" json:"location"`
	OpenSeats     int          `db:"open_seats" json:"openSeats"`
	Times         MeetingTimes `db:"times" json:"times" validate:"dive"`
}

// Open reports whether the section still has seats.
func (s Section) Open() bool {
	return s.OpenSeats > 0
}

// Kind returns the normalised section type.
func (s Section) Kind() SectionType {
	return NormalizeSectionType(s.Type)
}

// Course is a catalog entry with its sections grouped by raw type code.
type Course struct {
	ID          string               `db:"id" json:"id" validate:"required"`
	Term        int                  `db:"term" json:"term"`
	Name        string               `db:"name" json:"name" validate:"required"`
	Description string               `db:"description" json:"description"`
	MinCredits  int                  `db:"min_credits" json:"minCredits" validate:"min=0"`
	MaxCredits  int                  `db:"max_credits" json:"maxCredits" validate:"gtefield=MinCredits"`
	Revision    int64                `db:"revision" json:"revision"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updatedAt"`
	Sections    map[string][]Section `db:"-" json:"sections" validate:"dive,dive"`
	Color       string               `db:"-" json:"color,omitempty"`
}

// SectionCount returns the number of sections across every type.
func (c Course) SectionCount() int {
	total := 0
	for _, list := range c.Sections {
		total += len(list)
	}
	return total
}

// CourseFilter describes catalog search parameters.
type CourseFilter struct {
	Term     int
	Query    string
	Page     int
	PageSize int
}
