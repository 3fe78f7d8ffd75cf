package planner

import (
	"sort"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
)

// Schedule is one conflict-free combination of sections, at most one bundle per course.
type Schedule []models.Section

// SectionNumbers returns the section identities in schedule order.
func (s Schedule) SectionNumbers() []int {
	numbers := make([]int, len(s))
	for i, section := range s {
		numbers[i] = section.SectionNumber
	}
	return numbers
}

// Contains reports whether the schedule includes the section number.
func (s Schedule) Contains(sectionNumber int) bool {
	for _, section := range s {
		if section.SectionNumber == sectionNumber {
			return true
		}
	}
	return false
}

// CreditRange sums credit hours, counting each course once by its highest-credit section.
func (s Schedule) CreditRange() (minCredits, maxCredits int) {
	type credits struct{ min, max int }
	perCourse := make(map[string]credits)
	for _, section := range s {
		c := perCourse[section.ClassID]
		if section.MinCredits > c.min {
			c.min = section.MinCredits
		}
		if section.MaxCredits > c.max {
			c.max = section.MaxCredits
		}
		perCourse[section.ClassID] = c
	}
	for _, c := range perCourse {
		minCredits += c.min
		maxCredits += c.max
	}
	return minCredits, maxCredits
}

// Unscheduled lists sections that have no weekly meeting, such as online or
// by-appointment offerings.
func (s Schedule) Unscheduled() []models.Section {
	var out []models.Section
	for _, section := range s {
		if !hasMeeting(section) {
			out = append(out, section)
		}
	}
	return out
}

// Meetings lists sections with at least one weekly meeting, ordered by first meeting.
func (s Schedule) Meetings() []models.Section {
	var out []models.Section
	for _, section := range s {
		if hasMeeting(section) {
			out = append(out, section)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := firstMeeting(out[i]), firstMeeting(out[j])
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.StartTime < b.StartTime
	})
	return out
}

func hasMeeting(section models.Section) bool {
	if section.Location == models.LocationByAppointment || section.Location == models.LocationOnline {
		return false
	}
	for _, t := range section.Times {
		if t.Scheduled() {
			return true
		}
	}
	return false
}

func firstMeeting(section models.Section) models.ScheduledTime {
	first := models.ScheduledTime{Day: DaysPerWeek}
	for _, t := range section.Times {
		if !t.Scheduled() {
			continue
		}
		if t.Day < first.Day || (t.Day == first.Day && t.StartTime < first.StartTime) {
			first = t
		}
	}
	return first
}

// CourseCredits sums the credit range of the selected courses.
func CourseCredits(courses []models.Course) (minCredits, maxCredits int) {
	for _, course := range courses {
		minCredits += course.MinCredits
		maxCredits += course.MaxCredits
	}
	return minCredits, maxCredits
}

// FromSectionNumbers rebuilds a schedule from section identities using the courses.
// ok is false when a number no longer exists in the catalog.
func FromSectionNumbers(numbers []int, courses []models.Course) (Schedule, bool) {
	index := make(map[int]models.Section)
	for _, course := range courses {
		for _, sections := range course.Sections {
			for _, section := range sections {
				if section.ClassID == "" {
					section.ClassID = course.ID
				}
				index[section.SectionNumber] = section
			}
		}
	}
	schedule := make(Schedule, 0, len(numbers))
	for _, number := range numbers {
		section, ok := index[number]
		if !ok {
			return nil, false
		}
		schedule = append(schedule, section)
	}
	return schedule, true
}
