// Package ingest reads catalog files produced outside the API, in YAML or CSV form,
// and turns them into course records ready for import or offline generation.
package ingest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
	"github.com/noah-isme/smart-scheduler-api/internal/planner"
)

// Catalog is the decoded content of one catalog file.
type Catalog struct {
	Term    int
	Courses []models.Course
}

// Course returns the course with the given id.
func (c *Catalog) Course(id string) (models.Course, bool) {
	for _, course := range c.Courses {
		if course.ID == id {
			return course, true
		}
	}
	return models.Course{}, false
}

var dayNames = map[string]int{
	"sun": 0, "sunday": 0, "u": 0,
	"mon": 1, "monday": 1, "m": 1,
	"tue": 2, "tuesday": 2, "t": 2,
	"wed": 3, "wednesday": 3, "w": 3,
	"thu": 4, "thursday": 4, "r": 4,
	"fri": 5, "friday": 5, "f": 5,
	"sat": 6, "saturday": 6, "s": 6,
}

// ParseDay accepts a weekday name, a common abbreviation or a number 0-6.
func ParseDay(value string) (int, error) {
	raw := strings.ToLower(strings.TrimSpace(value))
	if day, ok := dayNames[raw]; ok {
		return day, nil
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n < planner.DaysPerWeek {
		return n, nil
	}
	return 0, fmt.Errorf("invalid day %q", value)
}

func parseMeeting(day, start, end string) (models.ScheduledTime, error) {
	d, err := ParseDay(day)
	if err != nil {
		return models.ScheduledTime{}, err
	}
	startTick, err := planner.ParseClock(start)
	if err != nil {
		return models.ScheduledTime{}, err
	}
	endTick, err := planner.ParseClock(end)
	if err != nil {
		return models.ScheduledTime{}, err
	}
	if endTick <= startTick {
		return models.ScheduledTime{}, fmt.Errorf("meeting ends before it starts (%s-%s)", start, end)
	}
	return models.ScheduledTime{Day: d, StartTime: startTick, EndTime: endTick}, nil
}

// courseBuilder accumulates sections in file order and derives course credit bounds.
type courseBuilder struct {
	order   []string
	courses map[string]*models.Course
	owners  map[int]string
	index   map[int]int
}

func newCourseBuilder() *courseBuilder {
	return &courseBuilder{
		courses: make(map[string]*models.Course),
		owners:  make(map[int]string),
		index:   make(map[int]int),
	}
}

func (b *courseBuilder) course(id, name, description string) *models.Course {
	course, ok := b.courses[id]
	if !ok {
		course = &models.Course{ID: id, Name: name, Description: description, Sections: map[string][]models.Section{}}
		b.courses[id] = course
		b.order = append(b.order, id)
	}
	if course.Name == "" {
		course.Name = name
	}
	if course.Description == "" {
		course.Description = description
	}
	return course
}

// addSection stores a section, merging meetings when the number was seen before for the same course.
func (b *courseBuilder) addSection(course *models.Course, section models.Section) error {
	if owner, ok := b.owners[section.SectionNumber]; ok {
		if owner != course.ID {
			return fmt.Errorf("section %d listed under %s and %s", section.SectionNumber, owner, course.ID)
		}
		list := course.Sections[section.Type]
		idx := b.index[section.SectionNumber]
		if idx >= len(list) || list[idx].SectionNumber != section.SectionNumber {
			return fmt.Errorf("section %d listed with more than one type", section.SectionNumber)
		}
		list[idx].Times = append(list[idx].Times, section.Times...)
		return nil
	}
	section.ClassID = course.ID
	b.owners[section.SectionNumber] = course.ID
	b.index[section.SectionNumber] = len(course.Sections[section.Type])
	course.Sections[section.Type] = append(course.Sections[section.Type], section)
	return nil
}

func (b *courseBuilder) build(term int) []models.Course {
	out := make([]models.Course, 0, len(b.order))
	for _, id := range b.order {
		course := *b.courses[id]
		course.Term = term
		derive := course.MinCredits == 0 && course.MaxCredits == 0
		first := true
		for _, code := range sortedKeys(course.Sections) {
			list := course.Sections[code]
			for i := range list {
				list[i].Term = term
				sortMeetings(list[i].Times)
				if !derive {
					continue
				}
				if first {
					course.MinCredits, course.MaxCredits = list[i].MinCredits, list[i].MaxCredits
					first = false
					continue
				}
				course.MinCredits = min(course.MinCredits, list[i].MinCredits)
				course.MaxCredits = max(course.MaxCredits, list[i].MaxCredits)
			}
		}
		out = append(out, course)
	}
	return out
}

func sortMeetings(times models.MeetingTimes) {
	sort.SliceStable(times, func(i, j int) bool {
		if times[i].Day != times[j].Day {
			return times[i].Day < times[j].Day
		}
		return times[i].StartTime < times[j].StartTime
	})
}

func sortedKeys(sections map[string][]models.Section) []string {
	keys := make([]string, 0, len(sections))
	for key := range sections {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return string(models.SectionTypeLecture)
	}
	return code
}
