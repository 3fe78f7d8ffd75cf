package ingest

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
)

type yamlCatalog struct {
	Term    int          `yaml:"term"`
	Courses []yamlCourse `yaml:"courses"`
}

type yamlCourse struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Credits     int           `yaml:"credits"`
	MinCredits  int           `yaml:"minCredits"`
	MaxCredits  int           `yaml:"maxCredits"`
	Sections    []yamlSection `yaml:"sections"`
}

type yamlSection struct {
	Number     int           `yaml:"number"`
	Type       string        `yaml:"type"`
	Instructor string        `yaml:"instructor"`
	Credits    int           `yaml:"credits"`
	MinCredits int           `yaml:"minCredits"`
	MaxCredits int           `yaml:"maxCredits"`
	Topic      string        `yaml:"topic"`
	Location   string        `yaml:"location"`
	OpenSeats  int           `yaml:"openSeats"`
	Meetings   []yamlMeeting `yaml:"meetings"`
}

type yamlMeeting struct {
	Day   string `yaml:"day"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

func credits(single, lo, hi int) (int, int) {
	if single > 0 && lo == 0 && hi == 0 {
		return single, single
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// LoadYAMLFile reads a YAML catalog from disk.
func LoadYAMLFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// LoadYAML decodes a catalog document with a term code and a list of courses.
// Meeting times are written as clock strings, e.g. {day: Mon, start: "9:30 AM", end: "10:45 AM"}.
func LoadYAML(r io.Reader) (*Catalog, error) {
	var doc yamlCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}

	builder := newCourseBuilder()
	for _, entry := range doc.Courses {
		if entry.ID == "" {
			return nil, fmt.Errorf("course without id")
		}
		course := builder.course(entry.ID, entry.Name, entry.Description)
		course.MinCredits, course.MaxCredits = credits(entry.Credits, entry.MinCredits, entry.MaxCredits)

		for _, s := range entry.Sections {
			section := models.Section{
				SectionNumber: s.Number,
				Type:          normalizeCode(s.Type),
				Instructor:    s.Instructor,
				Topic:         s.Topic,
				Location:      s.Location,
				OpenSeats:     s.OpenSeats,
				Times:         models.MeetingTimes{},
			}
			section.MinCredits, section.MaxCredits = credits(s.Credits, s.MinCredits, s.MaxCredits)
			for _, m := range s.Meetings {
				meeting, err := parseMeeting(m.Day, m.Start, m.End)
				if err != nil {
					return nil, fmt.Errorf("%s section %d: %w", entry.ID, s.Number, err)
				}
				section.Times = append(section.Times, meeting)
			}
			if err := builder.addSection(course, section); err != nil {
				return nil, err
			}
		}
	}

	return &Catalog{Term: doc.Term, Courses: builder.build(doc.Term)}, nil
}
