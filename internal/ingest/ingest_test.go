package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
)

const catalogYAML = `
term: 4262
courses:
  - id: CS 101
    name: Intro to Programming
    sections:
      - number: 1
        type: lec
        instructor: Hopper
        credits: 3
        openSeats: 10
        meetings:
          - {day: Tue, start: "9:30 AM", end: "10:45 AM"}
          - {day: Mon, start: "9:30 AM", end: "10:45 AM"}
      - number: 3
        type: LAB
        openSeats: 4
        meetings:
          - {day: W, start: "14:00", end: "15:50"}
  - id: ENG 110
    name: Composition
    credits: 3
    sections:
      - number: 40
        location: ONLNE CRSE
        minCredits: 1
        maxCredits: 3
        openSeats: 5
`

func TestLoadYAML(t *testing.T) {
	catalog, err := LoadYAML(strings.NewReader(catalogYAML))
	require.NoError(t, err)
	assert.Equal(t, 4262, catalog.Term)
	require.Len(t, catalog.Courses, 2)

	cs, ok := catalog.Course("CS 101")
	require.True(t, ok)
	assert.Equal(t, 4262, cs.Term)
	assert.Equal(t, 0, cs.MinCredits)
	assert.Equal(t, 3, cs.MaxCredits)
	require.Len(t, cs.Sections["LEC"], 1)
	lecture := cs.Sections["LEC"][0]
	assert.Equal(t, "CS 101", lecture.ClassID)
	assert.Equal(t, "LEC", lecture.Type)
	assert.Equal(t, 3, lecture.MaxCredits)
	assert.Equal(t, models.MeetingTimes{
		{Day: 1, StartTime: 114, EndTime: 129},
		{Day: 2, StartTime: 114, EndTime: 129},
	}, lecture.Times)
	assert.Equal(t, models.ScheduledTime{Day: 3, StartTime: 168, EndTime: 190}, cs.Sections["LAB"][0].Times[0])

	eng, ok := catalog.Course("ENG 110")
	require.True(t, ok)
	assert.Equal(t, 3, eng.MinCredits)
	online := eng.Sections["LEC"][0]
	assert.Empty(t, online.Times)
	assert.Equal(t, 1, online.MinCredits)
	assert.Equal(t, 3, online.MaxCredits)

	_, ok = catalog.Course("MATH 201")
	assert.False(t, ok)
}

func TestLoadYAMLErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field": "term: 4262\ncourses:\n  - id: A\n    colour: red\n",
		"missing id":    "term: 4262\ncourses:\n  - name: Nameless\n",
		"bad day":       "term: 4262\ncourses:\n  - id: A\n    sections:\n      - number: 1\n        meetings:\n          - {day: Funday, start: '9:00', end: '10:00'}\n",
		"reversed":      "term: 4262\ncourses:\n  - id: A\n    sections:\n      - number: 1\n        meetings:\n          - {day: Mon, start: '11:00', end: '10:00'}\n",
		"shared number": "term: 4262\ncourses:\n  - id: A\n    sections:\n      - number: 1\n  - id: B\n    sections:\n      - number: 1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadYAML(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	data := `course_id,course_name,section_number,type,instructor,min_credits,max_credits,location,open_seats,day,start,end
CS 101,Intro to Programming,1,LEC,Hopper,3,3,SCI 101,10,Mon,9:30 AM,10:45 AM
CS 101,Intro to Programming,1,LEC,Hopper,3,3,SCI 101,10,Wed,9:30 AM,10:45 AM
CS 101,Intro to Programming,3,LBN,,0,0,SCI 120,4,Thursday,2:00 PM,3:50 PM
ENG 110,Composition,40,,,1,3,ONLNE CRSE,5,,,
`
	catalog, err := LoadCSV(strings.NewReader(data), 4269, 0)
	require.NoError(t, err)
	assert.Equal(t, 4269, catalog.Term)
	require.Len(t, catalog.Courses, 2)

	cs := catalog.Courses[0]
	assert.Equal(t, "CS 101", cs.ID)
	require.Len(t, cs.Sections["LEC"], 1)
	assert.Len(t, cs.Sections["LEC"][0].Times, 2)
	assert.Equal(t, 3, cs.Sections["LEC"][0].Times[1].Day)
	lab := cs.Sections["LBN"][0]
	assert.Equal(t, models.SectionTypeLab, lab.Kind())
	assert.Equal(t, models.ScheduledTime{Day: 4, StartTime: 168, EndTime: 190}, lab.Times[0])
	assert.Equal(t, 0, cs.MinCredits)
	assert.Equal(t, 3, cs.MaxCredits)

	eng := catalog.Courses[1]
	assert.Equal(t, "LEC", eng.Sections["LEC"][0].Type)
	assert.Empty(t, eng.Sections["LEC"][0].Times)
	assert.Equal(t, 4269, eng.Sections["LEC"][0].Term)
}

func TestLoadCSVWithDelimiter(t *testing.T) {
	data := "course_id;course_name;section_number;type;min_credits;max_credits;open_seats;day;start;end\nMATH 201;Calculus;10;LEC;4;4;2;1;8:00;8:50\n"
	catalog, err := LoadCSV(strings.NewReader(data), 4262, ';')
	require.NoError(t, err)
	require.Len(t, catalog.Courses, 1)
	assert.Equal(t, models.ScheduledTime{Day: 1, StartTime: 96, EndTime: 106}, catalog.Courses[0].Sections["LEC"][0].Times[0])
}

func TestLoadCSVErrors(t *testing.T) {
	header := "course_id,course_name,section_number,type,min_credits,max_credits,open_seats,day,start,end\n"
	cases := map[string]string{
		"missing section": header + "CS 101,Intro,,LEC,3,3,1,Mon,9:00,10:00\n",
		"bad clock":       header + "CS 101,Intro,1,LEC,3,3,1,Mon,9:75,10:00\n",
		"type change":     header + "CS 101,Intro,1,LEC,3,3,1,Mon,9:00,10:00\nCS 101,Intro,1,LAB,3,3,1,Tue,9:00,10:00\n",
		"other course":    header + "CS 101,Intro,1,LEC,3,3,1,Mon,9:00,10:00\nCS 102,Data,1,LEC,3,3,1,Tue,9:00,10:00\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(data), 4262, 0)
			assert.Error(t, err)
		})
	}
}

func TestParseDay(t *testing.T) {
	for input, want := range map[string]int{"Sun": 0, "monday": 1, "T": 2, "R": 4, "6": 6} {
		got, err := ParseDay(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	_, err := ParseDay("7")
	assert.Error(t, err)
}
