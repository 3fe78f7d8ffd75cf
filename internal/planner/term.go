package planner

import (
	"fmt"
	"strings"
	"time"
)

// Season is an academic term within a calendar year.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
)

var seasonOffsets = map[Season]int{
	SeasonSpring: 2,
	SeasonSummer: 6,
	SeasonFall:   9,
}

// Term identifies an academic term. Its catalog code is 4000 + (year-2000)*10 + season offset.
type Term struct {
	Year   int    `json:"year"`
	Season Season `json:"season"`
}

// Code returns the catalog term code, e.g. 4262 for spring 2026.
func (t Term) Code() int {
	return 4000 + (t.Year-2000)*10 + seasonOffsets[t.Season]
}

// Label renders the term for display, e.g. "Spring 2026".
func (t Term) Label() string {
	season := string(t.Season)
	if season == "" {
		return fmt.Sprintf("%d", t.Year)
	}
	return strings.ToUpper(season[:1]) + season[1:] + fmt.Sprintf(" %d", t.Year)
}

// Next returns the following term.
func (t Term) Next() Term {
	switch t.Season {
	case SeasonSpring:
		return Term{Year: t.Year, Season: SeasonSummer}
	case SeasonSummer:
		return Term{Year: t.Year, Season: SeasonFall}
	default:
		return Term{Year: t.Year + 1, Season: SeasonSpring}
	}
}

// Previous returns the preceding term.
func (t Term) Previous() Term {
	switch t.Season {
	case SeasonFall:
		return Term{Year: t.Year, Season: SeasonSummer}
	case SeasonSummer:
		return Term{Year: t.Year, Season: SeasonSpring}
	default:
		return Term{Year: t.Year - 1, Season: SeasonFall}
	}
}

// ParseTermCode decodes a catalog term code.
func ParseTermCode(code int) (Term, error) {
	offset := code - 4000
	if offset < 0 {
		return Term{}, fmt.Errorf("invalid term code %d", code)
	}
	year := 2000 + offset/10
	for season, digit := range seasonOffsets {
		if offset%10 == digit {
			return Term{Year: year, Season: season}, nil
		}
	}
	return Term{}, fmt.Errorf("invalid term code %d", code)
}

// CurrentTerm returns the term in session on the given date.
// January through May is spring, June and July summer, the rest fall.
func CurrentTerm(now time.Time) Term {
	switch month := now.Month(); {
	case month <= time.May:
		return Term{Year: now.Year(), Season: SeasonSpring}
	case month <= time.July:
		return Term{Year: now.Year(), Season: SeasonSummer}
	default:
		return Term{Year: now.Year(), Season: SeasonFall}
	}
}

// NextTerm returns the upcoming enrollment term on the given date.
func NextTerm(now time.Time) Term {
	return CurrentTerm(now).Next()
}

// DisplayTerms lists the upcoming term followed by the three before it, newest first.
func DisplayTerms(now time.Time) []Term {
	terms := make([]Term, 0, 4)
	term := NextTerm(now)
	for i := 0; i < 4; i++ {
		terms = append(terms, term)
		term = term.Previous()
	}
	return terms
}

// termOpening is the earliest calendar day classes may start for each season.
var termOpening = map[Season]struct {
	month time.Month
	day   int
}{
	SeasonSpring: {time.January, 10},
	SeasonSummer: {time.June, 1},
	SeasonFall:   {time.August, 20},
}

// StartDate estimates the first teaching day: the first Monday on or after the
// season's opening date.
func (t Term) StartDate(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	opening := termOpening[t.Season]
	start := time.Date(t.Year, opening.month, opening.day, 0, 0, 0, 0, loc)
	offset := (int(time.Monday) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, offset)
}
