// Package planner enumerates and filters conflict-free class schedules.
package planner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
)

const (
	// TicksPerHour is the number of 5-minute ticks in an hour.
	TicksPerHour = 12
	// TicksPerDay is the number of 5-minute ticks in a day.
	TicksPerDay = 24 * TicksPerHour
	// TicksPerSlot is the number of ticks covered by one blocked-grid slot.
	TicksPerSlot = 6
	// DaysPerWeek is the number of grid rows.
	DaysPerWeek = 7
	// SlotsPerDay is the number of 30-minute slots in a grid row.
	SlotsPerDay = TicksPerDay / TicksPerSlot
)

// TimesOverlap reports whether two meetings share a day and their half-open intervals intersect.
// Meetings without a real interval never overlap anything.
func TimesOverlap(a, b models.ScheduledTime) bool {
	if a.Day != b.Day || !a.Scheduled() || !b.Scheduled() {
		return false
	}
	return !(a.EndTime <= b.StartTime || b.EndTime <= a.StartTime)
}

// SectionsConflict reports whether any meeting of a overlaps any meeting of b.
func SectionsConflict(a, b models.Section) bool {
	for _, ta := range a.Times {
		for _, tb := range b.Times {
			if TimesOverlap(ta, tb) {
				return true
			}
		}
	}
	return false
}

// IsConflictFree checks every pair of sections in the schedule.
func IsConflictFree(schedule Schedule) bool {
	for i := 0; i < len(schedule); i++ {
		for j := i + 1; j < len(schedule); j++ {
			if SectionsConflict(schedule[i], schedule[j]) {
				return false
			}
		}
	}
	return true
}

// StartSlot converts a start tick to the grid slot containing it.
func StartSlot(tick int) int {
	return tick / TicksPerSlot
}

// EndSlot converts an exclusive end tick to the exclusive end slot.
func EndSlot(tick int) int {
	return (tick + TicksPerSlot - 1) / TicksPerSlot
}

// SlotRange returns the inclusive slot range covered by a meeting, clamped to the grid.
// ok is false when the meeting covers no slot.
func SlotRange(t models.ScheduledTime) (first, last int, ok bool) {
	if !t.Scheduled() {
		return 0, 0, false
	}
	first = StartSlot(t.StartTime)
	last = EndSlot(t.EndTime) - 1
	if first < 0 {
		first = 0
	}
	if last > SlotsPerDay-1 {
		last = SlotsPerDay - 1
	}
	if first > last {
		return 0, 0, false
	}
	return first, last, true
}

// ParseClock converts "9:30 AM", "09:30pm" or "21:30" into ticks from midnight.
// Minutes are truncated to the 5-minute grid.
func ParseClock(value string) (int, error) {
	raw := strings.ToUpper(strings.TrimSpace(value))
	if raw == "" {
		return 0, fmt.Errorf("empty clock value")
	}

	meridiem := ""
	switch {
	case strings.HasSuffix(raw, "AM"):
		meridiem = "AM"
	case strings.HasSuffix(raw, "PM"):
		meridiem = "PM"
	}
	raw = strings.TrimSpace(strings.TrimSuffix(raw, meridiem))

	hourPart, minutePart, found := strings.Cut(raw, ":")
	if !found {
		minutePart = "0"
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}

	switch meridiem {
	case "AM", "PM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("invalid hour in %q", value)
		}
		hour %= 12
		if meridiem == "PM" {
			hour += 12
		}
	default:
		if hour < 0 || hour > 24 || (hour == 24 && minute != 0) {
			return 0, fmt.Errorf("invalid hour in %q", value)
		}
	}
	return hour*TicksPerHour + minute/5, nil
}

// FormatClock renders a tick as a 12-hour clock string such as "9:05 AM".
func FormatClock(tick int) string {
	minutes := (tick % TicksPerDay) * 5
	if minutes < 0 {
		minutes += TicksPerDay * 5
	}
	hour := minutes / 60
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
