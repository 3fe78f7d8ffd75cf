package planner

import "github.com/noah-isme/smart-scheduler-api/internal/models"

// BlockedGrid marks 30-minute slots the student refuses to attend, indexed [day][slot].
type BlockedGrid [DaysPerWeek][SlotsPerDay]bool

// Toggle flips one slot and returns its new state.
func (g *BlockedGrid) Toggle(day, slot int) bool {
	g[day][slot] = !g[day][slot]
	return g[day][slot]
}

// Empty reports whether no slot is blocked.
func (g *BlockedGrid) Empty() bool {
	for day := range g {
		for slot := range g[day] {
			if g[day][slot] {
				return false
			}
		}
	}
	return true
}

// Slots lists blocked cells as [day, slot] pairs in row order.
func (g *BlockedGrid) Slots() [][2]int {
	var slots [][2]int
	for day := range g {
		for slot := range g[day] {
			if g[day][slot] {
				slots = append(slots, [2]int{day, slot})
			}
		}
	}
	return slots
}

// ValidCell reports whether day and slot address a grid cell.
func ValidCell(day, slot int) bool {
	return day >= 0 && day < DaysPerWeek && slot >= 0 && slot < SlotsPerDay
}

// Blocks reports whether any slot covered by the meeting is blocked.
func (g *BlockedGrid) Blocks(t models.ScheduledTime) bool {
	if t.Day < 0 || t.Day >= DaysPerWeek {
		return false
	}
	first, last, ok := SlotRange(t)
	if !ok {
		return false
	}
	for slot := first; slot <= last; slot++ {
		if g[t.Day][slot] {
			return true
		}
	}
	return false
}

// FilterSchedules keeps schedules that contain every pinned section and meet in no blocked slot.
func FilterSchedules(schedules []Schedule, pinned []int, grid BlockedGrid) []Schedule {
	kept := make([]Schedule, 0, len(schedules))
	for _, schedule := range schedules {
		if !containsAll(schedule, pinned) || touchesBlocked(schedule, &grid) {
			continue
		}
		kept = append(kept, schedule)
	}
	return kept
}

func containsAll(schedule Schedule, pinned []int) bool {
	for _, number := range pinned {
		if !schedule.Contains(number) {
			return false
		}
	}
	return true
}

func touchesBlocked(schedule Schedule, grid *BlockedGrid) bool {
	for _, section := range schedule {
		for _, t := range section.Times {
			if grid.Blocks(t) {
				return true
			}
		}
	}
	return false
}
