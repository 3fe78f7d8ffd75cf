package planner

import "math"

// ResolveActiveIndex picks the schedule in next that differs least from previous,
// counting sections of the candidate that previous does not contain.
// It returns -1 and false when next is empty.
func ResolveActiveIndex(next []Schedule, previous Schedule) (int, bool) {
	if len(next) == 0 {
		return -1, false
	}

	known := make(map[int]struct{}, len(previous))
	for _, section := range previous {
		known[section.SectionNumber] = struct{}{}
	}

	// No candidate can miss fewer sections than the first one has beyond previous.
	baseline := len(next[0]) - len(previous)
	if baseline < 0 {
		baseline = 0
	}

	minMisses := math.MaxInt
	minIndex := 0
	for i, candidate := range next {
		misses := 0
		for _, section := range candidate {
			if _, ok := known[section.SectionNumber]; !ok {
				misses++
				if misses >= minMisses {
					break
				}
			}
		}
		if misses == baseline {
			return i, true
		}
		if misses < minMisses {
			minMisses = misses
			minIndex = i
		}
	}
	return minIndex, true
}
