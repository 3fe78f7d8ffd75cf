package planner

import (
	"math"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
)

// GenerateCombinations picks one bundle per course in every possible way.
// No courses yields a single empty schedule; a course without bundles yields none.
func GenerateCombinations(perCourse [][]Bundle) []Schedule {
	if len(perCourse) == 0 {
		return []Schedule{{}}
	}
	rest := GenerateCombinations(perCourse[1:])
	combinations := make([]Schedule, 0, len(perCourse[0])*len(rest))
	for _, bundle := range perCourse[0] {
		for _, tail := range rest {
			schedule := make(Schedule, 0, len(bundle)+len(tail))
			schedule = append(schedule, bundle...)
			schedule = append(schedule, tail...)
			combinations = append(combinations, schedule)
		}
	}
	return combinations
}

// CountCombinations returns how many schedules GenerateCombinations would produce,
// saturating at math.MaxInt.
func CountCombinations(perCourse [][]Bundle) int {
	total := 1
	for _, bundles := range perCourse {
		n := len(bundles)
		if n == 0 {
			return 0
		}
		if total > math.MaxInt/n {
			return math.MaxInt
		}
		total *= n
	}
	return total
}

// CourseBundles builds the bundle list of every course in order.
func CourseBundles(courses []models.Course) [][]Bundle {
	perCourse := make([][]Bundle, 0, len(courses))
	for _, course := range courses {
		perCourse = append(perCourse, BuildCourseSectionBundles(course))
	}
	return perCourse
}

// RemoveConflicts keeps the conflict-free schedules in their original order.
func RemoveConflicts(candidates []Schedule) []Schedule {
	kept := make([]Schedule, 0, len(candidates))
	for _, schedule := range candidates {
		if IsConflictFree(schedule) {
			kept = append(kept, schedule)
		}
	}
	return kept
}

// GenerateSchedules returns every conflict-free schedule for the courses.
func GenerateSchedules(courses []models.Course) []Schedule {
	return RemoveConflicts(GenerateCombinations(CourseBundles(courses)))
}
