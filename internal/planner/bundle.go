package planner

import (
	"sort"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
)

// Bundle is the set of sections of one course that must be taken together.
type Bundle []models.Section

// dependentTypes are the pools paired with a lecture, in pairing order.
var dependentTypes = []models.SectionType{
	models.SectionTypeLab,
	models.SectionTypeDiscussion,
	models.SectionTypeActivity,
}

// sortedCodes returns the course's section codes in a stable order.
func sortedCodes(course models.Course) []string {
	codes := make([]string, 0, len(course.Sections))
	for code := range course.Sections {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// openSections returns the open sections filed under code, owned by the course.
func openSections(course models.Course, code string) []models.Section {
	var open []models.Section
	for _, section := range course.Sections[code] {
		if !section.Open() {
			continue
		}
		if section.ClassID == "" {
			section.ClassID = course.ID
		}
		open = append(open, section)
	}
	return open
}

// openPools groups the open sections of a course by normalised type.
func openPools(course models.Course) map[models.SectionType][]models.Section {
	pools := make(map[models.SectionType][]models.Section)
	for _, code := range sortedCodes(course) {
		kind := models.NormalizeSectionType(code)
		pools[kind] = append(pools[kind], openSections(course, code)...)
	}
	return pools
}

// BuildCourseSectionBundles lists every minimal section set that satisfies the course.
//
// With lectures on offer, each bundle is one lecture plus one section from every non-empty
// lab, discussion and activity pool. Without lectures, two or more dependent pools are
// paired the same way. Otherwise every open section stands alone.
func BuildCourseSectionBundles(course models.Course) []Bundle {
	pools := openPools(course)

	if lectures := pools[models.SectionTypeLecture]; len(lectures) > 0 {
		required := [][]models.Section{lectures}
		for _, kind := range dependentTypes {
			if len(pools[kind]) > 0 {
				required = append(required, pools[kind])
			}
		}
		return crossPools(required)
	}

	var dependents [][]models.Section
	for _, kind := range dependentTypes {
		if len(pools[kind]) > 0 {
			dependents = append(dependents, pools[kind])
		}
	}
	if len(dependents) >= 2 {
		return crossPools(dependents)
	}

	var bundles []Bundle
	for _, code := range sortedCodes(course) {
		for _, section := range openSections(course, code) {
			bundles = append(bundles, Bundle{section})
		}
	}
	return bundles
}

// crossPools returns the cartesian product of the pools, one section from each.
func crossPools(pools [][]models.Section) []Bundle {
	bundles := []Bundle{{}}
	for _, pool := range pools {
		next := make([]Bundle, 0, len(bundles)*len(pool))
		for _, partial := range bundles {
			for _, section := range pool {
				bundle := make(Bundle, len(partial), len(partial)+1)
				copy(bundle, partial)
				next = append(next, append(bundle, section))
			}
		}
		bundles = next
	}
	return bundles
}
