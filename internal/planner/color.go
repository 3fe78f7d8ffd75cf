package planner

// CoursePalette holds the colours assigned to selected courses.
var CoursePalette = []string{
	"#FF3B30", "#FF9500", "#FFCC00", "#34C759", "#30B0FF",
	"#5856D6", "#AF52DE", "#FF2D55", "#00C7BE", "#007AFF",
	"#5AC8FA", "#4CD964", "#FFD60A", "#FF9F0A", "#FF375F",
	"#BF5AF2", "#64D2FF", "#32ADE6", "#E02020", "#34E5EB",
	"#1ABC9C", "#2ECC71", "#3498DB", "#9B59B6", "#E67E22",
	"#E74C3C", "#F1C40F", "#16A085", "#2980B9", "#8E44AD",
}

// AssignColor returns the first palette colour not already used.
// Once the palette is exhausted colours are reused in order.
func AssignColor(used []string) string {
	taken := make(map[string]struct{}, len(used))
	for _, color := range used {
		taken[color] = struct{}{}
	}
	for _, color := range CoursePalette {
		if _, ok := taken[color]; !ok {
			return color
		}
	}
	return CoursePalette[len(used)%len(CoursePalette)]
}
