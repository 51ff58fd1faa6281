package code_analyzer

import (
	"regexp"
	"strconv"
)

var (
	dayIndexPattern   = regexp.MustCompile(`(?i)(?:^|[^a-z])day[-_]?(\d+)`)
	weekIndexPattern  = regexp.MustCompile(`(?i)^week[-_]?(\d+)`)
	groupIndexPattern = regexp.MustCompile(`\d+`)
)

// ParseDayIndex extracts the within-week day number encoded in an exercise filename ("day3_loops.py").
func ParseDayIndex(filename string) (int, bool) {
	m := dayIndexPattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return day, true
}

// ParseWeekIndex extracts N from a "weekN" directory name.
func ParseWeekIndex(folder string) (int, bool) {
	m := weekIndexPattern.FindStringSubmatch(folder)
	if m == nil {
		return 0, false
	}
	week, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return week, true
}

// ParseGroupIndex returns the first numeral in a group folder name, or ordinal when there is none.
func ParseGroupIndex(folder string, ordinal int) int {
	m := groupIndexPattern.FindString(folder)
	if m == "" {
		return ordinal
	}
	group, err := strconv.Atoi(m)
	if err != nil {
		return ordinal
	}
	return group
}

// AbsoluteDay converts a (group, week, day) triple into a curriculum-wide session number.
func AbsoluteDay(group, week, day, weeksPerGroup, sessionsPerWeek int) int {
	weeksBeforeGroup := (group - 1) * weeksPerGroup
	return (weeksBeforeGroup+week-1)*sessionsPerWeek + day
}
