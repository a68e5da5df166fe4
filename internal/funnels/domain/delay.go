package domain

import (
	"strconv"
	"strings"
)

// ParseDelay converts a human-authored delay string ("0 min", "+2 hrs",
// "+1 day") into minutes. The rules, kept compatible with the delays stored
// in existing funnels:
//
//   - case-insensitive; a leading "+" is ignored
//   - "day" multiplies by 1440, "hour" by 60, "min" by 1
//   - a recognizable leading integer with no recognized unit is taken as
//     minutes ("+24 hrs" therefore parses as 24 minutes, matching the
//     historical behavior of stored "hrs" delays)
//   - empty or unparseable input is 0
func ParseDelay(text string) int {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	trimmed = strings.TrimPrefix(trimmed, "+")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return 0
	}

	value := leadingInt(trimmed)

	switch {
	case strings.Contains(trimmed, "day"):
		return value * 1440
	case strings.Contains(trimmed, "hour"):
		return value * 60
	case strings.Contains(trimmed, "min"):
		return value
	}
	return value
}

func leadingInt(s string) int {
	end := 0
	if end < len(s) && s[end] == '-' {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	value, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return value
}
