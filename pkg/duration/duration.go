// Package duration converts between "MM:SS" / "HH:MM:SS" strings and
// total seconds.
package duration

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse converts a duration string to total seconds. Accepted forms are
// "MM:SS" and "HH:MM:SS" where every component is a non-negative integer
// and minutes/seconds are below 60.
func Parse(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid duration format: %q (use MM:SS or HH:MM:SS)", value)
	}

	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration component: %q", part)
		}
		nums[i] = n
	}

	if len(nums) == 2 {
		minutes, seconds := nums[0], nums[1]
		if minutes >= 60 || seconds >= 60 {
			return 0, fmt.Errorf("invalid duration: %q (minutes and seconds must be below 60)", value)
		}
		return minutes*60 + seconds, nil
	}

	hours, minutes, seconds := nums[0], nums[1], nums[2]
	if minutes >= 60 || seconds >= 60 {
		return 0, fmt.Errorf("invalid duration: %q (minutes and seconds must be below 60)", value)
	}
	return hours*3600 + minutes*60 + seconds, nil
}

// Format converts total seconds back to "M:SS" or "H:MM:SS"
func Format(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
