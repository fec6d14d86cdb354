package ical

import (
	"strconv"
	"strings"
	"time"

	"calendar-sync/core/event"
)

// parseDuration reads an RFC 5545 dur-value such as "PT1H30M", "P1D" or
// "P2W". Negative durations are rejected since they cannot describe an
// event length.
func parseDuration(value string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	invalid := func(reason string) error {
		return &event.ValidationError{Field: "duration", Value: raw, Reason: reason}
	}

	s := strings.ToUpper(raw)
	switch {
	case strings.HasPrefix(s, "-"):
		return 0, invalid("negative duration")
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return 0, invalid("malformed duration")
	}
	s = s[1:]

	units := map[byte]time.Duration{
		'W': 7 * 24 * time.Hour,
		'D': 24 * time.Hour,
	}
	timeUnits := map[byte]time.Duration{
		'H': time.Hour,
		'M': time.Minute,
		'S': time.Second,
	}

	var total time.Duration
	inTime := false
	num := ""
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			num += string(c)
		case c == 'T':
			if inTime || num != "" {
				return 0, invalid("malformed duration")
			}
			inTime = true
		default:
			unit, ok := units[c]
			if inTime {
				unit, ok = timeUnits[c]
			}
			if !ok || num == "" {
				return 0, invalid("malformed duration")
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, invalid(err.Error())
			}
			total += time.Duration(n) * unit
			num = ""
		}
	}
	if num != "" {
		return 0, invalid("malformed duration")
	}
	return total, nil
}
