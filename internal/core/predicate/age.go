package predicate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AgeDelta is a relative duration as users enter it.
type AgeDelta struct {
	Years  int `json:"years,omitempty"`
	Months int `json:"months,omitempty"`
	Days   int `json:"days,omitempty"`
	Hours  int `json:"hours,omitempty"`
}

// Duration converts the delta using 365-day years and 30-day months.
func (a AgeDelta) Duration() time.Duration {
	days := a.Years*365 + a.Months*30 + a.Days
	return time.Duration(days)*24*time.Hour + time.Duration(a.Hours)*time.Hour
}

func (a AgeDelta) String() string {
	return fmt.Sprintf("%dy%dm%dd%dh", a.Years, a.Months, a.Days, a.Hours)
}

// ParseAgeDelta reads forms such as "1y2m3d4h", "3d" or "12h".
func ParseAgeDelta(s string) (AgeDelta, error) {
	var a AgeDelta
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return a, fmt.Errorf("empty age")
	}

	num := ""
	for _, r := range s {
		if r >= '0' && r <= '9' {
			num += string(r)
			continue
		}
		if num == "" {
			return a, fmt.Errorf("invalid age %q", s)
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return a, fmt.Errorf("invalid age %q: %w", s, err)
		}
		switch r {
		case 'y':
			a.Years = n
		case 'm':
			a.Months = n
		case 'd':
			a.Days = n
		case 'h':
			a.Hours = n
		default:
			return a, fmt.Errorf("invalid age unit %q in %q", r, s)
		}
		num = ""
	}
	if num != "" {
		return a, fmt.Errorf("age %q is missing a unit", s)
	}
	return a, nil
}

// AgeBounds returns the import timestamp range (unix seconds) matching the comparison.
func AgeBounds(op Operator, delta AgeDelta, now time.Time) Range {
	if op == Equal {
		op = Approx
	}
	ages := Bounds(op, delta.Duration().Seconds())
	n := float64(now.Unix())
	// older files have smaller timestamps, so the bounds swap
	return Range{
		Min:     n - ages.Max,
		Max:     n - ages.Min,
		MinOpen: ages.MaxOpen,
		MaxOpen: ages.MinOpen,
	}
}
