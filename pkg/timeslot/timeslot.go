package timeslot

import (
	"fmt"
	"strconv"
	"strings"
)

// Minutes converts a 24-hour HH:MM wall-clock string into minutes since
// midnight. Times carry no timezone; they are facility-local by convention.
func Minutes(hm string) (int, error) {
	parts := strings.Split(hm, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", hm)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", hm)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", hm)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q out of range", hm)
	}
	return hour*60 + minute, nil
}

// Overlaps reports whether the half-open ranges [startA, endA) and
// [startB, endB) share at least one instant. Ranges that merely touch at an
// endpoint do not overlap. Ranges never cross midnight; start < end is
// assumed for every interval system-wide.
func Overlaps(startA, endA, startB, endB string) bool {
	a1, err := Minutes(startA)
	if err != nil {
		return false
	}
	a2, err := Minutes(endA)
	if err != nil {
		return false
	}
	b1, err := Minutes(startB)
	if err != nil {
		return false
	}
	b2, err := Minutes(endB)
	if err != nil {
		return false
	}
	return a1 < b2 && b1 < a2
}

// Covers reports whether [outerStart, outerEnd) fully contains
// [innerStart, innerEnd).
func Covers(outerStart, outerEnd, innerStart, innerEnd string) bool {
	o1, err := Minutes(outerStart)
	if err != nil {
		return false
	}
	o2, err := Minutes(outerEnd)
	if err != nil {
		return false
	}
	i1, err := Minutes(innerStart)
	if err != nil {
		return false
	}
	i2, err := Minutes(innerEnd)
	if err != nil {
		return false
	}
	return o1 <= i1 && i2 <= o2
}

// Duration returns the length of [start, end) in minutes. It returns an
// error when either bound fails to parse or when start >= end.
func Duration(start, end string) (int, error) {
	s, err := Minutes(start)
	if err != nil {
		return 0, err
	}
	e, err := Minutes(end)
	if err != nil {
		return 0, err
	}
	if s >= e {
		return 0, fmt.Errorf("range %s-%s must start before it ends", start, end)
	}
	return e - s, nil
}
