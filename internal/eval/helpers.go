package eval

import (
	"strings"
	"time"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// loadLocation resolves an AT TIME ZONE argument, accepting both IANA zone
// names ("America/Los_Angeles") and fixed UTC offsets ("+05:30", "-0800").
func loadLocation(name string) (*time.Location, error) {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc, nil
	}
	sign := 1
	s := strings.TrimSpace(name)
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else {
		return nil, yachtsql.NewError(yachtsql.ErrInvalidQuery, "unknown time zone %q", name)
	}
	s = strings.ReplaceAll(s, ":", "")
	var hours, minutes int
	switch len(s) {
	case 2:
		hours = atoiSafe(s)
	case 4:
		hours = atoiSafe(s[:2])
		minutes = atoiSafe(s[2:])
	default:
		return nil, yachtsql.NewError(yachtsql.ErrInvalidQuery, "unknown time zone %q", name)
	}
	offset := sign * (hours*3600 + minutes*60)
	return time.FixedZone(name, offset), nil
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
