// Package timecode converts between whole seconds and the clock strings shown
// on the control panel.
//
// Values below one hour render as MM:SS, longer ones as HH:MM:SS. Hours are
// not wrapped at 24; the codec measures elapsed time, not time of day.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNegative  = fmt.Errorf("negative duration")
	ErrMalformed = fmt.Errorf("malformed time display")
)

// Format renders seconds as MM:SS or HH:MM:SS.
func Format(seconds int64) (string, error) {
	if seconds < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegative, seconds)
	}

	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	if h == 0 {
		return fmt.Sprintf("%02d:%02d", m, s), nil
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
}

// MustFormat is [Format] for values already known to be non-negative. Negative input renders as 00:00.
func MustFormat(seconds int64) string {
	out, err := Format(seconds)
	if err != nil {
		return "00:00"
	}
	return out
}

// Parse reads a colon separated display back into seconds.
//
// The rightmost field is seconds and every field to its left weighs 60 times
// more than its neighbour, so any number of fields is accepted. Empty fields,
// signs and non-digits are rejected.
func Parse(display string) (int64, error) {
	if display == "" {
		return 0, fmt.Errorf("%w: empty", ErrMalformed)
	}

	var total int64
	for field := range strings.SplitSeq(display, ":") {
		if field == "" || strings.IndexFunc(field, notDigit) >= 0 {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, display)
		}

		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrMalformed, display, err)
		}
		if total > (math.MaxInt64-n)/60 {
			return 0, fmt.Errorf("%w: %q overflows", ErrMalformed, display)
		}
		total = total*60 + n
	}
	return total, nil
}

func notDigit(r rune) bool { return r < '0' || r > '9' }
