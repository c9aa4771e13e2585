package roster

import (
	"fmt"
	"time"

	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/availability"
)

const (
	// DateFormat is the calendar-date form used for shift dates and query
	// params. Shift dates carry no time component.
	DateFormat = "2006-01-02"
	// ClockFormat is the minute-granularity wall-clock form used for shift
	// start/end times, e.g. "09:30".
	ClockFormat = "15:04"
)

// Shift is one barber's scheduled working interval on one calendar date, as
// published by the roster tooling. Start and End are shop-local clock
// strings; Off means the barber does not work that date regardless of them.
type Shift struct {
	RosterID    string
	BarberID    string
	Date        string
	Start       string
	End         string
	Off         bool
	PublishedAt time.Time
}

// Window returns the shift's working window as a minutes-from-midnight
// interval. It reports false for day-off shifts and for any shift whose
// times are missing, malformed, or inverted (start >= end): a bad shift
// record degrades to "not working", it never fails the lookup.
func (s Shift) Window() (availability.Interval, bool) {
	if s.Off {
		return availability.Interval{}, false
	}
	start, err := ParseClock(s.Start)
	if err != nil {
		return availability.Interval{}, false
	}
	end, err := ParseClock(s.End)
	if err != nil {
		return availability.Interval{}, false
	}
	if start >= end {
		return availability.Interval{}, false
	}
	return availability.Interval{Start: start, End: end}, true
}

// ParseClock converts a "15:04" clock string to minutes from midnight.
func ParseClock(clock string) (int, error) {
	t, err := time.Parse(ClockFormat, clock)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinutes renders minutes from midnight as a "15:04" clock string.
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
