package availability

// Interval is a half-open [Start, End) span expressed in minutes from
// midnight, shop-local wall clock. Roster windows and booked intervals both
// use this representation, so no timezone conversion happens inside the
// slot math.
type Interval struct {
	Start int
	End   int
}

func (iv Interval) Valid() bool {
	return iv.Start >= 0 && iv.End > iv.Start
}

// Slots returns the bookable start minutes for a service of length duration
// within window. Candidates are stepped from window.Start at a fixed step
// (the shop's booking increment, never derived from the service duration)
// and kept while the full duration still fits before window.End.
//
// A candidate is dropped when it overlaps any busy interval. Overlap is
// strict half-open: a booking ending exactly at a candidate's start does not
// block it, so back-to-back bookings stay possible.
//
// notBefore filters out candidates starting earlier than the given minute;
// callers pass the current shop-local time when querying today and zero
// otherwise. The result is ascending and duplicate-free; an empty day is an
// empty slice, never an error.
func Slots(window Interval, duration, step int, busy []Interval, notBefore int) []int {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !window.Valid() {
		return nil
	}

	var slots []int
	for t := window.Start; t+duration <= window.End; t += step {
		if t < notBefore {
			continue
		}
		if overlapsAny(t, t+duration, busy) {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}

func overlapsAny(start, end int, busy []Interval) bool {
	for _, b := range busy {
		if start < b.End && b.Start < end {
			return true
		}
	}
	return false
}
