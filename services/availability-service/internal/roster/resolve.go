package roster

import "sort"

// Key identifies the single shift slot a barber can hold on a date.
type Key struct {
	BarberID string
	Date     string
}

// Resolve folds a flat pile of shifts (possibly spanning overlapping roster
// publications) into one shift per (barber, date). Shifts are applied in
// PublishedAt ascending order so the most recently published roster wins;
// when two publications carry the same timestamp, the one later in the
// input wins, which keeps the fold deterministic for a given input order.
func Resolve(shifts []Shift) map[Key]Shift {
	ordered := make([]Shift, len(shifts))
	copy(ordered, shifts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PublishedAt.Before(ordered[j].PublishedAt)
	})

	out := make(map[Key]Shift, len(ordered))
	for _, s := range ordered {
		if s.BarberID == "" || s.Date == "" {
			continue
		}
		out[Key{BarberID: s.BarberID, Date: s.Date}] = s
	}
	return out
}
