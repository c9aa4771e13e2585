package roster

import (
	"testing"
	"time"
)

func TestShiftWindow(t *testing.T) {
	cases := []struct {
		name      string
		shift     Shift
		wantOK    bool
		wantStart int
		wantEnd   int
	}{
		{name: "normal day", shift: Shift{Start: "09:00", End: "17:00"}, wantOK: true, wantStart: 540, wantEnd: 1020},
		{name: "day off", shift: Shift{Start: "09:00", End: "17:00", Off: true}},
		{name: "inverted times", shift: Shift{Start: "17:00", End: "09:00"}},
		{name: "zero-length", shift: Shift{Start: "09:00", End: "09:00"}},
		{name: "missing start", shift: Shift{End: "17:00"}},
		{name: "missing end", shift: Shift{Start: "09:00"}},
		{name: "garbage clock", shift: Shift{Start: "9am", End: "5pm"}},
	}

	for _, tc := range cases {
		win, ok := tc.shift.Window()
		if ok != tc.wantOK {
			t.Fatalf("%s: expected ok=%v, got %v", tc.name, tc.wantOK, ok)
		}
		if !tc.wantOK {
			continue
		}
		if win.Start != tc.wantStart || win.End != tc.wantEnd {
			t.Fatalf("%s: expected window %d-%d, got %d-%d", tc.name, tc.wantStart, tc.wantEnd, win.Start, win.End)
		}
	}
}

func TestResolve_LatestPublicationWins(t *testing.T) {
	older := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)

	shifts := []Shift{
		{RosterID: "r2", BarberID: "b1", Date: "2026-08-10", Start: "10:00", End: "18:00", PublishedAt: newer},
		{RosterID: "r1", BarberID: "b1", Date: "2026-08-10", Start: "09:00", End: "17:00", PublishedAt: older},
		{RosterID: "r1", BarberID: "b2", Date: "2026-08-10", Start: "09:00", End: "13:00", PublishedAt: older},
	}

	resolved := Resolve(shifts)
	if len(resolved) != 2 {
		t.Fatalf("expected 2 resolved keys, got %d", len(resolved))
	}
	got := resolved[Key{BarberID: "b1", Date: "2026-08-10"}]
	if got.RosterID != "r2" {
		t.Fatalf("expected the later publication (r2) to win, got %s", got.RosterID)
	}
	if keep := resolved[Key{BarberID: "b2", Date: "2026-08-10"}]; keep.RosterID != "r1" {
		t.Fatalf("unrelated barber should keep its only shift, got %s", keep.RosterID)
	}
}

func TestResolve_TieBreaksOnInputOrder(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	shifts := []Shift{
		{RosterID: "first", BarberID: "b1", Date: "2026-08-10", PublishedAt: at},
		{RosterID: "second", BarberID: "b1", Date: "2026-08-10", PublishedAt: at},
	}
	got := Resolve(shifts)[Key{BarberID: "b1", Date: "2026-08-10"}]
	if got.RosterID != "second" {
		t.Fatalf("equal publish timestamps should keep the later input, got %s", got.RosterID)
	}
}

func TestResolve_SkipsUnkeyedShifts(t *testing.T) {
	shifts := []Shift{
		{BarberID: "", Date: "2026-08-10"},
		{BarberID: "b1", Date: ""},
	}
	if got := Resolve(shifts); len(got) != 0 {
		t.Fatalf("shifts without a full key should be dropped, got %d entries", len(got))
	}
}

func TestParseFallbackPolicy(t *testing.T) {
	for raw, want := range map[string]FallbackPolicy{
		"":                  AssumeClosed,
		"assume_closed":     AssumeClosed,
		"assume_open":       AssumeOpen,
		"Propagate_Unknown": PropagateUnknown,
	} {
		got, err := ParseFallbackPolicy(raw)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("%q: expected %v, got %v", raw, want, got)
		}
	}
	if _, err := ParseFallbackPolicy("yolo"); err == nil {
		t.Fatal("expected an error for an unknown policy name")
	}
}

func TestFormatMinutes(t *testing.T) {
	if got := FormatMinutes(570); got != "09:30" {
		t.Fatalf("expected 09:30, got %s", got)
	}
	if got := FormatMinutes(0); got != "00:00" {
		t.Fatalf("expected 00:00, got %s", got)
	}
}
