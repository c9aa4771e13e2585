package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/availability"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/catalog"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/roster"
)

type fakeRoster struct {
	windows map[string]availability.Interval
	err     error
}

func (f *fakeRoster) WorkingWindow(_ context.Context, _ string, date string) (availability.Interval, bool, error) {
	if f.err != nil {
		return availability.Interval{}, false, f.err
	}
	win, ok := f.windows[date]
	return win, ok, nil
}

type fakeBookings struct {
	busy     []availability.Interval
	failures int
	calls    int
}

func (f *fakeBookings) BookedIntervals(_ context.Context, _, _ string) ([]availability.Interval, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("bookings source down")
	}
	return f.busy, nil
}

type fakeDurations struct {
	durations map[string]int
	err       error
}

func (f *fakeDurations) Durations(_ context.Context, _ []string) (map[string]int, error) {
	return f.durations, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(rosterSrc roster.Source, bookings BookingSource, durations catalog.Source, cfg Config) *AvailabilityHandler {
	h := NewAvailabilityHandler(rosterSrc, bookings, catalog.New(durations, 30, testLogger()), testLogger(), cfg)
	// Pin "now" well before the test dates so no candidate is in the past.
	h.now = func() time.Time { return time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC) }
	return h
}

func getSlots(t *testing.T, h *AvailabilityHandler, url string) (slotsResponse, int) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rw := httptest.NewRecorder()
	h.Slots(rw, req)
	var resp slotsResponse
	if rw.Code == http.StatusOK {
		if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
	}
	return resp, rw.Code
}

func TestSlots_HappyPath(t *testing.T) {
	rosterSrc := &fakeRoster{windows: map[string]availability.Interval{
		"2026-08-10": {Start: 9 * 60, End: 17 * 60},
	}}
	bookings := &fakeBookings{busy: []availability.Interval{{Start: 10 * 60, End: 10*60 + 30}}}
	h := newTestHandler(rosterSrc, bookings, &fakeDurations{durations: map[string]int{"cut": 30}}, Config{StepMinutes: 30})

	resp, code := getSlots(t, h, "/slots?barber_id=b1&date=2026-08-10&service_ids=cut")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Status != statusOK {
		t.Fatalf("expected status ok, got %s", resp.Status)
	}
	if len(resp.Slots) != 15 {
		t.Fatalf("expected 15 slots, got %d: %v", len(resp.Slots), resp.Slots)
	}
	if resp.Slots[0] != "09:00" || resp.Slots[2] != "10:30" {
		t.Fatalf("unexpected slot boundaries: %v", resp.Slots[:3])
	}
	for _, s := range resp.Slots {
		if s == "10:00" {
			t.Fatal("booked 10:00 slot should be excluded")
		}
	}
}

func TestSlots_NotWorkingDayIsEmptyOK(t *testing.T) {
	h := newTestHandler(&fakeRoster{windows: map[string]availability.Interval{}}, &fakeBookings{}, &fakeDurations{}, Config{})

	resp, code := getSlots(t, h, "/slots?barber_id=b1&date=2026-12-25")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Status != statusOK || len(resp.Slots) != 0 {
		t.Fatalf("no shift should mean empty slots with status ok, got %s %v", resp.Status, resp.Slots)
	}
}

func TestSlots_RosterErrorPolicies(t *testing.T) {
	boom := &fakeRoster{err: errors.New("roster source down")}

	// Default policy: assume closed, flagged degraded.
	h := newTestHandler(boom, &fakeBookings{}, &fakeDurations{}, Config{})
	resp, _ := getSlots(t, h, "/slots?barber_id=b1&date=2026-08-10")
	if resp.Status != statusDegraded || len(resp.Slots) != 0 {
		t.Fatalf("assume_closed: expected degraded empty, got %s %v", resp.Status, resp.Slots)
	}

	// Assume open: fall back to the configured shop hours.
	h = newTestHandler(boom, &fakeBookings{}, &fakeDurations{}, Config{
		StepMinutes:    30,
		FallbackPolicy: roster.AssumeOpen,
		FallbackWindow: availability.Interval{Start: 9 * 60, End: 11 * 60},
	})
	resp, _ = getSlots(t, h, "/slots?barber_id=b1&date=2026-08-10")
	if resp.Status != statusDegraded {
		t.Fatalf("assume_open: expected degraded, got %s", resp.Status)
	}
	if len(resp.Slots) != 4 || resp.Slots[0] != "09:00" {
		t.Fatalf("assume_open: expected fallback-window slots, got %v", resp.Slots)
	}

	// Propagate: the caller learns availability could not be determined.
	h = newTestHandler(boom, &fakeBookings{}, &fakeDurations{}, Config{FallbackPolicy: roster.PropagateUnknown})
	resp, _ = getSlots(t, h, "/slots?barber_id=b1&date=2026-08-10")
	if resp.Status != statusUnknown || len(resp.Slots) != 0 {
		t.Fatalf("propagate_unknown: expected unknown empty, got %s %v", resp.Status, resp.Slots)
	}
}

func TestSlots_DurationSourceFailureDegrades(t *testing.T) {
	rosterSrc := &fakeRoster{windows: map[string]availability.Interval{
		"2026-08-10": {Start: 9 * 60, End: 10 * 60},
	}}
	h := newTestHandler(rosterSrc, &fakeBookings{}, &fakeDurations{err: errors.New("catalog down")}, Config{StepMinutes: 30})

	resp, _ := getSlots(t, h, "/slots?barber_id=b1&date=2026-08-10&service_ids=cut,beard")
	if resp.Status != statusDegraded {
		t.Fatalf("expected degraded, got %s", resp.Status)
	}
	// Degraded to the default 30-minute duration: 09:00 and 09:30 both fit.
	if len(resp.Slots) != 2 {
		t.Fatalf("expected 2 default-duration slots, got %v", resp.Slots)
	}
}

func TestSlots_BookingSourceRetryThenUnknown(t *testing.T) {
	rosterSrc := &fakeRoster{windows: map[string]availability.Interval{
		"2026-08-10": {Start: 9 * 60, End: 10 * 60},
	}}

	// First call fails, retry succeeds: answer stays ok.
	bookings := &fakeBookings{failures: 1}
	h := newTestHandler(rosterSrc, bookings, &fakeDurations{}, Config{StepMinutes: 30})
	resp, _ := getSlots(t, h, "/slots?barber_id=b1&date=2026-08-10")
	if resp.Status != statusOK || len(resp.Slots) != 2 {
		t.Fatalf("retry should recover, got %s %v", resp.Status, resp.Slots)
	}
	if bookings.calls != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", bookings.calls)
	}

	// Both calls fail: distinguishable unknown, never a 5xx.
	bookings = &fakeBookings{failures: 2}
	h = newTestHandler(rosterSrc, bookings, &fakeDurations{}, Config{StepMinutes: 30})
	resp, code := getSlots(t, h, "/slots?barber_id=b1&date=2026-08-10")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Status != statusUnknown || len(resp.Slots) != 0 {
		t.Fatalf("expected unknown empty, got %s %v", resp.Status, resp.Slots)
	}
}

func TestSlots_TodayFiltersPastTimes(t *testing.T) {
	rosterSrc := &fakeRoster{windows: map[string]availability.Interval{
		"2026-08-01": {Start: 9 * 60, End: 10 * 60},
	}}
	h := newTestHandler(rosterSrc, &fakeBookings{}, &fakeDurations{durations: map[string]int{"quick": 15}}, Config{StepMinutes: 15})
	h.now = func() time.Time { return time.Date(2026, 8, 1, 9, 31, 0, 0, time.UTC) }

	resp, _ := getSlots(t, h, "/slots?barber_id=b1&date=2026-08-01&service_ids=quick")
	if len(resp.Slots) != 1 || resp.Slots[0] != "09:45" {
		t.Fatalf("expected only 09:45 left today, got %v", resp.Slots)
	}

	// Yesterday has nothing bookable at all.
	rosterSrc.windows["2026-07-31"] = availability.Interval{Start: 9 * 60, End: 17 * 60}
	resp, _ = getSlots(t, h, "/slots?barber_id=b1&date=2026-07-31")
	if resp.Status != statusOK || len(resp.Slots) != 0 {
		t.Fatalf("past dates should be empty ok, got %s %v", resp.Status, resp.Slots)
	}
}

func TestSlots_BadRequests(t *testing.T) {
	h := newTestHandler(&fakeRoster{}, &fakeBookings{}, &fakeDurations{}, Config{})

	for _, url := range []string{
		"/slots",
		"/slots?barber_id=b1",
		"/slots?barber_id=b1&date=tomorrow",
	} {
		_, code := getSlots(t, h, url)
		if code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", url, code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/slots?barber_id=b1&date=2026-08-10", nil)
	rw := httptest.NewRecorder()
	h.Slots(rw, req)
	if rw.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rw.Code)
	}
}

func TestAvailability_PaintsRange(t *testing.T) {
	rosterSrc := &fakeRoster{windows: map[string]availability.Interval{
		"2026-08-10": {Start: 9 * 60, End: 17 * 60},
		"2026-08-12": {Start: 10 * 60, End: 14 * 60},
	}}
	h := newTestHandler(rosterSrc, &fakeBookings{}, &fakeDurations{}, Config{})

	req := httptest.NewRequest(http.MethodGet, "/availability?barber_id=b1&from=2026-08-10&to=2026-08-12", nil)
	rw := httptest.NewRecorder()
	h.Availability(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	var days []dayAvailability
	if err := json.Unmarshal(rw.Body.Bytes(), &days); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	wantAvailable := []bool{true, false, true}
	for i, day := range days {
		if day.Status != statusOK {
			t.Fatalf("day %d: expected ok, got %s", i, day.Status)
		}
		if day.Available == nil || *day.Available != wantAvailable[i] {
			t.Fatalf("day %d (%s): expected available=%v, got %v", i, day.Date, wantAvailable[i], day.Available)
		}
	}
	if days[0].Date != "2026-08-10" || days[2].Date != "2026-08-12" {
		t.Fatalf("days out of order: %v", days)
	}
}

func TestAvailability_UnknownOnRosterError(t *testing.T) {
	h := newTestHandler(&fakeRoster{err: errors.New("roster source down")}, &fakeBookings{}, &fakeDurations{},
		Config{FallbackPolicy: roster.PropagateUnknown})

	req := httptest.NewRequest(http.MethodGet, "/availability?barber_id=b1&from=2026-08-10", nil)
	rw := httptest.NewRecorder()
	h.Availability(rw, req)

	var days []dayAvailability
	if err := json.Unmarshal(rw.Body.Bytes(), &days); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("expected a single day, got %d", len(days))
	}
	if days[0].Available != nil || days[0].Status != statusUnknown {
		t.Fatalf("expected unknown with null available, got %+v", days[0])
	}
}

func TestSlots_CurrentMinuteNotOffered(t *testing.T) {
	rosterSrc := &fakeRoster{windows: map[string]availability.Interval{
		"2026-08-01": {Start: 9 * 60, End: 10 * 60},
	}}
	h := newTestHandler(rosterSrc, &fakeBookings{}, &fakeDurations{}, Config{StepMinutes: 30})
	// 09:30 on the dot: the 09:30 candidate would still fit the window but
	// starts right now, so nothing bookable remains.
	h.now = func() time.Time { return time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC) }

	resp, _ := getSlots(t, h, "/slots?barber_id=b1&date=2026-08-01")
	if resp.Status != statusOK || len(resp.Slots) != 0 {
		t.Fatalf("a slot starting at the current minute should not be offered, got %s %v", resp.Status, resp.Slots)
	}
}

func TestAvailability_RangeAcrossSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	rosterSrc := &fakeRoster{windows: map[string]availability.Interval{
		"2026-03-07": {Start: 9 * 60, End: 17 * 60},
		"2026-03-09": {Start: 9 * 60, End: 17 * 60},
	}}
	h := newTestHandler(rosterSrc, &fakeBookings{}, &fakeDurations{}, Config{Location: loc})

	// DST starts 2026-03-08 in this zone: the range spans 71 wall-clock
	// hours, but it is still three calendar days.
	req := httptest.NewRequest(http.MethodGet, "/availability?barber_id=b1&from=2026-03-07&to=2026-03-09", nil)
	rw := httptest.NewRecorder()
	h.Availability(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	var days []dayAvailability
	if err := json.Unmarshal(rw.Body.Bytes(), &days); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("expected 3 days across the DST change, got %d: %v", len(days), days)
	}
	if days[2].Date != "2026-03-09" {
		t.Fatalf("last requested date missing, got %v", days)
	}
}

func TestAvailability_AssumeOpenNeedsFallbackWindow(t *testing.T) {
	boom := &fakeRoster{err: errors.New("roster source down")}

	// No usable shop-hours window: the day must not be painted available,
	// since the slot query would return nothing for it.
	h := newTestHandler(boom, &fakeBookings{}, &fakeDurations{}, Config{FallbackPolicy: roster.AssumeOpen})
	req := httptest.NewRequest(http.MethodGet, "/availability?barber_id=b1&from=2026-08-10", nil)
	rw := httptest.NewRecorder()
	h.Availability(rw, req)

	var days []dayAvailability
	if err := json.Unmarshal(rw.Body.Bytes(), &days); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if days[0].Status != statusDegraded || days[0].Available == nil || *days[0].Available {
		t.Fatalf("expected degraded unavailable without a fallback window, got %+v", days[0])
	}

	// With shop hours configured the permissive policy applies as usual.
	h = newTestHandler(boom, &fakeBookings{}, &fakeDurations{}, Config{
		FallbackPolicy: roster.AssumeOpen,
		FallbackWindow: availability.Interval{Start: 9 * 60, End: 17 * 60},
	})
	rw = httptest.NewRecorder()
	h.Availability(rw, httptest.NewRequest(http.MethodGet, "/availability?barber_id=b1&from=2026-08-10", nil))
	if err := json.Unmarshal(rw.Body.Bytes(), &days); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if days[0].Available == nil || !*days[0].Available {
		t.Fatalf("expected degraded available with a fallback window, got %+v", days[0])
	}
}

func TestAvailability_RangeLimits(t *testing.T) {
	h := newTestHandler(&fakeRoster{}, &fakeBookings{}, &fakeDurations{}, Config{MaxRangeDays: 14})

	for url, want := range map[string]int{
		"/availability?barber_id=b1&from=2026-08-10&to=2026-09-20": http.StatusBadRequest,
		"/availability?barber_id=b1&from=2026-08-10&to=2026-08-01": http.StatusBadRequest,
		"/availability?from=2026-08-10":                            http.StatusBadRequest,
		"/availability?barber_id=b1&from=2026-08-10":               http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rw := httptest.NewRecorder()
		h.Availability(rw, req)
		if rw.Code != want {
			t.Fatalf("%s: expected %d, got %d", url, want, rw.Code)
		}
	}
}
