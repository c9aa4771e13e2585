package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/availability"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/catalog"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/roster"
)

// Statuses carried on every availability answer so the UI can tell "no
// slots" apart from "couldn't check".
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusUnknown  = "unknown"
)

// BookingSource supplies the occupied intervals for a barber's date.
type BookingSource interface {
	BookedIntervals(ctx context.Context, barberID, date string) ([]availability.Interval, error)
}

type Config struct {
	// StepMinutes is the shop's booking increment. Candidates land on these
	// wall-clock boundaries regardless of service duration.
	StepMinutes int
	// Location anchors "today" for filtering past start times. Stored clock
	// times are never converted; everything is shop-local.
	Location *time.Location
	// FallbackPolicy decides what a roster-source failure degrades to.
	FallbackPolicy roster.FallbackPolicy
	// FallbackWindow is the window assumed by the AssumeOpen policy when the
	// roster source is unreachable, e.g. the shop's regular opening hours.
	FallbackWindow availability.Interval
	// MaxRangeDays caps the date-range endpoint.
	MaxRangeDays int
}

type AvailabilityHandler struct {
	roster    roster.Source
	bookings  BookingSource
	durations *catalog.Durations
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

func NewAvailabilityHandler(rosterSrc roster.Source, bookings BookingSource, durations *catalog.Durations, logger *slog.Logger, cfg Config) *AvailabilityHandler {
	if cfg.StepMinutes <= 0 {
		cfg.StepMinutes = 30
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 31
	}
	return &AvailabilityHandler{
		roster:    rosterSrc,
		bookings:  bookings,
		durations: durations,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

type slotsResponse struct {
	BarberID string   `json:"barber_id"`
	Date     string   `json:"date"`
	Status   string   `json:"status"`
	Slots    []string `json:"slots"`
}

type dayAvailability struct {
	Date      string `json:"date"`
	Available *bool  `json:"available"`
	Status    string `json:"status"`
}

// Slots handles GET /api/v1/public/slots?barber_id&date&service_ids and
// returns the ordered "HH:MM" start times that fit the requested services.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	barberID := strings.TrimSpace(r.URL.Query().Get("barber_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if barberID == "" || dateStr == "" {
		http.Error(w, "barber_id and date are required", http.StatusBadRequest)
		return
	}
	day, err := time.ParseInLocation(roster.DateFormat, dateStr, h.cfg.Location)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	serviceIDs := splitIDs(r.URL.Query().Get("service_ids"))

	ctx := r.Context()
	resp := slotsResponse{BarberID: barberID, Date: dateStr, Status: statusOK, Slots: []string{}}

	window, working, err := h.roster.WorkingWindow(ctx, barberID, dateStr)
	if err != nil {
		h.logger.Warn("roster source unreachable",
			"err", err, "barber_id", barberID, "date", dateStr, "policy", h.cfg.FallbackPolicy.String())
		switch h.cfg.FallbackPolicy {
		case roster.AssumeOpen:
			window, working = h.cfg.FallbackWindow, h.cfg.FallbackWindow.Valid()
			resp.Status = statusDegraded
		case roster.AssumeClosed:
			working = false
			resp.Status = statusDegraded
		default:
			resp.Status = statusUnknown
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}
	if !working {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	totalMinutes, degraded := h.durations.TotalMinutes(ctx, serviceIDs)
	if degraded && resp.Status == statusOK {
		resp.Status = statusDegraded
	}

	busy, err := h.bookings.BookedIntervals(ctx, barberID, dateStr)
	if err != nil {
		// One immediate retry: a transient blip should not blank the picker.
		busy, err = h.bookings.BookedIntervals(ctx, barberID, dateStr)
	}
	if err != nil {
		h.logger.Error("booked intervals unavailable after retry",
			"err", err, "barber_id", barberID, "date", dateStr)
		resp.Status = statusUnknown
		writeJSON(w, http.StatusOK, resp)
		return
	}

	notBefore, inPast := h.todayFloor(day)
	if inPast {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	for _, m := range availability.Slots(window, totalMinutes, h.cfg.StepMinutes, busy, notBefore) {
		resp.Slots = append(resp.Slots, roster.FormatMinutes(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Availability handles GET /api/v1/public/availability?barber_id&from&to and
// paints a calendar range: one entry per date, each resolved independently
// and concurrently since a date's roster lookup does not depend on its
// neighbors.
func (h *AvailabilityHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	barberID := strings.TrimSpace(r.URL.Query().Get("barber_id"))
	fromStr := strings.TrimSpace(r.URL.Query().Get("from"))
	toStr := strings.TrimSpace(r.URL.Query().Get("to"))
	if barberID == "" || fromStr == "" {
		http.Error(w, "barber_id and from are required", http.StatusBadRequest)
		return
	}
	if toStr == "" {
		toStr = fromStr
	}
	from, err := time.ParseInLocation(roster.DateFormat, fromStr, h.cfg.Location)
	if err != nil {
		http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to, err := time.ParseInLocation(roster.DateFormat, toStr, h.cfg.Location)
	if err != nil {
		http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if to.Before(from) {
		http.Error(w, "to must not be before from", http.StatusBadRequest)
		return
	}
	// Count calendar days, not elapsed hours: a DST transition inside the
	// range makes the wall-clock distance between midnights not a multiple
	// of 24h.
	days := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days++
	}
	if days > h.cfg.MaxRangeDays {
		http.Error(w, "date range too large", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	results := make([]dayAvailability, days)
	var wg sync.WaitGroup
	for i := 0; i < days; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			date := from.AddDate(0, 0, i).Format(roster.DateFormat)
			results[i] = h.checkDay(ctx, barberID, date)
		}(i)
	}
	wg.Wait()

	writeJSON(w, http.StatusOK, results)
}

func (h *AvailabilityHandler) checkDay(ctx context.Context, barberID, date string) dayAvailability {
	_, working, err := h.roster.WorkingWindow(ctx, barberID, date)
	if err != nil {
		h.logger.Warn("roster source unreachable",
			"err", err, "barber_id", barberID, "date", date, "policy", h.cfg.FallbackPolicy.String())
		switch h.cfg.FallbackPolicy {
		case roster.AssumeOpen:
			// Same gate as the slots path: without a usable fallback window
			// there is nothing bookable, and painting the day green would
			// promise slots that the slot query then denies.
			return dayAvailability{Date: date, Available: boolPtr(h.cfg.FallbackWindow.Valid()), Status: statusDegraded}
		case roster.AssumeClosed:
			return dayAvailability{Date: date, Available: boolPtr(false), Status: statusDegraded}
		default:
			return dayAvailability{Date: date, Status: statusUnknown}
		}
	}
	return dayAvailability{Date: date, Available: boolPtr(working), Status: statusOK}
}

// todayFloor returns the minute-of-day floor for slot candidates on the
// given date: zero for future dates, inPast=true for dates already behind
// us, and for today the first minute strictly after the current one, so a
// slot starting at the current minute is never offered (it is already
// un-bookable by the time the customer confirms).
func (h *AvailabilityHandler) todayFloor(day time.Time) (notBefore int, inPast bool) {
	now := h.now().In(h.cfg.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.cfg.Location)
	switch {
	case day.Before(today):
		return 0, true
	case day.Equal(today):
		return now.Hour()*60 + now.Minute() + 1, false
	default:
		return 0, false
	}
}

func splitIDs(raw string) []string {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

func boolPtr(b bool) *bool { return &b }

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
