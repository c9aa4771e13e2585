package consumer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/roster"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/storage"
)

// rosterPublishedPayload is the wire shape of roster.published.v1 as emitted
// by the roster-management tooling.
type rosterPublishedPayload struct {
	RosterID    string `json:"roster_id"`
	WeekStart   string `json:"week_start"`
	PublishedAt string `json:"published_at"`
	Shifts      []struct {
		BarberID string `json:"barber_id"`
		Date     string `json:"date"`
		Start    string `json:"start_time"`
		End      string `json:"end_time"`
		Off      bool   `json:"is_off"`
	} `json:"shifts"`
}

// ParseRosterPublished validates a roster.published.v1 payload. A roster
// spans exactly one week starting at week_start; shifts outside that week or
// missing required keys are rejected so a bad publication cannot corrupt the
// read model. Shift times are not validated here: a malformed clock string
// is stored as-is and degrades to "not working" at query time.
func ParseRosterPublished(raw []byte) (storage.PublishedRoster, error) {
	var payload rosterPublishedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return storage.PublishedRoster{}, fmt.Errorf("invalid roster payload: %w", err)
	}

	if payload.RosterID == "" {
		return storage.PublishedRoster{}, errors.New("roster_id is required")
	}
	weekStart, err := time.Parse(roster.DateFormat, payload.WeekStart)
	if err != nil {
		return storage.PublishedRoster{}, fmt.Errorf("invalid week_start %q", payload.WeekStart)
	}
	publishedAt, err := time.Parse(time.RFC3339, payload.PublishedAt)
	if err != nil {
		return storage.PublishedRoster{}, fmt.Errorf("invalid published_at %q", payload.PublishedAt)
	}
	weekEnd := weekStart.AddDate(0, 0, 7)

	pub := storage.PublishedRoster{
		ID:          payload.RosterID,
		WeekStart:   payload.WeekStart,
		PublishedAt: publishedAt,
		Shifts:      make([]storage.PublishedShift, 0, len(payload.Shifts)),
	}
	for _, s := range payload.Shifts {
		if s.BarberID == "" {
			return storage.PublishedRoster{}, errors.New("shift is missing barber_id")
		}
		day, err := time.Parse(roster.DateFormat, s.Date)
		if err != nil {
			return storage.PublishedRoster{}, fmt.Errorf("invalid shift date %q", s.Date)
		}
		if day.Before(weekStart) || !day.Before(weekEnd) {
			return storage.PublishedRoster{}, fmt.Errorf("shift date %s is outside roster week %s", s.Date, payload.WeekStart)
		}
		pub.Shifts = append(pub.Shifts, storage.PublishedShift{
			BarberID: s.BarberID,
			Date:     s.Date,
			Start:    s.Start,
			End:      s.End,
			Off:      s.Off,
		})
	}
	return pub, nil
}
