package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fahim-bhuiyan/trimslot/libs/db"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/availability"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/roster"
	"github.com/jackc/pgx/v5"
)

// Repository reads the service's local roster/booking read model. The read
// model is written only by the roster event consumer; availability queries
// themselves never write.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// LatestShift returns the shift for (barber, date) from the most recently
// published roster covering that date. Overlapping roster publications are
// resolved here: later published_at wins.
func (r *Repository) LatestShift(ctx context.Context, barberID, date string) (roster.Shift, bool, error) {
	var s roster.Shift
	err := r.pool.QueryRow(ctx, `
		SELECT r.id,
			ws.barber_id,
			to_char(ws.shift_date, 'YYYY-MM-DD'),
			COALESCE(to_char(ws.start_time, 'HH24:MI'), ''),
			COALESCE(to_char(ws.end_time, 'HH24:MI'), ''),
			ws.is_off,
			r.published_at
		FROM work_shifts ws
		JOIN rosters r ON r.id = ws.roster_id
		WHERE ws.barber_id = $1
			AND ws.shift_date = $2
		ORDER BY r.published_at DESC, r.id
		LIMIT 1
	`, barberID, date).Scan(
		&s.RosterID,
		&s.BarberID,
		&s.Date,
		&s.Start,
		&s.End,
		&s.Off,
		&s.PublishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return roster.Shift{}, false, nil
		}
		return roster.Shift{}, false, err
	}
	return s, true, nil
}

// WorkingWindow implements roster.Source. No shift, a day-off shift, and a
// malformed shift all resolve to not-working; only a storage failure is an
// error.
func (r *Repository) WorkingWindow(ctx context.Context, barberID, date string) (availability.Interval, bool, error) {
	shift, found, err := r.LatestShift(ctx, barberID, date)
	if err != nil {
		return availability.Interval{}, false, err
	}
	if !found {
		return availability.Interval{}, false, nil
	}
	win, ok := shift.Window()
	return win, ok, nil
}

// BookedIntervals returns the occupied spans for a barber's date, in minutes
// from midnight, ordered by start. Cancelled bookings do not block; pending
// ones do, so a slot offered mid-checkout cannot be double-offered.
func (r *Repository) BookedIntervals(ctx context.Context, barberID, date string) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT (EXTRACT(EPOCH FROM start_time) / 60)::int,
			duration_minutes
		FROM bookings
		WHERE barber_id = $1
			AND booking_date = $2
			AND status IN ('booked', 'pending')
		ORDER BY start_time ASC
	`, barberID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var busy []availability.Interval
	for rows.Next() {
		var startMinute, durationMinutes int
		if err := rows.Scan(&startMinute, &durationMinutes); err != nil {
			return nil, err
		}
		if durationMinutes <= 0 {
			continue
		}
		busy = append(busy, availability.Interval{
			Start: startMinute,
			End:   startMinute + durationMinutes,
		})
	}
	return busy, rows.Err()
}

// Durations implements catalog.Source.
func (r *Repository) Durations(ctx context.Context, serviceIDs []string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, duration_minutes
		FROM services
		WHERE id = ANY($1)
	`, serviceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int, len(serviceIDs))
	for rows.Next() {
		var id string
		var mins int
		if err := rows.Scan(&id, &mins); err != nil {
			return nil, err
		}
		out[id] = mins
	}
	return out, rows.Err()
}

// PublishedRoster is a roster publication as carried on the
// roster.published.v1 event.
type PublishedRoster struct {
	ID          string
	WeekStart   string
	PublishedAt time.Time
	Shifts      []PublishedShift
}

type PublishedShift struct {
	BarberID string
	Date     string
	Start    string
	End      string
	Off      bool
}

// ApplyPublishedRoster replaces the read-model rows for one roster
// publication in a single transaction. Re-delivery of the same roster id is
// an overwrite, so the consumer stays idempotent even past the inbox dedupe.
func (r *Repository) ApplyPublishedRoster(ctx context.Context, pub PublishedRoster) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO rosters (id, week_start, published_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET week_start = EXCLUDED.week_start,
			published_at = EXCLUDED.published_at
	`, pub.ID, pub.WeekStart, pub.PublishedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM work_shifts WHERE roster_id = $1
	`, pub.ID); err != nil {
		return err
	}

	for _, s := range pub.Shifts {
		if _, err := tx.Exec(ctx, `
			INSERT INTO work_shifts (roster_id, barber_id, shift_date, start_time, end_time, is_off)
			VALUES ($1, $2, $3, NULLIF($4, '')::time, NULLIF($5, '')::time, $6)
		`, pub.ID, s.BarberID, s.Date, s.Start, s.End, s.Off); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
