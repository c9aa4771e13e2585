package catalog

import (
	"context"
	"log/slog"
)

// Source looks up per-service durations in minutes. Implementations return
// a map keyed by service ID; IDs missing from the map are unknown services.
type Source interface {
	Durations(ctx context.Context, serviceIDs []string) (map[string]int, error)
}

// Durations resolves the total length of a requested service combination.
// It never fails a query: unknown services and unreachable catalog data
// degrade to the configured minimum bookable duration instead.
type Durations struct {
	src            Source
	defaultMinutes int
	logger         *slog.Logger
}

func New(src Source, defaultMinutes int, logger *slog.Logger) *Durations {
	if defaultMinutes <= 0 {
		defaultMinutes = 30
	}
	return &Durations{src: src, defaultMinutes: defaultMinutes, logger: logger}
}

// DefaultMinutes is the minimum bookable unit used for empty or unresolvable
// requests.
func (d *Durations) DefaultMinutes() int {
	return d.defaultMinutes
}

// TotalMinutes sums the durations of the requested services. An empty
// request books the minimum unit (a zero-duration slot set is meaningless).
// Each unknown or non-positive entry counts as the minimum unit. When the
// catalog source itself is unreachable the whole request falls back to the
// minimum unit and degraded reports true so callers can flag the answer.
func (d *Durations) TotalMinutes(ctx context.Context, serviceIDs []string) (total int, degraded bool) {
	if len(serviceIDs) == 0 {
		return d.defaultMinutes, false
	}

	known, err := d.src.Durations(ctx, serviceIDs)
	if err != nil {
		d.logger.Warn("service durations unavailable; using default duration",
			"err", err, "services", len(serviceIDs))
		return d.defaultMinutes, true
	}

	for _, id := range serviceIDs {
		if mins, ok := known[id]; ok && mins > 0 {
			total += mins
			continue
		}
		d.logger.Warn("unknown service duration; using default", "service_id", id)
		total += d.defaultMinutes
	}
	return total, false
}
