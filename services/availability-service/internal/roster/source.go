package roster

import (
	"context"
	"fmt"
	"strings"

	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/availability"
)

// Source answers "is barber B rostered on date D, and for which window?".
// The boolean is false when the barber is not working (no shift, day off, or
// an unusable shift record). A non-nil error means the roster data itself
// could not be reached, which is a different condition from "not working"
// and is handled by the caller's FallbackPolicy.
type Source interface {
	WorkingWindow(ctx context.Context, barberID, date string) (availability.Interval, bool, error)
}

// FallbackPolicy decides what a roster-source failure degrades to.
type FallbackPolicy int

const (
	// AssumeClosed treats unreachable roster data as "barber unavailable".
	AssumeClosed FallbackPolicy = iota
	// AssumeOpen treats unreachable roster data as "barber available",
	// matching the permissive legacy behavior. Risky: it can offer slots on
	// a day the shop is actually closed.
	AssumeOpen
	// PropagateUnknown surfaces "availability unknown" to the caller so the
	// UI can distinguish "no slots" from "couldn't check".
	PropagateUnknown
)

func (p FallbackPolicy) String() string {
	switch p {
	case AssumeOpen:
		return "assume_open"
	case PropagateUnknown:
		return "propagate_unknown"
	default:
		return "assume_closed"
	}
}

// ParseFallbackPolicy reads a policy name from configuration. The zero
// value (AssumeClosed) is the conservative default.
func ParseFallbackPolicy(raw string) (FallbackPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "assume_closed":
		return AssumeClosed, nil
	case "assume_open":
		return AssumeOpen, nil
	case "propagate_unknown":
		return PropagateUnknown, nil
	default:
		return AssumeClosed, fmt.Errorf("unknown roster fallback policy %q", raw)
	}
}
