//go:build protogen

package rostergrpc

import (
	"context"
	"time"

	"github.com/fahim-bhuiyan/trimslot/libs/grpcx"
	rosterv1 "github.com/fahim-bhuiyan/trimslot/protos/gen/roster/v1"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/availability"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/roster"
)

// Source queries the roster tooling directly over gRPC instead of the local
// read model. Used when the roster service is reachable in-cluster and the
// deployment prefers live lookups over event-fed state.
type Source struct {
	client rosterv1.RosterServiceClient
}

var _ roster.Source = (*Source)(nil)

func NewSource(addr string) (roster.Source, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Source{client: rosterv1.NewRosterServiceClient(conn)}, nil
}

func (s *Source) WorkingWindow(ctx context.Context, barberID, date string) (availability.Interval, bool, error) {
	resp, err := s.client.GetWorkShift(ctx, &rosterv1.WorkShiftRequest{
		BarberId: barberID,
		Date:     date,
	})
	if err != nil {
		return availability.Interval{}, false, err
	}
	shift := roster.Shift{
		BarberID: barberID,
		Date:     date,
		Start:    resp.GetStartTime(),
		End:      resp.GetEndTime(),
		Off:      resp.GetIsOff() || !resp.GetFound(),
	}
	win, ok := shift.Window()
	return win, ok, nil
}
