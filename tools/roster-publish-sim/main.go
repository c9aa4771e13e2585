// roster-publish-sim publishes a sample roster.published.v1 event, standing
// in for the roster-management tooling during local development. Point it at
// the same broker and topic the availability service consumes from.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/fahim-bhuiyan/trimslot/libs/kafkax"
)

func main() {
	var (
		brokers   = flag.String("brokers", getenv("KAFKA_BROKERS", "localhost:9092"), "comma-separated broker list")
		topic     = flag.String("topic", getenv("ROSTER_TOPIC", "roster.published.v1"), "topic to publish to")
		rosterID  = flag.String("roster-id", "", "roster id (defaults to a fresh uuid)")
		barber    = flag.String("barber-id", getenv("BARBER_ID", ""), "barber the sample shifts belong to")
		weekStart = flag.String("week-start", "", "week start date YYYY-MM-DD (defaults to next Monday)")
		start     = flag.String("start", getenv("SHIFT_START", "09:00"), "shift start HH:MM")
		end       = flag.String("end", getenv("SHIFT_END", "17:00"), "shift end HH:MM")
		daysOff   = flag.String("days-off", getenv("DAYS_OFF", "6"), "comma-separated day offsets (0-6) marked off")
	)
	flag.Parse()

	if strings.TrimSpace(*barber) == "" {
		fatal("BARBER_ID is required")
	}

	id := *rosterID
	if id == "" {
		id = uuid.NewString()
	}

	week, err := resolveWeekStart(*weekStart)
	if err != nil {
		fatal(err.Error())
	}

	off := map[int]bool{}
	for _, d := range strings.Split(*daysOff, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(d, "%d", &n); err != nil || n < 0 || n > 6 {
			fatal(fmt.Sprintf("bad day offset %q", d))
		}
		off[n] = true
	}

	now := time.Now().UTC()
	payload, err := buildRosterJSON(id, *barber, week, *start, *end, off, now)
	if err != nil {
		fatal(err.Error())
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkax.SplitBrokers(*brokers)...),
		Topic:        *topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	headers := kafkax.InjectTraceHeaders(ctx, []kafka.Header{
		{Key: "event_id", Value: []byte(uuid.NewString())},
		{Key: "event_type", Value: []byte("roster.published.v1")},
	})

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(id),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		fatal(err.Error())
	}

	fmt.Printf("published roster %s for week %s\n", id, week.Format("2006-01-02"))
}

func buildRosterJSON(rosterID, barberID string, week time.Time, start, end string, off map[int]bool, publishedAt time.Time) ([]byte, error) {
	shifts := make([]map[string]any, 0, 7)
	for i := 0; i < 7; i++ {
		day := week.AddDate(0, 0, i)
		shift := map[string]any{
			"barber_id": barberID,
			"date":      day.Format("2006-01-02"),
			"is_off":    off[i],
		}
		if !off[i] {
			shift["start_time"] = start
			shift["end_time"] = end
		}
		shifts = append(shifts, shift)
	}
	return json.Marshal(map[string]any{
		"roster_id":    rosterID,
		"week_start":   week.Format("2006-01-02"),
		"published_at": publishedAt.Format(time.RFC3339),
		"shifts":       shifts,
	})
}

func resolveWeekStart(v string) (time.Time, error) {
	if v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid week-start %q", v)
		}
		return t, nil
	}
	t := time.Now().UTC().Truncate(24 * time.Hour)
	for t.Weekday() != time.Monday {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
