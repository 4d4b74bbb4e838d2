package news

import "time"

// DefaultTriggerDelay is how long after the release a strategy fires.
const DefaultTriggerDelay = 5 * time.Minute

// Today returns the events whose UTC date equals now's UTC date, plus
// earlier events released less than lookback before now. Pass the trigger
// delay plus one minute so a release late in the evening still reaches its
// window after midnight.
func Today(events []Event, now time.Time, lookback time.Duration) []Event {
	y, m, d := now.UTC().Date()
	var out []Event
	for _, e := range events {
		t, ok := e.At()
		if !ok {
			continue
		}
		ey, em, ed := t.Date()
		if ey == y && em == m && ed == d {
			out = append(out, e)
			continue
		}
		if age := now.Sub(t); age >= 0 && age < lookback {
			out = append(out, e)
		}
	}
	return out
}

// ShouldTrigger reports whether now falls in the one-minute window starting
// delay after the event: delay <= now-e.UTC < delay+1m.
func ShouldTrigger(e Event, now time.Time, delay time.Duration) bool {
	t, ok := e.At()
	if !ok || e.Processed {
		return false
	}
	elapsed := now.Sub(t)
	return elapsed >= delay && elapsed < delay+time.Minute
}

// Tradeable reports whether a triggered event should open a strategy.
func (e Event) Tradeable() bool {
	return e.Impact == High
}

// MarkProcessed flags every event with the given title. It returns how many
// records changed.
func MarkProcessed(events []Event, title string, at time.Time) int {
	n := 0
	at = at.UTC()
	for i := range events {
		if events[i].Title != title || events[i].Processed {
			continue
		}
		events[i].Processed = true
		events[i].ProcessedAt = &at
		n++
	}
	return n
}
