// Package news cleans a week of economic-calendar records into the set of
// events worth trading: timestamps normalized to UTC, clustered releases
// escalated, irrelevant records dropped and near-simultaneous ones merged.
package news

import (
	"time"
)

// Impact is the calendar's significance label. Unrecognized feed values are
// kept verbatim.
type Impact string

const (
	Low     Impact = "Low"
	Medium  Impact = "Medium"
	High    Impact = "High"
	Holiday Impact = "Holiday"
)

// Event is one calendar record. Date is the feed's local timestamp text; UTC
// is derived from it and stays nil when Date cannot be parsed.
type Event struct {
	Title    string `json:"title"`
	Country  string `json:"country"`
	Date     string `json:"date"`
	Impact   Impact `json:"impact"`
	Forecast string `json:"forecast"`
	Previous string `json:"previous"`

	UTC         *time.Time `json:"date_utc"`
	Processed   bool       `json:"processed,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// At returns the UTC time and whether it is known.
func (e Event) At() (time.Time, bool) {
	if e.UTC == nil {
		return time.Time{}, false
	}
	return *e.UTC, true
}

// Label is the short tag attached to orders spawned by e: the first ten
// characters of its title.
func (e Event) Label() string {
	r := []rune(e.Title)
	if len(r) > 10 {
		r = r[:10]
	}
	return string(r)
}

func clone(events []Event) []Event {
	if len(events) == 0 {
		return []Event{}
	}
	return append([]Event(nil), events...)
}
