package news

import (
	"sort"
	"strings"
	"time"
)

const (
	// ClusterWindow bounds both escalation groups and merge runs.
	ClusterWindow = 10 * time.Minute
	// TitleSeparator joins merged titles.
	TitleSeparator = " | "
)

// Keywords mark events that are tradeable whatever their calendar impact.
var Keywords = []string{"Powell", "Lagarde", "FOMC", "ECB", "BOJ", "Rate Statement"}

// localLayouts are tried, in order, for feed timestamps. Layouts without a
// zone are read as UTC.
var localLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// Process runs the full cleaning pipeline. The input is not modified.
func Process(events []Event) []Event {
	out := NormalizeUTC(events)
	out = Escalate(out)
	out = FilterRelevant(out)
	return Merge(out)
}

// ParseLocal converts a feed timestamp to UTC.
func ParseLocal(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// NormalizeUTC fills UTC from Date on every record. Unparseable dates leave
// UTC nil.
func NormalizeUTC(events []Event) []Event {
	out := clone(events)
	for i := range out {
		if t, ok := ParseLocal(out[i].Date); ok {
			out[i].UTC = &t
		} else {
			out[i].UTC = nil
		}
	}
	return out
}

// sortByCountryTime orders by country then UTC time. Records without a time
// go last within their country, keeping their input order.
func sortByCountryTime(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		at, aok := a.At()
		bt, bok := b.At()
		switch {
		case aok && bok:
			return at.Before(bt)
		case aok:
			return true
		}
		return false
	})
}

// Escalate raises every record of a same-country triple spanning at most
// ClusterWindow to High. Triples are matched left to right and never overlap.
func Escalate(events []Event) []Event {
	out := clone(events)
	sortByCountryTime(out)

	for i := 0; i+2 < len(out); {
		if clustered(out[i], out[i+1], out[i+2]) {
			for k := i; k < i+3; k++ {
				out[k].Impact = High
			}
			i += 3
			continue
		}
		i++
	}
	return out
}

func clustered(a, b, c Event) bool {
	if a.Country != b.Country || b.Country != c.Country {
		return false
	}
	at, ok1 := a.At()
	_, ok2 := b.At()
	ct, ok3 := c.At()
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	return ct.Sub(at) <= ClusterWindow
}

// FilterRelevant keeps High impact records and those whose title names a
// keyword; the latter are promoted to High.
func FilterRelevant(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		keyword := HasKeyword(e.Title)
		if e.Impact != High && !keyword {
			continue
		}
		e.Impact = High
		out = append(out, e)
	}
	return out
}

// HasKeyword reports whether title contains one of Keywords.
func HasKeyword(title string) bool {
	for _, k := range Keywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}

// Merge collapses runs of same-country records into one. A record joins the
// run when it is within ClusterWindow of both the previous record and the
// first record of the run. The merged record carries the titles in time
// order, the time of the latest member and the latest ProcessedAt.
func Merge(events []Event) []Event {
	sorted := clone(events)
	sortByCountryTime(sorted)

	out := make([]Event, 0, len(sorted))
	for i := 0; i < len(sorted); {
		run := sorted[i]
		first, ok := run.At()
		if !ok {
			out = append(out, run)
			i++
			continue
		}

		titles := []string{run.Title}
		prev := first
		j := i + 1
		for ; j < len(sorted); j++ {
			next := sorted[j]
			t, ok := next.At()
			if !ok || next.Country != run.Country {
				break
			}
			if t.Sub(prev) > ClusterWindow || t.Sub(first) > ClusterWindow {
				break
			}
			titles = append(titles, next.Title)
			run.Date = next.Date
			run.UTC = next.UTC
			run.Processed = run.Processed || next.Processed
			if next.ProcessedAt != nil && (run.ProcessedAt == nil || next.ProcessedAt.After(*run.ProcessedAt)) {
				run.ProcessedAt = next.ProcessedAt
			}
			prev = t
		}

		run.Title = strings.Join(titles, TitleSeparator)
		out = append(out, run)
		i = j
	}
	return out
}
