package calendar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/newstrader/news"
)

var prettyHeaders = []string{"Title", "Country", "Impact", "Date UTC"}

// WritePretty renders events as a bordered text table sorted by UTC time.
// Events without a UTC time are listed last.
func WritePretty(w io.Writer, events []news.Event) error {
	sorted := append([]news.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := sorted[i].At()
		b, bok := sorted[j].At()
		if aok && bok {
			return a.Before(b)
		}
		return aok && !bok
	})

	rows := make([][]string, 0, len(sorted))
	for _, e := range sorted {
		when := ""
		if t, ok := e.At(); ok {
			when = t.Format(time.RFC3339)
		}
		rows = append(rows, []string{e.Title, e.Country, string(e.Impact), when})
	}

	widths := make([]int, len(prettyHeaders))
	for i, h := range prettyHeaders {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			if n := len([]rune(cell)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	border := func() {
		b.WriteString("+")
		for _, w := range widths {
			b.WriteString(strings.Repeat("-", w+2))
			b.WriteString("+")
		}
		b.WriteString("\n")
	}
	line := func(cells []string) {
		b.WriteString("|")
		for i, cell := range cells {
			pad := widths[i] - len([]rune(cell))
			left := pad / 2
			fmt.Fprintf(&b, " %s%s%s |", strings.Repeat(" ", left), cell, strings.Repeat(" ", pad-left))
		}
		b.WriteString("\n")
	}

	border()
	line(prettyHeaders)
	border()
	for _, r := range rows {
		line(r)
	}
	border()

	_, err := io.WriteString(w, b.String())
	return err
}

// SavePretty writes the table for events to path.
func SavePretty(path string, events []news.Event) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create pretty dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pretty table: %w", err)
	}
	defer f.Close()
	return WritePretty(f, events)
}
