// Package calendar stores the weekly economic calendar on disk and refreshes
// it from the ForexFactory JSON feed.
package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/newstrader/news"
)

// ErrNoWeekFile is returned when the current week has not been fetched yet.
var ErrNoWeekFile = errors.New("weekly calendar file not found")

// WeekStart returns midnight UTC of the Sunday that opens t's trading week.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// WeekFilename is the JSON file name for t's week, e.g. forex_2025-03-09.json.
func WeekFilename(t time.Time) string {
	return fmt.Sprintf("forex_%s.json", WeekStart(t).Format("2006-01-02"))
}

// Store keeps one JSON file per week in Dir and its printable table in
// PrettyDir.
type Store struct {
	Dir       string
	PrettyDir string
}

func NewStore(dir, prettyDir string) *Store {
	return &Store{Dir: dir, PrettyDir: prettyDir}
}

// Path is the week file for t.
func (s *Store) Path(t time.Time) string {
	return filepath.Join(s.Dir, WeekFilename(t))
}

// PrettyPath is the table file for t.
func (s *Store) PrettyPath(t time.Time) string {
	name := strings.TrimSuffix(WeekFilename(t), ".json") + ".txt"
	return filepath.Join(s.PrettyDir, name)
}

// LoadWeek reads t's week file. UTC times are recomputed from the local date
// text so hand-edited files stay consistent.
func (s *Store) LoadWeek(t time.Time) ([]news.Event, error) {
	events, err := Load(s.Path(t))
	if err != nil {
		return nil, err
	}
	return news.NormalizeUTC(events), nil
}

// SaveWeek writes events to t's week file and refreshes the table.
func (s *Store) SaveWeek(t time.Time, events []news.Event) error {
	if err := Save(s.Path(t), events); err != nil {
		return err
	}
	if s.PrettyDir == "" {
		return nil
	}
	return SavePretty(s.PrettyPath(t), events)
}

// MarkProcessed flags the event with title in t's week file and saves it.
func (s *Store) MarkProcessed(t time.Time, title string, at time.Time) error {
	events, err := Load(s.Path(t))
	if err != nil {
		return err
	}
	if news.MarkProcessed(events, title, at) == 0 {
		return nil
	}
	return Save(s.Path(t), events)
}

// Load reads a calendar JSON file.
func Load(path string) ([]news.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoWeekFile)
		}
		return nil, fmt.Errorf("read calendar: %w", err)
	}

	var events []news.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse calendar %s: %w", path, err)
	}
	return events, nil
}

// Save writes events as indented JSON, creating the directory if needed.
func Save(path string, events []news.Event) error {
	if events == nil {
		events = []news.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal calendar: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create calendar dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return os.Rename(tmp, path)
}
