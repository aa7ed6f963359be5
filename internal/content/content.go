// Package content holds the static festival data the bot answers from:
// menu sections with their reply texts and the day's event schedule.
package content

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"festbot/internal/schedule"
)

var (
	// ErrUnknownSection is returned when a label is not part of the store.
	ErrUnknownSection = errors.New("content: unknown section")
	// ErrDuplicateSection is returned when two sections share a label.
	ErrDuplicateSection = errors.New("content: duplicate section")
	// ErrInvalidSection is returned for sections that cannot be shown as a button.
	ErrInvalidSection = errors.New("content: invalid section")
	// ErrInvalidEvent is returned for events with an impossible time.
	ErrInvalidEvent = errors.New("content: invalid event")
)

// UnknownSectionError reports a lookup of a label the store does not know.
type UnknownSectionError struct {
	Label string
}

func (e *UnknownSectionError) Error() string {
	return fmt.Sprintf("content: unknown section %q", e.Label)
}

// Is makes errors.Is(err, ErrUnknownSection) match.
func (e *UnknownSectionError) Is(target error) bool {
	return target == ErrUnknownSection
}

// Code is picked up by handler summaries as err_code.
func (e *UnknownSectionError) Code() string {
	return "unknown_section"
}

// Section is a menu item and the text sent when it is picked.
type Section struct {
	Label string
	Text  string
}

// Store is the immutable content set. It is safe for concurrent use.
type Store struct {
	labels        []string
	texts         map[string]string
	events        []schedule.Event
	scheduleLabel string
}

// New validates sections and events and builds a Store.
// Events are sorted by time; events sharing a time keep their input order.
func New(sections []Section, events []schedule.Event, scheduleLabel string) (*Store, error) {
	s := &Store{
		labels:        make([]string, 0, len(sections)),
		texts:         make(map[string]string, len(sections)),
		events:        make([]schedule.Event, len(events)),
		scheduleLabel: strings.TrimSpace(scheduleLabel),
	}
	for i, sec := range sections {
		label := strings.TrimSpace(sec.Label)
		if label == "" {
			return nil, fmt.Errorf("%w: section #%d has an empty label", ErrInvalidSection, i)
		}
		if _, dup := s.texts[label]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSection, label)
		}
		s.labels = append(s.labels, label)
		s.texts[label] = sec.Text
	}
	if s.scheduleLabel != "" {
		if _, ok := s.texts[s.scheduleLabel]; !ok {
			return nil, fmt.Errorf("%w: schedule section %q is not among sections", ErrInvalidSection, s.scheduleLabel)
		}
	}
	for i, ev := range events {
		if !ev.At.Valid() {
			return nil, fmt.Errorf("%w: event #%d has time %s", ErrInvalidEvent, i, ev.At)
		}
	}
	copy(s.events, events)
	sort.SliceStable(s.events, func(i, j int) bool {
		return s.events[i].At.Before(s.events[j].At)
	})
	return s, nil
}

// Labels returns section labels in load order.
func (s *Store) Labels() []string {
	return append([]string(nil), s.labels...)
}

// SectionText returns the stored text of a section.
func (s *Store) SectionText(label string) (string, error) {
	text, ok := s.texts[label]
	if !ok {
		return "", &UnknownSectionError{Label: label}
	}
	return text, nil
}

// HasSection reports whether label names a section.
func (s *Store) HasSection(label string) bool {
	_, ok := s.texts[label]
	return ok
}

// ScheduleLabel returns the label of the live schedule section, if any.
func (s *Store) ScheduleLabel() string {
	return s.scheduleLabel
}

// IsSchedule reports whether label is the live schedule section.
func (s *Store) IsSchedule(label string) bool {
	return s.scheduleLabel != "" && label == s.scheduleLabel
}

// Events returns the schedule sorted by time.
func (s *Store) Events() []schedule.Event {
	return append([]schedule.Event(nil), s.events...)
}
