package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"festbot/internal/schedule"
)

// Document is the raw content set before validation.
type Document struct {
	Sections []Section
	Events   []schedule.Event
}

type fileDocument struct {
	Sections []fileSection `yaml:"sections"`
	Events   []fileEvent   `yaml:"events"`
}

type fileSection struct {
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

type fileEvent struct {
	Time        string `yaml:"time"`
	Description string `yaml:"description"`
}

// ParseDocument decodes the YAML content format:
//
//	sections:
//	  - label: "Schedule"
//	  - label: "Food"
//	    text: "*Food court* is next to the main stage"
//	events:
//	  - time: "10:00"
//	    description: "Opening"
func ParseDocument(data []byte) (Document, error) {
	var raw fileDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("content: parse YAML: %w", err)
	}

	doc := Document{
		Sections: make([]Section, 0, len(raw.Sections)),
		Events:   make([]schedule.Event, 0, len(raw.Events)),
	}
	for _, s := range raw.Sections {
		doc.Sections = append(doc.Sections, Section{Label: s.Label, Text: s.Text})
	}
	for i, e := range raw.Events {
		at, err := schedule.ParseClock(e.Time)
		if err != nil {
			return Document{}, fmt.Errorf("%w: event #%d: %v", ErrInvalidEvent, i, err)
		}
		doc.Events = append(doc.Events, schedule.Event{At: at, Description: e.Description})
	}
	return doc, nil
}

// ReadDocument reads and decodes a content file.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("content: read file: %w", err)
	}
	return ParseDocument(data)
}

// LoadFile reads a content file and builds a Store from it.
func LoadFile(path, scheduleLabel string) (*Store, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return doc.Store(scheduleLabel)
}

// Store validates the document and builds a Store.
func (d Document) Store(scheduleLabel string) (*Store, error) {
	return New(d.Sections, d.Events, scheduleLabel)
}
