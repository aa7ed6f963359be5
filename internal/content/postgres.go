package content

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"festbot/core/logger"
	"festbot/internal/schedule"
)

const (
	selectSectionsSQL = `SELECT label, body FROM sections ORDER BY position`
	selectEventsSQL   = `SELECT hour, minute, description FROM events ORDER BY hour, minute, id`
	deleteEventsSQL   = `DELETE FROM events`
	deleteSectionsSQL = `DELETE FROM sections`
	insertSectionSQL  = `INSERT INTO sections (position, label, body) VALUES ($1, $2, $3)`
	insertEventSQL    = `INSERT INTO events (hour, minute, description) VALUES ($1, $2, $3)`
)

type sectionRow struct {
	Label string `db:"label"`
	Body  string `db:"body"`
}

type eventRow struct {
	Hour        int    `db:"hour"`
	Minute      int    `db:"minute"`
	Description string `db:"description"`
}

// Repository reads and replaces content stored in Postgres.
type Repository struct {
	db *sqlx.DB
}

// NewRepository returns a Repository backed by db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Document reads all sections and events.
func (r *Repository) Document(ctx context.Context) (Document, error) {
	var sections []sectionRow
	if err := r.db.SelectContext(ctx, &sections, selectSectionsSQL); err != nil {
		return Document{}, fmt.Errorf("content: select sections: %w", err)
	}
	var events []eventRow
	if err := r.db.SelectContext(ctx, &events, selectEventsSQL); err != nil {
		return Document{}, fmt.Errorf("content: select events: %w", err)
	}

	doc := Document{
		Sections: make([]Section, 0, len(sections)),
		Events:   make([]schedule.Event, 0, len(events)),
	}
	for _, s := range sections {
		doc.Sections = append(doc.Sections, Section{Label: s.Label, Text: s.Body})
	}
	for _, e := range events {
		doc.Events = append(doc.Events, schedule.Event{
			At:          schedule.Clock{Hour: e.Hour, Minute: e.Minute},
			Description: e.Description,
		})
	}
	return doc, nil
}

// Load reads the stored content and builds a Store.
func (r *Repository) Load(ctx context.Context, scheduleLabel string) (*Store, error) {
	start := time.Now()
	doc, err := r.Document(ctx)
	if err != nil {
		return nil, err
	}
	store, err := doc.Store(scheduleLabel)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "content", "content.loaded",
		slog.String("source", "postgres"),
		slog.Int("sections", len(doc.Sections)),
		slog.Int("events", len(doc.Events)),
		slog.Duration("duration", logger.Took(start)),
	)
	return store, nil
}

// Replace swaps the stored content for doc in a single transaction.
func (r *Repository) Replace(ctx context.Context, doc Document) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("content: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteEventsSQL); err != nil {
		return fmt.Errorf("content: clear events: %w", err)
	}
	if _, err = tx.ExecContext(ctx, deleteSectionsSQL); err != nil {
		return fmt.Errorf("content: clear sections: %w", err)
	}
	for i, s := range doc.Sections {
		if _, err = tx.ExecContext(ctx, insertSectionSQL, i, s.Label, s.Text); err != nil {
			return fmt.Errorf("content: insert section %q: %w", s.Label, err)
		}
	}
	for _, e := range doc.Events {
		if _, err = tx.ExecContext(ctx, insertEventSQL, e.At.Hour, e.At.Minute, e.Description); err != nil {
			return fmt.Errorf("content: insert event %s: %w", e.At, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("content: commit: %w", err)
	}
	return nil
}

// SeedFile validates a content file and replaces the stored content with it.
func (r *Repository) SeedFile(ctx context.Context, path, scheduleLabel string) error {
	doc, err := ReadDocument(path)
	if err != nil {
		return err
	}
	if _, err := doc.Store(scheduleLabel); err != nil {
		return err
	}
	if err := r.Replace(ctx, doc); err != nil {
		logger.Error(ctx, "db.seed", "content.seed",
			slog.String("status", "fail"),
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.Info(ctx, "db.seed", "content.seed",
		slog.String("status", "ok"),
		slog.String("path", path),
		slog.Int("sections", len(doc.Sections)),
		slog.Int("events", len(doc.Events)),
	)
	return nil
}
