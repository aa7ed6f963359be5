package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "festbot/core/config"
	coredatabase "festbot/core/database"
	"festbot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config
	// Database is optional; nil skips connect, migrations and seeding.
	Database *coredatabase.Config
	Modules  Modules

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil when no database was configured.
	DB *sqlx.DB
}

// Close releases the database handle if one was opened.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

func (o Options) withDefaults() Options {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
	return o
}

// Run initializes the logger and, when a database is configured, connects,
// migrates and seeds it. Any failure closes the connection.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	opts = opts.withDefaults()
	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	if opts.Database == nil {
		logger.Debug(ctx, "db", "db.skip", slog.String("reason", "not_configured"))
		return &Result{}, nil
	}

	db, err := opts.Connect(*opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err := prepare(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Result{DB: db}, nil
}

func prepare(ctx context.Context, db *sqlx.DB, opts Options) error {
	if err := opts.Migrate(*opts.Database); err != nil {
		return fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	for _, s := range opts.Modules.Seeders {
		if s.Seeder != nil {
			if err := runSeeder(ctx, db, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func runSeeder(ctx context.Context, db *sqlx.DB, s NamedSeeder) error {
	start := time.Now()
	err := s.Seeder.Seed(ctx, db)
	if err != nil {
		logger.Error(ctx, "db.seed", "seed.fail",
			slog.String("seeder", s.Name),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("bootstrap: seeder %q failed: %w", s.Name, err)
	}
	logger.Info(ctx, "db.seed", "seed.done",
		slog.String("seeder", s.Name),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}
