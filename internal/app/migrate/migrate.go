package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const dialect = "postgres"

// Runner applies the goose migrations kept in a directory.
type Runner struct {
	db            *sql.DB
	migrationsDir string
	timeout       time.Duration
	log           *slog.Logger
}

// New opens a database handle for dsn and validates the migrations directory.
func New(dsn, migrationsDir string, log *slog.Logger) (*Runner, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}
	if migrationsDir == "" {
		return nil, errors.New("empty migrations directory")
	}
	info, err := os.Stat(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("locate migrations dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations path %s is not a directory", migrationsDir)
	}
	if err := goose.SetDialect(dialect); err != nil {
		return nil, fmt.Errorf("configure goose: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	return &Runner{db: db, migrationsDir: migrationsDir, timeout: time.Minute, log: log}, nil
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.log.Info("applying migrations", "dir", r.migrationsDir)
	if err := goose.UpContext(ctx, r.db, r.migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, err := r.Version(ctx)
	if err != nil {
		return err
	}
	r.log.Info("migrations applied", "version", version)
	return nil
}

// Status logs applied and pending migrations.
func (r *Runner) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, r.db, r.migrationsDir); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func (r *Runner) Version(ctx context.Context) (int64, error) {
	version, err := goose.GetDBVersionContext(ctx, r.db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// Down rolls back the latest migration, or everything above target when
// target is positive.
func (r *Runner) Down(ctx context.Context, target int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if target > 0 {
		r.log.Info("rolling back migrations", "target", target)
		if err := goose.DownToContext(ctx, r.db, r.migrationsDir, target); err != nil {
			return fmt.Errorf("rollback to version %d: %w", target, err)
		}
		return nil
	}
	r.log.Info("rolling back latest migration")
	if err := goose.DownContext(ctx, r.db, r.migrationsDir); err != nil {
		return fmt.Errorf("rollback latest migration: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (r *Runner) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (r *Runner) Close() error {
	return r.db.Close()
}
