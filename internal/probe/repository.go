package probe

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SayaAndy/image-gallery/config"
	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Repository persists probed dimensions so restarts do not refetch every image.
type Repository struct {
	db *sql.DB
}

func NewRepository(cfg *config.DbConfig) (*Repository, error) {
	db, err := sql.Open(cfg.Type, cfg.Cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("fail to initialize db: %w", err)
	}

	if err = migrateUp(db, cfg.Type); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

func migrateUp(db *sql.DB, dbType string) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("fail to initialize driver for migrating db: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("fail to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbType, driver)
	if err != nil {
		return fmt.Errorf("fail to initialize migration client: %w", err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("fail to apply migrations: %w", err)
	}
	slog.Debug("successfully applied migrations")
	return nil
}

func (r *Repository) Get(ctx context.Context, src string) (dims gallery.Dimensions, found bool, err error) {
	row := r.db.QueryRowContext(ctx, "SELECT width, height FROM image_dimensions WHERE src = ?;", src)
	if err = row.Scan(&dims.Width, &dims.Height); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gallery.Dimensions{}, false, nil
		}
		return gallery.Dimensions{}, false, fmt.Errorf("fail to query dimensions of '%s': %w", src, err)
	}
	return dims, true, nil
}

func (r *Repository) Put(ctx context.Context, src string, dims gallery.Dimensions) error {
	_, err := r.db.ExecContext(ctx, `
    INSERT INTO image_dimensions (src, width, height)
    VALUES (?, ?, ?)
    ON CONFLICT(src) DO UPDATE SET
        width = excluded.width,
        height = excluded.height,
        probed_at = CURRENT_TIMESTAMP;
    `, src, dims.Width, dims.Height)
	if err != nil {
		return fmt.Errorf("fail to store dimensions of '%s': %w", src, err)
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (count int, err error) {
	if err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM image_dimensions;").Scan(&count); err != nil {
		return 0, fmt.Errorf("fail to count probed images: %w", err)
	}
	return count, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
