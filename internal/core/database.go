// AngelaMos | 2026
// database.go

package core

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/carterperez-dev/contacts-backend/internal/config"
)

const (
	pingTimeout = 5 * time.Second

	uniqueViolation = "23505"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DBTX is what repositories need from *sqlx.DB or *sqlx.Tx.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type Database struct {
	DB *sqlx.DB
}

func NewDatabase(
	ctx context.Context,
	cfg config.DatabaseConfig,
) (*Database, error) {
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	// Spread reconnects so the pool does not recycle every connection at once.
	db.SetConnMaxLifetime(withJitter(cfg.ConnMaxLifetime))
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	d := &Database{DB: db}
	if err := d.Ping(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, err
	}

	return d, nil
}

// SQL is the underlying pool, for goose and the pool stats collector.
func (d *Database) SQL() *sql.DB {
	return d.DB.DB
}

// Migrate applies the embedded goose migrations.
func (d *Database) Migrate(ctx context.Context) error {
	dir, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, d.SQL(), dir)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	return pingWithin(ctx, "database", d.DB.PingContext)
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// IsNoRows reports whether err is the "no rows" result of a single-row query.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func pingWithin(
	ctx context.Context,
	name string,
	ping func(context.Context) error,
) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := ping(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", name, err)
	}
	return nil
}

// withJitter adds up to a seventh of base.
func withJitter(base time.Duration) time.Duration {
	if base <= 0 {
		return base
	}
	//nolint:gosec // G404: pool jitter is not security sensitive
	return base + rand.N(base/7+1)
}
