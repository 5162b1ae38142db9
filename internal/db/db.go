package db

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/gsgo/internal/config"
	"github.com/udisondev/gsgo/internal/model"
)

// AccountStore is an account repository bound to an open database.
type AccountStore interface {
	GetAccount(ctx context.Context, login string) (*model.Account, error)
	CreateAccount(ctx context.Context, login, passwordHash, ip string) error
	GetOrCreateAccount(ctx context.Context, login, passwordHash, ip string) (*model.Account, error)
	UpdateLastLogin(ctx context.Context, login, service, ip string) error
	Close() error
}

// DB wraps a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// OpenAccounts migrates the configured database and returns its account store.
func OpenAccounts(ctx context.Context, cfg config.DatabaseConfig) (AccountStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		dsn := cfg.DSN()
		if err := RunMigrations(ctx, config.DriverPostgres, dsn); err != nil {
			return nil, err
		}
		d, err := New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		slog.Info("account store ready", "driver", cfg.Driver, "host", cfg.Host, "db", cfg.DBName)
		return NewPostgresAccountRepository(d), nil

	case config.DriverSQLite:
		repo, err := OpenSQLiteAccountRepository(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		slog.Info("account store ready", "driver", cfg.Driver, "path", cfg.Path)
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// HashPassword hashes a password with SHA-1 and returns Base64 encoding.
func HashPassword(password string) string {
	h := sha1.New()
	h.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
