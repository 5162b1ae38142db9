package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/udisondev/gsgo/internal/model"
)

// SQLiteAccountRepository реализует AccountStore поверх go-sqlite3.
type SQLiteAccountRepository struct {
	db *sql.DB
}

// OpenSQLiteAccountRepository opens (or creates) the database file at path
// and applies migrations.
func OpenSQLiteAccountRepository(ctx context.Context, path string) (*SQLiteAccountRepository, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// один writer, иначе SQLITE_BUSY под нагрузкой
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging sqlite %s: %w", path, err)
	}
	if err := migrate(ctx, sqlDB, "sqlite3"); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &SQLiteAccountRepository{db: sqlDB}, nil
}

// GetAccount возвращает аккаунт по логину или nil, nil.
func (r *SQLiteAccountRepository) GetAccount(ctx context.Context, login string) (*model.Account, error) {
	login = strings.ToLower(login)
	var acc model.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT login, password, access_level, last_service, last_ip, last_active
		 FROM accounts WHERE login = ?`, login,
	).Scan(&acc.Login, &acc.PasswordHash, &acc.AccessLevel, &acc.LastService, &acc.LastIP, &acc.LastActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account %q: %w", login, err)
	}
	return &acc, nil
}

// CreateAccount создаёт новый аккаунт.
func (r *SQLiteAccountRepository) CreateAccount(ctx context.Context, login, passwordHash, ip string) error {
	login = strings.ToLower(login)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (login, password, last_active, access_level, last_ip)
		 VALUES (?, ?, ?, 0, ?)`,
		login, passwordHash, time.Now().UTC(), ip,
	)
	if err != nil {
		return fmt.Errorf("creating account %q: %w", login, err)
	}
	return nil
}

// GetOrCreateAccount получает существующий или создаёт новый аккаунт.
func (r *SQLiteAccountRepository) GetOrCreateAccount(ctx context.Context, login, passwordHash, ip string) (*model.Account, error) {
	login = strings.ToLower(login)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (login, password, last_active, access_level, last_ip)
		 VALUES (?, ?, ?, 0, ?)
		 ON CONFLICT (login) DO NOTHING`,
		login, passwordHash, time.Now().UTC(), ip,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting account %q: %w", login, err)
	}

	acc, err := r.GetAccount(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("getting account after insert %q: %w", login, err)
	}
	if acc == nil {
		return nil, fmt.Errorf("account %q not found after insert (unexpected)", login)
	}
	return acc, nil
}

// UpdateLastLogin обновляет last_active, last_service и last_ip.
func (r *SQLiteAccountRepository) UpdateLastLogin(ctx context.Context, login, service, ip string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET last_active = ?, last_service = ?, last_ip = ? WHERE login = ?`,
		time.Now().UTC(), service, ip, strings.ToLower(login),
	)
	if err != nil {
		return fmt.Errorf("updating last login for %q: %w", login, err)
	}
	return nil
}

// Close closes the database.
func (r *SQLiteAccountRepository) Close() error {
	return r.db.Close()
}
