package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/udisondev/gsgo/internal/model"
)

// PostgresAccountRepository реализует AccountStore для PostgreSQL.
type PostgresAccountRepository struct {
	db *DB
}

// NewPostgresAccountRepository создаёт новый PostgreSQL repository.
func NewPostgresAccountRepository(d *DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: d}
}

// GetAccount возвращает аккаунт по логину.
// Возвращает nil, nil если аккаунт не найден.
func (r *PostgresAccountRepository) GetAccount(ctx context.Context, login string) (*model.Account, error) {
	login = strings.ToLower(login)
	var acc model.Account
	err := r.db.pool.QueryRow(ctx,
		`SELECT login, password, access_level, last_service, last_ip, last_active
		 FROM accounts WHERE login = $1`, login,
	).Scan(&acc.Login, &acc.PasswordHash, &acc.AccessLevel, &acc.LastService, &acc.LastIP, &acc.LastActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account %q: %w", login, err)
	}
	return &acc, nil
}

// CreateAccount создаёт новый аккаунт с указанным паролем и IP.
func (r *PostgresAccountRepository) CreateAccount(ctx context.Context, login, passwordHash, ip string) error {
	login = strings.ToLower(login)
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO accounts (login, password, last_active, access_level, last_ip)
		 VALUES ($1, $2, $3, 0, $4)`,
		login, passwordHash, time.Now().UTC(), ip,
	)
	if err != nil {
		return fmt.Errorf("creating account %q: %w", login, err)
	}
	return nil
}

// GetOrCreateAccount атомарно получает существующий или создаёт новый аккаунт.
// INSERT ... ON CONFLICT DO NOTHING, затем SELECT.
func (r *PostgresAccountRepository) GetOrCreateAccount(ctx context.Context, login, passwordHash, ip string) (*model.Account, error) {
	login = strings.ToLower(login)

	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO accounts (login, password, last_active, access_level, last_ip)
		 VALUES ($1, $2, $3, 0, $4)
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

// UpdateLastLogin обновляет last_active, last_service и last_ip при успешном логине.
func (r *PostgresAccountRepository) UpdateLastLogin(ctx context.Context, login, service, ip string) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE accounts SET last_active = $1, last_service = $2, last_ip = $3 WHERE login = $4`,
		time.Now().UTC(), service, ip, strings.ToLower(login),
	)
	if err != nil {
		return fmt.Errorf("updating last login for %q: %w", login, err)
	}
	return nil
}

// Close closes the pool.
func (r *PostgresAccountRepository) Close() error {
	r.db.Close()
	return nil
}
