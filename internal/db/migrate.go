package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/udisondev/gsgo/internal/config"
	"github.com/udisondev/gsgo/internal/db/migrations"
)

// RunMigrations opens dsn with the driver's database/sql adapter and runs
// the embedded goose migrations.
func RunMigrations(ctx context.Context, driver, dsn string) error {
	sqlDriver, dialect, err := sqlDialect(driver)
	if err != nil {
		return err
	}

	sqlDB, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	return migrate(ctx, sqlDB, dialect)
}

func migrate(ctx context.Context, sqlDB *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func sqlDialect(driver string) (sqlDriver, dialect string, err error) {
	switch driver {
	case config.DriverPostgres:
		return "pgx", "postgres", nil
	case config.DriverSQLite:
		return "sqlite3", "sqlite3", nil
	default:
		return "", "", fmt.Errorf("unknown database driver %q", driver)
	}
}
