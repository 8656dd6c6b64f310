package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Update and Delete when no row has the given id.
var ErrNotFound = errors.New("record not found")

const (
	connectAttempts = 10
	connectBackoff  = 3 * time.Second
)

func ConnectPGDB(dsn string, logger zerolog.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	// Retry up to 10 times, waiting 3 seconds between attempts
	for i := 1; i <= connectAttempts; i++ {
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", i).Msg("failed to open DB")
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = db.PingContext(ctx)
			cancel()
			if err == nil {
				logger.Info().Msg("connected to database")
				return db, nil
			}
			logger.Warn().Err(err).Int("attempt", i).Msg("DB not ready")
			db.Close()
		}

		time.Sleep(connectBackoff)
	}

	return nil, fmt.Errorf("could not connect to database after multiple attempts: %w", err)
}

func MigrateFS(db *sql.DB, migrationsFS fs.FS, dir string) error {
	goose.SetBaseFS(migrationsFS)
	defer func() {
		goose.SetBaseFS(nil)
	}()
	return Migrate(db, dir)
}

func Migrate(db *sql.DB, dir string) error {
	err := goose.SetDialect("postgres")
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	err = goose.Up(db, dir)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
