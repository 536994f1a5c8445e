package client

import (
	"context"
	"database/sql"
	"log"

	"github.com/pressly/goose/v3"

	"timecapsule/internal/client/migrations"
	"timecapsule/internal/client/repositories/diary"
	"timecapsule/internal/client/repositories/identity"
)

// Repositories bundles everything backed by the local client database.
type Repositories struct {
	Diary    diary.Repository
	Identity *identity.SQLiteTier
	DB       *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	// Set the database dialect
	if err := goose.SetDialect("sqlite3"); err != nil {
		log.Fatal("failed to set goose dialect:", err)
	}

	return goose.UpContext(ctx, db, ".")
}

func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	return &Repositories{
		Diary:    diary.NewSQLiteRepository(db),
		Identity: identity.NewSQLiteTier(db),
		DB:       db,
	}, nil
}
