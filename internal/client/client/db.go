package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/matchdeck/internal/client/migrations"
	"github.com/dmitrijs2005/matchdeck/internal/client/repositories/decisions"
	"github.com/dmitrijs2005/matchdeck/internal/client/repositories/metadata"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories groups the local stores opened on one database.
type Repositories struct {
	Metadata  metadata.Repository
	Decisions decisions.Repository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Metadata:  metadata.NewSQLiteRepository(db),
		Decisions: decisions.NewSQLiteRepository(db),
	}
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite file at dsn and brings its schema up to date.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}
