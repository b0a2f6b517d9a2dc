package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	"github.com/rakunlabs/muz"
)

//go:embed migrations/sqlite/*
var sqliteMigrationFS embed.FS

const tablePrefix = "quicpulse_"

type sqliteStore struct {
	db    *sql.DB
	goqu  *goqu.Database
	table string
}

func newSQLite(ctx context.Context, datasource string) (Store, error) {
	db, err := sql.Open("sqlite", datasource)
	if err != nil {
		return nil, fmt.Errorf("open sqlite connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	// SQLite is single-writer; limit connections accordingly.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	m := muz.Migrate{
		Path:      "migrations/sqlite",
		FS:        sqliteMigrationFS,
		Extension: ".sql",
		Values:    map[string]string{"TABLE_PREFIX": tablePrefix},
	}
	driver := muz.NewSQLiteDriver(db, tablePrefix+"migrations", slog.Default())
	if err := m.Migrate(ctx, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history sqlite: %w", err)
	}

	slog.Info("connected to history sqlite store")

	return &sqliteStore{
		db:    db,
		goqu:  goqu.New("sqlite3", db),
		table: tablePrefix + "runs",
	}, nil
}

func (s *sqliteStore) Record(ctx context.Context, r Record) error {
	if r.ID == "" {
		r.ID = ulid.Make().String()
	}
	query, args, err := s.goqu.Insert(s.table).Rows(recordRow(r)).ToSQL()
	if err != nil {
		return fmt.Errorf("build history insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

func (s *sqliteStore) List(ctx context.Context, f Filter) ([]Record, error) {
	return listRecords(ctx, s.db, s.goqu, s.table, f)
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
