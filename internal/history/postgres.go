package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/rakunlabs/muz"
)

//go:embed migrations/postgres/*
var postgresMigrationFS embed.FS

const (
	postgresConnMaxLifetime = 15 * time.Minute
	postgresMaxIdleConns    = 3
	postgresMaxOpenConns    = 3
)

type postgresStore struct {
	db    *sql.DB
	goqu  *goqu.Database
	table string
}

func newPostgres(ctx context.Context, datasource string) (Store, error) {
	if datasource == "" {
		return nil, fmt.Errorf("postgres datasource is required")
	}

	db, err := sql.Open("pgx", datasource)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetConnMaxLifetime(postgresConnMaxLifetime)
	db.SetMaxIdleConns(postgresMaxIdleConns)
	db.SetMaxOpenConns(postgresMaxOpenConns)

	m := muz.Migrate{
		Path:      "migrations/postgres",
		FS:        postgresMigrationFS,
		Extension: ".sql",
		Values:    map[string]string{"TABLE_PREFIX": tablePrefix},
	}
	driver := muz.NewPostgresDriver(db, tablePrefix+"migrations", slog.Default())
	if err := m.Migrate(ctx, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history postgres: %w", err)
	}

	slog.Info("connected to history postgres store")

	return &postgresStore{
		db:    db,
		goqu:  goqu.New("postgres", db),
		table: tablePrefix + "runs",
	}, nil
}

func (s *postgresStore) Record(ctx context.Context, r Record) error {
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

func (s *postgresStore) List(ctx context.Context, f Filter) ([]Record, error) {
	return listRecords(ctx, s.db, s.goqu, s.table, f)
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}
