// Package pgsource stores BUFR tables in PostgreSQL and loads them back as a
// tables.Source. It shares the schema shape of sqlsource so that tables can be moved
// between the two with Store and Source.
package pgsource

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/format"
	"github.com/arloliu/bufr/tables"
)

// DB wraps a PostgreSQL connection pool holding table entries.
type DB struct {
	pool *pgxpool.Pool
}

// Open opens a connection pool to PostgreSQL and pings it.
func Open(ctx context.Context, dsn string) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// CreateSchema creates the table entry tables if they do not exist.
func (d *DB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bufr_table_b (
		version     INTEGER NOT NULL,
		descriptor  INTEGER NOT NULL,
		name        TEXT NOT NULL,
		unit        TEXT NOT NULL,
		scale       INTEGER NOT NULL DEFAULT 0,
		reference   BIGINT NOT NULL DEFAULT 0,
		width       INTEGER NOT NULL,
		PRIMARY KEY (version, descriptor)
	);

	CREATE TABLE IF NOT EXISTS bufr_table_d (
		version     INTEGER NOT NULL,
		descriptor  INTEGER NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		members     INTEGER[] NOT NULL,
		PRIMARY KEY (version, descriptor)
	);
	`
	_, err := d.pool.Exec(ctx, schema)

	return err
}

// Store upserts entries for a master table version in one transaction.
func (d *DB) Store(ctx context.Context, version int, b []tables.TableBEntry, dd []tables.TableDEntry) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, e := range b {
		batch.Queue(`
			INSERT INTO bufr_table_b (version, descriptor, name, unit, scale, reference, width)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (version, descriptor) DO UPDATE SET
				name = EXCLUDED.name,
				unit = EXCLUDED.unit,
				scale = EXCLUDED.scale,
				reference = EXCLUDED.reference,
				width = EXCLUDED.width
		`, version, int(e.Descriptor), e.Name, e.Unit, e.Scale, e.Reference, e.Width)
	}
	for _, e := range dd {
		batch.Queue(`
			INSERT INTO bufr_table_d (version, descriptor, name, members)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (version, descriptor) DO UPDATE SET
				name = EXCLUDED.name,
				members = EXCLUDED.members
		`, version, int(e.Descriptor), e.Name, descriptor.Ints(e.Members))
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store entries: %w", err)
	}

	return tx.Commit(ctx)
}

// Versions returns the master table versions present, in ascending order.
func (d *DB) Versions(ctx context.Context) ([]int, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT version FROM bufr_table_b
		UNION
		SELECT version FROM bufr_table_d
		ORDER BY version
	`)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}

	return pgx.CollectRows(rows, pgx.RowTo[int])
}

// Source reads all entries of a master table version into a tables.Source.
func (d *DB) Source(ctx context.Context, version int) (*tables.StaticSource, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT descriptor, name, unit, scale, reference, width
		FROM bufr_table_b WHERE version = $1 ORDER BY descriptor
	`, version)
	if err != nil {
		return nil, fmt.Errorf("query table B: %w", err)
	}
	b, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tables.TableBEntry, error) {
		var (
			e    tables.TableBEntry
			code int
		)
		if err := row.Scan(&code, &e.Name, &e.Unit, &e.Scale, &e.Reference, &e.Width); err != nil {
			return e, err
		}
		e.Descriptor = descriptor.Descriptor(code)
		e.Type = format.DataTypeFromUnit(e.Unit)

		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan table B: %w", err)
	}

	rows, err = d.pool.Query(ctx, `
		SELECT descriptor, name, members
		FROM bufr_table_d WHERE version = $1 ORDER BY descriptor
	`, version)
	if err != nil {
		return nil, fmt.Errorf("query table D: %w", err)
	}
	dd, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tables.TableDEntry, error) {
		var (
			e       tables.TableDEntry
			code    int
			members []int
		)
		if err := row.Scan(&code, &e.Name, &members); err != nil {
			return e, err
		}
		e.Descriptor = descriptor.Descriptor(code)
		e.Members = descriptor.FromInts(members...)

		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan table D: %w", err)
	}

	return tables.NewStaticSource(fmt.Sprintf("postgres:v%d", version), b, dd), nil
}
