// Package sqlsource stores BUFR tables in a SQLite database and loads them back as a
// tables.Source.
//
// Entries are keyed by master table version, so a single database file can hold the
// tables of every version a pipeline supports:
//
//	db, err := sqlsource.Open("tables.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	src, err := db.Source(ctx, 36)
//	if err != nil {
//	    return err
//	}
//	reg := tables.New(36)
//	err = reg.Load(src, true)
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/format"
	"github.com/arloliu/bufr/tables"
)

// DB wraps a SQLite database connection holding table entries.
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path and ensures the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS table_b (
		version     INTEGER NOT NULL,
		descriptor  INTEGER NOT NULL,
		name        TEXT NOT NULL,
		unit        TEXT NOT NULL,
		scale       INTEGER NOT NULL DEFAULT 0,
		reference   INTEGER NOT NULL DEFAULT 0,
		width       INTEGER NOT NULL,
		PRIMARY KEY (version, descriptor)
	);

	CREATE TABLE IF NOT EXISTS table_d (
		version     INTEGER NOT NULL,
		descriptor  INTEGER NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (version, descriptor)
	);

	CREATE TABLE IF NOT EXISTS table_d_members (
		version     INTEGER NOT NULL,
		descriptor  INTEGER NOT NULL,
		position    INTEGER NOT NULL,
		member      INTEGER NOT NULL,
		PRIMARY KEY (version, descriptor, position)
	);
	`

	_, err := db.Exec(schema)

	return err
}

// Store writes entries for a master table version in one transaction.
//
// Existing entries with the same descriptor are replaced, so storing a local table over
// a standard one behaves like a merged registry load.
func (d *DB) Store(ctx context.Context, version int, b []tables.TableBEntry, dd []tables.TableDEntry) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range b {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO table_b (version, descriptor, name, unit, scale, reference, width)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, version, int(e.Descriptor), e.Name, e.Unit, e.Scale, e.Reference, e.Width)
		if err != nil {
			return fmt.Errorf("insert table B %s: %w", e.Descriptor, err)
		}
	}

	for _, e := range dd {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO table_d (version, descriptor, name) VALUES (?, ?, ?)`,
			version, int(e.Descriptor), e.Name); err != nil {
			return fmt.Errorf("insert table D %s: %w", e.Descriptor, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM table_d_members WHERE version = ? AND descriptor = ?`,
			version, int(e.Descriptor)); err != nil {
			return fmt.Errorf("clear members of %s: %w", e.Descriptor, err)
		}
		for pos, m := range e.Members {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO table_d_members (version, descriptor, position, member) VALUES (?, ?, ?, ?)
			`, version, int(e.Descriptor), pos, int(m)); err != nil {
				return fmt.Errorf("insert member of %s: %w", e.Descriptor, err)
			}
		}
	}

	return tx.Commit()
}

// Versions returns the master table versions present, in ascending order.
func (d *DB) Versions(ctx context.Context) ([]int, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT version FROM table_b
		UNION
		SELECT version FROM table_d
		ORDER BY version
	`)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, rows.Err()
}

// Source reads all entries of a master table version into a tables.Source.
//
// The query runs eagerly; the returned source holds the rows in memory.
func (d *DB) Source(ctx context.Context, version int) (*tables.StaticSource, error) {
	b, err := d.fetchTableB(ctx, version)
	if err != nil {
		return nil, err
	}
	dd, err := d.fetchTableD(ctx, version)
	if err != nil {
		return nil, err
	}

	return tables.NewStaticSource(fmt.Sprintf("sqlite:v%d", version), b, dd), nil
}

func (d *DB) fetchTableB(ctx context.Context, version int) ([]tables.TableBEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT descriptor, name, unit, scale, reference, width
		FROM table_b WHERE version = ? ORDER BY descriptor
	`, version)
	if err != nil {
		return nil, fmt.Errorf("query table B: %w", err)
	}
	defer rows.Close()

	var out []tables.TableBEntry
	for rows.Next() {
		var (
			e    tables.TableBEntry
			code int
		)
		if err := rows.Scan(&code, &e.Name, &e.Unit, &e.Scale, &e.Reference, &e.Width); err != nil {
			return nil, err
		}
		e.Descriptor = descriptor.Descriptor(code)
		e.Type = format.DataTypeFromUnit(e.Unit)
		out = append(out, e)
	}

	return out, rows.Err()
}

func (d *DB) fetchTableD(ctx context.Context, version int) ([]tables.TableDEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT d.descriptor, d.name, m.member
		FROM table_d d
		JOIN table_d_members m ON m.version = d.version AND m.descriptor = d.descriptor
		WHERE d.version = ?
		ORDER BY d.descriptor, m.position
	`, version)
	if err != nil {
		return nil, fmt.Errorf("query table D: %w", err)
	}
	defer rows.Close()

	var out []tables.TableDEntry
	for rows.Next() {
		var (
			code, member int
			name         string
		)
		if err := rows.Scan(&code, &name, &member); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || int(out[n-1].Descriptor) != code {
			out = append(out, tables.TableDEntry{Descriptor: descriptor.Descriptor(code), Name: name})
		}
		last := &out[len(out)-1]
		last.Members = append(last.Members, descriptor.Descriptor(member))
	}

	return out, rows.Err()
}
