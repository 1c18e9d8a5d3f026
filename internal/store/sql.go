package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/conneroisu/fileclaim/internal/errors"
)

const schema = `CREATE TABLE IF NOT EXISTS fileclaim_metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQL stores metadata in a fileclaim_metadata table.
type SQL struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens dsn with driver and creates the metadata table if needed.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.WrapConfig(err, "opening metadata store")
	}
	if driver == DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	s, err := NewSQL(ctx, db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQL wraps an open database and ensures the schema exists.
func NewSQL(ctx context.Context, db *sql.DB, driver string) (*SQL, error) {
	s := &SQL{db: db, driver: driver}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.WrapIO(err, errors.CodeStoreFailed, "creating metadata table")
	}
	return s, nil
}

// Get returns the value stored for key and whether it exists.
func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT value FROM fileclaim_metadata WHERE key = ?`), key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapIO(err, errors.CodeStoreFailed, "reading metadata").WithContext("key", key)
	}
	return value, true, nil
}

// Put stores value under key, replacing any earlier value.
func (s *SQL) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO fileclaim_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`), key, value)
	if err != nil {
		return errors.WrapIO(err, errors.CodeStoreFailed, "writing metadata").WithContext("key", key)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *SQL) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM fileclaim_metadata WHERE key = ?`), key)
	if err != nil {
		return errors.WrapIO(err, errors.CodeStoreFailed, "removing metadata").WithContext("key", key)
	}
	return nil
}

// Close closes the database.
func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) rebind(query string) string {
	return rebind(s.driver, query)
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
