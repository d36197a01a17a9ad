// Package store implements the external-store contracts of spec.md §4.5 as
// a database/sql-backed component, grounded on the teacher's db.go/
// storage.go/ban.go/privs.go. It speaks either SQLite (mattn/go-sqlite3,
// the default single-file deployment) or Postgres (lib/pq, when the
// configured database string is a postgres:// URL) behind one interface,
// exactly as the teacher's OpenSQLite3/OpenPSQL pair already distinguishes.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/signalsfoundry/murmurhf/internal/errs"
)

// Store is the concrete external-store implementation. All mutating
// operations that touch more than one row run inside a transaction —
// spec.md §4.5: "all mutating operations must be transactional
// (all-or-nothing) and serializable with respect to each other."
type Store struct {
	db      *sql.DB
	dialect dialect
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY,
	name_lower VARCHAR(512) UNIQUE NOT NULL,
	name VARCHAR(512) NOT NULL,
	pw_verifier BLOB,
	pw_salt BLOB,
	cert_hash_strong VARCHAR(128),
	cert_hash_weak VARCHAR(128)
);
CREATE TABLE IF NOT EXISTS user_properties (
	user_id INTEGER NOT NULL,
	tag INTEGER NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (user_id, tag)
);
CREATE TABLE IF NOT EXISTS acl_rows (
	channel_id INTEGER NOT NULL,
	user_id INTEGER,
	group_name VARCHAR(256),
	allow_mask INTEGER NOT NULL,
	deny_mask INTEGER NOT NULL,
	apply_here BOOLEAN NOT NULL,
	apply_subs BOOLEAN NOT NULL,
	inherited BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS bans (
	id VARCHAR(64) PRIMARY KEY,
	address BLOB NOT NULL,
	prefix_len INTEGER NOT NULL,
	username VARCHAR(512),
	cert_hash VARCHAR(128),
	reason TEXT,
	start_unix INTEGER NOT NULL,
	duration_seconds INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS textures (
	user_id INTEGER PRIMARY KEY,
	blob BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS blocklist (
	owner_id INTEGER NOT NULL,
	blocked_id INTEGER NOT NULL,
	PRIMARY KEY (owner_id, blocked_id)
);
`

// OpenSQLite opens (creating if absent) a SQLite-backed store at path,
// matching the teacher's OpenSQLite3.
func OpenSQLite(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errs.New(errs.StoreError, "store", err)
	}
	if strings.Contains(path, ":memory:") {
		// go-sqlite3's shared in-memory database is per-connection unless
		// the pool is pinned to a single connection.
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db, dialect: dialectSQLite}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres opens a Postgres-backed store, matching the teacher's
// OpenPSQL.
func OpenPostgres(conninfo string) (*Store, error) {
	db, err := sql.Open("postgres", conninfo)
	if err != nil {
		return nil, errs.New(errs.StoreError, "store", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.New(errs.StoreError, "store", err)
	}
	s := &Store{db: db, dialect: dialectPostgres}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Open dispatches on the configured database string: a postgres:// URL
// goes to OpenPostgres, anything else is treated as a SQLite file path —
// the same split the `database` config key makes per SPEC_FULL.md §4.
func Open(databaseConfig string) (*Store, error) {
	if strings.HasPrefix(databaseConfig, "postgres://") {
		return OpenPostgres(databaseConfig)
	}
	return OpenSQLite(databaseConfig)
}

func (s *Store) migrate() error {
	stmts := strings.Split(schema, ";\n")
	for _, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return errs.New(errs.StoreError, "store", fmt.Errorf("migrate: %w", err))
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic, per the all-or-nothing requirement.
func (s *Store) withTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errs.New(errs.StoreError, "store", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.New(errs.StoreError, "store", err)
	}
	return nil
}

// placeholder returns the dialect-appropriate positional placeholder for
// argument index i (1-based) — sqlite3 and lib/pq differ here (? vs $N).
func (s *Store) placeholder(i int) string {
	if s.dialect == dialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}
