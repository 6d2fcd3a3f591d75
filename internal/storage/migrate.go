package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

type dialect struct {
	name string
	dir  string
}

var (
	dialectSQLite   = dialect{name: "sqlite3", dir: "migrations/sqlite"}
	dialectPostgres = dialect{name: "postgres", dir: "migrations/postgres"}
)

// LatestSchemaVersion is the highest migration shipped for every dialect.
const LatestSchemaVersion int64 = 1

// goose keeps its base FS and dialect in package globals
var gooseMu sync.Mutex

func runMigrations(db *sql.DB, d dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(d.name); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, d.dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version of a SQL-backed store.
// JSON stores have no schema and report 0.
func SchemaVersion(p Provider) (int64, error) {
	var (
		db *sql.DB
		d  dialect
	)
	switch s := p.(type) {
	case *SQLiteStore:
		db, d = s.db, dialectSQLite
	case *PostgresStore:
		db, d = s.db, dialectPostgres
	default:
		return 0, nil
	}
	if db == nil {
		return 0, fmt.Errorf("storage not initialized")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := goose.SetDialect(d.name); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db)
}
