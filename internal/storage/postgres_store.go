package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// PostgresStore keeps the documents in a PostgreSQL database.
type PostgresStore struct {
	sqlDocuments
	connStr string
}

func NewPostgresStore(connStr string) *PostgresStore {
	return &PostgresStore{
		sqlDocuments: sqlDocuments{q: postgresQueries},
		connStr:      connStr,
	}
}

func (s *PostgresStore) Init() error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(db, dialectPostgres); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.db = db
	return nil
}

// Path returns the connection string with any password masked.
func (s *PostgresStore) Path() string {
	return maskConnString(s.connStr)
}

func (s *PostgresStore) Kind() string {
	return "postgres"
}

// IsPostgresConnString reports whether spec names a PostgreSQL database.
func IsPostgresConnString(spec string) bool {
	return strings.HasPrefix(spec, "postgres://") || strings.HasPrefix(spec, "postgresql://")
}

func maskConnString(connStr string) string {
	idx := strings.Index(connStr, "://")
	if idx == -1 {
		return connStr
	}
	remaining := connStr[idx+3:]
	atIdx := strings.LastIndex(remaining, "@")
	if atIdx == -1 {
		return connStr
	}
	userInfo := remaining[:atIdx]
	colonIdx := strings.Index(userInfo, ":")
	if colonIdx == -1 {
		return connStr
	}
	return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + remaining[atIdx:]
}
