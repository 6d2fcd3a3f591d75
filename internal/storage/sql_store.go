package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/focusbot/internal/constants"
	"github.com/julianstephens/focusbot/internal/models"
)

// documentQueries holds the dialect-specific statements for the documents table.
type documentQueries struct {
	get    string
	upsert string
}

var (
	sqliteQueries = documentQueries{
		get: `SELECT body FROM documents WHERE name = ?`,
		upsert: `INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
	}
	postgresQueries = documentQueries{
		get: `SELECT body FROM documents WHERE name = $1`,
		upsert: `INSERT INTO documents (name, body, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
	}
)

// sqlDocuments implements the document half of Provider on any database/sql
// handle holding a documents table.
type sqlDocuments struct {
	db *sql.DB
	q  documentQueries
}

func (d *sqlDocuments) load(name string, v interface{}) error {
	if d.db == nil {
		return fmt.Errorf("storage not initialized")
	}
	var body []byte
	err := d.db.QueryRow(d.q.get, name).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (d *sqlDocuments) save(name string, v interface{}) error {
	if d.db == nil {
		return fmt.Errorf("storage not initialized")
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", name, err)
	}
	if _, err := d.db.Exec(d.q.upsert, name, string(body), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (d *sqlDocuments) LoadHabits() (models.HabitDocument, error) {
	doc := models.HabitDocument{}
	if err := d.load(constants.HabitsDocument, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = models.HabitDocument{}
	}
	return doc, nil
}

func (d *sqlDocuments) SaveHabits(doc models.HabitDocument) error {
	return d.save(constants.HabitsDocument, doc)
}

func (d *sqlDocuments) LoadLockConfig() (models.LockDocument, error) {
	doc := models.LockDocument{}
	if err := d.load(constants.LockConfigDocument, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = models.LockDocument{}
	}
	return doc, nil
}

func (d *sqlDocuments) SaveLockConfig(doc models.LockDocument) error {
	return d.save(constants.LockConfigDocument, doc)
}

func (d *sqlDocuments) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
