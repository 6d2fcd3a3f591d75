package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/focusbot/internal/constants"
	"github.com/julianstephens/focusbot/internal/models"
)

// JSONStore keeps each document in its own human-readable file under dir.
type JSONStore struct {
	dir string
}

func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

func (s *JSONStore) Init() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	// Seed empty documents so the files are inspectable from the start
	for _, name := range []string{constants.HabitsFileName, constants.LockConfigFileName} {
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := writeFileAtomic(path, []byte("{}")); err != nil {
				return fmt.Errorf("failed to create %s: %w", name, err)
			}
		}
	}
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) Path() string {
	return s.dir
}

func (s *JSONStore) Kind() string {
	return "json"
}

func (s *JSONStore) LoadHabits() (models.HabitDocument, error) {
	doc := models.HabitDocument{}
	if err := s.read(constants.HabitsFileName, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = models.HabitDocument{}
	}
	return doc, nil
}

func (s *JSONStore) SaveHabits(doc models.HabitDocument) error {
	return s.write(constants.HabitsFileName, doc)
}

func (s *JSONStore) LoadLockConfig() (models.LockDocument, error) {
	doc := models.LockDocument{}
	if err := s.read(constants.LockConfigFileName, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = models.LockDocument{}
	}
	return doc, nil
}

func (s *JSONStore) SaveLockConfig(doc models.LockDocument) error {
	return s.write(constants.LockConfigFileName, doc)
}

func (s *JSONStore) read(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (s *JSONStore) write(name string, v interface{}) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", name, err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, name), data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// writeFileAtomic writes through a temp file in the same directory and renames
// it over path, so readers never see a half-written document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
