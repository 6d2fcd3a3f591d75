package storage

import (
	"path/filepath"
	"strings"
)

// Open picks a backend from target: "json" (default), "sqlite", a path ending
// in .db, or a postgres:// connection string. The provider is initialized
// before it is returned.
func Open(target, dataDir string) (Provider, error) {
	var p Provider
	switch {
	case IsPostgresConnString(target):
		p = NewPostgresStore(target)
	case target == "sqlite":
		p = NewSQLiteStore(filepath.Join(dataDir, "focusbot.db"))
	case strings.HasSuffix(target, ".db"):
		p = NewSQLiteStore(target)
	default:
		p = NewJSONStore(dataDir)
	}
	if err := p.Init(); err != nil {
		return nil, err
	}
	return p, nil
}
