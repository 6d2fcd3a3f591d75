// Package lockconfig stores the per-user list of channels locked during focus sessions.
package lockconfig

import (
	"sync"

	"github.com/julianstephens/focusbot/internal/constants"
	apperrors "github.com/julianstephens/focusbot/internal/errors"
	"github.com/julianstephens/focusbot/internal/logger"
	"github.com/julianstephens/focusbot/internal/models"
	"github.com/julianstephens/focusbot/internal/storage"
)

// Service reads and writes lock lists. Each load-modify-save cycle holds mu.
type Service struct {
	store storage.Provider
	mu    sync.Mutex
}

func NewService(store storage.Provider) *Service {
	return &Service{store: store}
}

func (s *Service) load() (models.LockDocument, error) {
	doc, err := s.store.LoadLockConfig()
	if err != nil {
		return nil, apperrors.Persistence("load lock config", err)
	}
	return doc, nil
}

func (s *Service) save(doc models.LockDocument) error {
	if err := s.store.SaveLockConfig(doc); err != nil {
		logger.Error("Failed to save lock config", "error", err)
		return apperrors.Persistence("save lock config", err)
	}
	return nil
}

// Channels returns the lock list, or nil when the user has none configured.
func (s *Service) Channels(userID, guildID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	cfg, ok := doc[models.LockKey(userID, guildID)]
	if !ok || len(cfg.Channels) == 0 {
		return nil, nil
	}
	return cfg.Channels, nil
}

// Add unions ids into the lock list, keeping the existing order and
// appending new ids in the order given. It returns the ids that were new
// and the full resulting list.
func (s *Service) Add(userID, guildID string, ids ...string) (added, all []string, err error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil, apperrors.Invalid("please specify at least one channel to add")
	}
	if len(ids) > constants.MaxChannelsPerAdd {
		return nil, nil, apperrors.Invalid("at most %d channels can be added at once", constants.MaxChannelsPerAdd)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, nil, err
	}
	key := models.LockKey(userID, guildID)
	cfg := doc[key]

	existing := make(map[string]struct{}, len(cfg.Channels))
	for _, id := range cfg.Channels {
		existing[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			cfg.Channels = append(cfg.Channels, id)
			added = append(added, id)
		}
	}
	if len(added) == 0 {
		return nil, cfg.Channels, nil
	}

	doc[key] = cfg
	if err := s.save(doc); err != nil {
		return nil, nil, err
	}
	logger.Debug("Lock list updated", "user", userID, "guild", guildID, "added", added)
	return added, cfg.Channels, nil
}

// Remove drops one channel from the lock list.
func (s *Service) Remove(userID, guildID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	key := models.LockKey(userID, guildID)
	cfg := doc[key]

	kept := make([]string, 0, len(cfg.Channels))
	for _, id := range cfg.Channels {
		if id != channelID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(cfg.Channels) {
		return apperrors.NotFound("channel %s is not in your lock list", channelID)
	}

	doc[key] = models.LockConfig{Channels: kept}
	return s.save(doc)
}

// Clear empties the lock list but keeps the user's entry.
func (s *Service) Clear(userID, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	key := models.LockKey(userID, guildID)
	if len(doc[key].Channels) == 0 {
		return apperrors.NotFound("your lock list is already empty")
	}

	doc[key] = models.LockConfig{Channels: []string{}}
	return s.save(doc)
}

// Reset deletes the user's entry entirely. Missing entries are a no-op.
func (s *Service) Reset(userID, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	key := models.LockKey(userID, guildID)
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return s.save(doc)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
