package models

// LockConfig is a user's focus lock list within one guild.
type LockConfig struct {
	Channels []string `json:"channels"`
}

// LockDocument is the persisted lock-list table keyed by "userID-guildID".
type LockDocument map[string]LockConfig

// LockKey builds the document key for a user in a guild.
func LockKey(userID, guildID string) string {
	return userID + "-" + guildID
}
