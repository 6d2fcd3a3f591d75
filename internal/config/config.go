package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/julianstephens/focusbot/internal/constants"
)

// Config is the runtime configuration of the bot.
type Config struct {
	Token    string
	ClientID string
	GuildID  string
	DataDir  string `validate:"required"`
	// Store is "json", "sqlite" or a postgres:// connection string.
	Store               string `validate:"required"`
	Debug               bool
	LogLevel            string   `validate:"omitempty,oneof=debug info warn error"`
	LogFormat           string   `validate:"omitempty,oneof=text logfmt json"`
	DefaultFocusMinutes int      `validate:"gte=1,ltefield=MaxFocusMinutes"`
	MaxFocusMinutes     int      `validate:"gte=1,lte=1440"`
	ReminderHour        int      `validate:"gte=-1,lte=23"`
	LockedChannels      []string `validate:"dive,numeric"`
}

var validate = validator.New()

// Load reads .env (if present) and the process environment.
// Precedence: environment > .env file > defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		Token:               get("DISCORD_TOKEN", ""),
		ClientID:            get("CLIENT_ID", ""),
		GuildID:             get("GUILD_ID", ""),
		DataDir:             get("FOCUSBOT_DATA_DIR", constants.DefaultDataDir),
		Store:               get("FOCUSBOT_STORE", "json"),
		LockedChannels:      splitList(get("FOCUSBOT_LOCKED_CHANNELS", "")),
		LogLevel:            strings.ToLower(get("FOCUSBOT_LOG_LEVEL", "")),
		LogFormat:           strings.ToLower(get("FOCUSBOT_LOG_FORMAT", "")),
		DefaultFocusMinutes: constants.DefaultFocusMinutes,
		MaxFocusMinutes:     constants.MaxFocusMinutes,
		ReminderHour:        constants.DisabledReminderHr,
	}

	var err error
	if c.Debug, err = getBool("FOCUSBOT_DEBUG", false); err != nil {
		return nil, err
	}
	if c.DefaultFocusMinutes, err = getInt("FOCUSBOT_DEFAULT_FOCUS_MINUTES", c.DefaultFocusMinutes); err != nil {
		return nil, err
	}
	if c.MaxFocusMinutes, err = getInt("FOCUSBOT_MAX_FOCUS_MINUTES", c.MaxFocusMinutes); err != nil {
		return nil, err
	}
	if c.ReminderHour, err = getInt("FOCUSBOT_REMINDER_HOUR", c.ReminderHour); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field ranges. The token is not required here because it
// can also come from the OS keyring.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func get(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func getInt(k string, def int) (int, error) {
	v := get(k, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", k, err)
	}
	return n, nil
}

func getBool(k string, def bool) (bool, error) {
	v := get(k, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", k, err)
	}
	return b, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
