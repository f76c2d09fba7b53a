package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ykvlv/todo-relay/internal/domain"
)

var ErrInvalid = errors.New("invalid config")

const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Platform          string  `envconfig:"PLATFORM" default:"discord"` // discord|telegram
	BotToken          string  `envconfig:"BOT_TOKEN"`
	DiscordToken      string  `envconfig:"DISCORD_TOKEN"` // legacy name for BotToken
	ChannelID         string  `envconfig:"CHANNEL_ID"`
	PresenceChannelID string  `envconfig:"PRESENCE_CHANNEL_ID"`
	LoungeChannelID   string  `envconfig:"LOUNGE_CHANNEL_ID"`
	Users             UserMap `envconfig:"USERS" default:"{}"`
	Timezone          string  `envconfig:"TIMEZONE" default:"Asia/Manila"`

	// Embedded so its variables keep their own names without a prefix.
	Todomate

	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	HTTPAddr     string        `envconfig:"HTTP_ADDR" default:":8000"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	LogFormat    string        `envconfig:"LOG_FORMAT" default:"json"` // json|console
}

// Todomate holds the to-do provider credentials and endpoints.
type Todomate struct {
	Email    string `envconfig:"TODOMATE_EMAIL"`
	Password string `envconfig:"TODOMATE_PASSWORD"`
	APIKey   string `envconfig:"TODOMATE_API_KEY"`
	AuthURL  string `envconfig:"TODOMATE_AUTH_URL" default:"https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"`
	FeedURL  string `envconfig:"TODOMATE_FEED_URL" default:"https://loadfeeditems-2lresvldza-uc.a.run.app/"`

	// Names used by older deployments.
	LegacyEmail    string `envconfig:"EMAIL"`
	LegacyPassword string `envconfig:"PASSWORD"`
}

// UserMap decodes USERS: {"<chat id>": {"todomate": "<provider id>"}}.
type UserMap []domain.User

// Decode implements envconfig.Decoder.
func (m *UserMap) Decode(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*m = nil
		return nil
	}
	var raw map[string]map[string]string
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return fmt.Errorf("USERS must be a JSON object of objects: %w", err)
	}
	users := make(UserMap, 0, len(raw))
	for chatID, ids := range raw {
		users = append(users, domain.User{
			ChatID:     strings.TrimSpace(chatID),
			ProviderID: strings.TrimSpace(ids["todomate"]),
		})
	}
	*m = users
	return nil
}

// LoadDotEnv reads .env files into the environment when they exist.
// Variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if fileExists(f) {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads environment variables into Config and resolves legacy aliases.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Platform = strings.ToLower(strings.TrimSpace(c.Platform))
	if c.BotToken == "" {
		c.BotToken = c.DiscordToken
	}
	if c.PresenceChannelID == "" {
		c.PresenceChannelID = c.ChannelID
	}
	if c.Todomate.Email == "" {
		c.Todomate.Email = c.Todomate.LegacyEmail
	}
	if c.Todomate.Password == "" {
		c.Todomate.Password = c.Todomate.LegacyPassword
	}
}

// Location returns the configured timezone.
func (c Config) Location() (*time.Location, error) {
	return domain.LoadLocation(c.Timezone)
}

// Directory builds the immutable user directory.
func (c Config) Directory() domain.Directory {
	return domain.NewDirectory(c.Users)
}

// ValidateProvider checks what every mode needs: timezone, users and
// provider credentials.
func (c Config) ValidateProvider() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: TIMEZONE %q: %v", ErrInvalid, c.Timezone, err)
	}
	if pid, ok := duplicateProvider(c.Users); ok {
		return fmt.Errorf("%w: USERS maps todomate id %q to more than one chat user", ErrInvalid, pid)
	}
	if len(c.Directory().Enrolled()) == 0 {
		return fmt.Errorf("%w: USERS has no entry with a todomate id", ErrInvalid)
	}
	if c.Todomate.Email == "" || c.Todomate.Password == "" {
		return fmt.Errorf("%w: TODOMATE_EMAIL and TODOMATE_PASSWORD are required", ErrInvalid)
	}
	if c.Todomate.APIKey == "" {
		return fmt.Errorf("%w: TODOMATE_API_KEY is required", ErrInvalid)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: FETCH_TIMEOUT must be positive", ErrInvalid)
	}
	return nil
}

// Validate checks everything the long-running service needs.
func (c Config) Validate() error {
	if err := c.ValidateProvider(); err != nil {
		return err
	}
	switch c.Platform {
	case PlatformDiscord, PlatformTelegram:
	default:
		return fmt.Errorf("%w: PLATFORM %q (want discord|telegram)", ErrInvalid, c.Platform)
	}
	if c.BotToken == "" {
		return fmt.Errorf("%w: BOT_TOKEN is required", ErrInvalid)
	}
	if c.ChannelID == "" {
		return fmt.Errorf("%w: CHANNEL_ID is required", ErrInvalid)
	}
	return nil
}

func duplicateProvider(users []domain.User) (string, bool) {
	owner := make(map[string]string, len(users))
	for _, u := range users {
		if !u.Enrolled() {
			continue
		}
		if chat, ok := owner[u.ProviderID]; ok && chat != u.ChatID {
			return u.ProviderID, true
		}
		owner[u.ProviderID] = u.ChatID
	}
	return "", false
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
