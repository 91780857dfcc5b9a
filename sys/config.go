package sys

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Token          string
	GuildID        string
	DatabasePath   string
	MaxQueueLength int
	Proxy          string
	Silent         bool
}

var GlobalConfig *Config

// Validate ensures the configuration is valid and meets requirements.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf(MsgConfigMissingToken)
	}

	// Basic Snowflake validation for GuildID if provided
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return fmt.Errorf("invalid GUILD_ID: must be a valid Snowflake")
	}

	if c.MaxQueueLength < 0 {
		return fmt.Errorf("invalid MAX_QUEUE_LENGTH: must be >= 0")
	}

	return nil
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./hibiki.db"
	}

	silent, _ := strconv.ParseBool(os.Getenv("SILENT"))
	maxQueue := 0
	if v := strings.TrimSpace(os.Getenv("MAX_QUEUE_LENGTH")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_QUEUE_LENGTH: %w", err)
		}
		maxQueue = n
	}

	cfg := &Config{
		Token:          os.Getenv("DISCORD_TOKEN"),
		GuildID:        os.Getenv("GUILD_ID"),
		DatabasePath:   fmt.Sprintf("%s?_journal_mode=WAL&_timeout=5000", dbPath),
		MaxQueueLength: maxQueue,
		Proxy:          os.Getenv("YOUTUBE_PROXY"),
		Silent:         silent,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg
	return cfg, nil
}
