package sys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-value")
	t.Setenv("GUILD_ID", "123456789012345678")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("MAX_QUEUE_LENGTH", "25")
	t.Setenv("YOUTUBE_PROXY", "socks5://127.0.0.1:9050")
	t.Setenv("SILENT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "token-value", cfg.Token)
	require.Equal(t, "123456789012345678", cfg.GuildID)
	require.Equal(t, 25, cfg.MaxQueueLength)
	require.Equal(t, "socks5://127.0.0.1:9050", cfg.Proxy)
	require.Contains(t, cfg.DatabasePath, "hibiki.db")
	require.Contains(t, cfg.DatabasePath, "_journal_mode=WAL")
}

func TestLoadConfigRejectsBadQueueLength(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-value")
	t.Setenv("GUILD_ID", "")
	t.Setenv("MAX_QUEUE_LENGTH", "lots")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Token: "t", GuildID: "123456789012345678"}, false},
		{"no guild is fine", Config{Token: "t"}, false},
		{"missing token", Config{}, true},
		{"short guild id", Config{Token: "t", GuildID: "1234"}, true},
		{"negative queue cap", Config{Token: "t", MaxQueueLength: -1}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if c.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
