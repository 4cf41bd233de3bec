package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Reply.Provider = ProviderAnthropic
	cfg.Browser.LoginTimeout = Duration{90 * time.Second}
	require.NoError(t, cfg.SaveFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, loaded.Reply.Provider)
	assert.Equal(t, 90*time.Second, loaded.Browser.LoginTimeout.Duration)
	assert.Equal(t, 280, loaded.Posting.MaxLength)
}

func TestLoadFileKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "version = 1\n\n[reply]\nmodel = \"gpt-4o-mini\"\nprovider = \"openai\"\n\n[browser]\nslow_mo = \"1s\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Reply.Model)
	assert.Equal(t, ProviderOpenAI, cfg.Reply.Provider)
	assert.Equal(t, time.Second, cfg.Browser.SlowMo.Duration)
	assert.Equal(t, 5, cfg.Scraping.PostsPerLoad)
	assert.Equal(t, "127.0.0.1:3003", cfg.Server.Addr)
}

func TestLoadFileRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[browser]\nlogin_timeout = \"soon\"\n"), 0600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SELECTBOT_API_KEY", "sk-env")
	t.Setenv("PORT", "4000")
	t.Setenv("SELECTBOT_LOG_LEVEL", "debug")
	t.Setenv("TWITTER_USERNAME", "alice")
	t.Setenv("TWITTER_PASSWORD", "hunter2")
	t.Setenv("SELECTBOT_SMTP_PASS", "smtp-secret")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "sk-env", cfg.Reply.APIKey)
	assert.Equal(t, "127.0.0.1:4000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "alice", cfg.Account.Username)
	assert.Equal(t, "hunter2", cfg.Account.Password)
	assert.Equal(t, "smtp-secret", cfg.Notify.SMTPPass)
}
