package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Supported completion providers
const (
	ProviderDeepSeek  = "deepseek"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultInstructions is the reply instruction text pre-filled in the dashboard
const DefaultInstructions = "You are a helpful and engaging Twitter user. Reply to comments on my tweets in a friendly, professional manner. Keep replies concise (under 280 characters), ask follow-up questions when appropriate, and maintain a positive tone. Always be genuine and add value to the conversation."

// Config holds all application configuration
type Config struct {
	Version   int             `toml:"version"`
	Server    ServerConfig    `toml:"server"`
	Account   AccountConfig   `toml:"account"`
	Browser   BrowserConfig   `toml:"browser"`
	Scraping  ScrapingConfig  `toml:"scraping"`
	Reply     ReplyConfig     `toml:"reply"`
	Posting   PostingConfig   `toml:"posting"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Notify    NotifyConfig    `toml:"notify"`
	Logger    LoggerConfig    `toml:"logger"`
}

type ServerConfig struct {
	Addr        string `toml:"addr"`
	OpenBrowser bool   `toml:"open_browser"`
}

// AccountConfig holds optional X credentials used when the dashboard or the
// login command is not given any.
type AccountConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password,omitempty"`
}

type BrowserConfig struct {
	Headless          bool     `toml:"headless"`
	SlowMo            Duration `toml:"slow_mo"`
	UserAgent         string   `toml:"user_agent"`
	WindowWidth       int      `toml:"window_width"`
	WindowHeight      int      `toml:"window_height"`
	LoginTimeout      Duration `toml:"login_timeout"`
	NavigationTimeout Duration `toml:"navigation_timeout"`
}

type ScrapingConfig struct {
	PostsPerLoad int `toml:"posts_per_load"`
	MaxComments  int `toml:"max_comments"`
}

type ReplyConfig struct {
	Provider     string  `toml:"provider"`
	APIKey       string  `toml:"api_key"`
	BaseURL      string  `toml:"base_url"`
	Model        string  `toml:"model"`
	MaxTokens    int     `toml:"max_tokens"`
	Temperature  float32 `toml:"temperature"`
	Instructions string  `toml:"instructions"`
	Concurrency  int     `toml:"concurrency"`
}

type PostingConfig struct {
	MaxLength        int     `toml:"max_length"`
	RepliesPerMinute float64 `toml:"replies_per_minute"`
}

type SchedulerConfig struct {
	Timezone                    string `toml:"timezone"`
	SessionCheckIntervalMinutes int    `toml:"session_check_interval_minutes"`
}

// NotifyConfig configures the email sent when the X session expires.
// An empty Provider disables it.
type NotifyConfig struct {
	Provider string `toml:"provider"` // "smtp"
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass,omitempty"`
	FromAddr string `toml:"from_addr"`
	ToAddr   string `toml:"to_addr"`
}

type LoggerConfig struct {
	Level       string `toml:"level"`
	Format      string `toml:"format"`
	ServiceName string `toml:"service_name"`
	LogFile     string `toml:"log_file"`
	MaxSize     int    `toml:"max_size"`
	MaxBackups  int    `toml:"max_backups"`
	MaxAge      int    `toml:"max_age"`
	Compress    bool   `toml:"compress"`
}

// Duration is a time.Duration that reads and writes as "5m", "300ms", ...
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:        "127.0.0.1:3003",
			OpenBrowser: true,
		},
		Browser: BrowserConfig{
			// 2FA is typed by the user, so the window has to be visible
			Headless:          false,
			SlowMo:            Duration{300 * time.Millisecond},
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			WindowWidth:       1280,
			WindowHeight:      720,
			LoginTimeout:      Duration{5 * time.Minute},
			NavigationTimeout: Duration{20 * time.Second},
		},
		Scraping: ScrapingConfig{
			PostsPerLoad: 5,
			MaxComments:  20,
		},
		Reply: ReplyConfig{
			Provider:     ProviderDeepSeek,
			BaseURL:      "https://api.deepseek.com/v1",
			Model:        "deepseek-chat",
			MaxTokens:    100,
			Temperature:  0.7,
			Instructions: DefaultInstructions,
			Concurrency:  3,
		},
		Posting: PostingConfig{
			MaxLength:        280,
			RepliesPerMinute: 6,
		},
		Scheduler: SchedulerConfig{
			Timezone:                    "Local",
			SessionCheckIntervalMinutes: 15,
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
		},
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "selectbot",
			MaxSize:     20,
			MaxBackups:  3,
			MaxAge:      14,
		},
	}
}

// ApplyEnv overlays environment variables on top of file values
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SELECTBOT_API_KEY"); v != "" {
		c.Reply.APIKey = v
	}
	if v := os.Getenv("TWITTER_USERNAME"); v != "" {
		c.Account.Username = v
	}
	if v := os.Getenv("TWITTER_PASSWORD"); v != "" {
		c.Account.Password = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = "127.0.0.1:" + v
	}
	if v := os.Getenv("SELECTBOT_SMTP_PASS"); v != "" {
		c.Notify.SMTPPass = v
	}
	if v := os.Getenv("SELECTBOT_LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "selectbot"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "selectbot"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DatabasePath returns the path of the SQLite database
func DatabasePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "selectbot.db"), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile decodes the file at path on top of the defaults, so keys missing
// from an older file keep their default value.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
