package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/selectbot/internal/config"
)

// Cookies X needs for an authenticated session
var requiredCookies = []string{"auth_token", "ct0"}

// CookieStore persists the X session cookies between runs
type CookieStore struct {
	path string
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at,omitempty"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// DefaultCookieStorePath returns the default path for cookie storage
func DefaultCookieStorePath() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies.json"), nil
}

// Save persists the site cookies among cookies to disk
// TODO: Encrypt cookies at rest
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(cs.path), 0700); err != nil {
		return err
	}

	cookies = siteCookies(cookies)

	// Earliest expiry among the auth cookies; session cookies (Expires <= 0)
	// don't count
	var earliestExpiry time.Time
	for _, c := range cookies {
		if !slices.Contains(requiredCookies, c.Name) || c.Expires <= 0 {
			continue
		}
		exp := time.Unix(int64(c.Expires), 0)
		if earliestExpiry.IsZero() || exp.Before(earliestExpiry) {
			earliestExpiry = exp
		}
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: time.Now(),
		ExpiresAt:  earliestExpiry,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// IsValid checks if stored cookies exist, have not expired and include the
// auth cookies
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}

	if !stored.ExpiresAt.IsZero() && time.Now().After(stored.ExpiresAt) {
		return false
	}

	have := make(map[string]bool)
	for _, c := range stored.Cookies {
		if c.Value != "" {
			have[c.Name] = true
		}
	}
	for _, name := range requiredCookies {
		if !have[name] {
			return false
		}
	}
	return true
}

// Clear removes stored cookies. A missing file is not an error.
func (cs *CookieStore) Clear() error {
	if err := os.Remove(cs.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SiteCookies returns the stored x.com and twitter.com cookies
func (cs *CookieStore) SiteCookies() ([]*network.Cookie, error) {
	stored, err := cs.Load()
	if err != nil {
		return nil, err
	}
	return siteCookies(stored.Cookies), nil
}

func siteCookies(cookies []*network.Cookie) []*network.Cookie {
	var out []*network.Cookie
	for _, c := range cookies {
		switch c.Domain {
		case ".x.com", "x.com", ".twitter.com", "twitter.com":
			out = append(out, c)
		}
	}
	return out
}
