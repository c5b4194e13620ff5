package tiktok

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
)

// sessionCookie is the cookie TikTok issues on login; its presence decides
// whether a stored session is usable.
const sessionCookie = "sessionid"

// CookieStore persists the platform login session between runs. The
// artifact is opaque to the rest of the pipeline.
type CookieStore struct {
	path string
}

// StoredSession is the on-disk layout.
type StoredSession struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
}

// NewCookieStore creates a store at the given path.
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// Save persists cookies to disk.
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	if dir := filepath.Dir(cs.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(StoredSession{
		Cookies:    cookies,
		CapturedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(cs.path, data, 0o600)
}

// Load retrieves the stored session.
func (cs *CookieStore) Load() (*StoredSession, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var stored StoredSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// IsValid reports whether a stored, unexpired session cookie exists.
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}
	now := time.Now()
	for _, c := range stored.Cookies {
		if c.Name != sessionCookie {
			continue
		}
		if c.Expires <= 0 || time.Unix(int64(c.Expires), 0).After(now) {
			return true
		}
	}
	return false
}

// Clear removes the stored session.
func (cs *CookieStore) Clear() error {
	return os.Remove(cs.path)
}
