// Package session implements named session persistence (spec §6.2):
// headers, auth, and cookies saved as one JSON file per session under the
// config dir, reloaded and replayed as the lowest-precedence layer of the
// RequestAssembler's input composition (spec §4.2). Cookie handling honors
// domain, path, secure, and expiry exactly as spec.md §6.2 requires, built
// on net/http/cookiejar the same way internal/script/modules/cookie.go
// builds its header-level cookie parsing on net/http.
package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/quicpulse/quicpulse/internal/model"
	"github.com/quicpulse/quicpulse/internal/request"
)

// Cookie is the on-disk shape of one persisted cookie.
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain"`
	Path    string    `json:"path"`
	Secure  bool      `json:"secure"`
	Expires time.Time `json:"expires,omitempty"`
}

// Session is one named session file's contents.
type Session struct {
	Name    string            `json:"-"`
	BaseURL string            `json:"base_url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Auth    string            `json:"auth,omitempty"`
	Cookies []Cookie          `json:"cookies,omitempty"`
}

// New returns an empty named session.
func New(name string) *Session {
	return &Session{Name: name, Headers: map[string]string{}}
}

func path(dir, name string) string {
	return filepath.Join(dir, name+".json")
}

// Load reads the session named name from dir. A missing file is not an
// error: it returns a fresh, empty session (spec §7: "I/O errors on
// optional files degrade silently").
func Load(dir, name string) (*Session, error) {
	b, err := os.ReadFile(path(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return New(name), nil
		}
		return nil, model.Errorf(model.KindSession, err, "read session %q", name)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, model.Errorf(model.KindSession, err, "parse session %q", name)
	}
	s.Name = name
	if s.Headers == nil {
		s.Headers = map[string]string{}
	}
	return &s, nil
}

// Save writes s to dir as <name>.json.
func Save(dir string, s *Session) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return model.Errorf(model.KindSession, err, "create session dir %q", dir)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return model.Errorf(model.KindSession, err, "marshal session %q", s.Name)
	}
	if err := os.WriteFile(path(dir, s.Name), b, 0o600); err != nil {
		return model.Errorf(model.KindSession, err, "write session %q", s.Name)
	}
	return nil
}

// ToDefaults converts the persisted headers/base URL into the
// RequestAssembler's SessionDefaults layer.
func (s *Session) ToDefaults() request.SessionDefaults {
	h := make(http.Header, len(s.Headers))
	for k, v := range s.Headers {
		h.Set(k, v)
	}
	return request.SessionDefaults{Headers: h, BaseURL: s.BaseURL}
}

// Jar builds a net/http/cookiejar.Jar pre-populated with the session's
// persisted cookies, suitable for use as an http.Client's Jar.
func (s *Session) Jar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, model.Errorf(model.KindSession, err, "build cookie jar")
	}
	byOrigin := map[string][]*http.Cookie{}
	for _, c := range s.Cookies {
		if !c.Expires.IsZero() && c.Expires.Before(time.Now()) {
			continue
		}
		origin := cookieOrigin(c.Domain, c.Secure)
		byOrigin[origin] = append(byOrigin[origin], &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Secure:  c.Secure,
			Expires: c.Expires,
		})
	}
	for origin, cookies := range byOrigin {
		u, err := url.Parse(origin)
		if err != nil {
			continue
		}
		jar.SetCookies(u, cookies)
	}
	return jar, nil
}

func cookieOrigin(domain string, secure bool) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/", scheme, domain)
}

// RecordResponse folds Set-Cookie results from a response for reqURL back
// into the session's persisted cookie list (last-writer-wins per
// name+domain+path, matching net/http/cookiejar's own update semantics).
func (s *Session) RecordResponse(reqURL *url.URL, cookies []*http.Cookie) {
	for _, rc := range cookies {
		domain := rc.Domain
		if domain == "" {
			domain = reqURL.Hostname()
		}
		path := rc.Path
		if path == "" {
			path = "/"
		}
		replaced := false
		for i, existing := range s.Cookies {
			if existing.Name == rc.Name && existing.Domain == domain && existing.Path == path {
				s.Cookies[i] = Cookie{Name: rc.Name, Value: rc.Value, Domain: domain, Path: path, Secure: rc.Secure, Expires: rc.Expires}
				replaced = true
				break
			}
		}
		if !replaced {
			s.Cookies = append(s.Cookies, Cookie{Name: rc.Name, Value: rc.Value, Domain: domain, Path: path, Secure: rc.Secure, Expires: rc.Expires})
		}
	}
}
