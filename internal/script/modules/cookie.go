package modules

import (
	"fmt"
	"net/http"
	"strings"
)

// Cookie backs the `cookie` module via net/http's cookie parsing, the same
// machinery internal/session's cookie jar uses for persisted sessions.
type Cookie struct{}

func (Cookie) Parse(header string) []map[string]any {
	req := &http.Request{Header: http.Header{"Cookie": []string{header}}}
	cookies := req.Cookies()
	out := make([]map[string]any, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, map[string]any{"name": c.Name, "value": c.Value})
	}
	return out
}

func (Cookie) ParseSetCookie(header string) (map[string]any, error) {
	resp := http.Response{Header: http.Header{"Set-Cookie": []string{header}}}
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return nil, fmt.Errorf("cookie: could not parse Set-Cookie header")
	}
	c := cookies[0]
	return map[string]any{
		"name":     c.Name,
		"value":    c.Value,
		"domain":   c.Domain,
		"path":     c.Path,
		"secure":   c.Secure,
		"httponly": c.HttpOnly,
		"expires":  c.Expires.Unix(),
	}, nil
}

func (Cookie) Build(name, value string) string {
	c := &http.Cookie{Name: name, Value: value}
	return c.String()
}

// Get returns the named cookie's value, or "" if absent.
func (Cookie) Get(header, name string) string {
	for _, part := range strings.Split(header, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] == name {
			return kv[1]
		}
	}
	return ""
}

func (c Cookie) Object() map[string]any {
	return map[string]any{
		"parse":           c.Parse,
		"parse_set_cookie": c.ParseSetCookie,
		"build":           c.Build,
		"get":             c.Get,
	}
}
