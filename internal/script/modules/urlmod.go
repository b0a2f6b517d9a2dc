package modules

import (
	"fmt"
	"net/url"
	"strings"
)

// Url backs the `url` module via net/url — stdlib already implements RFC
// 3986 parsing correctly and no pack example reaches for a third-party URL
// library.
type Url struct{}

func (Url) Parse(raw string) (map[string]any, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("url: %w", err)
	}
	query := make(map[string]any, len(u.Query()))
	for k, v := range u.Query() {
		if len(v) == 1 {
			query[k] = v[0]
		} else {
			vals := make([]any, len(v))
			for i, s := range v {
				vals[i] = s
			}
			query[k] = vals
		}
	}
	return map[string]any{
		"scheme":   u.Scheme,
		"host":     u.Hostname(),
		"port":     u.Port(),
		"path":     u.Path,
		"query":    query,
		"fragment": u.Fragment,
	}, nil
}

func (Url) Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func (Url) Path(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}

func (Url) Query(raw string) map[string]any {
	u, err := url.Parse(raw)
	if err != nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(u.Query()))
	for k, v := range u.Query() {
		out[k] = strings.Join(v, ",")
	}
	return out
}

func (Url) Scheme(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Scheme
}

func (Url) Port(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Port()
}

func (Url) Join(base string, elem ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("url: %w", err)
	}
	all := append([]string{u.Path}, elem...)
	u.Path = strings.Join(trimSlashes(all), "/")
	return u.String(), nil
}

func trimSlashes(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (Url) IsValid(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func (u Url) Object() map[string]any {
	return map[string]any{
		"parse":    u.Parse,
		"host":     u.Host,
		"path":     u.Path,
		"query":    u.Query,
		"scheme":   u.Scheme,
		"port":     u.Port,
		"join":     u.Join,
		"is_valid": u.IsValid,
	}
}
