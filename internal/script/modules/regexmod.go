package modules

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// Regex backs the `regex` module via dlclark/regexp2, the .NET-style engine
// already an indirect teacher dependency (via sprig's chain) — chosen over
// stdlib regexp because spec.md's surface (replace/replace_all with
// capture-group templates, escape) matches .NET regex semantics more closely
// than RE2.
type Regex struct{}

func compile(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("regex: %w", err)
	}
	return re, nil
}

func (Regex) Test(pattern, s string) (bool, error) {
	re, err := compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s)
}

func (Regex) Match(pattern, s string) (string, error) {
	re, err := compile(pattern)
	if err != nil {
		return "", err
	}
	m, err := re.FindStringMatch(s)
	if err != nil || m == nil {
		return "", err
	}
	return m.String(), nil
}

func (Regex) FindAll(pattern, s string) ([]string, error) {
	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}
	var out []string
	m, err := re.FindStringMatch(s)
	for err == nil && m != nil {
		out = append(out, m.String())
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (Regex) Replace(pattern, s, repl string) (string, error) {
	re, err := compile(pattern)
	if err != nil {
		return "", err
	}
	return re.Replace(s, repl, 0, 1)
}

func (Regex) ReplaceAll(pattern, s, repl string) (string, error) {
	re, err := compile(pattern)
	if err != nil {
		return "", err
	}
	return re.Replace(s, repl, 0, -1)
}

func (Regex) Split(pattern, s string) ([]string, error) {
	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}
	var parts []string
	last := 0
	m, err := re.FindStringMatch(s)
	for err == nil && m != nil {
		parts = append(parts, s[last:m.Index])
		last = m.Index + m.Length
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return nil, err
	}
	parts = append(parts, s[last:])
	return parts, nil
}

const regexMetaChars = `\.+*?()|[]{}^$`

func (Regex) Escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(regexMetaChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (r Regex) Object() map[string]any {
	return map[string]any{
		"test":         r.Test,
		"match":        r.Match,
		"find_all":     r.FindAll,
		"replace":      r.Replace,
		"replace_all":  r.ReplaceAll,
		"split":        r.Split,
		"escape":       r.Escape,
	}
}
