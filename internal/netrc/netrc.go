// Package netrc parses .netrc/_netrc files with the extensions spec §6.2
// requires: '#' line and inline comments, and quoted values containing
// spaces. No third-party netrc parser appears anywhere in the example
// pack, so this is a small dependency-free scanner (see DESIGN.md).
package netrc

import (
	"os"
	"strings"
)

// Machine holds the login/password/account triple for one "machine" entry.
type Machine struct {
	Login    string
	Password string
	Account  string
}

// File is a parsed .netrc: named machines plus an optional "default" entry.
type File struct {
	Machines map[string]Machine
	Default  *Machine
}

// recordSep is an internal placeholder substituted for spaces inside quoted
// values during tokenization, so a naive whitespace-split tokenizer still
// sees a quoted "a b c" as one token; it is never part of real output.
const recordSep = "\x00"

// tokenize splits content into whitespace-separated tokens, honoring
// double-quoted values (which may contain spaces) and stripping '#'
// comments — both inline and full-line.
func tokenize(content string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, strings.ReplaceAll(cur.String(), recordSep, " "))
			cur.Reset()
		}
	}

	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == '#' && !inQuotes:
			// Skip to end of line.
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case (r == ' ' || r == '\t' || r == '\n' || r == '\r') && !inQuotes:
			flush()
		case r == ' ' && inQuotes:
			cur.WriteString(recordSep)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// Parse reads and parses a netrc file's raw content.
func Parse(content string) *File {
	f := &File{Machines: make(map[string]Machine)}

	tokens := tokenize(content)
	var currentHost string
	var current Machine
	haveCurrent := false

	commit := func() {
		if !haveCurrent {
			return
		}
		if currentHost == "default" {
			m := current
			f.Default = &m
		} else {
			f.Machines[currentHost] = current
		}
	}

	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "machine":
			commit()
			i++
			if i < len(tokens) {
				currentHost = tokens[i]
			}
			current = Machine{}
			haveCurrent = true
		case "default":
			commit()
			currentHost = "default"
			current = Machine{}
			haveCurrent = true
		case "login":
			i++
			if i < len(tokens) {
				current.Login = tokens[i]
			}
		case "password":
			i++
			if i < len(tokens) {
				current.Password = tokens[i]
			}
		case "account":
			i++
			if i < len(tokens) {
				current.Account = tokens[i]
			}
		case "macdef":
			// Skip macro definitions entirely (until blank line); not
			// needed for QuicPulse's use (auth lookup only).
			i++
			for i < len(tokens) && tokens[i] != "" {
				i++
			}
		}
	}
	commit()

	return f
}

// Load reads path (typically ~/.netrc or ~/_netrc) and parses it.
// A missing file degrades silently per spec §7 ("I/O errors on optional
// files... degrade silently to 'no info'"): it returns an empty File and a
// nil error.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{Machines: make(map[string]Machine)}, nil
		}
		return nil, err
	}
	return Parse(string(data)), nil
}

// Lookup finds credentials for host, falling back to the default entry.
// Port-qualified hosts ("example.com:8443") degrade to a hostname-only
// match, per spec §6.2.
func (f *File) Lookup(host string) (Machine, bool) {
	if m, ok := f.Machines[host]; ok {
		return m, true
	}
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		if m, ok := f.Machines[host[:idx]]; ok {
			return m, true
		}
	}
	if f.Default != nil {
		return *f.Default, true
	}
	return Machine{}, false
}
