// Package itemlex implements the request-item argument grammar (spec
// §6.4): positional CLI args like `key==value`, `key:=@file.json`, or
// `name=Bob` that the RequestAssembler (internal/request) composes into a
// request. The spec treats the lexer as an external collaborator and
// only requires it to produce model.InputItem values; this is a direct,
// minimal implementation of that contract so the CLI has something real
// to drive internal/request with.
package itemlex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quicpulse/quicpulse/internal/model"
)

// separators are tried longest-match-first, exactly as spec §6.4 lists
// them: `:=@`, `==@`, `:@`, `=@`, `:=`, `==`, `:`, `=`, `;`, `@`.
var separators = []string{":=@", "==@", ":@", "=@", ":=", "==", ":", "=", ";", "@"}

// Parse converts raw CLI arguments into InputItem values in encounter order.
func Parse(args []string) ([]model.InputItem, error) {
	items := make([]model.InputItem, 0, len(args))
	for _, arg := range args {
		item, err := parseOne(arg)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", arg, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func parseOne(arg string) (model.InputItem, error) {
	sep, idx := findSeparator(arg)
	if idx < 0 {
		return nil, fmt.Errorf("no recognized separator")
	}

	key := arg[:idx]
	rest := arg[idx+len(sep):]

	if key == "" && sep != "@" {
		return nil, fmt.Errorf("empty key")
	}

	switch sep {
	case ":=@":
		return model.JSONFieldFromFile{Key: key, Path: rest}, nil
	case "==@":
		return model.QueryFromFile{Name: key, Path: rest}, nil
	case ":@":
		return model.HeaderFromFile{Name: key, Path: rest}, nil
	case "=@":
		return model.DataFieldFromFile{Key: key, Path: rest}, nil
	case ":=":
		var v any
		if err := json.Unmarshal([]byte(rest), &v); err != nil {
			return nil, fmt.Errorf("parse json value: %w", err)
		}
		return model.JSONField{Key: key, Value: v}, nil
	case "==":
		return model.Query{Name: key, Value: rest}, nil
	case ":":
		if rest == "" {
			return model.EmptyHeader{Name: key}, nil
		}
		return model.Header{Name: key, Value: rest}, nil
	case "=":
		return model.DataField{Key: key, Value: rest}, nil
	case ";":
		return model.Header{Name: key, Value: ""}, nil
	case "@":
		return model.FileUpload{Field: key, Path: rest}, nil
	}
	return nil, fmt.Errorf("unhandled separator %q", sep)
}

// findSeparator finds the earliest-positioned match among the
// longest-match-first separator list, so "k:=@file" resolves to ":=@" and
// never to the shorter ":=" or "=" substrings it contains.
func findSeparator(arg string) (sep string, idx int) {
	bestIdx := -1
	bestSep := ""
	for _, s := range separators {
		if i := strings.Index(arg, s); i >= 0 {
			if bestIdx == -1 || i < bestIdx || (i == bestIdx && len(s) > len(bestSep)) {
				bestIdx = i
				bestSep = s
			}
		}
	}
	return bestSep, bestIdx
}
