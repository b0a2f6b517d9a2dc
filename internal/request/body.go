package request

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/quicpulse/quicpulse/internal/model"
)

// Shape is the body construction mode (spec §4.2): JSON is the default for
// "data" items, Form/Multipart for form-style verbs, Raw for --raw/--file.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeJSON
	ShapeForm
	ShapeRaw
	ShapeMultipart
)

// orderedJSON is an insertion-order-preserving JSON object builder. Go's
// map[string]any has no stable iteration order, so the compact serializer
// needs its own ordered representation (spec P7: "key order stable").
type orderedJSON struct {
	keys   []string
	values map[string]any
}

func newOrderedJSON() *orderedJSON {
	return &orderedJSON{values: make(map[string]any)}
}

func (o *orderedJSON) set(key string, val any) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = val
}

func (o *orderedJSON) get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// setPath assigns val at a dotted path expressed as path segments, creating
// nested *orderedJSON objects as needed, e.g. ["user","name"] => {"user":{"name":val}}.
// Repeated leaf keys merge last-wins (spec §4.2).
func (o *orderedJSON) setPath(segments []string, val any) {
	if len(segments) == 1 {
		o.set(segments[0], val)
		return
	}
	head, rest := segments[0], segments[1:]
	existing, ok := o.get(head)
	var child *orderedJSON
	if ok {
		if c, ok := existing.(*orderedJSON); ok {
			child = c
		}
	}
	if child == nil {
		child = newOrderedJSON()
		o.set(head, child)
	}
	child.setPath(rest, val)
}

// splitPath parses "user[name]" into ["user","name"]; a key with no
// brackets is a single-segment path.
func splitPath(key string) []string {
	if !strings.Contains(key, "[") {
		return []string{key}
	}
	var segs []string
	var cur strings.Builder
	for _, r := range key {
		switch r {
		case '[':
			segs = append(segs, cur.String())
			cur.Reset()
		case ']':
			// no-op, closing bracket just terminates the segment started by '['
		default:
			cur.WriteRune(r)
		}
	}
	segs = append(segs, cur.String())
	return segs
}

// marshalCompact serializes an orderedJSON (or a plain value) to a
// no-whitespace byte sequence preserving insertion order — the "compact
// serializer" spec §4.2 requires, since encoding/json sorts map keys and
// cannot be used directly for this contract.
func marshalCompact(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case *orderedJSON:
		buf.WriteByte('{')
		for i, k := range t.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCompactString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			val, _ := t.get(k)
			if err := marshalCompact(buf, val); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case string:
		return marshalCompactString(buf, t)
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case float64:
		buf.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		return nil
	case int:
		buf.WriteString(strconv.Itoa(t))
		return nil
	case []any:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCompact(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		// Already-parsed JSON from a JsonField item: preserve no particular
		// order (Go map), acceptable since this only occurs for values that
		// arrived pre-parsed rather than via the key=value grammar.
		oj := newOrderedJSON()
		for k, vv := range t {
			oj.set(k, vv)
		}
		return marshalCompact(buf, oj)
	default:
		return fmt.Errorf("unsupported JSON value type %T", v)
	}
}

func marshalCompactString(buf *bytes.Buffer, s string) error {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
	return nil
}

// formEncode serializes an ordered key/value list as
// application/x-www-form-urlencoded, "+"-for-space, duplicates preserved
// verbatim (spec §4.2, P6).
func formEncode(pairs [][2]string) []byte {
	var buf bytes.Buffer
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(formEscape(p[0]))
		buf.WriteByte('=')
		buf.WriteString(formEscape(p[1]))
	}
	return buf.Bytes()
}

func formEscape(s string) string {
	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			buf.WriteByte('+')
		case (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '.' || c == '~':
			buf.WriteByte(c)
		default:
			fmt.Fprintf(&buf, "%%%02X", c)
		}
	}
	return buf.String()
}

// buildMultipart writes a multipart/form-data body from field values and
// file uploads, in the items' encounter order, returning the body bytes and
// the boundary-bearing Content-Type value.
func buildMultipart(fields [][2]string, files []model.FileUpload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", model.Errorf(model.KindIO, err, "write multipart field %q", f[0])
		}
	}

	for _, f := range files {
		name := f.Filename
		if name == "" {
			name = filepath.Base(f.Path)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.Field, name))
		mime := f.MimeType
		if mime == "" {
			mime = "application/octet-stream"
		}
		h.Set("Content-Type", mime)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", model.Errorf(model.KindIO, err, "create multipart part for %q", f.Field)
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, "", model.Errorf(model.KindIO, err, "read upload file %q", f.Path)
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", model.Errorf(model.KindIO, err, "write multipart file %q", f.Path)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", model.Errorf(model.KindIO, err, "close multipart writer")
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
