package modules

import (
	"encoding/base64"
	"encoding/hex"
	"net/url"
)

// Encoding backs the `encoding` module: base64/hex/url encode and decode,
// stdlib-only (spec.md lists no algorithm beyond what encoding/* already
// implements correctly).
type Encoding struct{}

func (Encoding) Base64Encode(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func (Encoding) Base64Decode(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (Encoding) HexEncode(s string) string { return hex.EncodeToString([]byte(s)) }

func (Encoding) HexDecode(s string) (string, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (Encoding) URLEncode(s string) string { return url.QueryEscape(s) }

func (Encoding) URLDecode(s string) (string, error) { return url.QueryUnescape(s) }

func (e Encoding) Object() map[string]any {
	return map[string]any{
		"base64_encode": e.Base64Encode,
		"base64_decode": e.Base64Decode,
		"hex_encode":    e.HexEncode,
		"hex_decode":    e.HexDecode,
		"url_encode":    e.URLEncode,
		"url_decode":    e.URLDecode,
	}
}
