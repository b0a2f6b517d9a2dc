package modules

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Crypto backs the `crypto` module. Hashing/HMAC ride the standard library
// (spec.md names the exact algorithms, and no example repo pulls in a
// non-stdlib hashing library for this); uuid_v4/uuid_v7 use google/uuid,
// already a teacher dependency, which added v7 support in v1.6.
type Crypto struct{}

func (Crypto) Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (Crypto) Sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (Crypto) Sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (Crypto) Md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (Crypto) HmacSha256(key, msg string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(msg))
	return hex.EncodeToString(h.Sum(nil))
}

func (Crypto) HmacSha512(key, msg string) string {
	h := hmac.New(sha512.New, []byte(key))
	h.Write([]byte(msg))
	return hex.EncodeToString(h.Sum(nil))
}

func (Crypto) HmacSha256Base64(key, msg string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (Crypto) RandomHex(n int64) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (Crypto) RandomBytesBase64(n int64) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (Crypto) RandomInt(min, max int64) (int64, error) {
	if max <= min {
		return 0, fmt.Errorf("crypto.random_int: max must be > min")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max-min))
	if err != nil {
		return 0, err
	}
	return min + n.Int64(), nil
}

const randomStringAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func (Crypto) RandomString(n int64) (string, error) {
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(randomStringAlphabet))))
		if err != nil {
			return "", err
		}
		out[i] = randomStringAlphabet[idx.Int64()]
	}
	return string(out), nil
}

func (Crypto) UuidV4() string { return uuid.New().String() }

func (Crypto) UuidV7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (Crypto) Timestamp() int64   { return time.Now().Unix() }
func (Crypto) TimestampMs() int64 { return time.Now().UnixMilli() }

func (c Crypto) Object() map[string]any {
	return map[string]any{
		"sha256_hex":         c.Sha256Hex,
		"sha512_hex":         c.Sha512Hex,
		"sha1_hex":           c.Sha1Hex,
		"md5_hex":            c.Md5Hex,
		"hmac_sha256":        c.HmacSha256,
		"hmac_sha512":        c.HmacSha512,
		"hmac_sha256_base64": c.HmacSha256Base64,
		"random_hex":         c.RandomHex,
		"random_bytes_base64": c.RandomBytesBase64,
		"random_int":         c.RandomInt,
		"random_string":      c.RandomString,
		"uuid_v4":            c.UuidV4,
		"uuid_v7":            c.UuidV7,
		"timestamp":          c.Timestamp,
		"timestamp_ms":       c.TimestampMs,
	}
}
