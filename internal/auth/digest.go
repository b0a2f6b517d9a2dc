package auth

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/quicpulse/quicpulse/internal/model"
)

// Digest implements the two-round-trip RFC 2617/7616 digest challenge.
// The first Apply is a no-op (there is no challenge yet); HandleChallenge
// parses the 401's WWW-Authenticate header and rebuilds the Authorization
// header for a single retry using the same body bytes and method, as
// required by spec §4.3.
type Digest struct {
	User string
	Pass string

	nc int
}

func (d *Digest) Apply(_ context.Context, _ *Request) error { return nil }

type digestChallenge struct {
	realm     string
	nonce     string
	qop       string
	algorithm string
	opaque    string
}

func parseDigestChallenge(header string) (*digestChallenge, error) {
	if !strings.HasPrefix(header, "Digest ") {
		return nil, fmt.Errorf("not a digest challenge")
	}
	fields := splitChallengeFields(strings.TrimPrefix(header, "Digest "))

	c := &digestChallenge{
		realm:     fields["realm"],
		nonce:     fields["nonce"],
		qop:       fields["qop"],
		algorithm: fields["algorithm"],
		opaque:    fields["opaque"],
	}
	if c.nonce == "" {
		return nil, fmt.Errorf("digest challenge missing nonce")
	}
	if c.algorithm == "" {
		c.algorithm = "MD5"
	}
	return c, nil
}

// splitChallengeFields parses comma-separated key=value / key="value" pairs.
func splitChallengeFields(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.Trim(strings.TrimSpace(v), `"`)
		out[k] = v
	}
	return out
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (d *Digest) HandleChallenge(_ context.Context, resp *http.Response, req *Request) (bool, error) {
	if resp.StatusCode != http.StatusUnauthorized {
		return false, nil
	}
	header := resp.Header.Get("WWW-Authenticate")
	if header == "" {
		return false, nil
	}

	challenge, err := parseDigestChallenge(header)
	if err != nil {
		return false, authErr(model.KindAuth, "server did not present a parseable Digest challenge", err, "parse WWW-Authenticate")
	}

	d.nc++

	uri := requestURIFromURL(req.URL)
	ha1 := md5Hex(fmt.Sprintf("%s:%s:%s", d.User, challenge.realm, d.Pass))
	ha2 := md5Hex(fmt.Sprintf("%s:%s", req.Method, uri))

	var response, cnonce, ncStr string
	if challenge.qop != "" {
		cnonce = randomHex(8)
		ncStr = fmt.Sprintf("%08x", d.nc)
		response = md5Hex(fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, challenge.nonce, ncStr, cnonce, "auth", ha2))
	} else {
		response = md5Hex(fmt.Sprintf("%s:%s:%s", ha1, challenge.nonce, ha2))
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username="%s", realm="%s", nonce="%s", uri="%s", response="%s"`,
		d.User, challenge.realm, challenge.nonce, uri, response)
	if challenge.qop != "" {
		fmt.Fprintf(&b, `, qop=auth, nc=%s, cnonce="%s"`, ncStr, cnonce)
	}
	if challenge.opaque != "" {
		fmt.Fprintf(&b, `, opaque="%s"`, challenge.opaque)
	}

	req.Header.Set("Authorization", b.String())
	return true, nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func requestURIFromURL(rawURL string) string {
	// The digest "uri" field is path[?query], not the full URL.
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL
	}
	rest := rawURL[idx+3:]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return "/"
	}
	return rest[slash:]
}
