package awsauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// UnsignedPayload is the literal payload-hash string used for multipart
// bodies and streamed uploads (spec §4.1.3 signing contract).
const UnsignedPayload = "UNSIGNED-PAYLOAD"

// Credentials is the minimal static credential triple a Signer needs; it is
// intentionally decoupled from Profile so callers that resolved credentials
// via SSO/AssumeRole/credential-process can sign without re-touching disk.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Signer signs requests with AWS Signature Version 4.
type Signer struct {
	Creds   Credentials
	Region  string
	Service string

	// Now is overridable for deterministic tests (spec S2 fixes the clock).
	Now func() time.Time
}

func (s *Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// serviceOverrides maps host-suffix service names to their SigV4 service
// identifier where they differ, per spec §4.1.3 "Service inference".
var serviceOverrides = map[string]string{
	"s3-accelerate": "s3",
}

// InferService derives the SigV4 service name from the host, per spec
// §4.1.3: "<svc>.<region>.amazonaws.com" with an override table, and
// "execute-api" substring defaulting to execute-api.
func InferService(host string) (service, region string) {
	if strings.Contains(host, "execute-api") {
		return "execute-api", regionFromHost(host)
	}

	parts := strings.Split(strings.TrimSuffix(host, "."), ".")
	// host shapes: svc.region.amazonaws.com, bucket.s3.amazonaws.com
	// (virtual-hosted S3, no region) OR svc.amazonaws.com (global, e.g. s3)
	for i, p := range parts {
		if p == "amazonaws" {
			switch i {
			case 2:
				svc, reg := parts[0], parts[1]
				if reg == "s3" {
					return "s3", ""
				}
				if mapped, ok := serviceOverrides[svc]; ok {
					svc = mapped
				}
				return svc, reg
			case 1:
				svc := parts[0]
				if mapped, ok := serviceOverrides[svc]; ok {
					svc = mapped
				}
				return svc, ""
			}
		}
	}
	return "", ""
}

func regionFromHost(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) >= 3 {
		return parts[1]
	}
	return ""
}

// SignInput carries the exact bytes that will be sent, per spec §4.1.3:
// "the implementation must sign the exact bytes that will be sent, after
// compression if any."
type SignInput struct {
	Method string
	URL    string
	Header map[string][]string // header name -> values, already set by the caller
	Body   []byte

	// UnsignedBody, when true, uses UnsignedPayload instead of hashing Body
	// (multipart / streamed uploads).
	UnsignedBody bool
}

// SignResult carries the headers the caller must merge into the outgoing
// request: Authorization, X-Amz-Date, and (session token only) X-Amz-Security-Token.
type SignResult struct {
	Authorization      string
	AmzDate            string
	ContentSHA256      string
	SecurityTokenValue string
}

// Sign computes the SigV4 Authorization header for in. The Host header in
// in.Header must already equal "host" or "host:port" (port omitted for
// scheme-standard ports), per spec §4.1.3.
func (s *Signer) Sign(in SignInput) (*SignResult, error) {
	u, err := url.Parse(in.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	now := s.now()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")

	payloadHash := UnsignedPayload
	if !in.UnsignedBody {
		sum := sha256.Sum256(in.Body)
		payloadHash = hex.EncodeToString(sum[:])
	}

	headers := cloneHeader(in.Header)
	headers["x-amz-date"] = []string{amzDate}
	headers["x-amz-content-sha256"] = []string{payloadHash}
	if s.Creds.SessionToken != "" {
		headers["x-amz-security-token"] = []string{s.Creds.SessionToken}
	}

	canonicalHeaders, signedHeaders := canonicalizeHeaders(headers)
	canonicalRequest := strings.Join([]string{
		in.Method,
		canonicalURI(u.EscapedPath()),
		canonicalQuery(u.Query()),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, s.Region, s.Service)
	hashedCanonicalRequest := sha256Hex(canonicalRequest)

	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		credentialScope,
		hashedCanonicalRequest,
	}, "\n")

	signingKey := s.deriveSigningKey(dateStamp)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	authHeader := fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		s.Creds.AccessKeyID, credentialScope, signedHeaders, signature,
	)

	return &SignResult{
		Authorization:      authHeader,
		AmzDate:            amzDate,
		ContentSHA256:      payloadHash,
		SecurityTokenValue: s.Creds.SessionToken,
	}, nil
}

func (s *Signer) deriveSigningKey(dateStamp string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+s.Creds.SecretAccessKey), dateStamp)
	kRegion := hmacSHA256(kDate, s.Region)
	kService := hmacSHA256(kRegion, s.Service)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func canonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

// canonicalQuery URL-encodes and sorts query parameters per SigV4 rules.
// Unlike form-body encoding, SigV4 query canonicalization always sorts by
// key (then value) regardless of insertion order — it's a hash input, not
// an externally observable wire form.
func canonicalQuery(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			parts = append(parts, sigV4Escape(k)+"="+sigV4Escape(v))
		}
	}
	return strings.Join(parts, "&")
}

func sigV4Escape(s string) string {
	escaped := url.QueryEscape(s)
	// SigV4 requires RFC 3986 unreserved chars and "~" literal, unlike
	// QueryEscape which encodes "~" into %7E and uses "+" for space.
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "%7E", "~")
	return escaped
}

func canonicalizeHeaders(header map[string][]string) (canonical, signed string) {
	names := make([]string, 0, len(header))
	lower := make(map[string][]string, len(header))
	for k, v := range header {
		lk := strings.ToLower(k)
		if _, ok := lower[lk]; !ok {
			names = append(names, lk)
		}
		lower[lk] = append(lower[lk], v...)
	}
	sort.Strings(names)

	var cb strings.Builder
	for _, n := range names {
		vals := lower[n]
		trimmed := make([]string, len(vals))
		for i, v := range vals {
			trimmed[i] = strings.Join(strings.Fields(v), " ")
		}
		cb.WriteString(n)
		cb.WriteByte(':')
		cb.WriteString(strings.Join(trimmed, ","))
		cb.WriteByte('\n')
	}

	return cb.String(), strings.Join(names, ";")
}

func cloneHeader(h map[string][]string) map[string][]string {
	out := make(map[string][]string, len(h)+2)
	for k, v := range h {
		out[strings.ToLower(k)] = v
	}
	return out
}

// HostHeader formats the Host header value: hostname alone for
// scheme-standard ports (80/443), "host:port" otherwise, per spec §4.1.3.
func HostHeader(scheme, host, port string) string {
	if port == "" {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return host
	}
	return host + ":" + port
}
