package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/quicpulse/quicpulse/internal/model"
)

// Intermediate captures one hop of a manually-followed redirect chain,
// collected only when the caller asked for --all (spec §4.3 step 2).
type Intermediate struct {
	StatusCode int
	Header     http.Header
	Method     string
	URL        string
}

// Resigner re-signs a request for a new URL/method/body, used on every hop
// of a SigV4-signed redirect chain (spec §4.3 step 5). auth.Provider.Apply
// satisfies this shape when wrapped by the caller.
type Resigner func(ctx context.Context, method, rawURL string, body []byte, header http.Header) error

// DigestChallenger builds a single Digest retry response header from a 401
// challenge (spec §4.3's "single retry").
type DigestChallenger func(challenge string, method, uri string) (string, error)

// Result is the outcome of Execute: the final response plus any captured
// intermediate hops.
type Result struct {
	Response      *http.Response
	Intermediates []Intermediate
	RedirectCount int
}

// Options configures one Execute call.
type Options struct {
	MaxRedirects  int
	CaptureAll    bool
	Resign        Resigner // nil if the request isn't SigV4-signed
	DigestRetried bool     // caller sets true after the first digest retry to prevent loops
	Digest        DigestChallenger
}

// Execute runs the manual redirect loop described in spec §4.3. It is only
// engaged by callers that need intermediate capture or SigV4 re-signing;
// plain requests should use the HTTP client's built-in bounded redirect
// policy instead (klient.Client's transport already caps it).
func Execute(ctx context.Context, client *http.Client, req *http.Request, opts Options) (*Result, error) {
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 10
	}

	// The loop below follows redirects itself, so the client's own
	// redirect policy is switched off for these requests.
	noFollow := *client
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	client = &noFollow

	result := &Result{}
	currentReq := req
	var bodyBytes []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, model.Errorf(model.KindIO, err, "read request body before redirect loop")
		}
		bodyBytes = b
		currentReq.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	digestRetried := opts.DigestRetried

	for {
		resp, err := client.Do(currentReq)
		if err != nil {
			return nil, model.Errorf(model.KindConnection, err, "request failed")
		}

		if resp.StatusCode == http.StatusUnauthorized && !digestRetried && opts.Digest != nil {
			challenge := resp.Header.Get("WWW-Authenticate")
			if challenge != "" {
				digestRetried = true
				authHeader, err := opts.Digest(challenge, currentReq.Method, currentReq.URL.RequestURI())
				resp.Body.Close()
				if err != nil {
					return nil, err
				}
				retryReq := currentReq.Clone(ctx)
				retryReq.Header.Set("Authorization", authHeader)
				if bodyBytes != nil {
					retryReq.Body = io.NopCloser(bytes.NewReader(bodyBytes))
				}
				currentReq = retryReq
				continue
			}
		}

		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			result.Response = resp
			return result, nil
		}

		if result.RedirectCount >= maxRedirects {
			resp.Body.Close()
			return nil, &model.Error{Kind: model.KindTooManyRedirects, Msg: "exceeded max_redirects", RedirectCount: result.RedirectCount}
		}

		if opts.CaptureAll {
			result.Intermediates = append(result.Intermediates, Intermediate{
				StatusCode: resp.StatusCode,
				Header:     resp.Header.Clone(),
				Method:     currentReq.Method,
				URL:        currentReq.URL.String(),
			})
		}

		loc := resp.Header.Get("Location")
		resp.Body.Close()
		if loc == "" {
			return nil, model.Errorf(model.KindRequest, nil, "redirect response missing Location header")
		}

		nextURL, err := currentReq.URL.Parse(loc)
		if err != nil {
			return nil, model.Errorf(model.KindURL, err, "resolve redirect Location %q", loc)
		}

		nextMethod := currentReq.Method
		var nextBody []byte
		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
			if currentReq.Method == http.MethodPost {
				nextMethod = http.MethodGet
			}
			nextBody = nil
		case http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
			nextMethod = currentReq.Method
			nextBody = bodyBytes
		default:
			nextBody = nil
		}

		header := currentReq.Header.Clone()
		if nextBody == nil {
			header.Del("Content-Length")
			header.Set("Content-Length", "0")
		}

		if opts.Resign != nil {
			if err := opts.Resign(ctx, nextMethod, nextURL.String(), nextBody, header); err != nil {
				return nil, err
			}
		}

		nextReq, err := http.NewRequestWithContext(ctx, nextMethod, nextURL.String(), bodyReader(nextBody))
		if err != nil {
			return nil, model.Errorf(model.KindRequest, err, "build redirected request")
		}
		nextReq.Header = header

		bodyBytes = nextBody
		currentReq = nextReq
		result.RedirectCount++
		digestRetried = false
	}
}

func bodyReader(b []byte) io.Reader {
	if b == nil {
		return nil
	}
	return bytes.NewReader(b)
}
