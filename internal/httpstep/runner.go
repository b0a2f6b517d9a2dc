// Package httpstep is the concrete workflow.StepRunner that bridges a
// workflow.Step onto RequestAssembler (internal/request), the auth
// providers (internal/auth), and RedirectExecutor (internal/transport) —
// the glue spec §4.6 step 4 calls "build request" and step 5 calls
// "execute", grounded on the teacher's http_request node
// (internal/service/workflow/nodes/http-request.go), which is the one
// place in the teacher repo that already wires these three concerns
// together for a single workflow step.
package httpstep

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quicpulse/quicpulse/internal/auth"
	"github.com/quicpulse/quicpulse/internal/model"
	"github.com/quicpulse/quicpulse/internal/render"
	"github.com/quicpulse/quicpulse/internal/request"
	"github.com/quicpulse/quicpulse/internal/transport"
	"github.com/quicpulse/quicpulse/internal/workflow"
)

// Runner drives one workflow.Step's HTTP lifecycle end to end. It
// implements workflow.StepRunner.
type Runner struct {
	Client *http.Client

	// Providers maps a step's `auth:` name (spec §4.6: steps reference a
	// named auth profile, resolved from session/config) to a configured
	// auth.Provider. A step with Auth == "" sends unauthenticated.
	Providers map[string]auth.Provider

	BaseURL         string
	GlobalHeaders   map[string]string
	MaxRedirects    int
	CaptureAll      bool
	DigestChallenge auth.Provider // optional shared Digest provider for the 401 retry path
}

// RunStep implements workflow.StepRunner.
func (r *Runner) RunStep(ctx context.Context, step *workflow.Step, vars map[string]any) (workflow.StepResult, error) {
	assembled, err := r.assemble(step, vars)
	if err != nil {
		return workflow.StepResult{}, err
	}

	var provider auth.Provider
	if step.Auth != "" {
		provider = r.Providers[step.Auth]
	}

	authReq := &auth.Request{
		Method: assembled.Method,
		URL:    assembled.URL.String(),
		Header: assembled.Header,
		Body:   assembled.Body,
	}
	if provider != nil {
		if err := provider.Apply(ctx, authReq); err != nil {
			return workflow.StepResult{}, model.Errorf(model.KindAuth, err, "apply auth for step %q", step.Name)
		}
		assembled.Header = authReq.Header
	}

	httpReq, err := assembled.ToHTTPRequest()
	if err != nil {
		return workflow.StepResult{}, err
	}
	httpReq = httpReq.WithContext(ctx)

	needsManual := request.NeedsManualRedirect(r.CaptureAll, provider != nil && isSigV4(provider))

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	var resp *http.Response
	var intermediates []transport.Intermediate
	if needsManual || r.CaptureAll {
		var resign transport.Resigner
		if provider != nil {
			resign = func(ctx context.Context, method, rawURL string, body []byte, header http.Header) error {
				ar := &auth.Request{Method: method, URL: rawURL, Header: header, Body: body, Compressed: true}
				return provider.Apply(ctx, ar)
			}
		}
		var digestFn transport.DigestChallenger
		if d, ok := r.DigestChallenge.(*auth.Digest); ok {
			digestFn = digestChallengerFor(d)
		}
		result, execErr := transport.Execute(ctx, client, httpReq, transport.Options{
			MaxRedirects: maxRedirects(step, r.MaxRedirects),
			CaptureAll:   step.Curl || r.CaptureAll,
			Resign:       resign,
			Digest:       digestFn,
		})
		if execErr != nil {
			return workflow.StepResult{Latency: time.Since(start), TransportErr: execErr}, classifyTransportErr(execErr)
		}
		resp = result.Response
		intermediates = result.Intermediates
	} else {
		var doErr error
		resp, doErr = client.Do(httpReq)
		if doErr != nil {
			return workflow.StepResult{Latency: time.Since(start), TransportErr: doErr}, classifyTransportErr(doErr)
		}
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	body, headers, err := decodeResponse(resp)
	if err != nil {
		return workflow.StepResult{}, err
	}

	_ = intermediates // surfaced to history/output formatting by the caller, not needed for assert/extract

	return workflow.StepResult{
		StatusCode: resp.StatusCode,
		Latency:    latency,
		Body:       body,
		Headers:    headers,
	}, nil
}

func maxRedirects(step *workflow.Step, fallback int) int {
	if step.MaxRedirects > 0 {
		return step.MaxRedirects
	}
	if fallback > 0 {
		return fallback
	}
	return 10
}

func isSigV4(p auth.Provider) bool {
	_, ok := p.(auth.AWSSigV4)
	return ok
}

// digestChallengerFor adapts auth.Digest's HandleChallenge (which works in
// terms of *http.Response/*auth.Request) to transport.DigestChallenger's
// (challenge, method, uri) -> authHeader shape that the redirect loop calls
// with only the 401's challenge string and the in-flight request line.
func digestChallengerFor(d *auth.Digest) transport.DigestChallenger {
	return func(challenge string, method, uri string) (string, error) {
		resp := &http.Response{
			StatusCode: http.StatusUnauthorized,
			Header:     http.Header{"WWW-Authenticate": []string{challenge}},
		}
		req := &auth.Request{Method: method, URL: "http://placeholder" + uri, Header: http.Header{}}
		retried, err := d.HandleChallenge(context.Background(), resp, req)
		if err != nil {
			return "", err
		}
		if !retried {
			return "", fmt.Errorf("digest challenge did not produce a retry")
		}
		return req.Header.Get("Authorization"), nil
	}
}

// assemble renders step.URL/Headers/Query/Form/Body against vars (spec
// §4.6 step 4: a dependent step's "{{user_id}}" must resolve against
// values an earlier step extracted) before handing the concrete strings
// to RequestAssembler.
func (r *Runner) assemble(step *workflow.Step, vars map[string]any) (*request.Assembled, error) {
	url, err := renderTemplate(step.URL, vars)
	if err != nil {
		return nil, model.Errorf(model.KindPipeline, err, "render url for step %q", step.Name)
	}
	headers, err := renderStringMap(step.Headers, vars)
	if err != nil {
		return nil, model.Errorf(model.KindPipeline, err, "render headers for step %q", step.Name)
	}
	query, err := renderStringMap(step.Query, vars)
	if err != nil {
		return nil, model.Errorf(model.KindPipeline, err, "render query for step %q", step.Name)
	}
	form, err := renderStringMap(step.Form, vars)
	if err != nil {
		return nil, model.Errorf(model.KindPipeline, err, "render form for step %q", step.Name)
	}
	body, err := renderTemplate(step.Body, vars)
	if err != nil {
		return nil, model.Errorf(model.KindPipeline, err, "render body for step %q", step.Name)
	}

	var items []model.InputItem
	for k, v := range headers {
		items = append(items, model.Header{Name: k, Value: v})
	}
	for k, v := range query {
		items = append(items, model.Query{Name: k, Value: v})
	}

	opts := request.Options{
		Method: strings.ToUpper(step.Method),
		RawURL: resolveURL(r.BaseURL, url),
		Items:  items,
		Session: request.SessionDefaults{
			Headers: headerMap(r.GlobalHeaders),
			BaseURL: r.BaseURL,
		},
	}
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}

	switch {
	case len(step.Raw) > 0:
		opts.Raw = step.Raw
	case step.Multipart:
		opts.Multipart = true
		for k, v := range form {
			items = append(items, model.DataField{Key: k, Value: v})
		}
		opts.Items = items
	case len(form) > 0:
		opts.Form = true
		for k, v := range form {
			items = append(items, model.DataField{Key: k, Value: v})
		}
		opts.Items = items
	case body != "":
		opts.Raw = []byte(body)
	}

	return request.Build(opts)
}

// renderTemplate runs s through the shared template executor (the same
// mugo templatex engine internal/render wraps for the rest of the
// codebase) against vars, exposing each extracted variable both as
// dot-field data ("{{.user_id}}", the teacher's own
// nodes/template.go convention) and as a bare zero-arg template func
// ("{{user_id}}", the bare form a chained workflow step's URL uses).
// Empty strings are returned unchanged without invoking the engine.
func renderTemplate(s string, vars map[string]any) (string, error) {
	if s == "" {
		return s, nil
	}
	out, err := render.ExecuteWithFuncs(s, vars, varFuncMap(vars))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// varFuncMap lets a template reference an extracted variable by its bare
// name, e.g. a URL template "/users/{{user_id}}" (spec §4.6 step 4's
// P13/S6 chaining example) without requiring the leading dot.
func varFuncMap(vars map[string]any) map[string]any {
	funcs := make(map[string]any, len(vars))
	for k, v := range vars {
		v := v
		funcs[k] = func() any { return v }
	}
	return funcs
}

func renderStringMap(m map[string]string, vars map[string]any) (map[string]string, error) {
	if len(m) == 0 {
		return m, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		rv, err := renderTemplate(v, vars)
		if err != nil {
			return nil, err
		}
		out[k] = rv
	}
	return out, nil
}

func resolveURL(base, path string) string {
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func headerMap(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

func decodeResponse(resp *http.Response) (any, map[string]string, error) {
	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}

	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "json") {
		var v any
		if err := json.Unmarshal(buf, &v); err == nil {
			return v, headers, nil
		}
	}
	return string(buf), headers, nil
}

func classifyTransportErr(err error) error {
	if merr, ok := err.(*model.Error); ok {
		return merr
	}
	return model.Errorf(model.KindConnection, err, "send request")
}
