// Package request implements the RequestAssembler (spec §4.2): it composes
// InputModel items, session defaults, and auth flag effects into a concrete
// *http.Request with the deterministic byte contract (P6/P7) signing reads.
// Grounded on the teacher's http_request workflow node
// (internal/service/workflow/nodes/http-request.go) for client construction
// and Content-Type defaulting, generalized from a single templated node into
// the full item-precedence pipeline the spec requires.
package request

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/quicpulse/quicpulse/internal/model"
)

// Compression selects the -x/-xx opportunistic/forced deflate policy.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionOpportunistic
	CompressionForce
)

// SessionDefaults carries the lowest-precedence layer: headers and auth
// persisted from a prior session (spec §6.2).
type SessionDefaults struct {
	Headers http.Header
	BaseURL string
}

// Assembled is the output of Build: the net/http request plus the
// canonical body bytes that auth providers must sign (SigV4 needs the
// exact on-wire bytes, including post-compression).
type Assembled struct {
	Method      string
	URL         *url.URL
	Header      http.Header
	Body        []byte
	Shape       Shape
	URLUser     string
	URLPassword string
	HasURLCreds bool
}

// Options configures one Build call.
type Options struct {
	Method      string
	RawURL      string
	Items       []model.InputItem
	Session     SessionDefaults
	Compression Compression
	// Raw, when non-nil, forces ShapeRaw regardless of items (the --raw/
	// --file CLI path bypasses item-based body construction entirely).
	Raw []byte
	// Form selects --form: DataField/JsonField items assemble into an
	// ordered form key/value list instead of a JSON object. Default is
	// JSON (httpie-style "JSON is the default content type").
	Form bool
	// Multipart forces ShapeMultipart (--multipart) even when no
	// FileUpload item is present, so a caller can request a
	// multipart/form-data body purely of fields.
	Multipart bool
}

// Build composes the full precedence chain and returns the assembled
// request (spec §4.2's "lowest to highest" ordering):
//
//  1. session defaults
//  2. CLI auth flag effects (applied by the caller via auth.Provider.Apply,
//     not here — this layer only extracts url-embedded credentials)
//  3. content-type derived from body mode
//  4. request-item-provided headers, appended not inserted
func Build(opts Options) (*Assembled, error) {
	u, err := url.Parse(opts.RawURL)
	if err != nil {
		return nil, model.Errorf(model.KindURL, err, "parse url %q", opts.RawURL)
	}

	var urlUser, urlPass string
	hasCreds := false
	if u.User != nil {
		urlUser = u.User.Username()
		urlPass, _ = u.User.Password()
		hasCreds = true
		u.User = nil
	}

	header := make(http.Header)
	for k, vs := range opts.Session.Headers {
		header[k] = append([]string(nil), vs...)
	}

	var queryPairs [][2]string
	for k, vs := range u.Query() {
		for _, v := range vs {
			queryPairs = append(queryPairs, [2]string{k, v})
		}
	}

	shape := ShapeNone
	var body []byte
	var formPairs [][2]string
	var files []model.FileUpload
	jsonObj := newOrderedJSON()
	hasData := false

	if opts.Raw != nil {
		shape = ShapeRaw
		body = opts.Raw
	} else {
		for _, item := range opts.Items {
			switch t := item.(type) {
			case model.Header:
				header.Add(t.Name, t.Value)
			case model.EmptyHeader:
				header.Del(t.Name)
			case model.HeaderFromFile:
				v, err := readFileTrimmed(t.Path)
				if err != nil {
					return nil, err
				}
				header.Add(t.Name, v)
			case model.Query:
				queryPairs = append(queryPairs, [2]string{t.Name, t.Value})
			case model.QueryFromFile:
				v, err := readFileTrimmed(t.Path)
				if err != nil {
					return nil, err
				}
				queryPairs = append(queryPairs, [2]string{t.Name, v})
			case model.DataField:
				hasData = true
				formPairs = append(formPairs, [2]string{t.Key, t.Value})
				jsonObj.setPath(splitPath(t.Key), t.Value)
			case model.DataFieldFromFile:
				v, err := readFileTrimmed(t.Path)
				if err != nil {
					return nil, err
				}
				hasData = true
				formPairs = append(formPairs, [2]string{t.Key, v})
				jsonObj.setPath(splitPath(t.Key), v)
			case model.JSONField:
				hasData = true
				formPairs = append(formPairs, [2]string{t.Key, jsonScalarToForm(t.Value)})
				jsonObj.setPath(splitPath(t.Key), t.Value)
			case model.JSONFieldFromFile:
				v, err := readJSONFile(t.Path)
				if err != nil {
					return nil, err
				}
				hasData = true
				formPairs = append(formPairs, [2]string{t.Key, jsonScalarToForm(v)})
				jsonObj.setPath(splitPath(t.Key), v)
			case model.FileUpload:
				files = append(files, t)
			default:
				return nil, model.Errorf(model.KindArgument, nil, "unrecognized input item %T", item)
			}
		}

		// "Upgrades" from simple to multipart: any FileUpload forces
		// multipart regardless of requested mode (spec §4.2, §9).
		switch {
		case len(files) > 0, opts.Multipart:
			shape = ShapeMultipart
		case opts.Form && hasData:
			shape = ShapeForm
		case hasData:
			shape = ShapeJSON
		}

		switch shape {
		case ShapeJSON:
			var buf bytes.Buffer
			if err := marshalCompact(&buf, jsonObj); err != nil {
				return nil, model.Errorf(model.KindJSON, err, "serialize json body")
			}
			body = buf.Bytes()
		case ShapeForm:
			body = formEncode(formPairs)
		case ShapeMultipart:
			b, ct, err := buildMultipart(formPairs, files)
			if err != nil {
				return nil, err
			}
			body = b
			header.Set("Content-Type", ct)
		}
	}

	u.RawQuery = formEncode(queryPairs)

	switch opts.Compression {
	case CompressionOpportunistic, CompressionForce:
		if len(body) > 0 {
			compressed, err := deflate(body)
			if err != nil {
				return nil, model.Errorf(model.KindIO, err, "deflate body")
			}
			if opts.Compression == CompressionForce || len(compressed) < len(body) {
				body = compressed
				header.Set("Content-Encoding", "deflate")
			}
		}
	}

	if header.Get("Content-Type") == "" {
		switch shape {
		case ShapeJSON:
			header.Set("Content-Type", "application/json")
		case ShapeForm:
			header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}

	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}
	if len(body) == 0 && method != http.MethodGet && method != http.MethodHead && method != http.MethodOptions {
		header.Set("Content-Length", "0")
	}

	return &Assembled{
		Method:      method,
		URL:         u,
		Header:      header,
		Body:        body,
		Shape:       shape,
		URLUser:     urlUser,
		URLPassword: urlPass,
		HasURLCreds: hasCreds,
	}, nil
}

// ToHTTPRequest builds a *http.Request from an Assembled value.
func (a *Assembled) ToHTTPRequest() (*http.Request, error) {
	var bodyReader *bytes.Reader
	if len(a.Body) > 0 {
		bodyReader = bytes.NewReader(a.Body)
	} else {
		bodyReader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(a.Method, a.URL.String(), bodyReader)
	if err != nil {
		return nil, model.Errorf(model.KindRequest, err, "build http request")
	}
	req.Header = a.Header.Clone()
	if req.Header.Get("Content-Length") == "0" {
		req.ContentLength = 0
	}
	return req, nil
}

// jsonScalarToForm stringifies an already-parsed JSON value for inclusion
// in a form body, used when a JsonField item is combined with --form.
func jsonScalarToForm(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func readFileTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", model.Errorf(model.KindIO, err, "read file %q", path)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func readJSONFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.Errorf(model.KindIO, err, "read json file %q", path)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, model.Errorf(model.KindJSON, err, "parse json file %q", path)
	}
	return v, nil
}

// deflate compresses data with raw DEFLATE (no zlib/gzip wrapper), matching
// what "Content-Encoding: deflate" conventionally means on the wire.
func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NeedsManualRedirect reports whether the RedirectExecutor must take over
// from the HTTP client's built-in policy (spec §4.3): capturing
// intermediates, or any SigV4-signed request since the signature is
// URL-bound.
func NeedsManualRedirect(captureIntermediates, sigv4Signed bool) bool {
	return captureIntermediates || sigv4Signed
}
