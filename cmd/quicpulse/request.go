package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/quicpulse/quicpulse/internal/auth"
	"github.com/quicpulse/quicpulse/internal/config"
	"github.com/quicpulse/quicpulse/internal/itemlex"
	"github.com/quicpulse/quicpulse/internal/model"
	"github.com/quicpulse/quicpulse/internal/request"
	"github.com/quicpulse/quicpulse/internal/session"
	"github.com/quicpulse/quicpulse/internal/transport"
)

var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// runRequestCmd sends one ad hoc request (spec §6.1's default verb), built
// from the request-item grammar (internal/itemlex) and RequestAssembler
// (internal/request), authenticated via internal/auth, and sent through
// internal/transport's pooled client.
func runRequestCmd(ctx context.Context, cfg *config.Config, args []string) error {
	flags, positional, err := splitFlags(args)
	if err != nil {
		return model.Errorf(model.KindArgument, err, "parse flags")
	}
	if len(positional) == 0 {
		return model.Errorf(model.KindArgument, nil, "URL is required")
	}

	httpMethod := ""
	rest := positional
	if up := strings.ToUpper(positional[0]); knownMethods[up] {
		httpMethod = up
		rest = positional[1:]
	}
	if len(rest) == 0 {
		return model.Errorf(model.KindArgument, nil, "URL is required")
	}
	rawURL := rest[0]
	itemArgs := rest[1:]

	items, err := itemlex.Parse(itemArgs)
	if err != nil {
		return model.Errorf(model.KindArgument, err, "parse request items")
	}

	if httpMethod == "" {
		httpMethod = defaultMethod(items)
	}

	sessionName := flags["session"]
	sessDefaults := request.SessionDefaults{BaseURL: cfg.Defaults.BaseURL}
	if sessionName != "" {
		dir, derr := config.Dir()
		if derr != nil {
			return model.Errorf(model.KindSession, derr, "resolve config dir")
		}
		sess, serr := session.Load(dir, sessionName)
		if serr != nil {
			return model.Errorf(model.KindSession, serr, "load session %q", sessionName)
		}
		sessDefaults = sess.ToDefaults()
	}

	opts := request.Options{
		Method:  httpMethod,
		RawURL:  rawURL,
		Items:   items,
		Session: sessDefaults,
		Form:    flags["form"] != "",
	}

	assembled, err := request.Build(opts)
	if err != nil {
		return err
	}

	provider := resolveAuthProvider(flags, cfg)
	if provider != nil {
		authReq := &auth.Request{
			Method: assembled.Method,
			URL:    assembled.URL.String(),
			Header: assembled.Header,
			Body:   assembled.Body,
		}
		if err := provider.Apply(ctx, authReq); err != nil {
			return model.Errorf(model.KindAuth, err, "apply authentication")
		}
		assembled.Header = authReq.Header
	}

	httpReq, err := assembled.ToHTTPRequest()
	if err != nil {
		return err
	}
	httpReq = httpReq.WithContext(ctx)

	timeout := cfg.Defaults.Timeout
	if v, ok := flags["timeout"]; ok {
		d, perr := time.ParseDuration(v + "s")
		if perr == nil {
			timeout = d
		}
	}

	client, err := transport.New(transport.ClientOptions{
		Proxy:              flags["proxy"],
		InsecureSkipVerify: flags["verify"] == "no",
		Timeout:            timeout,
	})
	if err != nil {
		return err
	}

	resp, err := client.HTTP.Do(httpReq)
	if err != nil {
		return model.Errorf(model.KindConnection, err, "perform request")
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func defaultMethod(items []model.InputItem) string {
	for _, it := range items {
		switch it.(type) {
		case model.DataField, model.DataFieldFromFile, model.JSONField, model.JSONFieldFromFile, model.FileUpload:
			return "POST"
		}
	}
	return "GET"
}

func resolveAuthProvider(flags map[string]string, cfg *config.Config) auth.Provider {
	userPass := flags["auth"]
	if userPass == "" {
		userPass = cfg.Defaults.Auth
	}
	if userPass == "" {
		return nil
	}
	authType := flags["auth-type"]
	if authType == "" {
		authType = cfg.Defaults.AuthType
	}
	switch auth.Type(authType) {
	case auth.TypeBearer:
		return auth.Bearer{Token: userPass}
	default:
		return auth.Basic{UserPass: userPass}
	}
}

func printResponse(resp *http.Response) error {
	fmt.Printf("HTTP/%d.%d %s\n", resp.ProtoMajor, resp.ProtoMinor, resp.Status)
	for k, vals := range resp.Header {
		for _, v := range vals {
			fmt.Printf("%s: %s\n", k, v)
		}
	}
	fmt.Println()
	_, err := io.Copy(os.Stdout, resp.Body)
	return err
}

// splitFlags separates --flag/--flag=value/--flag value tokens from
// positional arguments. Boolean flags (follow) are recorded as "1".
var boolFlags = map[string]bool{"follow": true}

func splitFlags(args []string) (map[string]string, []string, error) {
	flags := map[string]string{}
	var positional []string

	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") {
			positional = append(positional, a)
			continue
		}
		name := strings.TrimPrefix(a, "--")
		if eq := strings.Index(name, "="); eq >= 0 {
			flags[name[:eq]] = name[eq+1:]
			continue
		}
		if boolFlags[name] {
			flags[name] = "1"
			continue
		}
		if i+1 >= len(args) {
			return nil, nil, fmt.Errorf("flag --%s requires a value", name)
		}
		flags[name] = args[i+1]
		i++
	}
	return flags, positional, nil
}
