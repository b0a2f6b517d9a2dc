package grpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jhump/protoreflect/desc"

	"github.com/quicpulse/quicpulse/internal/model"
)

// REPL implements the interactive session of spec §4.4.5: list, describe,
// use, call, status, history, clear, help, quit. Grounded on the teacher's
// plain-text administrative CLIs (cmd/at's command dispatch), generalized
// to a stateful "current service" REPL instead of one-shot subcommands.
type REPL struct {
	Client  *Client
	Schema  *Schema
	Out     io.Writer
	Current string // currently `use`d service, "" if none

	history []string
	lastErr error
}

// Dispatch parses and runs one REPL line, returning false on `quit`.
func (r *REPL) Dispatch(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return true, nil
	}
	r.history = append(r.history, line)

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "quit", "exit":
		return false, nil
	case "help":
		r.printHelp()
	case "list":
		r.cmdList()
	case "describe":
		r.cmdDescribe(rest)
	case "use":
		r.cmdUse(rest)
	case "call":
		return true, r.cmdCall(ctx, rest)
	case "status":
		r.cmdStatus()
	case "history":
		r.cmdHistory()
	case "clear":
		r.Current = ""
		r.lastErr = nil
	default:
		fmt.Fprintf(r.Out, "unknown command %q (try `help`)\n", cmd)
	}
	return true, nil
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.Out, `commands:
  list                 list known services
  describe <svc>       show a service's methods
  use <svc>             set the current service
  call <method> <json>  invoke a method, optionally without a service prefix if `+"`use`"+` was called
  status               show connection and current-service status
  history              show command history
  clear                 reset current-service state
  help                  show this message
  quit                  exit the REPL`)
}

func (r *REPL) cmdList() {
	if r.Schema == nil {
		fmt.Fprintln(r.Out, "no schema loaded")
		return
	}
	for _, svc := range r.Schema.Services {
		fmt.Fprintf(r.Out, "service %s\n", svc.GetFullyQualifiedName())
	}
}

// ANSI styling for the REPL's distinguishable method/type/status lines
// (spec §4.4.5). Kept to raw escape codes rather than a terminal-styling
// library: the REPL's output is a handful of Fprintf call sites, not a
// layout engine.
const (
	ansiMethod = "\x1b[1;36m" // bold cyan
	ansiType   = "\x1b[2;37m" // dim white
	ansiReset  = "\x1b[0m"
)

func (r *REPL) cmdDescribe(svcName string) {
	if r.Schema == nil {
		fmt.Fprintln(r.Out, "no schema loaded")
		return
	}
	svc, ok := r.Schema.FindService(svcName)
	if !ok {
		fmt.Fprintf(r.Out, "unknown service %q\n", svcName)
		return
	}
	fmt.Fprintf(r.Out, "service %s\n", svc.GetFullyQualifiedName())
	for _, m := range svc.GetMethods() {
		fmt.Fprintf(r.Out, "  %s%s%s(%s%s%s) returns (%s%s%s) %s\n",
			ansiMethod, m.GetName(), ansiReset,
			ansiType, m.GetInputType().GetFullyQualifiedName(), ansiReset,
			ansiType, m.GetOutputType().GetFullyQualifiedName(), ansiReset,
			streamingLabel(m))
	}
}

func streamingLabel(m *desc.MethodDescriptor) string {
	switch KindOf(m) {
	case ServerStream:
		return "[server streaming]"
	case ClientStream:
		return "[client streaming]"
	case BidiStream:
		return "[bidi streaming]"
	default:
		return ""
	}
}

func (r *REPL) cmdUse(svcName string) {
	if r.Schema == nil {
		fmt.Fprintln(r.Out, "no schema loaded")
		return
	}
	if _, ok := r.Schema.FindService(svcName); !ok {
		fmt.Fprintf(r.Out, "unknown service %q\n", svcName)
		return
	}
	r.Current = svcName
	fmt.Fprintf(r.Out, "using %s\n", svcName)
}

func (r *REPL) cmdCall(ctx context.Context, rest string) error {
	methodPart, jsonPart, _ := strings.Cut(rest, " ")
	if methodPart == "" {
		fmt.Fprintln(r.Out, "usage: call <method> <json>")
		return nil
	}

	ref := methodPart
	if !strings.ContainsAny(ref, "./") && r.Current != "" {
		ref = r.Current + "/" + methodPart
	}

	md, err := r.Schema.FindMethod(ref)
	if err != nil {
		r.lastErr = err
		fmt.Fprintln(r.Out, err.Error())
		return nil
	}

	var body any
	if strings.TrimSpace(jsonPart) != "" {
		if err := json.Unmarshal([]byte(jsonPart), &body); err != nil {
			r.lastErr = model.Errorf(model.KindJSON, err, "parse call payload")
			fmt.Fprintln(r.Out, r.lastErr.Error())
			return nil
		}
	}

	switch KindOf(md) {
	case Unary:
		resp, err := r.Client.InvokeUnary(ctx, md, body, 0)
		if err != nil {
			r.lastErr = err
			fmt.Fprintln(r.Out, err.Error())
			return nil
		}
		r.printJSON(resp)
	case ServerStream:
		err := r.Client.InvokeServerStream(ctx, md, body, func(v any) error {
			r.printJSON(v)
			return nil
		})
		if err != nil {
			r.lastErr = err
			fmt.Fprintln(r.Out, err.Error())
		}
	default:
		fmt.Fprintln(r.Out, "client-streaming and bidi calls are not supported from `call`; pipe NDJSON via the non-interactive CLI")
	}
	return nil
}

func (r *REPL) printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(r.Out, "%v\n", v)
		return
	}
	fmt.Fprintln(r.Out, string(b))
}

func (r *REPL) cmdStatus() {
	fmt.Fprintf(r.Out, "current service: %s%s%s\n", ansiType, orNone(r.Current), ansiReset)
	if r.lastErr != nil {
		fmt.Fprintf(r.Out, "\x1b[1;31mlast error: %s%s\n", r.lastErr.Error(), ansiReset)
	} else {
		fmt.Fprintln(r.Out, "last error: none")
	}
}

func (r *REPL) cmdHistory() {
	for i, line := range r.history {
		fmt.Fprintf(r.Out, "%4d  %s\n", i+1, line)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
