// Package workflow implements the WorkflowEngine (spec §4.6): DAG-ordered
// step execution with iteration constructs, retries, and variable
// propagation. The DAG scheduler (Kahn's algorithm topological sort plus
// concurrent-chain dispatch) is adapted from the teacher's node-graph
// engine (internal/service/workflow/engine.go's topoSort and fan-out
// goroutine dispatch), generalized from a port-wired node graph to the
// spec's named depends_on step model.
package workflow

import "time"

// RetryOn names the condition classes a step retries on.
type RetryOn string

const (
	RetryOnTransport RetryOn = "transport"
	RetryOnAssertion RetryOn = "assertion"
	RetryOnAny       RetryOn = "any"
)

// Iteration selects at most one of repeat/foreach/while (spec §4.6: "Exactly
// one may be set per step").
type Iteration struct {
	Repeat        int
	Foreach       string // variable expression yielding a slice
	ForeachVar    string
	While         string
	MaxIterations int
}

func (it Iteration) active() bool {
	return it.Repeat > 0 || it.Foreach != "" || it.While != ""
}

// Assertion is the step's post-response check set (spec §4.6 step 8).
type Assertion struct {
	Status     string // exact ("200") or class ("2xx")
	MaxLatency time.Duration
	BodyExpr   map[string]string // dotted-path -> expected-value expression
	// Required holds dotted paths that must merely be present in the
	// response body, with no value check — the shape SpecGenerator's
	// "required-field presence assertions" (spec §4.7 step 5) needs, which
	// BodyExpr's equality semantics can't express.
	Required []string
}

// Extract maps a variable name to a dotted/JSONPath-ish accessor evaluated
// against the response body or headers.
type Extract map[string]string

// Step is one node of a Workflow's execution graph (spec §3.6).
type Step struct {
	Name       string
	Tags       []string
	DependsOn  []string

	// HTTP attributes.
	Method    string
	URL       string
	Query     map[string]string
	Headers   map[string]string
	Body      string
	Raw       []byte
	Form      map[string]string
	Multipart bool
	Auth      string
	Timeout   time.Duration
	Proxy     string

	// Protocol attributes.
	GraphQL   bool
	Grpc      *GrpcStep
	WebSocket bool
	HTTP2     bool
	HTTP3     bool

	// Control attributes.
	SkipIf         string
	Delay          time.Duration
	Retries        int
	RetryDelay     time.Duration
	RetryOn        RetryOn
	Iteration      Iteration
	Parallel       bool
	FailFast       bool
	FollowRedirect bool
	MaxRedirects   int

	// Lifecycle.
	PreScript    string
	PostScript   string
	ScriptAssert string
	Extract      Extract
	Assert       Assertion

	// Tooling.
	Fuzz    bool
	Bench   bool
	HAR     bool
	OpenAPI string
	Download string
	Upload   string
	Curl     bool
	Save     string
	Output   string
	Filter   string
}

// GrpcStep carries the gRPC-specific fields a step needs when Grpc != nil.
type GrpcStep struct {
	Target  string
	Service string
	Method  string
	Proto   string
}

// NotifyTarget is a SUPPLEMENT feature (not in the distilled spec):
// workflow completion/failure notifications, grounded on the teacher's
// bwmarrin/discordgo + telegram-bot-api + go-mail stack (see DESIGN.md).
type NotifyTarget struct {
	Discord  string // Discord incoming-webhook URL
	Telegram string // chat ID (bot token comes from config)
	Email    string // recipient address (SMTP settings come from config)
	Webhook  string // arbitrary HTTP POST endpoint
}

// Schedule is a SUPPLEMENT feature: a cron-style recurring run, driven by
// `quicpulse workflow watch` via worldline-go/hardloop.
type Schedule struct {
	Cron string
}

// Workflow is the top-level document (spec §3.6).
type Workflow struct {
	Name          string
	BaseURL       string
	Variables     map[string]any
	Environments  map[string]map[string]any
	GlobalHeaders map[string]string
	Session       string
	Plugins       []string
	Steps         []Step

	Notify   []NotifyTarget
	Schedule *Schedule
}
