package workflow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a workflow collection file (spec §3's "Workflow | YAML loader")
// and decodes it into a Workflow. Duration-bearing fields are plain strings
// on the wire ("30s", "1h") and parsed here rather than taught to Workflow
// itself, the same split specgen keeps between its raw document tree and
// the typed values it ultimately produces.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return Parse(data)
}

// Parse decodes raw YAML bytes into a Workflow.
func Parse(data []byte) (*Workflow, error) {
	var doc yamlWorkflow
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse workflow yaml: %w", err)
	}
	return doc.toWorkflow()
}

// Save writes a Workflow back out as a collection file, the inverse of
// Load — used by `quicpulse generate` to persist a SpecGenerator result.
func Save(path string, wf *Workflow) error {
	data, err := Marshal(wf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal encodes a Workflow as YAML.
func Marshal(wf *Workflow) ([]byte, error) {
	doc := fromWorkflow(wf)
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow yaml: %w", err)
	}
	return data, nil
}

type yamlWorkflow struct {
	Name          string            `yaml:"name"`
	BaseURL       string            `yaml:"base_url"`
	Variables     map[string]any    `yaml:"variables"`
	Environments  map[string]map[string]any `yaml:"environments"`
	GlobalHeaders map[string]string `yaml:"headers"`
	Session       string            `yaml:"session"`
	Plugins       []string          `yaml:"plugins"`
	Steps         []yamlStep        `yaml:"steps"`
	Notify        []yamlNotify      `yaml:"notify"`
	Schedule      string            `yaml:"schedule"`
}

type yamlNotify struct {
	Discord  string `yaml:"discord"`
	Telegram string `yaml:"telegram"`
	Email    string `yaml:"email"`
	Webhook  string `yaml:"webhook"`
}

type yamlGrpcStep struct {
	Target  string `yaml:"target"`
	Service string `yaml:"service"`
	Method  string `yaml:"method"`
	Proto   string `yaml:"proto"`
}

type yamlIteration struct {
	Repeat        int    `yaml:"repeat"`
	Foreach       string `yaml:"foreach"`
	ForeachVar    string `yaml:"foreach_var"`
	While         string `yaml:"while"`
	MaxIterations int    `yaml:"max_iterations"`
}

type yamlAssertion struct {
	Status     string            `yaml:"status"`
	MaxLatency string            `yaml:"max_latency"`
	BodyExpr   map[string]string `yaml:"body"`
	Required   []string          `yaml:"required"`
}

type yamlStep struct {
	Name      string   `yaml:"name"`
	Tags      []string `yaml:"tags"`
	DependsOn []string `yaml:"depends_on"`

	Method    string            `yaml:"method"`
	URL       string            `yaml:"url"`
	Query     map[string]string `yaml:"query"`
	Headers   map[string]string `yaml:"headers"`
	Body      string            `yaml:"body"`
	Form      map[string]string `yaml:"form"`
	Multipart bool              `yaml:"multipart"`
	Auth      string            `yaml:"auth"`
	Timeout   string            `yaml:"timeout"`
	Proxy     string            `yaml:"proxy"`

	GraphQL   bool          `yaml:"graphql"`
	Grpc      *yamlGrpcStep `yaml:"grpc"`
	WebSocket bool          `yaml:"websocket"`
	HTTP2     bool          `yaml:"http2"`
	HTTP3     bool          `yaml:"http3"`

	SkipIf         string        `yaml:"skip_if"`
	Delay          string        `yaml:"delay"`
	Retries        int           `yaml:"retries"`
	RetryDelay     string        `yaml:"retry_delay"`
	RetryOn        string        `yaml:"retry_on"`
	Iteration      yamlIteration `yaml:"iteration"`
	Parallel       bool          `yaml:"parallel"`
	FailFast       bool          `yaml:"fail_fast"`
	FollowRedirect bool          `yaml:"follow_redirect"`
	MaxRedirects   int           `yaml:"max_redirects"`

	PreScript    string        `yaml:"pre_script"`
	PostScript   string        `yaml:"post_script"`
	ScriptAssert string        `yaml:"script_assert"`
	Extract      Extract       `yaml:"extract"`
	Assert       yamlAssertion `yaml:"assert"`

	Fuzz     bool   `yaml:"fuzz"`
	Bench    bool   `yaml:"bench"`
	HAR      bool   `yaml:"har"`
	OpenAPI  string `yaml:"openapi"`
	Download string `yaml:"download"`
	Upload   string `yaml:"upload"`
	Curl     bool   `yaml:"curl"`
	Save     string `yaml:"save"`
	Output   string `yaml:"output"`
	Filter   string `yaml:"filter"`
}

func (doc yamlWorkflow) toWorkflow() (*Workflow, error) {
	wf := &Workflow{
		Name:          doc.Name,
		BaseURL:       doc.BaseURL,
		Variables:     doc.Variables,
		Environments:  doc.Environments,
		GlobalHeaders: doc.GlobalHeaders,
		Session:       doc.Session,
		Plugins:       doc.Plugins,
	}

	for _, n := range doc.Notify {
		wf.Notify = append(wf.Notify, NotifyTarget{
			Discord:  n.Discord,
			Telegram: n.Telegram,
			Email:    n.Email,
			Webhook:  n.Webhook,
		})
	}

	if doc.Schedule != "" {
		wf.Schedule = &Schedule{Cron: doc.Schedule}
	}

	for _, s := range doc.Steps {
		step, err := s.toStep()
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", s.Name, err)
		}
		wf.Steps = append(wf.Steps, step)
	}

	return wf, nil
}

func (s yamlStep) toStep() (Step, error) {
	timeout, err := parseDuration(s.Timeout)
	if err != nil {
		return Step{}, fmt.Errorf("timeout: %w", err)
	}
	delay, err := parseDuration(s.Delay)
	if err != nil {
		return Step{}, fmt.Errorf("delay: %w", err)
	}
	retryDelay, err := parseDuration(s.RetryDelay)
	if err != nil {
		return Step{}, fmt.Errorf("retry_delay: %w", err)
	}
	maxLatency, err := parseDuration(s.Assert.MaxLatency)
	if err != nil {
		return Step{}, fmt.Errorf("assert.max_latency: %w", err)
	}

	step := Step{
		Name:      s.Name,
		Tags:      s.Tags,
		DependsOn: s.DependsOn,

		Method:    s.Method,
		URL:       s.URL,
		Query:     s.Query,
		Headers:   s.Headers,
		Body:      s.Body,
		Form:      s.Form,
		Multipart: s.Multipart,
		Auth:      s.Auth,
		Timeout:   timeout,
		Proxy:     s.Proxy,

		GraphQL:   s.GraphQL,
		WebSocket: s.WebSocket,
		HTTP2:     s.HTTP2,
		HTTP3:     s.HTTP3,

		SkipIf: s.SkipIf,
		Delay:  delay,
		Retries:    s.Retries,
		RetryDelay: retryDelay,
		RetryOn:    RetryOn(s.RetryOn),
		Iteration: Iteration{
			Repeat:        s.Iteration.Repeat,
			Foreach:       s.Iteration.Foreach,
			ForeachVar:    s.Iteration.ForeachVar,
			While:         s.Iteration.While,
			MaxIterations: s.Iteration.MaxIterations,
		},
		Parallel:       s.Parallel,
		FailFast:       s.FailFast,
		FollowRedirect: s.FollowRedirect,
		MaxRedirects:   s.MaxRedirects,

		PreScript:    s.PreScript,
		PostScript:   s.PostScript,
		ScriptAssert: s.ScriptAssert,
		Extract:      s.Extract,
		Assert: Assertion{
			Status:     s.Assert.Status,
			MaxLatency: maxLatency,
			BodyExpr:   s.Assert.BodyExpr,
			Required:   s.Assert.Required,
		},

		Fuzz:     s.Fuzz,
		Bench:    s.Bench,
		HAR:      s.HAR,
		OpenAPI:  s.OpenAPI,
		Download: s.Download,
		Upload:   s.Upload,
		Curl:     s.Curl,
		Save:     s.Save,
		Output:   s.Output,
		Filter:   s.Filter,
	}

	if s.Grpc != nil {
		step.Grpc = &GrpcStep{
			Target:  s.Grpc.Target,
			Service: s.Grpc.Service,
			Method:  s.Grpc.Method,
			Proto:   s.Grpc.Proto,
		}
	}

	return step, nil
}

func fromWorkflow(wf *Workflow) yamlWorkflow {
	doc := yamlWorkflow{
		Name:          wf.Name,
		BaseURL:       wf.BaseURL,
		Variables:     wf.Variables,
		Environments:  wf.Environments,
		GlobalHeaders: wf.GlobalHeaders,
		Session:       wf.Session,
		Plugins:       wf.Plugins,
	}
	for _, n := range wf.Notify {
		doc.Notify = append(doc.Notify, yamlNotify{
			Discord: n.Discord, Telegram: n.Telegram, Email: n.Email, Webhook: n.Webhook,
		})
	}
	if wf.Schedule != nil {
		doc.Schedule = wf.Schedule.Cron
	}
	for _, step := range wf.Steps {
		doc.Steps = append(doc.Steps, fromStep(step))
	}
	return doc
}

func fromStep(s Step) yamlStep {
	step := yamlStep{
		Name:      s.Name,
		Tags:      s.Tags,
		DependsOn: s.DependsOn,

		Method:    s.Method,
		URL:       s.URL,
		Query:     s.Query,
		Headers:   s.Headers,
		Body:      s.Body,
		Form:      s.Form,
		Multipart: s.Multipart,
		Auth:      s.Auth,
		Timeout:   formatDuration(s.Timeout),
		Proxy:     s.Proxy,

		GraphQL:   s.GraphQL,
		WebSocket: s.WebSocket,
		HTTP2:     s.HTTP2,
		HTTP3:     s.HTTP3,

		SkipIf:     s.SkipIf,
		Delay:      formatDuration(s.Delay),
		Retries:    s.Retries,
		RetryDelay: formatDuration(s.RetryDelay),
		RetryOn:    string(s.RetryOn),
		Iteration: yamlIteration{
			Repeat:        s.Iteration.Repeat,
			Foreach:       s.Iteration.Foreach,
			ForeachVar:    s.Iteration.ForeachVar,
			While:         s.Iteration.While,
			MaxIterations: s.Iteration.MaxIterations,
		},
		Parallel:       s.Parallel,
		FailFast:       s.FailFast,
		FollowRedirect: s.FollowRedirect,
		MaxRedirects:   s.MaxRedirects,

		PreScript:    s.PreScript,
		PostScript:   s.PostScript,
		ScriptAssert: s.ScriptAssert,
		Extract:      s.Extract,
		Assert: yamlAssertion{
			Status:     s.Assert.Status,
			MaxLatency: formatDuration(s.Assert.MaxLatency),
			BodyExpr:   s.Assert.BodyExpr,
			Required:   s.Assert.Required,
		},

		Fuzz:     s.Fuzz,
		Bench:    s.Bench,
		HAR:      s.HAR,
		OpenAPI:  s.OpenAPI,
		Download: s.Download,
		Upload:   s.Upload,
		Curl:     s.Curl,
		Save:     s.Save,
		Output:   s.Output,
		Filter:   s.Filter,
	}
	if s.Grpc != nil {
		step.Grpc = &yamlGrpcStep{
			Target: s.Grpc.Target, Service: s.Grpc.Service, Method: s.Grpc.Method, Proto: s.Grpc.Proto,
		}
	}
	return step
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
