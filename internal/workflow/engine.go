package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quicpulse/quicpulse/internal/model"
	"github.com/quicpulse/quicpulse/internal/render"
)

// StepResult is what a StepRunner reports back after executing one step
// (one HTTP call, one gRPC call, or one script-only step).
type StepResult struct {
	StatusCode int
	Latency    time.Duration
	Body       any // decoded JSON body, or raw string for non-JSON
	Headers    map[string]string
	// TransportErr is set when the step's send itself failed (distinct
	// from an assertion failure — spec §4.6 step 9 distinguishes the two
	// for retry_on matching).
	TransportErr error
}

// StepRunner executes one concrete attempt of a step against §4.2/§4.3/§4.4.
// The engine itself is protocol-agnostic; HTTP/gRPC/GraphQL dispatch lives
// behind this seam so WorkflowEngine can be exercised without a live
// network.
type StepRunner interface {
	RunStep(ctx context.Context, step *Step, vars map[string]any) (StepResult, error)
}

// ScriptRunner executes pre/post/assertion/extract scripts (C6 ScriptCore).
type ScriptRunner interface {
	RunScript(ctx context.Context, source string, mode string, vars map[string]any, result *StepResult) (map[string]any, error)
}

// Notifier delivers a workflow-completion notification (SUPPLEMENT feature).
type Notifier interface {
	Notify(ctx context.Context, target NotifyTarget, subject, body string) error
}

// Engine executes Workflow documents (spec §4.6), following the teacher's
// topoSort-plus-goroutine-fan-out dispatch shape
// (internal/service/workflow/engine.go) generalized to named depends_on
// steps instead of a port-wired node graph.
type Engine struct {
	Runner   StepRunner
	Script   ScriptRunner
	Notifier Notifier
	// Concurrency bounds how many independent DAG chains run at once
	// (spec §4.6: "independent chains may run concurrently when the
	// workflow has a top-level concurrency budget").
	Concurrency int
}

// StepReport is the per-step outcome recorded for history (internal/history).
type StepReport struct {
	Name     string
	Skipped  bool
	Attempts int
	Err      error
	Result   StepResult
}

// RunReport is the full run outcome.
type RunReport struct {
	Steps []StepReport
	Vars  map[string]any
	Err   error
}

// Run executes wf to completion, honoring depends_on ordering, concurrency,
// iteration, retries, and notification.
func (e *Engine) Run(ctx context.Context, wf *Workflow) (*RunReport, error) {
	nodes, err := buildDAG(wf.Steps)
	if err != nil {
		return nil, model.Errorf(model.KindPipeline, err, "build workflow dag")
	}

	scope := NewScope(wf.Variables)

	concurrency := e.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	sem := make(chan struct{}, concurrency)

	var mu sync.Mutex
	remaining := make(map[string]int, len(nodes))
	for name, n := range nodes {
		remaining[name] = n.remaining
	}

	report := &RunReport{}
	var wg sync.WaitGroup
	var firstErr error
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var dispatch func(name string)
	dispatch = func(name string) {
		defer wg.Done()
		sem <- struct{}{}
		defer func() { <-sem }()

		n := nodes[name]
		sr := e.runStep(runCtx, wf, n.step, scope)

		mu.Lock()
		report.Steps = append(report.Steps, sr)
		if sr.Err != nil && firstErr == nil {
			firstErr = fmt.Errorf("step %q: %w", name, sr.Err)
			cancel()
		}
		mu.Unlock()

		for _, dep := range n.dependents {
			mu.Lock()
			remaining[dep]--
			ready := remaining[dep] == 0
			mu.Unlock()
			if ready {
				wg.Add(1)
				go dispatch(dep)
			}
		}
	}

	for name, n := range nodes {
		if n.remaining == 0 {
			wg.Add(1)
			go dispatch(name)
		}
	}
	wg.Wait()

	report.Vars = scope.Snapshot()
	report.Err = firstErr

	if e.Notifier != nil {
		for _, target := range wf.Notify {
			subject := fmt.Sprintf("workflow %q finished", wf.Name)
			body := summarizeReport(report)
			_ = e.Notifier.Notify(ctx, target, subject, body)
		}
	}

	return report, firstErr
}

// runStep runs one step's full lifecycle (spec §4.6 steps 1-9), including
// its iteration construct if any.
func (e *Engine) runStep(ctx context.Context, wf *Workflow, step *Step, scope *Scope) StepReport {
	vars := scope.Snapshot()

	if step.SkipIf != "" {
		skip, err := evalBool(step.SkipIf, vars)
		if err == nil && skip {
			return StepReport{Name: step.Name, Skipped: true}
		}
	}

	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return StepReport{Name: step.Name, Err: ctx.Err()}
		}
	}

	childScope := scope.Child()

	var report StepReport
	switch {
	case step.Iteration.active():
		report = e.runIterated(ctx, wf, step, childScope)
	default:
		report = e.runOnce(ctx, wf, step, childScope)
	}
	report.Name = step.Name

	scope.MergeFrom(childScope)
	return report
}

// runIterated drives repeat/foreach/while, honoring Parallel/FailFast
// (spec §4.6 "Iteration constructs").
func (e *Engine) runIterated(ctx context.Context, wf *Workflow, step *Step, scope *Scope) StepReport {
	it := step.Iteration
	max := it.MaxIterations
	if max <= 0 {
		max = 1000
	}

	var items []any
	switch {
	case it.Repeat > 0:
		for i := 0; i < it.Repeat && i < max; i++ {
			items = append(items, i)
		}
	case it.Foreach != "":
		v, _ := scope.Get(it.Foreach)
		if arr, ok := v.([]any); ok {
			items = arr
		}
	case it.While != "":
		// While is bounded purely by max_iterations; the condition is
		// re-evaluated after each iteration against the evolving scope.
		for i := 0; i < max; i++ {
			items = append(items, i)
		}
	}

	var reports []StepReport
	var mu sync.Mutex
	var wg sync.WaitGroup
	failed := false
	runOne := func(idx int, item any) StepReport {
		iterScope := scope.Child()
		if it.ForeachVar != "" {
			iterScope.Set(it.ForeachVar, item)
		}
		r := e.runOnce(ctx, wf, step, iterScope)
		scope.MergeFrom(iterScope)
		return r
	}

	if step.Parallel {
		for idx, item := range items {
			if step.FailFast {
				mu.Lock()
				stop := failed
				mu.Unlock()
				if stop {
					break
				}
			}
			wg.Add(1)
			go func(idx int, item any) {
				defer wg.Done()
				r := runOne(idx, item)
				mu.Lock()
				reports = append(reports, r)
				if r.Err != nil {
					failed = true
				}
				mu.Unlock()
			}(idx, item)
		}
		wg.Wait()
	} else {
		for idx, item := range items {
			if it.While != "" && idx > 0 {
				ok, err := evalBool(it.While, scope.Snapshot())
				if err == nil && !ok {
					break
				}
			}
			r := runOne(idx, item)
			reports = append(reports, r)
			if r.Err != nil {
				failed = true
				if step.FailFast {
					break
				}
			}
		}
	}

	agg := StepReport{Attempts: len(reports)}
	for _, r := range reports {
		if r.Err != nil {
			agg.Err = r.Err
		}
		agg.Result = r.Result
	}
	_ = failed
	return agg
}

// runOnce runs the non-iterated body of a step: build request, send,
// extract, assert, retry (spec §4.6 steps 3-9).
func (e *Engine) runOnce(ctx context.Context, wf *Workflow, step *Step, scope *Scope) StepReport {
	attempts := 0
	var lastErr error
	var lastResult StepResult

	maxAttempts := step.Retries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempts < maxAttempts {
		attempts++

		vars := scope.Snapshot()

		if step.PreScript != "" && e.Script != nil {
			emitted, err := e.Script.RunScript(ctx, step.PreScript, "PreRequest", vars, nil)
			if err == nil {
				for k, v := range emitted {
					scope.Set(k, v)
				}
			}
		}

		stepCtx := ctx
		var cancel context.CancelFunc
		if step.Timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		}

		start := time.Now()
		result, err := e.Runner.RunStep(stepCtx, step, scope.Snapshot())
		result.Latency = time.Since(start)
		if cancel != nil {
			cancel()
		}

		lastResult = result
		lastErr = err

		if err == nil && step.PostScript != "" && e.Script != nil {
			emitted, serr := e.Script.RunScript(ctx, step.PostScript, "PostResponse", scope.Snapshot(), &result)
			if serr == nil {
				for k, v := range emitted {
					scope.Set(k, v)
				}
			}
		}

		if err == nil {
			for name, path := range step.Extract {
				if v, ok := accessPath(result.Body, strings.TrimPrefix(path, "body.")); ok {
					scope.Set(name, v)
				} else if hv, ok := headerLookup(result.Headers, path); ok {
					scope.Set(name, hv)
				}
			}

			assertErr := e.evaluateAssert(step, result)
			if assertErr == nil {
				assertErr = e.evaluateScriptAssert(ctx, step, scope, result)
			}
			if assertErr == nil {
				return StepReport{Attempts: attempts, Result: result}
			}
			lastErr = assertErr
		}

		if !e.shouldRetry(step, lastErr, attempts, maxAttempts) {
			break
		}

		if step.RetryDelay > 0 {
			select {
			case <-time.After(step.RetryDelay):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempts = maxAttempts
			}
		}
	}

	return StepReport{Attempts: attempts, Err: lastErr, Result: lastResult}
}

func (e *Engine) shouldRetry(step *Step, err error, attempts, maxAttempts int) bool {
	if err == nil || attempts >= maxAttempts {
		return false
	}
	switch step.RetryOn {
	case RetryOnAny, "":
		return true
	case RetryOnTransport:
		return isTransportErr(err)
	case RetryOnAssertion:
		return !isTransportErr(err)
	default:
		return true
	}
}

func isTransportErr(err error) bool {
	var merr *model.Error
	if me, ok := err.(*model.Error); ok {
		merr = me
	}
	if merr == nil {
		return true
	}
	switch merr.Kind {
	case model.KindConnection, model.KindTimeout, model.KindTooManyRedirects, model.KindSSL:
		return true
	default:
		return false
	}
}

func (e *Engine) evaluateAssert(step *Step, result StepResult) error {
	a := step.Assert
	if a.Status != "" && !matchStatus(a.Status, result.StatusCode) {
		return model.Errorf(model.KindPipeline, nil, "assert status: expected %s got %d", a.Status, result.StatusCode)
	}
	if a.MaxLatency > 0 && result.Latency > a.MaxLatency {
		return model.Errorf(model.KindPipeline, nil, "assert latency: %s exceeds bound %s", result.Latency, a.MaxLatency)
	}
	for path, expect := range a.BodyExpr {
		v, ok := accessPath(result.Body, path)
		if !ok {
			return model.Errorf(model.KindPipeline, nil, "assert body: path %q not found", path)
		}
		if fmt.Sprint(v) != expect {
			return model.Errorf(model.KindPipeline, nil, "assert body: %q = %v, expected %v", path, v, expect)
		}
	}
	for _, path := range a.Required {
		if _, ok := accessPath(result.Body, path); !ok {
			return model.Errorf(model.KindPipeline, nil, "assert body: required field %q is missing", path)
		}
	}
	return nil
}

// evaluateScriptAssert runs step.ScriptAssert under ScriptModeAssertion and
// fails the step unless the script returns a truthy value (spec §4.6 step 8,
// scripted assertions layered on top of the declarative Assert block).
func (e *Engine) evaluateScriptAssert(ctx context.Context, step *Step, scope *Scope, result StepResult) error {
	if step.ScriptAssert == "" || e.Script == nil {
		return nil
	}
	emitted, err := e.Script.RunScript(ctx, step.ScriptAssert, "Assertion", scope.Snapshot(), &result)
	if err != nil {
		return model.Errorf(model.KindPipeline, err, "script assert")
	}
	if v, ok := emitted["result"]; ok {
		if truthy, ok := v.(bool); ok && !truthy {
			return model.Errorf(model.KindPipeline, nil, "script assert: returned false")
		}
		if v == nil {
			return model.Errorf(model.KindPipeline, nil, "script assert: returned falsy value")
		}
	}
	return nil
}

func headerLookup(headers map[string]string, path string) (string, bool) {
	const prefix = "headers."
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(path, prefix)
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// evalBool renders a Go text/template expression (the teacher's
// render.ExecuteWithData, see internal/render/render.go) and treats the
// trimmed output "true" as true, anything else as false.
func evalBool(expr string, vars map[string]any) (bool, error) {
	out, err := render.ExecuteWithData(expr, vars)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) == "true", nil
}

func summarizeReport(r *RunReport) string {
	var b strings.Builder
	for _, s := range r.Steps {
		status := "ok"
		if s.Skipped {
			status = "skipped"
		} else if s.Err != nil {
			status = "failed: " + s.Err.Error()
		}
		fmt.Fprintf(&b, "%s: %s (attempts=%d)\n", s.Name, status, s.Attempts)
	}
	return b.String()
}
