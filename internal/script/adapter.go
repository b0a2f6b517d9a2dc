package script

import (
	"context"

	"github.com/quicpulse/quicpulse/internal/workflow"
)

// Runner adapts Engine to workflow.ScriptRunner, converting workflow's
// StepResult into the package-local Result shape so this package never
// needs to import internal/workflow except at this one seam — mirroring
// the split already used by internal/httpstep for StepRunner.
type Runner struct {
	Engine *Engine
}

func (r *Runner) RunScript(ctx context.Context, source string, mode string, vars map[string]any, result *workflow.StepResult) (map[string]any, error) {
	var sr *Result
	if result != nil {
		sr = &Result{
			StatusCode: result.StatusCode,
			LatencyMs:  result.Latency.Milliseconds(),
			Body:       result.Body,
			Headers:    result.Headers,
		}
	}
	return r.Engine.RunScript(ctx, source, mode, vars, sr)
}
