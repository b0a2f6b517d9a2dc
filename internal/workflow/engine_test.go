package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls   int32
	results map[string]StepResult
	errs    map[string]error
}

func (f *fakeRunner) RunStep(ctx context.Context, step *Step, vars map[string]any) (StepResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if err, ok := f.errs[step.Name]; ok {
		return StepResult{}, err
	}
	if r, ok := f.results[step.Name]; ok {
		return r, nil
	}
	return StepResult{StatusCode: 200, Body: map[string]any{}}, nil
}

func TestEngine_DependsOnOrdering(t *testing.T) {
	var order []string
	var mu int32
	_ = mu

	runner := &fakeRunner{results: map[string]StepResult{}}
	eng := &Engine{Runner: runner, Concurrency: 4}

	wf := &Workflow{
		Name: "t",
		Steps: []Step{
			{Name: "a"},
			{Name: "b", DependsOn: []string{"a"}},
			{Name: "c", DependsOn: []string{"b"}},
		},
	}

	report, err := eng.Run(context.Background(), wf)
	require.NoError(t, err)
	assert.Len(t, report.Steps, 3)
	for _, s := range report.Steps {
		order = append(order, s.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestEngine_ExtractAndAssert(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]StepResult{
			"get": {StatusCode: 200, Body: map[string]any{"id": "abc123"}},
		},
	}
	eng := &Engine{Runner: runner}

	wf := &Workflow{
		Steps: []Step{
			{
				Name:    "get",
				Extract: Extract{"resource_id": "id"},
				Assert:  Assertion{Status: "2xx"},
			},
		},
	}

	report, err := eng.Run(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, "abc123", report.Vars["resource_id"])
}

func TestEngine_AssertFailureTriggersRetry(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]StepResult{"s": {StatusCode: 500}},
	}
	eng := &Engine{Runner: runner}

	wf := &Workflow{
		Steps: []Step{
			{Name: "s", Retries: 2, RetryDelay: time.Millisecond, Assert: Assertion{Status: "200"}},
		},
	}

	report, err := eng.Run(context.Background(), wf)
	require.Error(t, err)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, 3, report.Steps[0].Attempts)
}

func TestEngine_SkipIf(t *testing.T) {
	runner := &fakeRunner{results: map[string]StepResult{}}
	eng := &Engine{Runner: runner}

	wf := &Workflow{
		Variables: map[string]any{"enabled": false},
		Steps: []Step{
			{Name: "s", SkipIf: `{{if not .enabled}}true{{end}}`},
		},
	}

	report, err := eng.Run(context.Background(), wf)
	require.NoError(t, err)
	require.Len(t, report.Steps, 1)
	assert.True(t, report.Steps[0].Skipped)
	assert.Equal(t, int32(0), runner.calls)
}

func TestEngine_RepeatIteration(t *testing.T) {
	runner := &fakeRunner{results: map[string]StepResult{}}
	eng := &Engine{Runner: runner}

	wf := &Workflow{
		Steps: []Step{
			{Name: "s", Iteration: Iteration{Repeat: 3}},
		},
	}

	_, err := eng.Run(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, int32(3), runner.calls)
}

func TestEngine_CyclicDependsOnRejected(t *testing.T) {
	eng := &Engine{Runner: &fakeRunner{}}
	wf := &Workflow{
		Steps: []Step{
			{Name: "a", DependsOn: []string{"b"}},
			{Name: "b", DependsOn: []string{"a"}},
		},
	}
	_, err := eng.Run(context.Background(), wf)
	require.Error(t, err)
}

func TestMatchStatus(t *testing.T) {
	assert.True(t, matchStatus("200", 200))
	assert.False(t, matchStatus("200", 201))
	assert.True(t, matchStatus("2xx", 201))
	assert.False(t, matchStatus("2xx", 404))
	assert.True(t, matchStatus("", 500))
}

func TestAccessPath(t *testing.T) {
	root := map[string]any{
		"user": map[string]any{
			"name": "John",
		},
		"items": []any{
			map[string]any{"id": "x1"},
			map[string]any{"id": "x2"},
		},
	}
	v, ok := accessPath(root, "user.name")
	require.True(t, ok)
	assert.Equal(t, "John", v)

	v, ok = accessPath(root, "items[1].id")
	require.True(t, ok)
	assert.Equal(t, "x2", v)

	_, ok = accessPath(root, "missing.path")
	assert.False(t, ok)
}
