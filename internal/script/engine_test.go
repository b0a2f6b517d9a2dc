package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScript_GeneralModeReturnsResult(t *testing.T) {
	e := New(nil, nil, nil)
	out, err := e.RunScript(context.Background(), "return 1 + 2", string(ModeGeneral), nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, out["result"])
}

func TestRunScript_AssertionModeCoercesBool(t *testing.T) {
	e := New(nil, nil, nil)

	out, err := e.RunScript(context.Background(), "return response.status === 200", string(ModeAssertion), nil, &Result{StatusCode: 200})
	require.NoError(t, err)
	assert.Equal(t, true, out["result"])

	out, err = e.RunScript(context.Background(), "return response.status === 200", string(ModeAssertion), nil, &Result{StatusCode: 404})
	require.NoError(t, err)
	assert.Equal(t, false, out["result"])
}

func TestRunScript_ExtractModeCoercesJSON(t *testing.T) {
	e := New(nil, nil, nil)
	out, err := e.RunScript(context.Background(), `return {id: response.body.id}`, string(ModeExtract), nil,
		&Result{Body: map[string]any{"id": float64(42)}})
	require.NoError(t, err)
	m, ok := out["result"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 42, m["id"])
}

func TestRunScript_SetVarEmitsAdditionalVariables(t *testing.T) {
	e := New(nil, nil, nil)
	out, err := e.RunScript(context.Background(), `setVar("token", "abc123")`, string(ModeGeneral), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc123", out["token"])
}

func TestRunScript_StoreIsSharedAcrossCalls(t *testing.T) {
	e := New(nil, nil, nil)
	_, err := e.RunScript(context.Background(), `store.set("counter", 1)`, string(ModeGeneral), nil, nil)
	require.NoError(t, err)

	out, err := e.RunScript(context.Background(), `return store.get("counter")`, string(ModeGeneral), nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, out["result"])
}

func TestRunScript_EnvDeniedOutsideAllowList(t *testing.T) {
	e := New([]string{"ALLOWED_KEY"}, nil, nil)
	_, err := e.RunScript(context.Background(), `env.get("SECRET_KEY")`, string(ModeGeneral), nil, nil)
	require.Error(t, err)
}

func TestRunScript_VarsAreVisibleAsGlobals(t *testing.T) {
	e := New(nil, nil, nil)
	out, err := e.RunScript(context.Background(), `return item_id * 2`, string(ModeGeneral),
		map[string]any{"item_id": int64(21)}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 42, out["result"])
}

func TestRunScript_AssertModuleThrowsOnFailure(t *testing.T) {
	e := New(nil, nil, nil)
	_, err := e.RunScript(context.Background(), `assert.eq(1, 2)`, string(ModeGeneral), nil, nil)
	require.Error(t, err)
}
