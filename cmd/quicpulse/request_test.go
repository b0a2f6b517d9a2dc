package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicpulse/quicpulse/internal/model"
)

func TestSplitFlags_SeparatesFlagsFromPositional(t *testing.T) {
	flags, positional, err := splitFlags([]string{"POST", "https://example.com/users", "name=Bob", "--auth", "u:p", "--follow", "--timeout=30"})
	require.NoError(t, err)
	assert.Equal(t, []string{"POST", "https://example.com/users", "name=Bob"}, positional)
	assert.Equal(t, "u:p", flags["auth"])
	assert.Equal(t, "1", flags["follow"])
	assert.Equal(t, "30", flags["timeout"])
}

func TestSplitFlags_MissingValueErrors(t *testing.T) {
	_, _, err := splitFlags([]string{"--auth"})
	assert.Error(t, err)
}

func TestDefaultMethod_PostWhenBodyItemsPresent(t *testing.T) {
	assert.Equal(t, "GET", defaultMethod(nil))
	assert.Equal(t, "POST", defaultMethod([]model.InputItem{model.DataField{Key: "name", Value: "Bob"}}))
	assert.Equal(t, "POST", defaultMethod([]model.InputItem{model.FileUpload{Field: "avatar", Path: "a.png"}}))
	assert.Equal(t, "GET", defaultMethod([]model.InputItem{model.Query{Name: "page", Value: "1"}}))
}

func TestExitCode_MapsModelErrorKinds(t *testing.T) {
	assert.Equal(t, 2, exitCode(model.Errorf(model.KindTimeout, nil, "timed out")))
	assert.Equal(t, 6, exitCode(model.Errorf(model.KindTooManyRedirects, nil, "too many redirects")))
	assert.Equal(t, 3, exitCode(model.Errorf(model.KindArgument, nil, "bad argument")))
	assert.Equal(t, 1, exitCode(model.Errorf(model.KindConnection, nil, "connection refused")))
}
