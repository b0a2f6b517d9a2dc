package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: smoke
base_url: https://api.example.com
variables:
  token: abc123
notify:
  - discord: https://discord.com/api/webhooks/1/2
schedule: "0 * * * *"
steps:
  - name: create_user
    method: POST
    url: /users
    body: '{"name":"Bob"}'
    timeout: 10s
    retries: 2
    retry_delay: 500ms
    assert:
      status: "2xx"
      max_latency: 1s
      required:
        - id
  - name: get_user
    method: GET
    url: /users/{{id}}
    depends_on:
      - create_user
`

func TestParse_DecodesWorkflowAndSteps(t *testing.T) {
	wf, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "smoke", wf.Name)
	assert.Equal(t, "https://api.example.com", wf.BaseURL)
	assert.Equal(t, "abc123", wf.Variables["token"])
	require.Len(t, wf.Notify, 1)
	assert.Equal(t, "https://discord.com/api/webhooks/1/2", wf.Notify[0].Discord)
	require.NotNil(t, wf.Schedule)
	assert.Equal(t, "0 * * * *", wf.Schedule.Cron)

	require.Len(t, wf.Steps, 2)
	create := wf.Steps[0]
	assert.Equal(t, "POST", create.Method)
	assert.Equal(t, 10*time.Second, create.Timeout)
	assert.Equal(t, 2, create.Retries)
	assert.Equal(t, 500*time.Millisecond, create.RetryDelay)
	assert.Equal(t, "2xx", create.Assert.Status)
	assert.Equal(t, time.Second, create.Assert.MaxLatency)
	assert.Equal(t, []string{"id"}, create.Assert.Required)

	get := wf.Steps[1]
	assert.Equal(t, []string{"create_user"}, get.DependsOn)
}

func TestMarshal_RoundTripsDurationsAndSteps(t *testing.T) {
	wf, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	out, err := Marshal(wf)
	require.NoError(t, err)

	roundTripped, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, wf.Name, roundTripped.Name)
	assert.Equal(t, wf.Steps[0].Timeout, roundTripped.Steps[0].Timeout)
	assert.Equal(t, wf.Steps[0].Assert.MaxLatency, roundTripped.Steps[0].Assert.MaxLatency)
}

func TestParse_InvalidDurationErrors(t *testing.T) {
	_, err := Parse([]byte("name: bad\nsteps:\n  - name: s1\n    timeout: not-a-duration\n"))
	assert.Error(t, err)
}
