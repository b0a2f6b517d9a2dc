package netrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParse_QuotedPasswordPreservesInternalSpaces covers P9: a password
// quoted as "a b c" must retrieve exactly that three-token string, not be
// split into three separate tokens.
func TestParse_QuotedPasswordPreservesInternalSpaces(t *testing.T) {
	content := `machine example.com
  login alice
  password "a b c"
`
	f := Parse(content)
	m, ok := f.Machines["example.com"]
	require.True(t, ok)
	assert.Equal(t, "alice", m.Login)
	assert.Equal(t, "a b c", m.Password)
}

func TestParse_InlineAndFullLineComments(t *testing.T) {
	content := `# full line comment
machine example.com # inline comment
  login bob
  password secret
`
	f := Parse(content)
	m, ok := f.Machines["example.com"]
	require.True(t, ok)
	assert.Equal(t, "bob", m.Login)
	assert.Equal(t, "secret", m.Password)
}

func TestParse_DefaultEntryFallback(t *testing.T) {
	content := `machine example.com
  login alice
  password p1

default
  login anon
  password p2
`
	f := Parse(content)
	require.NotNil(t, f.Default)
	assert.Equal(t, "anon", f.Default.Login)

	m, ok := f.Lookup("unknown.example.com")
	require.True(t, ok)
	assert.Equal(t, "anon", m.Login)
}

func TestLookup_PortQualifiedHostFallsBackToHostname(t *testing.T) {
	f := Parse("machine example.com\n  login alice\n  password secret\n")
	m, ok := f.Lookup("example.com:8443")
	require.True(t, ok)
	assert.Equal(t, "alice", m.Login)
}

func TestLoad_MissingFileDegradesSilently(t *testing.T) {
	f, err := Load("/nonexistent/path/.netrc")
	require.NoError(t, err)
	assert.Empty(t, f.Machines)
	assert.Nil(t, f.Default)
}
