package request

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"name"}, splitPath("name"))
	assert.Equal(t, []string{"user", "name"}, splitPath("user[name]"))
	assert.Equal(t, []string{"a", "b", "c"}, splitPath("a[b][c]"))
}

func TestOrderedJSON_LastWinsOnLeafRepeat(t *testing.T) {
	o := newOrderedJSON()
	o.setPath([]string{"a"}, "first")
	o.setPath([]string{"a"}, "second")

	var buf bytes.Buffer
	_ = marshalCompact(&buf, o)
	assert.Equal(t, `{"a":"second"}`, buf.String())
}

func TestMarshalCompact_StringEscaping(t *testing.T) {
	var buf bytes.Buffer
	_ = marshalCompactString(&buf, "a\"b\\c\n")
	assert.Equal(t, `"a\"b\\c\n"`, buf.String())
}

func TestFormEncode_DuplicatesPreserved(t *testing.T) {
	got := formEncode([][2]string{{"a", "1"}, {"b", "2"}, {"a", "3"}})
	assert.Equal(t, "a=1&b=2&a=3", string(got))
}
