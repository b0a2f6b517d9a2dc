package itemlex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicpulse/quicpulse/internal/model"
)

func TestParse_DataFieldAndHeaderAndQuery(t *testing.T) {
	items, err := Parse([]string{"name=Bob", "X-Token:abc123", "page==2"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, model.DataField{Key: "name", Value: "Bob"}, items[0])
	assert.Equal(t, model.Header{Name: "X-Token", Value: "abc123"}, items[1])
	assert.Equal(t, model.Query{Name: "page", Value: "2"}, items[2])
}

func TestParse_JSONFieldFromFileTakesPrecedenceOverJSONField(t *testing.T) {
	items, err := Parse([]string{"payload:=@body.json"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.JSONFieldFromFile{Key: "payload", Path: "body.json"}, items[0])
}

func TestParse_JSONFieldParsesValue(t *testing.T) {
	items, err := Parse([]string{"active:=true", "count:=3"})
	require.NoError(t, err)
	assert.Equal(t, model.JSONField{Key: "active", Value: true}, items[0])
	assert.Equal(t, model.JSONField{Key: "count", Value: float64(3)}, items[1])
}

func TestParse_EmptyHeaderValue(t *testing.T) {
	items, err := Parse([]string{"X-Empty:"})
	require.NoError(t, err)
	assert.Equal(t, model.EmptyHeader{Name: "X-Empty"}, items[0])
}

func TestParse_FileUpload(t *testing.T) {
	items, err := Parse([]string{"avatar@photo.png"})
	require.NoError(t, err)
	assert.Equal(t, model.FileUpload{Field: "avatar", Path: "photo.png"}, items[0])
}

func TestParse_NoSeparatorErrors(t *testing.T) {
	_, err := Parse([]string{"justsometext"})
	assert.Error(t, err)
}

func TestParse_EmptyKeyErrorsExceptFileUpload(t *testing.T) {
	_, err := Parse([]string{"=value"})
	assert.Error(t, err)

	items, err := Parse([]string{"@path/to/file"})
	require.NoError(t, err)
	assert.Equal(t, model.FileUpload{Field: "", Path: "path/to/file"}, items[0])
}
