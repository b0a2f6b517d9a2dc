package grpcclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestDecodeSchemaless_VarintAndString(t *testing.T) {
	var data []byte
	data = protowire.AppendTag(data, 1, protowire.VarintType)
	data = protowire.AppendVarint(data, 42)
	data = protowire.AppendTag(data, 2, protowire.BytesType)
	data = protowire.AppendString(data, "hello")

	out, err := DecodeSchemaless(data)
	require.NoError(t, err)
	assert.EqualValues(t, 42, out["field_1"])
	assert.Equal(t, "hello", out["field_2"])
}

func TestDecodeSchemaless_RepeatedFieldBecomesArray(t *testing.T) {
	var data []byte
	data = protowire.AppendTag(data, 3, protowire.VarintType)
	data = protowire.AppendVarint(data, 1)
	data = protowire.AppendTag(data, 3, protowire.VarintType)
	data = protowire.AppendVarint(data, 2)

	out, err := DecodeSchemaless(data)
	require.NoError(t, err)
	arr, ok := out["field_3"].([]any)
	require.True(t, ok)
	assert.Len(t, arr, 2)
}

func TestDecodeSchemaless_NonUTF8BytesBecomeBase64(t *testing.T) {
	var data []byte
	data = protowire.AppendTag(data, 1, protowire.BytesType)
	data = protowire.AppendBytes(data, []byte{0xff, 0xfe, 0x00, 0x01})

	out, err := DecodeSchemaless(data)
	require.NoError(t, err)
	s, ok := out["field_1"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, s)
}

func TestDecodeSchemaless_MalformedTagErrors(t *testing.T) {
	_, err := DecodeSchemaless([]byte{0xff})
	require.Error(t, err)
}
