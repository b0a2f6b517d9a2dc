package grpcclient

import (
	"testing"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProto = `
syntax = "proto3";
package quicpulse.test;

message Address {
  string city = 1;
}

message Person {
  string name = 1;
  int32 age = 2;
  repeated string tags = 3;
  Address address = 4;
  bytes avatar = 5;
  Status status = 6;
}

enum Status {
  UNKNOWN = 0;
  ACTIVE = 1;
}

service Directory {
  rpc Get(Person) returns (Person);
  rpc List(Person) returns (stream Person);
  rpc Upload(stream Person) returns (Person);
  rpc Sync(stream Person) returns (stream Person);
}
`

func parseTestProto(t *testing.T) *Schema {
	t.Helper()
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{"test.proto": testProto}),
	}
	fds, err := parser.ParseFiles("test.proto")
	require.NoError(t, err)

	var services []*desc.ServiceDescriptor
	for _, fd := range fds {
		services = append(services, fd.GetServices()...)
	}
	require.NotEmpty(t, services)
	return &Schema{Services: services}
}

func personMessageType(t *testing.T, schema *Schema) *desc.MessageDescriptor {
	t.Helper()
	md, err := schema.FindMethod("Directory/Get")
	require.NoError(t, err)
	return md.GetInputType()
}

func TestEncodeDecodeJSON_RoundTrip(t *testing.T) {
	schema := parseTestProto(t)
	person := personMessageType(t, schema)

	in := map[string]any{
		"name": "Ada",
		"age":  float64(36),
		"tags": []any{"engineer", "founder"},
		"address": map[string]any{
			"city": "London",
		},
		"avatar": "aGVsbG8=", // base64("hello")
		"status": "ACTIVE",
	}

	msg, err := EncodeJSON(person, in)
	require.NoError(t, err)

	out, err := DecodeJSON(msg)
	require.NoError(t, err)

	obj, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", obj["name"])
	assert.Equal(t, "London", obj["address"].(map[string]any)["city"])
	assert.Equal(t, "aGVsbG8=", obj["avatar"])
	assert.Equal(t, "ACTIVE", obj["status"])
}

func TestEncodeBytes_InvalidBase64Errors(t *testing.T) {
	schema := parseTestProto(t)
	person := personMessageType(t, schema)

	_, err := EncodeJSON(person, map[string]any{"avatar": "not base64!!"})
	require.Error(t, err)
}

func TestEncodeEnum_UnknownNameDefaultsToZero(t *testing.T) {
	schema := parseTestProto(t)
	person := personMessageType(t, schema)

	msg, err := EncodeJSON(person, map[string]any{"status": "NOPE"})
	require.NoError(t, err)

	out, err := DecodeJSON(msg)
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN", out.(map[string]any)["status"])
}

func TestKindOf_StreamingBits(t *testing.T) {
	schema := parseTestProto(t)

	get, err := schema.FindMethod("Directory/Get")
	require.NoError(t, err)
	assert.Equal(t, Unary, KindOf(get))

	list, err := schema.FindMethod("Directory/List")
	require.NoError(t, err)
	assert.Equal(t, ServerStream, KindOf(list))

	upload, err := schema.FindMethod("Directory/Upload")
	require.NoError(t, err)
	assert.Equal(t, ClientStream, KindOf(upload))

	sync, err := schema.FindMethod("Directory/Sync")
	require.NoError(t, err)
	assert.Equal(t, BidiStream, KindOf(sync))
}
