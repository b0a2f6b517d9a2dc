package grpcclient

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/quicpulse/quicpulse/internal/guard"
	"github.com/quicpulse/quicpulse/internal/model"
)

const maxCodecDepth = 50

// EncodeJSON builds a dynamic.Message from a decoded JSON value (map[string]any
// for an object), following spec §4.4.2's type-mapping table. depth guards
// against self-referencing message types.
func EncodeJSON(md *desc.MessageDescriptor, v any) (*dynamic.Message, error) {
	msg := dynamic.NewMessage(md)
	d := guard.New(maxCodecDepth)
	if err := encodeMessage(msg, v, d); err != nil {
		return nil, err
	}
	return msg, nil
}

func encodeMessage(msg *dynamic.Message, v any, d *guard.Depth) error {
	if err := d.Enter(); err != nil {
		return model.Errorf(model.KindGrpc, err, "encode message").WithHint("message nesting exceeds the 50-level limit")
	}
	defer d.Exit()

	obj, ok := v.(map[string]any)
	if !ok {
		return model.Errorf(model.KindGrpc, nil, "expected JSON object for message %s, got %T", msg.GetMessageDescriptor().GetName(), v)
	}

	for name, raw := range obj {
		fd := msg.GetMessageDescriptor().FindFieldByName(name)
		if fd == nil {
			fd = msg.GetMessageDescriptor().FindFieldByJSONName(name)
		}
		if fd == nil {
			continue // unknown field: ignored, matching typical JSON-mapping leniency
		}

		val, err := encodeField(fd, raw, d)
		if err != nil {
			return err
		}
		if err := msg.TrySetField(fd, val); err != nil {
			return model.Errorf(model.KindGrpc, err, "set field %q", name)
		}
	}
	return nil
}

func encodeField(fd *desc.FieldDescriptor, raw any, d *guard.Depth) (any, error) {
	if fd.IsMap() {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, model.Errorf(model.KindGrpc, nil, "field %q: expected object for map", fd.GetName())
		}
		keyFd := fd.GetMessageType().FindFieldByNumber(1)
		valFd := fd.GetMessageType().FindFieldByNumber(2)
		out := make(map[any]any, len(obj))
		for k, rawVal := range obj {
			key, err := scalarFromString(keyFd.GetType(), k)
			if err != nil {
				return nil, err
			}
			val, err := encodeScalarOrMessage(valFd, rawVal, d)
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil
	}

	if fd.IsRepeated() {
		arr, ok := raw.([]any)
		if !ok {
			// spec §4.4.2: "single value auto-wraps" into a one-element array.
			arr = []any{raw}
		}
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			val, err := encodeScalarOrMessage(fd, item, d)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	}

	return encodeScalarOrMessage(fd, raw, d)
}

func encodeScalarOrMessage(fd *desc.FieldDescriptor, raw any, d *guard.Depth) (any, error) {
	if fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_MESSAGE {
		sub := dynamic.NewMessage(fd.GetMessageType())
		if err := encodeMessage(sub, raw, d); err != nil {
			return nil, err
		}
		return sub, nil
	}
	if fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_ENUM {
		return encodeEnum(fd, raw)
	}
	return encodeScalar(fd.GetType(), raw)
}

func encodeEnum(fd *desc.FieldDescriptor, raw any) (int32, error) {
	switch t := raw.(type) {
	case string:
		for _, v := range fd.GetEnumType().GetValues() {
			if v.GetName() == t {
				return v.GetNumber(), nil
			}
		}
		return 0, nil // spec §4.4.2: "unknown name -> 0"
	case float64:
		return int32(t), nil
	default:
		return 0, model.Errorf(model.KindGrpc, nil, "field %q: unsupported enum value %T", fd.GetName(), raw)
	}
}

func encodeScalar(kind descriptorpb.FieldDescriptorProto_Type, raw any) (any, error) {
	switch kind {
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		return stringify(raw), nil
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		return coerceBool(raw)
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return coerceBytes(raw)
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		f, err := coerceFloat(raw)
		return float32(f), err
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		return coerceFloat(raw)
	case descriptorpb.FieldDescriptorProto_TYPE_INT32, descriptorpb.FieldDescriptorProto_TYPE_SINT32,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		n, err := coerceInt(raw)
		return int32(n), err
	case descriptorpb.FieldDescriptorProto_TYPE_INT64, descriptorpb.FieldDescriptorProto_TYPE_SINT64,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		return coerceInt(raw)
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32, descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		n, err := coerceUint(raw)
		return uint32(n), err
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64, descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		return coerceUint(raw)
	default:
		return raw, nil
	}
}

func scalarFromString(kind descriptorpb.FieldDescriptorProto_Type, s string) (any, error) {
	return encodeScalar(kind, s)
}

func stringify(raw any) string {
	switch t := raw.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func coerceBool(raw any) (bool, error) {
	switch t := raw.(type) {
	case bool:
		return t, nil
	case string:
		return t == "true" || t == "1", nil
	default:
		return false, model.Errorf(model.KindGrpc, nil, "expected bool, got %T", raw)
	}
}

func coerceFloat(raw any) (float64, error) {
	switch t := raw.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, model.Errorf(model.KindGrpc, err, "parse numeric string %q", t)
		}
		return f, nil
	default:
		return 0, model.Errorf(model.KindGrpc, nil, "expected number, got %T", raw)
	}
}

func coerceInt(raw any) (int64, error) {
	switch t := raw.(type) {
	case float64:
		return int64(t), nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, model.Errorf(model.KindGrpc, err, "parse numeric string %q", t)
		}
		return n, nil
	default:
		return 0, model.Errorf(model.KindGrpc, nil, "expected number, got %T", raw)
	}
}

func coerceUint(raw any) (uint64, error) {
	switch t := raw.(type) {
	case float64:
		return uint64(t), nil
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		if err != nil {
			return 0, model.Errorf(model.KindGrpc, err, "parse numeric string %q", t)
		}
		return n, nil
	default:
		return 0, model.Errorf(model.KindGrpc, nil, "expected number, got %T", raw)
	}
}

// coerceBytes accepts a base64 string or a JSON array of byte numbers
// (spec §4.4.2: "non-base64 string -> explicit error, never silent UTF-8 fallback").
func coerceBytes(raw any) ([]byte, error) {
	switch t := raw.(type) {
	case string:
		b, err := base64.StdEncoding.DecodeString(t)
		if err != nil {
			return nil, model.Errorf(model.KindGrpc, err, "bytes field: %q is not valid base64", t).WithHint("encode bytes fields as base64")
		}
		return b, nil
	case []any:
		out := make([]byte, len(t))
		for i, v := range t {
			n, ok := v.(float64)
			if !ok {
				return nil, model.Errorf(model.KindGrpc, nil, "bytes field: array element %d is not a number", i)
			}
			out[i] = byte(n)
		}
		return out, nil
	default:
		return nil, model.Errorf(model.KindGrpc, nil, "bytes field: expected base64 string or byte array, got %T", raw)
	}
}

// DecodeJSON converts a dynamic.Message back into a decoded JSON-like value
// (map[string]any / []any / scalars), spec §4.4.2's reverse mapping: bytes
// emitted as base64.
func DecodeJSON(msg *dynamic.Message) (any, error) {
	out := make(map[string]any)
	md := msg.GetMessageDescriptor()
	for _, fd := range md.GetFields() {
		if !msg.HasField(fd) {
			continue
		}
		v, err := msg.TryGetField(fd)
		if err != nil {
			return nil, model.Errorf(model.KindGrpc, err, "get field %q", fd.GetName())
		}
		decoded, err := decodeValue(fd, v)
		if err != nil {
			return nil, err
		}
		out[fd.GetJSONName()] = decoded
	}
	return out, nil
}

func decodeValue(fd *desc.FieldDescriptor, v any) (any, error) {
	if fd.IsMap() {
		m, ok := v.(map[any]any)
		if ok {
			valFd := fd.GetMessageType().FindFieldByNumber(2)
			out := make(map[string]any, len(m))
			for k, entry := range m {
				decoded, err := decodeScalarOrMessage(valFd, entry)
				if err != nil {
					return nil, err
				}
				out[fmt.Sprint(k)] = decoded
			}
			return out, nil
		}
	}
	if fd.IsRepeated() {
		if arr, ok := v.([]any); ok {
			out := make([]any, len(arr))
			for i, item := range arr {
				decoded, err := decodeScalarOrMessage(fd, item)
				if err != nil {
					return nil, err
				}
				out[i] = decoded
			}
			return out, nil
		}
	}
	return decodeScalarOrMessage(fd, v)
}

func decodeScalarOrMessage(fd *desc.FieldDescriptor, v any) (any, error) {
	if sub, ok := v.(*dynamic.Message); ok {
		return DecodeJSON(sub)
	}
	if fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_ENUM {
		if n, ok := v.(int32); ok {
			if ev := fd.GetEnumType().FindValueByNumber(n); ev != nil {
				return ev.GetName(), nil
			}
			return n, nil
		}
	}
	if b, ok := v.([]byte); ok {
		return base64.StdEncoding.EncodeToString(b), nil
	}
	return v, nil
}
