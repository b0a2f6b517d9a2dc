package grpcclient

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/quicpulse/quicpulse/internal/guard"
	"github.com/quicpulse/quicpulse/internal/model"
)

// DecodeSchemaless best-effort decodes raw protobuf wire bytes with no
// descriptor available (spec §4.4.3): fields become "field_<N>" keys,
// varints/fixed values are reported as numbers, length-delimited values are
// tried as UTF-8 strings, then as nested messages, falling back to base64.
// Repeated tag numbers are collected into arrays. depth-guarded to 50 levels.
func DecodeSchemaless(data []byte) (map[string]any, error) {
	return decodeSchemaless(data, guard.New(maxCodecDepth))
}

func decodeSchemaless(data []byte, d *guard.Depth) (map[string]any, error) {
	if err := d.Enter(); err != nil {
		return nil, model.Errorf(model.KindGrpc, err, "schemaless decode").WithHint("message nesting exceeds the 50-level limit")
	}
	defer d.Exit()

	out := make(map[string]any)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, model.Errorf(model.KindGrpc, nil, "malformed wire data: bad tag")
		}
		data = data[n:]

		key := fmt.Sprintf("field_%d", num)
		var val any

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, model.Errorf(model.KindGrpc, nil, "malformed wire data: bad varint for field %d", num)
			}
			data = data[n:]
			val = v

		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return nil, model.Errorf(model.KindGrpc, nil, "malformed wire data: bad fixed32 for field %d", num)
			}
			data = data[n:]
			val = v

		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, model.Errorf(model.KindGrpc, nil, "malformed wire data: bad fixed64 for field %d", num)
			}
			data = data[n:]
			val = v

		case protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, model.Errorf(model.KindGrpc, nil, "malformed wire data: bad length-delimited field %d", num)
			}
			data = data[n:]
			val = decodeBytesField(b, d)

		case protowire.StartGroupType:
			// Deprecated group encoding: skip, matching the reference
			// decoder's "best effort" contract rather than failing the
			// whole message over a legacy field.
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, model.Errorf(model.KindGrpc, nil, "malformed wire data: bad group for field %d", num)
			}
			data = data[n:]
			continue

		default:
			return nil, model.Errorf(model.KindGrpc, nil, "malformed wire data: unknown wire type %d", typ)
		}

		appendField(out, key, val)
	}
	return out, nil
}

func appendField(out map[string]any, key string, val any) {
	existing, ok := out[key]
	if !ok {
		out[key] = val
		return
	}
	if arr, ok := existing.([]any); ok {
		out[key] = append(arr, val)
		return
	}
	out[key] = []any{existing, val}
}

// decodeBytesField implements spec §4.4.3's length-delimited heuristic:
// valid printable UTF-8 -> string; else try as a nested sub-message; else
// base64.
func decodeBytesField(b []byte, d *guard.Depth) any {
	if isPrintableUTF8(b) {
		return string(b)
	}
	if sub, err := decodeSchemaless(b, d); err == nil && len(sub) > 0 {
		return sub
	}
	return base64.StdEncoding.EncodeToString(b)
}

func isPrintableUTF8(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if r < 0x20 && r != '\n' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}
