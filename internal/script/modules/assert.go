// Package modules implements ScriptCore's capability modules (spec §4.5):
// the script-visible surface bound into the goja runtime by internal/script.
// Grounded on the teacher's Goja helper pattern (internal/service/workflow/
// goja.go's registerGojaHelpers), generalized from a handful of globals into
// one object-per-module namespace so scripts call `assert.eq(...)`,
// `crypto.sha256_hex(...)`, etc. rather than a flat global namespace.
package modules

import (
	"fmt"
	"math"
)

// Assert backs the `assert` module: eq/ne/is_true/gt/gte/lt/lte and the
// status-class helpers. Each method returns an error on failure, which
// goja's reflection wrapper turns into a thrown JS exception — the idiomatic
// assert-library shape (assert.eq(a, b) throws rather than returns false).
type Assert struct{}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func (Assert) Eq(a, b any) error {
	if !equalValues(a, b) {
		return fmt.Errorf("assert.eq: %v != %v", a, b)
	}
	return nil
}

func (Assert) Ne(a, b any) error {
	if equalValues(a, b) {
		return fmt.Errorf("assert.ne: %v == %v", a, b)
	}
	return nil
}

func (Assert) IsTrue(v any) error {
	b, ok := v.(bool)
	if !ok || !b {
		return fmt.Errorf("assert.is_true: %v is not true", v)
	}
	return nil
}

func (Assert) Gt(a, b any) error { return compareOrErr(a, b, "gt", func(x, y float64) bool { return x > y }) }

func (Assert) Gte(a, b any) error {
	return compareOrErr(a, b, "gte", func(x, y float64) bool { return x >= y })
}

func (Assert) Lt(a, b any) error { return compareOrErr(a, b, "lt", func(x, y float64) bool { return x < y }) }

func (Assert) Lte(a, b any) error {
	return compareOrErr(a, b, "lte", func(x, y float64) bool { return x <= y })
}

func compareOrErr(a, b any, op string, ok func(x, y float64) bool) error {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if !aok || !bok || math.IsNaN(fa) || math.IsNaN(fb) {
		return fmt.Errorf("assert.%s: %v, %v are not comparable numbers", op, a, b)
	}
	if !ok(fa, fb) {
		return fmt.Errorf("assert.%s: %v, %v failed", op, a, b)
	}
	return nil
}

func (Assert) StatusOk(code int64) error {
	if code < 200 || code >= 400 {
		return fmt.Errorf("assert.status_ok: status %d is not ok", code)
	}
	return nil
}

func (Assert) StatusSuccess(code int64) error {
	if code < 200 || code >= 300 {
		return fmt.Errorf("assert.status_success: status %d is not 2xx", code)
	}
	return nil
}

func (Assert) StatusRedirect(code int64) error {
	if code < 300 || code >= 400 {
		return fmt.Errorf("assert.status_redirect: status %d is not 3xx", code)
	}
	return nil
}

func (Assert) StatusClientError(code int64) error {
	if code < 400 || code >= 500 {
		return fmt.Errorf("assert.status_client_error: status %d is not 4xx", code)
	}
	return nil
}

func (Assert) StatusServerError(code int64) error {
	if code < 500 || code >= 600 {
		return fmt.Errorf("assert.status_server_error: status %d is not 5xx", code)
	}
	return nil
}

// Object returns the `assert` module's script-visible methods keyed by their
// spec-mandated snake_case names.
func (a Assert) Object() map[string]any {
	return map[string]any{
		"eq":                 a.Eq,
		"ne":                 a.Ne,
		"is_true":            a.IsTrue,
		"gt":                 a.Gt,
		"gte":                a.Gte,
		"lt":                 a.Lt,
		"lte":                a.Lte,
		"status_ok":          a.StatusOk,
		"status_success":     a.StatusSuccess,
		"status_redirect":    a.StatusRedirect,
		"status_client_error": a.StatusClientError,
		"status_server_error": a.StatusServerError,
	}
}
