package modules

import "os"

// Env backs the `env` module, restricted to an allow-list (spec §4.5:
// "Secrets in env are not exposed except via the allow-list").
type Env struct {
	Allow map[string]bool
}

func NewEnv(allowList []string) Env {
	allow := make(map[string]bool, len(allowList))
	for _, k := range allowList {
		allow[k] = true
	}
	return Env{Allow: allow}
}

func (e Env) Get(key string) (string, error) {
	if !e.Allow[key] {
		return "", &envDeniedError{key}
	}
	return os.Getenv(key), nil
}

func (e Env) GetOr(key, fallback string) string {
	if !e.Allow[key] {
		return fallback
	}
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return v
}

func (e Env) Has(key string) bool {
	if !e.Allow[key] {
		return false
	}
	_, ok := os.LookupEnv(key)
	return ok
}

type envDeniedError struct{ key string }

func (e *envDeniedError) Error() string {
	return "env: " + e.key + " is not on the allow-list"
}

func (e Env) Object() map[string]any {
	return map[string]any{
		"get":    e.Get,
		"get_or": e.GetOr,
		"has":    e.Has,
	}
}
