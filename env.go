package pipeshell

import (
	"os"
	"sort"
	"strings"
)

// Env is a read-only view of environment variables made available to
// commands. It is copied at construction and never changes afterwards.
type Env struct {
	vars map[string]string
}

// NewEnv returns an Env holding a copy of vars.
func NewEnv(vars map[string]string) Env {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return Env{vars: copied}
}

// EnvFromList builds an Env from KEY=VALUE entries. Later entries win.
func EnvFromList(list []string) Env {
	vars := make(map[string]string, len(list))
	for _, entry := range list {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		vars[key] = value
	}
	return Env{vars: vars}
}

// OSEnv captures the current process environment.
func OSEnv() Env {
	return EnvFromList(os.Environ())
}

// Lookup returns the value of key and whether it is set.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Get returns the value of key, or "" when unset.
func (e Env) Get(key string) string {
	return e.vars[key]
}

// Keys returns the sorted variable names.
func (e Env) Keys() []string {
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Environ returns KEY=VALUE entries sorted by key.
func (e Env) Environ() []string {
	keys := e.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + "=" + e.vars[k]
	}
	return out
}

// Len returns the number of variables.
func (e Env) Len() int {
	return len(e.vars)
}
