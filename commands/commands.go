// Package commands provides the built-in pipeline commands.
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deepnoodle-ai/pipeshell"
)

// Options configures the built-in commands that talk to the outside world.
type Options struct {
	// HTTPClient is used by the http command. Defaults to a client with
	// HTTPTimeout.
	HTTPClient *http.Client

	// HTTPTimeout bounds each http request. Defaults to 30 seconds.
	HTTPTimeout time.Duration

	// HTTPRetries is how many times a failed http request is repeated.
	HTTPRetries int
}

// All returns every built-in command.
func All(opts Options) []pipeshell.Command {
	return []pipeshell.Command{
		NewApproveCommand(),
		NewCountCommand(),
		NewEmitCommand(),
		NewEnvCommand(),
		NewExecCommand(),
		NewFailCommand(),
		NewFormatCommand(),
		NewHeadCommand(),
		NewHTTPCommand(opts),
		NewJSONCommand(),
		NewMapCommand(),
		NewPickCommand(),
		NewSortCommand(),
		NewTableCommand(),
		NewWhereCommand(),
	}
}

// NewRegistry returns a registry holding every built-in command.
func NewRegistry(opts Options) (*pipeshell.Registry, error) {
	return pipeshell.NewRegistry(All(opts)...)
}

// words joins the positional arguments, with an optional leading word that
// a switch flag swallowed.
func words(spill string, args pipeshell.Args) string {
	parts := args.Positional()
	if spill != "" {
		parts = append([]string{spill}, parts...)
	}
	return strings.Join(parts, " ")
}

// itemText renders an item as one line of text: strings verbatim, everything
// else as compact JSON.
func itemText(item pipeshell.Item) (string, error) {
	if s, ok := item.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeValues reads every JSON value in data. Top-level arrays are
// flattened into their elements.
func decodeValues(data []byte) ([]pipeshell.Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	items := []pipeshell.Item{}
	for dec.More() {
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		if list, ok := value.([]any); ok {
			items = append(items, list...)
			continue
		}
		items = append(items, value)
	}
	return items, nil
}

// field reads a dotted path from a decoded JSON object.
func field(item pipeshell.Item, path string) (any, bool) {
	current := item
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// envMap exposes the environment to expressions.
func envMap(env pipeshell.Env) map[string]any {
	out := make(map[string]any, env.Len())
	for _, key := range env.Keys() {
		out[key] = env.Get(key)
	}
	return out
}

func contextWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
