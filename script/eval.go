package script

import (
	"context"
	"fmt"
	"strings"
)

// Template is a string with embedded ${...} expressions.
type Template struct {
	raw      string
	segments []templateSegment
}

type templateSegment struct {
	text string
	code Script
}

// NewTemplate compiles every ${...} expression in raw.
func NewTemplate(engine Compiler, raw string) (*Template, error) {
	t := &Template{raw: raw}
	rest := raw
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			if rest != "" {
				t.segments = append(t.segments, templateSegment{text: rest})
			}
			return t, nil
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			return nil, fmt.Errorf("unclosed template expression in string: %q", raw)
		}
		end += start
		if start > 0 {
			t.segments = append(t.segments, templateSegment{text: rest[:start]})
		}
		expr := rest[start+2 : end]
		code, err := engine.Compile(context.Background(), expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile template expression %q: %w", expr, err)
		}
		t.segments = append(t.segments, templateSegment{code: code})
		rest = rest[end+1:]
	}
}

// Raw returns the template source.
func (t *Template) Raw() string {
	return t.raw
}

// Eval renders the template with the given globals.
func (t *Template) Eval(ctx context.Context, globals map[string]any) (string, error) {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.code == nil {
			b.WriteString(seg.text)
			continue
		}
		result, err := seg.code.Evaluate(ctx, globals)
		if err != nil {
			return "", fmt.Errorf("failed to evaluate template expression: %w", err)
		}
		b.WriteString(result.String())
	}
	return b.String(), nil
}
