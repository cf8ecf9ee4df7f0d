package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplate(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		globals     map[string]any
		wantErr     bool
		want        string
		errContains string
	}{
		{
			name:  "plain string without expressions",
			input: "Hello World",
			want:  "Hello World",
		},
		{
			name:  "item field",
			input: "Hello ${it.name}",
			globals: map[string]any{
				"it": map[string]any{"name": "Alice"},
			},
			want: "Hello Alice",
		},
		{
			name:  "several expressions",
			input: "${index}: ${it.greeting} ${it.name}! The answer is ${40 + 2}",
			globals: map[string]any{
				"index": 3,
				"it": map[string]any{
					"greeting": "Hello",
					"name":     "Bob",
				},
			},
			want: "3: Hello Bob! The answer is 42",
		},
		{
			name:  "nested arithmetic",
			input: "Result: ${1 + (2 * 3)}",
			want:  "Result: 7",
		},
		{
			name:  "safe builtin",
			input: "${strings.to_upper(it)}",
			globals: map[string]any{
				"it": "loud",
			},
			want: "LOUD",
		},
		{
			name:        "unclosed brace",
			input:       "Hello ${name",
			wantErr:     true,
			errContains: "unclosed template expression",
		},
		{
			name:        "invalid expression",
			input:       "Hello ${1 +}",
			wantErr:     true,
			errContains: "failed to compile template expression",
		},
		{
			name:        "undefined variable",
			input:       "Hello ${undefined_var}",
			wantErr:     true,
			errContains: "undefined variable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewTemplate(NewExpressionEngine(), tt.input)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					require.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.input, s.Raw())
			got, err := s.Eval(context.Background(), tt.globals)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExpressionTruthiness(t *testing.T) {
	engine := NewExpressionEngine()
	code, err := engine.Compile(context.Background(), "it.n > 1")
	require.NoError(t, err)

	v, err := code.Evaluate(context.Background(), map[string]any{"it": map[string]any{"n": 2}})
	require.NoError(t, err)
	require.True(t, v.IsTruthy())

	v, err = code.Evaluate(context.Background(), map[string]any{"it": map[string]any{"n": 0}})
	require.NoError(t, err)
	require.False(t, v.IsTruthy())
}

func TestExpressionValue(t *testing.T) {
	engine := NewExpressionEngine()
	code, err := engine.Compile(context.Background(), `{"id": it.id, "tags": [1, "two"]}`)
	require.NoError(t, err)

	v, err := code.Evaluate(context.Background(), map[string]any{"it": map[string]any{"id": "x"}})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": "x", "tags": []any{int64(1), "two"}}, v.Value())
}

func TestUnsafeBuiltinsAreHidden(t *testing.T) {
	engine := NewExpressionEngine()
	_, err := engine.Compile(context.Background(), `os.getenv("HOME")`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined variable")
}

func TestEmptyExpression(t *testing.T) {
	_, err := NewExpressionEngine().Compile(context.Background(), "  ")
	require.EqualError(t, err, "empty expression")
}
