package pipeshell

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadPipelineStringStages(t *testing.T) {
	def, p, err := LoadPipelineString(`
name: report
description: Count big files
stages:
  - command: exec
    flags:
      json: true
    args: ["echo [1, 20, 300]"]
  - command: where
    args: ["it > 10"]
  - command: pick
    flags:
      fields: [a, b]
      verbose:
`)
	require.NoError(t, err)
	require.Equal(t, "report", def.Name)
	require.Equal(t, "Count big files", def.Description)
	require.Equal(t, Pipeline{
		{Name: "exec", Args: NewArgs(map[string][]string{"json": {"true"}}, "echo [1, 20, 300]")},
		{Name: "where", Args: NewArgs(nil, "it > 10")},
		{Name: "pick", Args: NewArgs(map[string][]string{"fields": {"a", "b"}, "verbose": {"true"}})},
	}, p)
}

func TestLoadPipelineStringKeepsRawScalars(t *testing.T) {
	_, p, err := LoadPipelineString(`
name: raw
stages:
  - command: http
    flags:
      retries: 010
      mask: 0x1F
      ratio: 1.50
      quoted: "007"
      enabled: yes
      tags: [01, 2.0]
`)
	require.NoError(t, err)
	require.Len(t, p, 1)
	args := p[0].Args
	for name, want := range map[string]string{
		"retries": "010",
		"mask":    "0x1F",
		"ratio":   "1.50",
		"quoted":  "007",
		"enabled": "yes",
	} {
		got, ok := args.String(name)
		require.True(t, ok, name)
		require.Equal(t, want, got, name)
	}
	require.Equal(t, []string{"01", "2.0"}, args.Strings("tags"))
}

func TestLoadPipelineStringSyntax(t *testing.T) {
	_, p, err := LoadPipelineString(`
name: simple
pipeline: emit a b | count
`)
	require.NoError(t, err)
	require.Equal(t, []string{"emit", "count"}, p.Names())
}

func TestLoadPipelineStringErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "both forms",
			yaml: "name: x\npipeline: count\nstages:\n  - command: count\n",
			want: "set either pipeline or stages",
		},
		{
			name: "missing command",
			yaml: "name: x\nstages:\n  - args: [a]\n",
			want: "stage 0: command required",
		},
		{
			name: "nested flag",
			yaml: "name: x\nstages:\n  - command: a\n    flags:\n      f: {k: v}\n",
			want: "nested mappings are not supported",
		},
		{
			name: "reserved flag name",
			yaml: "name: x\nstages:\n  - command: a\n    flags:\n      _: v\n",
			want: "invalid flag name",
		},
		{
			name: "bad yaml",
			yaml: "name: [",
			want: "failed to unmarshal pipeline file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadPipelineString(tt.yaml)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}

	_, _, err := LoadPipelineString("name: x\npipeline: 'emit |'\n")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestLoadPipelineFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: f\npipeline: count\n"), 0o644))
	def, p, err := LoadPipelineFile(path)
	require.NoError(t, err)
	require.Equal(t, "f", def.Name)
	require.Equal(t, []string{"count"}, p.Names())

	_, _, err = LoadPipelineFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
