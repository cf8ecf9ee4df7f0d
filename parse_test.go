package pipeshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePipeline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Pipeline
	}{
		{
			name:  "empty input",
			input: "",
			want:  Pipeline{},
		},
		{
			name:  "blank input",
			input: "  \t\n ",
			want:  Pipeline{},
		},
		{
			name:  "single command",
			input: "count",
			want:  Pipeline{{Name: "count"}},
		},
		{
			name:  "several stages",
			input: "emit a b | head --n 2|count",
			want: Pipeline{
				{Name: "emit", Args: NewArgs(nil, "a", "b")},
				{Name: "head", Args: NewArgs(map[string][]string{"n": {"2"}})},
				{Name: "count"},
			},
		},
		{
			name:  "flag forms",
			input: "cmd --a=1 --b 2 --c --d",
			want: Pipeline{{Name: "cmd", Args: NewArgs(map[string][]string{
				"a": {"1"}, "b": {"2"}, "c": {"true"}, "d": {"true"},
			})}},
		},
		{
			name:  "repeated flag keeps every value",
			input: "pick --fields a --fields b",
			want:  Pipeline{{Name: "pick", Args: NewArgs(map[string][]string{"fields": {"a", "b"}})}},
		},
		{
			name:  "quoted flag value",
			input: `exec --json "echo [1,2,3]"`,
			want:  Pipeline{{Name: "exec", Args: NewArgs(map[string][]string{"json": {"echo [1,2,3]"}})}},
		},
		{
			name:  "quoted value after equals",
			input: `exec --json='echo [1]' --prompt=""`,
			want:  Pipeline{{Name: "exec", Args: NewArgs(map[string][]string{"json": {"echo [1]"}, "prompt": {""}})}},
		},
		{
			name:  "pipe inside quotes",
			input: `emit 'a | b' "c | d" e\|f`,
			want:  Pipeline{{Name: "emit", Args: NewArgs(nil, "a | b", "c | d", "e|f")}},
		},
		{
			name:  "double quote escapes",
			input: `emit "say \"hi\" \\ \| \n"`,
			want:  Pipeline{{Name: "emit", Args: NewArgs(nil, `say "hi" \ | \n`)}},
		},
		{
			name:  "adjacent quoted parts join into one word",
			input: `emit a'b c'"d"`,
			want:  Pipeline{{Name: "emit", Args: NewArgs(nil, "ab cd")}},
		},
		{
			name:  "empty quoted word",
			input: `emit ''`,
			want:  Pipeline{{Name: "emit", Args: NewArgs(nil, "")}},
		},
		{
			name:  "double dash ends flags",
			input: "emit --a 1 -- --b",
			want:  Pipeline{{Name: "emit", Args: NewArgs(map[string][]string{"a": {"1"}}, "--b")}},
		},
		{
			name:  "quoted flag-like word is positional",
			input: `emit '--not-a-flag'`,
			want:  Pipeline{{Name: "emit", Args: NewArgs(nil, "--not-a-flag")}},
		},
		{
			name:  "single dash is positional",
			input: "emit -n 3",
			want:  Pipeline{{Name: "emit", Args: NewArgs(nil, "-n", "3")}},
		},
		{
			name:  "unicode words",
			input: "emit héllo | count",
			want: Pipeline{
				{Name: "emit", Args: NewArgs(nil, "héllo")},
				{Name: "count"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePipeline(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParsePipelineErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		pos     int
		message string
	}{
		{name: "leading pipe", input: "| count", pos: 0, message: "empty pipeline stage"},
		{name: "double pipe", input: "emit a || count", pos: 8, message: "empty pipeline stage"},
		{name: "trailing pipe", input: "emit a |", pos: 8, message: "empty pipeline stage after trailing pipe"},
		{name: "unterminated single quote", input: "emit 'abc", pos: 5, message: "unterminated single quote"},
		{name: "unterminated double quote", input: `emit "abc`, pos: 5, message: "unterminated double quote"},
		{name: "dangling escape", input: `emit abc\`, pos: 8, message: "dangling escape at end of input"},
		{name: "flag without command", input: "--json", pos: 0, message: "stage is missing a command name"},
		{name: "empty command name", input: "'' a", pos: 0, message: "empty command name"},
		{name: "invalid flag name", input: "emit --=x", pos: 5, message: "invalid flag name"},
		{name: "positional key as flag", input: "emit --_ x", pos: 5, message: "invalid flag name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePipeline(tt.input)
			require.Nil(t, got)
			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "got %v", err)
			require.Equal(t, tt.pos, parseErr.Pos)
			require.Equal(t, tt.message, parseErr.Message)
			require.Equal(t, ErrorTypeParse, ClassifyError(err).Type)
			require.Equal(t, ExitParseError, ExitCode(err))
		})
	}
}

// Whatever the input, the parser either returns a pipeline or a
// *ParseError. It never panics.
func TestParsePipelineIsTotal(t *testing.T) {
	alphabet := []string{"a", " ", "|", "'", `"`, `\`, "-", "--", "=", "é", "\t"}
	var inputs []string
	var build func(prefix string, depth int)
	build = func(prefix string, depth int) {
		inputs = append(inputs, prefix)
		if depth == 0 {
			return
		}
		for _, s := range alphabet {
			build(prefix+s, depth-1)
		}
	}
	build("", 4)

	for _, input := range inputs {
		require.NotPanics(t, func() {
			p, err := ParsePipeline(input)
			if err != nil {
				var parseErr *ParseError
				require.True(t, errors.As(err, &parseErr), "input %q: %v", input, err)
				require.Nil(t, p)
				return
			}
			for _, inv := range p {
				require.NotEmpty(t, inv.Name, "input %q", input)
			}
		}, "input %q", input)
	}
}

func TestParsePipelineKeepsRawBytes(t *testing.T) {
	raw := "caf\xe9 \xff\xfe"
	p, err := ParsePipeline("emit --name " + raw + " '\xc3(' \"x\xa0y\" z\\\x80 | count")
	require.NoError(t, err)
	require.Len(t, p, 2)

	name, ok := p[0].Args.String("name")
	require.True(t, ok)
	require.Equal(t, "caf\xe9", name)
	require.Equal(t, []string{"\xff\xfe", "\xc3(", "x\xa0y", "z\x80"}, p[0].Args.Positional())
}

func TestPipelineStringRoundTrip(t *testing.T) {
	inputs := []string{
		"count",
		"emit a b | head --n 2 | count",
		`exec --json "echo [1,2,3]" | json`,
		`emit 'a | b' "it's" '' -- --literal`,
		`approve --prompt "ok?" | format '${it.name}'`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			p, err := ParsePipeline(input)
			require.NoError(t, err)
			again, err := ParsePipeline(p.String())
			require.NoError(t, err)
			require.Equal(t, p, again)
		})
	}
}

func TestPipelineSliceIsDeepCopy(t *testing.T) {
	p := MustParsePipeline("emit a | head --n 1 | count")
	suffix := p.Slice(1)
	require.Equal(t, []string{"head", "count"}, suffix.Names())

	suffix[0].Args.add("n", "5")
	require.Equal(t, []string{"1"}, p[1].Args.Strings("n"))

	require.Equal(t, Pipeline{}, p.Slice(3))
	require.Equal(t, Pipeline{}, p.Slice(10))
}

func TestMustParsePipelinePanics(t *testing.T) {
	require.Panics(t, func() { MustParsePipeline("a |") })
}
