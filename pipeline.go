package pipeshell

import (
	"strings"
)

// Invocation is one stage of a pipeline: a command name and its arguments.
type Invocation struct {
	Name string `json:"name"`
	Args Args   `json:"args"`
}

// Clone returns a deep copy of the invocation.
func (inv Invocation) Clone() Invocation {
	return Invocation{Name: inv.Name, Args: inv.Args.Clone()}
}

// String renders the invocation in pipeline syntax.
func (inv Invocation) String() string {
	words := []string{quoteWord(inv.Name)}
	for _, name := range inv.Args.Names() {
		for _, v := range inv.Args.flags[name] {
			words = append(words, "--"+name+"="+quoteWord(v))
		}
	}
	positional := inv.Args.positional
	for _, p := range positional {
		if strings.HasPrefix(p, "--") {
			words = append(words, "--")
			break
		}
	}
	for _, p := range positional {
		words = append(words, quoteWord(p))
	}
	return strings.Join(words, " ")
}

// Pipeline is an ordered list of invocations. Stage i's output feeds stage
// i+1's input. A parsed Pipeline is never modified; use Clone or Slice to
// derive new ones.
type Pipeline []Invocation

// Clone returns a deep copy of the pipeline.
func (p Pipeline) Clone() Pipeline {
	out := make(Pipeline, len(p))
	for i, inv := range p {
		out[i] = inv.Clone()
	}
	return out
}

// Slice returns a deep copy of the stages from index i onwards.
func (p Pipeline) Slice(i int) Pipeline {
	if i >= len(p) {
		return Pipeline{}
	}
	if i < 0 {
		i = 0
	}
	return p[i:].Clone()
}

// Names returns the command name of every stage.
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, inv := range p {
		names[i] = inv.Name
	}
	return names
}

// String renders the pipeline in syntax accepted by ParsePipeline.
func (p Pipeline) String() string {
	parts := make([]string, len(p))
	for i, inv := range p {
		parts[i] = inv.String()
	}
	return strings.Join(parts, " | ")
}

func quoteWord(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\r\n|'\"\\") {
		return s
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
