package pipeshell

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// PositionalKey is the argument slot that holds bare tokens.
const PositionalKey = "_"

// Args holds the parsed arguments of one invocation. Flag values and
// positional tokens are kept as raw strings; decoding them is up to the
// command. The zero value is an empty argument set.
type Args struct {
	flags      map[string][]string
	positional []string
}

// NewArgs builds Args from flag values and positional tokens. The inputs are
// copied.
func NewArgs(flags map[string][]string, positional ...string) Args {
	a := Args{}
	for name, values := range flags {
		for _, v := range values {
			a.add(name, v)
		}
	}
	a.positional = slices.Clone(positional)
	return a
}

func (a *Args) add(name, value string) {
	if a.flags == nil {
		a.flags = map[string][]string{}
	}
	a.flags[name] = append(a.flags[name], value)
}

// Has reports whether the flag was given.
func (a Args) Has(name string) bool {
	_, ok := a.flags[name]
	return ok
}

// String returns the last value given for the flag.
func (a Args) String(name string) (string, bool) {
	values := a.flags[name]
	if len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

// StringOr returns the flag value or def when it is absent.
func (a Args) StringOr(name, def string) string {
	if v, ok := a.String(name); ok {
		return v
	}
	return def
}

// Strings returns every value given for the flag, in order.
func (a Args) Strings(name string) []string {
	return slices.Clone(a.flags[name])
}

// Bool interprets the flag as a boolean. A bare flag is true.
func (a Args) Bool(name string) (bool, error) {
	v, ok := a.String(name)
	if !ok {
		return false, nil
	}
	return parseBool(v)
}

// Switch reads a boolean flag that may have swallowed the following word.
// "--json true" is on, "--json no" is off, and "--json echo" is on with
// "echo" handed back as spill so the command can treat it as positional.
func (a Args) Switch(name string) (on bool, spill string) {
	v, ok := a.String(name)
	if !ok {
		return false, ""
	}
	if b, err := parseBool(v); err == nil {
		return b, ""
	}
	return true, v
}

// Int interprets the flag as an integer, returning def when it is absent.
func (a Args) Int(name string, def int) (int, error) {
	v, ok := a.String(name)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("--%s: expected an integer, got %q", name, v)
	}
	return n, nil
}

// Positional returns the bare tokens in order.
func (a Args) Positional() []string {
	return slices.Clone(a.positional)
}

// Names returns the sorted flag names.
func (a Args) Names() []string {
	names := make([]string, 0, len(a.flags))
	for name := range a.flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of flags plus positional tokens.
func (a Args) Len() int {
	n := len(a.positional)
	for _, values := range a.flags {
		n += len(values)
	}
	return n
}

// Clone returns a deep copy.
func (a Args) Clone() Args {
	return NewArgs(a.flags, a.positional...)
}

// Map returns the argument mapping in its serialized shape: single flag
// values as strings, repeated flags as lists, positionals under "_".
func (a Args) Map() map[string]any {
	out := make(map[string]any, len(a.flags)+1)
	for name, values := range a.flags {
		if len(values) == 1 {
			out[name] = values[0]
		} else {
			out[name] = slices.Clone(values)
		}
	}
	if len(a.positional) > 0 {
		out[PositionalKey] = slices.Clone(a.positional)
	}
	return out
}

// MarshalJSON encodes the mapping returned by Map.
func (a Args) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Map())
}

// UnmarshalJSON decodes the mapping produced by MarshalJSON.
func (a *Args) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Args{}
	for name, value := range raw {
		list, err := decodeArgValue(value)
		if err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
		if name == PositionalKey {
			out.positional = list
			continue
		}
		for _, v := range list {
			out.add(name, v)
		}
	}
	*a = out
	return nil
}

func decodeArgValue(value json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(value, &single); err == nil {
		return []string{single}, nil
	}
	var list []string
	if err := json.Unmarshal(value, &list); err != nil {
		return nil, fmt.Errorf("expected a string or a list of strings")
	}
	return list, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("expected a boolean, got %q", v)
}

// ParseBool accepts true/false, yes/no, y/n, on/off and 1/0.
func ParseBool(v string) (bool, error) {
	return parseBool(v)
}
