package pipeshell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func noop(name string) Command {
	return NewCommand(name, "Does nothing.\n\nMore detail.", func(ctx Context, input Stream, args Args) (*Output, error) {
		return Pass(input), nil
	})
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(noop("b"), noop("a"))
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())
	require.Equal(t, []string{"a", "b"}, r.Names())

	cmd, ok := r.Get("a")
	require.True(t, ok)
	require.Equal(t, "a", cmd.Name())
	require.Equal(t, "Does nothing.", Summary(cmd))

	_, ok = r.Get("missing")
	require.False(t, ok)

	names := r.Names()
	names[0] = "changed"
	require.Equal(t, []string{"a", "b"}, r.Names())
}

func TestRegistryRejectsBadCommands(t *testing.T) {
	_, err := NewRegistry(noop("a"), noop("a"))
	require.EqualError(t, err, `duplicate command "a"`)

	_, err = NewRegistry(noop(" "))
	require.EqualError(t, err, "command name required")

	_, err = NewRegistry(nil)
	require.EqualError(t, err, "nil command")

	require.Panics(t, func() { MustRegistry(noop("")) })
}
