package commands

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/pipeshell"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

const execHelp = `Run a shell command and emit its output.

Usage: exec [--json] [--stdin] <command...>

The command runs in an embedded POSIX shell with the pipeline environment.
Without --json every line of stdout becomes a string item. With --json
stdout is decoded as one or more JSON values and top-level arrays are
flattened into their elements. With --stdin the input items are written to
the command's stdin, one per line.`

// ExecCommand runs shell scripts through an embedded interpreter.
type ExecCommand struct{}

func NewExecCommand() pipeshell.Command {
	return &ExecCommand{}
}

func (c *ExecCommand) Name() string {
	return "exec"
}

func (c *ExecCommand) Help() string {
	return execHelp
}

func (c *ExecCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	asJSON, spill := args.Switch("json")
	withStdin, stdinSpill := args.Switch("stdin")
	if spill != "" && stdinSpill != "" {
		return nil, fmt.Errorf("--json and --stdin take no value")
	}
	if spill == "" {
		spill = stdinSpill
	}
	source := words(spill, args)
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("a shell command is required")
	}
	file, err := syntax.NewParser().Parse(strings.NewReader(source), "exec")
	if err != nil {
		return nil, fmt.Errorf("invalid shell command: %w", err)
	}

	items := func(yield func(pipeshell.Item, error) bool) {
		var stdin bytes.Buffer
		if withStdin {
			for item, err := range input {
				if err != nil {
					yield(nil, err)
					return
				}
				line, err := itemText(item)
				if err != nil {
					yield(nil, err)
					return
				}
				stdin.WriteString(line)
				stdin.WriteByte('\n')
			}
		}

		stdout, err := c.execute(ctx, file, &stdin)
		if err != nil {
			yield(nil, err)
			return
		}
		var out []pipeshell.Item
		if asJSON {
			if out, err = decodeValues(stdout); err != nil {
				yield(nil, fmt.Errorf("command output: %w", err))
				return
			}
		} else {
			out = splitLines(stdout)
		}
		for _, item := range out {
			if !yield(item, nil) {
				return
			}
		}
	}
	return &pipeshell.Output{Items: items}, nil
}

func (c *ExecCommand) execute(ctx pipeshell.Context, file *syntax.File, stdin *bytes.Buffer) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.StdIO(stdin, &stdout, &stderr),
		interp.Env(expand.ListEnviron(ctx.Env().Environ()...)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create shell: %w", err)
	}
	ctx.Logger().Debug("running shell command", "bytes_in", stdin.Len())
	runErr := runner.Run(ctx, file)
	if stderr.Len() > 0 {
		ctx.Stderr().Write(stderr.Bytes())
	}
	if runErr != nil {
		var status interp.ExitStatus
		if errors.As(runErr, &status) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				return nil, fmt.Errorf("command exited with status %d", uint8(status))
			}
			return nil, fmt.Errorf("command exited with status %d: %s", uint8(status), msg)
		}
		return nil, fmt.Errorf("command failed: %w", runErr)
	}
	return stdout.Bytes(), nil
}

func splitLines(data []byte) []pipeshell.Item {
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return []pipeshell.Item{}
	}
	lines := strings.Split(text, "\n")
	items := make([]pipeshell.Item, len(lines))
	for i, line := range lines {
		items[i] = strings.TrimSuffix(line, "\r")
	}
	return items
}
