package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/deepnoodle-ai/pipeshell"
	"github.com/deepnoodle-ai/pipeshell/commands"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const programName = "pipeshell"

// app holds what every subcommand needs once configuration is resolved.
type app struct {
	streams  streams
	environ  []string
	settings Settings
	logger   *slog.Logger
	registry *pipeshell.Registry

	configFile  string
	logLevel    string
	logFormat   string
	stageLogDir string
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, s streams) int {
	a := &app{streams: s, environ: os.Environ()}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	// The failure happened before a presenter was reached: bad flags,
	// configuration or arguments. It still gets reported in the requested mode.
	var setupErr *setupError
	if !errors.As(err, &setupErr) {
		err = &pipeshell.UsageError{Err: err}
	}
	return a.presenter(requestedMode(cmd, args)).Fail(err)
}

// setupError marks a configuration failure, which is a runtime error rather
// than a usage error.
type setupError struct {
	err error
}

func (e *setupError) Error() string { return e.err.Error() }
func (e *setupError) Unwrap() error { return e.err }

// requestedMode returns the --mode the caller asked for, falling back to
// scanning the raw arguments when flag parsing did not get that far.
func requestedMode(cmd *cobra.Command, args []string) pipeshell.Mode {
	value := ""
	if cmd != nil {
		if f := cmd.Flags().Lookup("mode"); f != nil && f.Changed {
			value = f.Value.String()
		}
	}
	if value == "" {
	scan:
		for i, arg := range args {
			switch {
			case arg == "--":
				break scan
			case arg == "--mode" && i+1 < len(args):
				value = args[i+1]
			case strings.HasPrefix(arg, "--mode="):
				value = strings.TrimPrefix(arg, "--mode=")
			}
		}
	}
	mode, err := pipeshell.ParseMode(value)
	if err != nil {
		return pipeshell.ModeHuman
	}
	return mode
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   programName,
		Short: "Run typed command pipelines",
		Long: `pipeshell runs pipelines of typed commands joined with "|".

Items flow between stages as structured values. A stage may halt the
pipeline and ask for approval; the run then prints a resume token that
continues the pipeline later, in this or another process.

Examples:
  pipeshell run 'exec --json "echo [1,2,3]" | json'
  pipeshell run --mode tool 'emit 1 2 | approve --prompt "ship it?"'
  pipeshell resume --approve yes --token <token>`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return &setupError{err: err}
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/pipeshell/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	root.PersistentFlags().StringVar(&a.stageLogDir, "stage-log-dir", "", "directory for per-run stage logs")

	root.AddCommand(a.runCommand(), a.resumeCommand(), a.commandsCommand())
	root.SetHelpCommand(a.helpCommand(root))
	return root
}

// setup resolves configuration and builds the logger and registry.
func (a *app) setup(cmd *cobra.Command) error {
	settings, err := loadSettings(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	level, err := pipeshell.ParseLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	switch strings.ToLower(settings.LogFormat) {
	case "", "text":
		a.logger = pipeshell.NewLogger(a.streams.err, level)
	case "json":
		a.logger = pipeshell.NewJSONLogger(a.streams.err, level)
	default:
		return fmt.Errorf("unknown log format %q", settings.LogFormat)
	}
	a.settings = settings
	a.registry, err = commands.NewRegistry(commands.Options{
		HTTPTimeout: settings.HTTP.Timeout,
		HTTPRetries: settings.HTTP.Retries,
	})
	return err
}

func (a *app) presenter(mode pipeshell.Mode) *pipeshell.Presenter {
	return &pipeshell.Presenter{
		Mode:    mode,
		Stdout:  a.streams.out,
		Stderr:  a.streams.err,
		Codec:   pipeshell.NewTokenCodec([]byte(a.settings.TokenSecret)),
		Program: programName,
	}
}

func (a *app) newExecution(p pipeshell.Pipeline, mode pipeshell.Mode) (*pipeshell.Execution, error) {
	opts := pipeshell.ExecutionOptions{
		Pipeline: p,
		Registry: a.registry,
		Env:      pipeshell.EnvFromList(a.environ),
		Mode:     mode,
		Logger:   a.logger,
		Stdout:   a.streams.out,
		Stderr:   a.streams.err,
	}
	if a.settings.StageLogDir != "" {
		opts.StageLogger = pipeshell.NewFileStageLogger(a.settings.StageLogDir)
	}
	if mode == pipeshell.ModeHuman && a.streams.interactive {
		opts.Prompter = newTerminalPrompter(a.streams.in, a.streams.err)
	}
	return pipeshell.NewExecution(opts)
}

func (a *app) runCommand() *cobra.Command {
	var modeName, file string
	cmd := &cobra.Command{
		Use:   "run [--mode human|tool] [--file pipeline.yaml] <pipeline...>",
		Short: "Run a pipeline",
		Long: `Run a pipeline. The remaining arguments are joined with spaces and parsed
as one pipeline, so quote it as a single argument when it contains "|".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := pipeshell.ParseMode(modeName)
			if err != nil {
				return err
			}
			presenter := a.presenter(mode)

			var p pipeshell.Pipeline
			switch {
			case file != "" && len(args) > 0:
				return fmt.Errorf("give either --file or a pipeline, not both")
			case file != "":
				var def *pipeshell.PipelineDefinition
				def, p, err = pipeshell.LoadPipelineFile(file)
				if err == nil {
					a.logger.Debug("loaded pipeline file", "file", file, "name", def.Name)
				}
			default:
				p, err = pipeshell.ParsePipeline(strings.Join(args, " "))
			}
			if err != nil {
				return exitCode(presenter.Fail(err))
			}

			execution, err := a.newExecution(p, mode)
			if err != nil {
				return exitCode(presenter.Fail(err))
			}
			result, err := execution.Run(cmd.Context())
			if err != nil {
				return exitCode(presenter.Fail(err))
			}
			return exitCode(presenter.Result(result))
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&modeName, "mode", string(pipeshell.ModeHuman), "output mode: human or tool")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the pipeline from a YAML file")
	return cmd
}

func (a *app) resumeCommand() *cobra.Command {
	var modeName, token, approve string
	cmd := &cobra.Command{
		Use:   "resume --token TOKEN --approve yes|no [--mode human|tool]",
		Short: "Continue a pipeline that halted for approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := pipeshell.ParseMode(modeName)
			if err != nil {
				return err
			}
			presenter := a.presenter(mode)

			cont, err := presenter.Codec.Decode(token)
			if err != nil {
				return exitCode(presenter.Fail(err))
			}
			if approve == "" {
				return exitCode(presenter.Fail(&pipeshell.UsageError{Err: errors.New("--approve yes|no is required")}))
			}
			approved, err := pipeshell.ParseBool(approve)
			if err != nil {
				return exitCode(presenter.Fail(&pipeshell.UsageError{Err: fmt.Errorf("--approve: %w", err)}))
			}
			if !approved {
				a.logger.Info("resume declined", "resume_at", cont.ResumeAtIndex)
				return exitCode(presenter.Cancelled())
			}

			execution, err := a.newExecution(nil, mode)
			if err != nil {
				return exitCode(presenter.Fail(err))
			}
			result, err := execution.Resume(cmd.Context(), cont)
			if err != nil {
				return exitCode(presenter.Fail(err))
			}
			return exitCode(presenter.Result(result))
		},
	}
	cmd.Flags().StringVar(&modeName, "mode", string(pipeshell.ModeHuman), "output mode: human or tool")
	cmd.Flags().StringVar(&token, "token", "", "resume token printed by the halted run")
	cmd.Flags().StringVar(&approve, "approve", "", "yes to continue, no to cancel")
	return cmd
}

func (a *app) commandsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the available pipeline commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writeCommandList(cmd.OutOrStdout(), a.registry)
			return nil
		},
	}
}

func (a *app) helpCommand(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "help [command]",
		Short: "Show help for pipeshell or a pipeline command",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				if err := root.Usage(); err != nil {
					return err
				}
				fmt.Fprintln(out)
				writeCommandList(out, a.registry)
				return nil
			}
			if c, ok := a.registry.Get(args[0]); ok {
				fmt.Fprintln(out, strings.TrimRight(c.Help(), "\n"))
				return nil
			}
			if sub, _, err := root.Find(args); err == nil && sub != root {
				return sub.Help()
			}
			return &pipeshell.UnknownCommandError{Name: args[0]}
		},
	}
}

func writeCommandList(w io.Writer, registry *pipeshell.Registry) {
	names := registry.Names()
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "Pipeline commands:")
	for _, name := range names {
		c, _ := registry.Get(name)
		bold.Fprintf(w, "  %-*s", width, name)
		fmt.Fprintf(w, "  %s\n", pipeshell.Summary(c))
	}
}
