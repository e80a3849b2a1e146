// Package cli provides the command-line interface for logparse.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logparse/internal/cli/commands"
	"github.com/ccollicutt/logparse/pkg/config"
)

// GlobalOptions holds flags shared by every command.
type GlobalOptions struct {
	LogLevel  string
	LogFormat string
	EnvFile   string
}

// Execute runs the root command and returns the exit code. SIGINT and
// SIGTERM cancel the run; a cancelled parse reports ABORTED.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	opts := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "logparse",
		Short: "Classify build logs with a rule file",
		Long: `logparse classifies build console logs line by line against an ordered
rule file, collapses them into sections, and reports error, warning, info
and debug counts along with an annotated HTML copy of each log.

A rule file holds one rule per line:

  # comment
  start   /^=== (.*) ===$/  Stage
  ok      /expected failure/
  error   /ERROR:/          Errors
  warning /WARN(ING)?:/
  info    /^INFO /

The first matching rule wins; unmatched lines are left alone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd.ErrOrStderr(), opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "Diagnostic log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "Diagnostic log format (text|json)")
	rootCmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "Load environment variables from a dotenv file")

	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}

// setup loads the env file and installs the diagnostic logger.
func setup(stderr io.Writer, opts *GlobalOptions) error {
	if opts.EnvFile != "" {
		if err := config.LoadEnvFile(opts.EnvFile); err != nil {
			return err
		}
	}

	logger, err := newLogger(stderr, opts.LogLevel, opts.LogFormat)
	if err != nil {
		return err
	}
	commands.SetLogger(logger)
	return nil
}

// newLogger builds the slog logger diagnostics are written through.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q (use text or json)", format)
	}
}
