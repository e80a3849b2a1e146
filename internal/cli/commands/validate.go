package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logparse/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <job-file>",
		Short: "Validate a job file and its rules",
		Long: `Validate a logparse job file and its rule file without parsing any log.

Checks:
  - YAML syntax
  - Required fields
  - Charset, webhook and remote settings
  - Rule file syntax and regex validity
  - Log file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	rs, err := loadRules(ctx, cfg)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Rule file:   %s\n", rs.Name())
	fmt.Fprintf(out, "  Rules:       %d\n", rs.Len())
	fmt.Fprintf(out, "  Logs:        %d pattern(s)\n", len(cfg.Logs))
	fmt.Fprintf(out, "  Charset:     %s\n", cfg.Charset)

	fmt.Fprintf(out, "\nRules:\n")
	for i, rule := range rs.Rules() {
		fmt.Fprintf(out, "  %d. [%s] /%s/ %s\n", i+1, rule.Category, rule.Pattern, rule.DisplayLabel())
	}

	if cfg.Remote != nil {
		fmt.Fprintf(out, "\nLogs are read from %s\n", cfg.Remote.URL)
		return nil
	}

	// Check that logs exist (warnings only)
	files, err := resolveExisting(cfg)
	if err != nil {
		fmt.Fprintf(out, "\nWarning: Error expanding log patterns: %v\n", err)
	} else if len(files) == 0 {
		fmt.Fprintf(out, "\nWarning: No files match log patterns\n")
	} else {
		fmt.Fprintf(out, "\nLog files matched: %d\n", len(files))
		for _, f := range files {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}

	return nil
}

// resolveExisting expands local log patterns and keeps the files that exist.
func resolveExisting(cfg *config.Config) ([]string, error) {
	files, _, err := resolveLogs(cfg)
	if err != nil {
		return nil, err
	}

	existing := files[:0]
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	return existing, nil
}
