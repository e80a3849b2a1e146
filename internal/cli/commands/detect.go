package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logparse/pkg/detector"
	"github.com/ccollicutt/logparse/pkg/source"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output     string
	SampleSize int
	Charset    string
	ShowAll    bool
	WriteRules string
	WriteJob   string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>",
		Short: "Detect the build tool that wrote a log and suggest rules",
		Long: `Sample a build log to recognise the tool that produced it and print a
starter rule file for it.

Optionally writes the rule file with --write-rules and a job file that uses
it with --write-job.

Recognises:
  - Maven
  - Gradle
  - Jenkins Pipeline
  - go test
  - npm
  - make and GCC/Clang diagnostics

Example:
  logparse detect console.log
  logparse detect --sample 2000 console.log
  logparse detect --write-rules build.rules --write-job job.yaml console.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 500, "Number of lines to sample")
	cmd.Flags().StringVar(&opts.Charset, "charset", source.DefaultCharset, "Charset of the log")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all detected formats, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteRules, "write-rules", "w", "", "Write starter rules to file (will not overwrite)")
	cmd.Flags().StringVar(&opts.WriteJob, "write-job", "", "Write a starter job file using the rules (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if opts.WriteJob != "" && opts.WriteRules == "" {
		return fmt.Errorf("--write-job needs --write-rules")
	}

	rc, err := source.FileOpener{}.Open(ctx, logFile)
	if err != nil {
		return fmt.Errorf("log file not found: %w", err)
	}
	defer rc.Close()

	d := detector.New(detector.WithSampleSize(opts.SampleSize))
	result, err := d.DetectFromReader(ctx, rc, opts.Charset)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if opts.WriteRules != "" {
		if err := writeNewFile(opts.WriteRules, result.StarterRules()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote starter rules to: %s\n", opts.WriteRules)
	}
	if opts.WriteJob != "" {
		if err := writeNewFile(opts.WriteJob, generateStarterJob(logFile, opts.WriteRules, opts.Charset)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote starter job to: %s\n", opts.WriteJob)
	}
	if opts.WriteRules != "" {
		fmt.Fprintln(out)
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(out, result, logFile, opts)
	default:
		return outputDetectText(out, result, logFile, opts)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	fmt.Fprintln(w, "=== Build Log Format Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintln(w)

	if !result.HasMatch() {
		fmt.Fprintln(w, "No known build tool format detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: start from the generic rules below and add patterns for your tool.")
	} else {
		best := result.BestMatch()
		fmt.Fprintf(w, "Detected Format: %s\n", best.Format.Name)
		fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d lines matched)\n",
			best.Confidence*100, best.MatchCount, result.SampledLines)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Sample match:\n  %s\n", best.SampleLine)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "--- Starter rules (copy to your rule file) ---")
	fmt.Fprintln(w)
	fmt.Fprint(w, result.StarterRules())
	fmt.Fprintln(w)

	if opts.ShowAll && len(result.Matches) > 1 {
		fmt.Fprintln(w, "--- Alternative formats detected ---")
		for i, m := range result.Matches[1:] {
			fmt.Fprintf(w, "%d. %s (%.1f%% confidence)\n", i+2, m.Format.Name, m.Confidence*100)
			fmt.Fprintf(w, "   signature: '%s'\n", m.Format.PatternStr)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// JSONMatch represents a format match in JSON output.
type JSONMatch struct {
	Name       string  `json:"name"`
	Signature  string  `json:"signature"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
	SampleLine string  `json:"sample_line"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File         string      `json:"file"`
	Matches      []JSONMatch `json:"matches"`
	SampledLines int         `json:"sampled_lines"`
	StarterRules string      `json:"starter_rules"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	output := JSONOutput{
		File:         logFile,
		SampledLines: result.SampledLines,
		StarterRules: result.StarterRules(),
		Matches:      make([]JSONMatch, 0),
	}

	matches := result.Matches
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1] // Only show best match
	}

	for _, m := range matches {
		output.Matches = append(output.Matches, JSONMatch{
			Name:       m.Format.Name,
			Signature:  m.Format.PatternStr,
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			SampleLine: m.SampleLine,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// writeNewFile writes content to path, refusing to overwrite.
func writeNewFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s (will not overwrite)", path)
	}

	// #nosec G306 - rule and job files don't need restrictive permissions
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// generateStarterJob creates a YAML job template for one log.
func generateStarterJob(logFile, rulesFile, charset string) string {
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}
	absRules := rulesFile
	if abs, err := filepath.Abs(rulesFile); err == nil {
		absRules = abs
	}

	return fmt.Sprintf(`# logparse job
# Generated by: logparse detect

rules: %s

logs:
  - %s
  # Add more logs or use globs:
  # - logs/*.log

charset: %s

# Annotated HTML copies of each log
output_dir: logparse-out

# Outcome policy
fail_on_error: true
unstable_on_warning: false

# webhooks:
#   - name: team-chat
#     url: https://hooks.example.com/ci
#     token: ${CI_WEBHOOK_TOKEN}
#     trigger: on_failure
`, absRules, absLogFile, charset)
}
