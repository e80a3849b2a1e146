package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logparse/pkg/config"
	"github.com/ccollicutt/logparse/pkg/rules"
	"github.com/ccollicutt/logparse/pkg/source"
)

// diagnoseSampleLines is how many lines of each log the rule coverage check reads.
const diagnoseSampleLines = 1000

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <job-file>",
		Short: "Diagnose common job and rule issues",
		Long: `Diagnose common job and rule issues.

This command checks your job file for common problems:
- Job file syntax and structure
- Rule file syntax
- Log file existence and accessibility
- Rules that never match a sample of the actual logs
- Webhook configuration

Example:
  logparse diagnose job.yaml
  logparse diagnose -v job.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check job file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse job file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Load rules
	rs, result := checkRuleFile(ctx, cfg)
	results = append(results, result)

	// 4. Check logs
	logs, logResults := checkLogs(ctx, cfg)
	results = append(results, logResults...)

	// 5. Check rule coverage against actual logs
	if rs != nil && len(logs) > 0 {
		results = append(results, checkRuleCoverage(ctx, cfg, rs, logs, opts)...)
	}

	// 6. Check webhooks configuration
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Job File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Job file not found: %s", path)
		result.Suggests = []string{"Check the file path is correct"}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access job file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Job file is empty"
		result.Suggests = []string{"At minimum set rules and logs"}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Job Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse job file: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Job file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Rules: %s", cfg.Rules),
		fmt.Sprintf("Logs: %d pattern(s)", len(cfg.Logs)),
		fmt.Sprintf("Charset: %s", cfg.Charset),
	}
	return cfg, result
}

func checkRuleFile(ctx context.Context, cfg *config.Config) (*rules.RuleSet, DiagnosticResult) {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Rule File: %s", cfg.Rules),
	}

	rs, err := loadRules(ctx, cfg)
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()

		var le *rules.LoadError
		switch {
		case errors.Is(err, rules.ErrUnknownCategory):
			result.Suggests = []string{"Each rule starts with start, error, warning, info, debug or ok"}
		case errors.Is(err, rules.ErrUnterminatedPattern):
			result.Suggests = []string{"Close the pattern with '/' or escape slashes inside it as '\\/'"}
		case errors.As(err, &le) && le.Line == 0:
			if cfg.RulesRelativeToWorkspace {
				result.Suggests = []string{"The rule path is resolved against the workspace"}
			} else {
				result.Suggests = []string{"Check the rule file path is correct"}
			}
		}
		return nil, result
	}

	counts := make(map[rules.Category]int)
	for _, r := range rs.Rules() {
		counts[r.Category]++
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("%d rule(s) loaded", rs.Len())
	for _, c := range rules.Categories {
		if counts[c] > 0 {
			result.Details = append(result.Details, fmt.Sprintf("%s: %d", c, counts[c]))
		}
	}

	if rs.Len() == 0 {
		result.Status = "warning"
		result.Message = "Rule file has no rules; every line will be OK"
	} else if counts[rules.CategoryStart] == 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d rule(s) loaded, none of them start rules", rs.Len())
		result.Suggests = []string{"Without a start rule each log is reported as a single section"}
	}

	return rs, result
}

// checkLogs reports on each log and returns the names that can be opened.
func checkLogs(ctx context.Context, cfg *config.Config) ([]string, []DiagnosticResult) {
	results := []DiagnosticResult{}

	names, opener, err := resolveLogs(cfg)
	if err != nil {
		results = append(results, DiagnosticResult{
			Check:   "Logs",
			Status:  "error",
			Message: fmt.Sprintf("Cannot resolve log patterns: %v", err),
		})
		return nil, results
	}

	var readable []string
	for _, name := range names {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log: %s", name),
		}

		if cfg.Remote == nil {
			info, err := os.Stat(name)
			switch {
			case os.IsNotExist(err):
				result.Status = "error"
				result.Message = "File does not exist"
				result.Suggests = []string{"Check the log path and the workspace setting"}
			case err != nil:
				result.Status = "error"
				result.Message = fmt.Sprintf("Cannot access file: %v", err)
				result.Suggests = []string{"Check file permissions"}
			case info.IsDir():
				result.Status = "error"
				result.Message = "Path is a directory, not a file"
				result.Suggests = []string{"Use a glob pattern such as logs/*.log"}
			case info.Size() == 0:
				result.Status = "warning"
				result.Message = "File is empty (0 bytes)"
			default:
				result.Status = "ok"
				result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
				readable = append(readable, name)
			}
			results = append(results, result)
			continue
		}

		rc, err := opener.Open(ctx, name)
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot fetch from agent: %v", err)
			result.Suggests = []string{"Check remote.url and remote.token"}
		} else {
			_ = rc.Close()
			result.Status = "ok"
			result.Message = "Reachable on agent"
			readable = append(readable, name)
		}
		results = append(results, result)
	}

	if len(readable) == 0 {
		results = append(results, DiagnosticResult{
			Check:    "Logs Summary",
			Status:   "error",
			Message:  "No readable logs found",
			Suggests: []string{"Ensure at least one log exists and is readable"},
		})
	}

	return readable, results
}

// checkRuleCoverage classifies a sample of each log and flags rules that
// never fire. A rule can be dead because an earlier rule always wins.
func checkRuleCoverage(ctx context.Context, cfg *config.Config, rs *rules.RuleSet, logs []string, opts *DiagnoseOptions) []DiagnosticResult {
	_, opener, err := resolveLogs(cfg)
	if err != nil {
		return nil
	}

	hits := make([]int, rs.Len())
	sampled := 0
	for _, name := range logs {
		n, err := sampleRuleHits(ctx, opener, name, cfg.Charset, rs, hits)
		sampled += n
		if err != nil {
			return []DiagnosticResult{{
				Check:   "Rule Coverage",
				Status:  "warning",
				Message: fmt.Sprintf("Cannot sample %s: %v", name, err),
			}}
		}
	}

	result := DiagnosticResult{
		Check: "Rule Coverage",
	}

	var unused []string
	for i, r := range rs.Rules() {
		line := fmt.Sprintf("line %d: %s /%s/ matched %d line(s)", r.Line, r.Category, r.Pattern, hits[i])
		if hits[i] == 0 {
			unused = append(unused, line)
		} else if opts.Verbose {
			result.Details = append(result.Details, line)
		}
	}

	if len(unused) > 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d of %d rule(s) matched nothing in %d sampled line(s)", len(unused), rs.Len(), sampled)
		result.Details = append(result.Details, unused...)
		result.Suggests = []string{
			"Rules are tried in order and the first match wins; an earlier, broader rule may shadow later ones",
		}
		return []DiagnosticResult{result}
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Every rule matched at least once in %d sampled line(s)", sampled)
	return []DiagnosticResult{result}
}

// sampleRuleHits reads up to diagnoseSampleLines lines of a log and adds
// the index of the winning rule for each line to hits.
func sampleRuleHits(ctx context.Context, opener source.Opener, name, charset string, rs *rules.RuleSet, hits []int) (int, error) {
	rc, err := opener.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	lr, err := source.NewLineReader(rc, charset, 0)
	if err != nil {
		return 0, err
	}

	n := 0
	for n < diagnoseSampleLines {
		line, err := lr.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}
		n++
		if m := rs.Match(line.Text); m.Matched() {
			hits[m.RuleIndex]++
		}
	}
	return n, nil
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== logparse Job Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before parsing.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nJob is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nJob looks good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	// config.Load has already validated URLs and triggers.
	for _, wh := range cfg.Webhooks {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", webhookName(wh)),
		}

		if wh.Token == "" && strings.Contains(wh.URL, "token=") {
			result.Status = "warning"
			result.Message = "Token passed in the URL; prefer the token field"
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
		}

		if opts.Verbose {
			result.Details = []string{
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			}
			if wh.Token != "" {
				result.Details = append(result.Details, "Token: configured")
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", webhookName(wh))
			results = append(results, result)
		}
	}

	return results
}

func webhookName(wh config.WebhookConfig) string {
	if wh.Name != "" {
		return wh.Name
	}
	return wh.URL
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}
