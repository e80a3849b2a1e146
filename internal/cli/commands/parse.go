package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logparse/internal/logfields"
	"github.com/ccollicutt/logparse/pkg/config"
	"github.com/ccollicutt/logparse/pkg/engine"
	"github.com/ccollicutt/logparse/pkg/metrics"
	"github.com/ccollicutt/logparse/pkg/outcome"
	"github.com/ccollicutt/logparse/pkg/output"
	"github.com/ccollicutt/logparse/pkg/rules"
	"github.com/ccollicutt/logparse/pkg/source"
	"github.com/ccollicutt/logparse/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

var logger = slog.New(slog.DiscardHandler)

// SetLogger sets the logger commands report progress through.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	Output    string
	OutputDir string
	Verbose   bool
	Quiet     bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <job-file>",
		Short: "Classify build logs against a rule file",
		Long: `Classify every log named in the job file against its rule file.

Each line is tagged error, warning, info, debug or left alone, and the log
is collapsed into sections headed by lines matching a start rule. An
annotated HTML copy of each log is written when output_dir is set.

Exit codes:
  0 - Success
  1 - Failure (errors found and fail_on_error set)
  2 - Configuration or runtime error
  3 - Unstable (warnings found and unstable_on_warning set)
  4 - Aborted`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "Write annotated logs here (overrides output_dir)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "List matched lines under each section")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnFailure), "When to fire webhook (on_failure|always|never)")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}

	formatter, err := createFormatter(opts)
	if err != nil {
		return err
	}

	webhooks, err := collectWebhooks(cfg, opts)
	if err != nil {
		return err
	}

	rs, err := loadRules(ctx, cfg)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	logs, opener, err := resolveLogs(cfg)
	if err != nil {
		return fmt.Errorf("resolving logs: %w", err)
	}

	outPaths, err := annotatedPaths(cfg.OutputDir, logs)
	if err != nil {
		return err
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var prom *metrics.PrometheusRecorder
	if cfg.Metrics.Textfile != "" {
		prom = metrics.NewPrometheusRecorder(nil)
		recorder = prom
	}

	j := &job{
		cfg:      cfg,
		rules:    rs,
		opener:   opener,
		recorder: recorder,
		policy: outcome.Policy{
			FailOnError:       cfg.FailOnError,
			UnstableOnWarning: cfg.UnstableOnWarning,
		},
	}
	logReports := j.run(ctx, logs, outPaths)

	report := output.NewReport(logReports, output.Metadata{
		ConfigFile: configPath,
		Rules:      rs.Name(),
		RuleCount:  rs.Len(),
		ParsedAt:   time.Now(),
		Duration:   time.Since(start),
	})
	logger.Info("parse finished",
		logfields.RunID(report.RunID),
		logfields.Status(string(report.Status)),
		logfields.Errors(report.Summary.TotalErrors),
		logfields.Warnings(report.Summary.TotalWarnings))

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Webhook and metrics failures are logged but don't change the verdict
	sendWebhooks(ctx, webhooks, report)

	if prom != nil {
		if err := prom.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("metrics export failed", logfields.Output(cfg.Metrics.Textfile), logfields.Error(err))
		}
	}

	ExitCode = report.Status.ExitCode()
	return nil
}

func createFormatter(opts *ParseOptions) (output.Formatter, error) {
	return output.FormatterFor(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
}

// workspaceOpener serves workspace-relative names, from the remote agent
// when one is configured.
func workspaceOpener(cfg *config.Config) source.Opener {
	if cfg.Remote != nil {
		return source.HTTPOpener{BaseURL: cfg.Remote.URL, Token: cfg.Remote.Token}
	}
	return source.FileOpener{Root: cfg.Workspace}
}

// loadRules reads the rule file from the local filesystem, or from the
// workspace when the rule path is workspace-relative.
func loadRules(ctx context.Context, cfg *config.Config) (*rules.RuleSet, error) {
	var opener source.Opener = source.FileOpener{}
	if cfg.RulesRelativeToWorkspace {
		opener = workspaceOpener(cfg)
	}
	return rules.LoadFrom(ctx, opener, cfg.Rules)
}

// resolveLogs returns the log names to parse and the opener that reads them.
// Globs are only expanded on the local filesystem; remote names are literal.
func resolveLogs(cfg *config.Config) ([]string, source.Opener, error) {
	if cfg.Remote != nil {
		return cfg.Logs, workspaceOpener(cfg), nil
	}

	files, err := source.ExpandGlobs(cfg.Workspace, cfg.Logs)
	if err != nil {
		return nil, nil, err
	}
	// ExpandGlobs already resolved against the workspace.
	return files, source.FileOpener{}, nil
}

// annotatedPaths maps each log to <dir>/<basename>.html, suffixing repeated
// names with -2, -3 and so on until the name is free. An empty dir disables
// annotated output.
func annotatedPaths(dir string, logs []string) ([]string, error) {
	paths := make([]string, len(logs))
	if dir == "" {
		return paths, nil
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	// A generated name like build-2 may collide with a real log basename,
	// so every name handed out is tracked, not just the bases.
	used := make(map[string]bool)
	for i, name := range logs {
		base := filepath.Base(name)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		candidate := base
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		used[candidate] = true
		paths[i] = filepath.Join(dir, candidate+".html")
	}
	return paths, nil
}

// job parses a set of logs against one shared rule set.
type job struct {
	cfg      *config.Config
	rules    *rules.RuleSet
	opener   source.Opener
	recorder metrics.Recorder
	policy   outcome.Policy
}

// run parses logs concurrently, bounded by GOMAXPROCS. Reports are returned
// in input order.
func (j *job) run(ctx context.Context, logs, outPaths []string) []*output.LogReport {
	reports := make([]*output.LogReport, len(logs))
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))

	var wg sync.WaitGroup
	for i, name := range logs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			reports[i] = j.parseLog(ctx, name, outPaths[i])
		}()
	}
	wg.Wait()

	return reports
}

func (j *job) parseLog(ctx context.Context, name, outPath string) *output.LogReport {
	lr := &output.LogReport{Name: name}
	log := logger.With(logfields.Log(name))

	fail := func(err error) *output.LogReport {
		lr.Status = outcome.StatusFailure
		if ctx.Err() != nil {
			lr.Status = outcome.StatusAborted
		}
		lr.Error = err.Error()
		log.Error("log not parsed", logfields.Error(err))
		return lr
	}

	rc, err := j.opener.Open(ctx, name)
	if err != nil {
		return fail(err)
	}
	defer rc.Close()

	var sink io.Writer
	var annotated *os.File
	if outPath != "" {
		annotated, err = os.Create(outPath) // #nosec G304 -- derived from the configured output dir
		if err != nil {
			return fail(fmt.Errorf("creating annotated output: %w", err))
		}
		defer annotated.Close()
		if err := output.WriteAnnotatedHeader(annotated, name); err != nil {
			return fail(fmt.Errorf("writing annotated output: %w", err))
		}
		sink = annotated
	}

	result, err := engine.ClassifyLog(ctx, rc, j.rules, sink, engine.Options{
		PreformattedOutput: j.cfg.PreformattedOutput,
		Charset:            j.cfg.Charset,
		OutputLocation:     outPath,
		MaxMatchedLines:    j.cfg.MaxMatchedLines,
		MaxLineBytes:       j.cfg.MaxLineBytes,
		Recorder:           j.recorder,
		Logger:             log,
	})
	if err != nil {
		return fail(err)
	}

	if annotated != nil {
		if err := output.WriteAnnotatedFooter(annotated); err != nil {
			log.Warn("annotated output incomplete", logfields.Output(outPath), logfields.Error(err))
		}
	}

	lr.Result = result
	lr.Status = j.policy.Decide(result)
	if result.Failed() {
		lr.Error = result.FailureMessage
		log.Warn("log parse stopped early", logfields.Line(result.TotalLines), logfields.Error(result.Failure))
	}

	log.Info("log parsed",
		logfields.Status(string(lr.Status)),
		logfields.Line(result.TotalLines),
		logfields.Errors(result.TotalErrors),
		logfields.Warnings(result.TotalWarnings),
		logfields.Infos(result.TotalInfos))

	return lr
}

// sendWebhooks sends the report to every webhook whose trigger matches.
// Delivery is not cut short by cancellation so an aborted run still notifies.
func sendWebhooks(ctx context.Context, webhooks []config.WebhookConfig, report *output.Report) {
	var targets []webhook.SendOptions
	for _, wh := range webhooks {
		if !shouldFireWebhook(wh.Trigger, report.Succeeded()) {
			continue
		}
		targets = append(targets, webhook.SendOptions{
			Name:    wh.Name,
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
		})
	}

	if len(targets) == 0 {
		return
	}

	webhook.NewClient().SendAll(context.WithoutCancel(ctx), logger, report, targets)
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *ParseOptions) ([]config.WebhookConfig, error) {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		switch trigger {
		case "":
			trigger = config.WebhookTriggerOnFailure
		case config.WebhookTriggerOnFailure, config.WebhookTriggerAlways, config.WebhookTriggerNever:
		default:
			return nil, fmt.Errorf("invalid --webhook-trigger %q (use on_failure, always or never)", opts.WebhookTrigger)
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks, nil
}

// shouldFireWebhook determines if a webhook should fire for a verdict.
func shouldFireWebhook(trigger config.WebhookTrigger, succeeded bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return !succeeded
	}
}
