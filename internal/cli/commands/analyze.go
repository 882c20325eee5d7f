package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatwrap/pkg/analyzer"
	"github.com/ccollicutt/chatwrap/pkg/config"
	"github.com/ccollicutt/chatwrap/pkg/output"
	"github.com/ccollicutt/chatwrap/pkg/parser"
	"github.com/ccollicutt/chatwrap/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	Output  string
	Verbose bool
	Quiet   bool
	Top     int

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <export>...",
		Short: "Summarize a chat export",
		Long: `Parse one or more chat exports and print a summary for each.

Exports may be plain .txt files, the .zip archives phones produce, or .gz
files. Glob patterns are expanded.

The summary covers:
  - Total messages and messages per day
  - Most active authors
  - Busiest hour of the day
  - Most used emoji

Exit codes:
  0 - Statistics produced for every export
  1 - No statistics could be produced for at least one export
  2 - Configuration or runtime error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output format (text|json, default from config)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show parse counters and run metadata")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().IntVar(&opts.Top, "top", 0, "Number of authors to rank (default from config)")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnSuccess), "When to fire webhook (on_success|always|never)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	ctx := commandContext(cmd)

	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	formatter, err := createFormatter(cfg, opts)
	if err != nil {
		return err
	}

	webhooks, err := collectWebhooks(cfg, opts)
	if err != nil {
		return err
	}

	files, err := parser.ExpandGlobs(args)
	if err != nil {
		return fmt.Errorf("expanding exports: %w", err)
	}

	p := parser.New(parser.WithLocation(cfg.Location()))
	client := webhook.NewClient()

	for _, file := range files {
		started := time.Now()

		text, err := parser.ReadExport(file)
		if err != nil {
			return err
		}

		stats, res, analysisErr := analyzer.Summarize(text, p)
		report := output.NewReport(stats, res, analysisErr, output.NewMetadata(file, text, cfg.Location(), started))

		logger.Debug().
			Str("export", file).
			Str("run_id", report.Metadata.RunID).
			Int("lines", res.Lines).
			Int("messages", len(res.Messages)).
			Int("dropped", res.Dropped).
			Int("unresolved", res.Unresolved).
			Msg("parsed export")

		if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("formatting output: %w", err)
		}

		// Webhook failures are logged but don't fail the analysis
		sendWebhooks(ctx, client, webhooks, report, logger)

		if !report.HasStats() {
			logger.Warn().Str("export", file).Err(analysisErr).Msg("no statistics produced")
			ExitCode = 1
		}
	}

	return nil
}

func createFormatter(cfg *config.Config, opts *AnalyzeOptions) (output.Formatter, error) {
	name := opts.Output
	if name == "" {
		name = cfg.Output
	}

	top := opts.Top
	if top <= 0 {
		top = cfg.TopAuthors
	}

	return output.NewFormatter(name, output.FormatOptions{
		Verbose:    opts.Verbose,
		Quiet:      opts.Quiet,
		TopAuthors: top,
	})
}

// sendWebhooks sends the report to every webhook whose trigger matches.
func sendWebhooks(ctx context.Context, client *webhook.Client, hooks []config.WebhookConfig, report *output.Report, logger zerolog.Logger) {
	if len(hooks) == 0 {
		return
	}

	for _, d := range client.Dispatch(ctx, hooks, report) {
		if d.Response.Success() {
			logger.Info().
				Str("webhook", d.Name).
				Int("status", d.Response.StatusCode).
				Dur("took", d.Response.Duration).
				Msg("webhook sent")
		} else {
			logger.Warn().Str("webhook", d.Name).Err(d.Response.Error).Msg("webhook failed")
		}
	}
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *AnalyzeOptions) ([]config.WebhookConfig, error) {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		wh := config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
		}
		if err := config.ValidateWebhook(&wh); err != nil {
			return nil, fmt.Errorf("webhook flags: %w", err)
		}
		webhooks = append(webhooks, wh)
	}

	return webhooks, nil
}
