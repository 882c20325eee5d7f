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

	"github.com/ccollicutt/chatwrap/pkg/analyzer"
	"github.com/ccollicutt/chatwrap/pkg/config"
	"github.com/ccollicutt/chatwrap/pkg/detector"
	"github.com/ccollicutt/chatwrap/pkg/parser"
)

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
		Use:   "diagnose <export>",
		Short: "Diagnose why an export produces poor results",
		Long: `Diagnose common problems with a chat export and profile.

This command checks:
- The profile given with --config, if any
- Export file existence and readability (.txt, .zip, .gz)
- Header format and date order of the first lines
- Parse quality: dropped lines and unresolved timestamps
- Webhook configuration (and connectivity with -v)

Example:
  chatwrap diagnose chat.txt
  chatwrap --config chatwrap.yaml diagnose -v chat.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(commandContext(cmd), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, exportPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Profile
	cfg, result := checkProfile(ctx, settings.GetString(KeyConfig))
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Export file
	result = checkExportExists(exportPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	text, result := checkExportReadable(exportPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Header format and date order
	results = append(results, checkHeaders(text, cfg, opts)...)

	// 4. Parse quality
	results = append(results, checkParseQuality(text, cfg, opts))

	// 5. Webhooks
	results = append(results, checkWebhooks(ctx, cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkProfile(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Profile",
	}

	if path == "" {
		cfg, err := loadConfig(ctx)
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Invalid settings: %v", err)
			return nil, result
		}
		result.Status = "ok"
		result.Message = "No profile given, using defaults"
		result.Details = []string{fmt.Sprintf("Timezone: %s", cfg.Location())}
		return cfg, result
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'chatwrap detect <export> --write-config chatwrap.yaml' to generate a starter profile",
		}
		return nil, result
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return nil, result
	case info.IsDir():
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return nil, result
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		if strings.Contains(err.Error(), "timezone") {
			result.Suggests = []string{
				"Use an IANA zone name such as Europe/Berlin, or Local",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Timezone: %s", cfg.Location()),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

func checkExportExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Export File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Export not found: %s", path)
		result.Suggests = []string{"Check the file path is correct"}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access export: %v", err)
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
		result.Message = "Export is empty (0 bytes)"
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkExportReadable(path string) (string, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Export Contents",
	}

	text, err := parser.ReadExport(path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot read export: %v", err)
		switch {
		case errors.Is(err, parser.ErrNoChatFile):
			result.Suggests = []string{"The archive should contain the chat as a .txt file"}
		case errors.Is(err, parser.ErrExportTooLarge):
			result.Suggests = []string{fmt.Sprintf("Exports are limited to %d bytes", parser.MaxExportSize)}
		}
		return "", result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Read %d bytes of chat text", len(text))
	return text, result
}

func checkHeaders(text string, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	d := detector.New(
		detector.WithSampleSize(20),
		detector.WithResolver(parser.NewTimestampResolver(cfg.Location())),
	)
	det := d.DetectFromText(text)

	result := DiagnosticResult{
		Check: "Header Format",
	}

	best := det.BestMatch()
	switch {
	case best == nil:
		result.Status = "error"
		result.Message = "No message headers found in the first lines"
		result.Suggests = []string{
			"Each message should start with a line like \"12/24/23, 9:05 PM - Alice: Hello\"",
			"Export the chat again from the phone without editing it",
		}
		if det.SampledLines > 0 {
			first := strings.SplitN(strings.TrimLeft(text, "\r\n"), "\n", 2)[0]
			result.Details = []string{"First line:", truncate(first, 80)}
		}
	case best.Confidence < 0.5:
		result.Status = "warning"
		result.Message = fmt.Sprintf("%s, but only %d/%d sample lines are headers", best.Format.Name, best.MatchCount, det.SampledLines)
		result.Details = []string{"Sample match:", truncate(best.SampleLine, 80)}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("%s (%d/%d sample lines)", best.Format.Name, best.MatchCount, det.SampledLines)
		if opts.Verbose {
			result.Details = []string{"Sample match:", truncate(best.SampleLine, 80)}
		}
	}
	results = append(results, result)

	if best == nil {
		return results
	}

	order := DiagnosticResult{
		Check:   "Date Order",
		Message: string(det.DateOrder),
		Details: []string{
			fmt.Sprintf("Day-first evidence: %d", det.DayFirst),
			fmt.Sprintf("Month-first evidence: %d", det.MonthFirst),
		},
	}
	switch det.DateOrder {
	case detector.DateOrderConflicting, detector.DateOrderAmbiguous:
		order.Status = "warning"
		order.Suggests = []string{det.AmbiguityNote}
	default:
		order.Status = "ok"
	}
	results = append(results, order)

	return results
}

func checkParseQuality(text string, cfg *config.Config, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Parse Quality",
	}

	p := parser.New(parser.WithLocation(cfg.Location()))
	stats, res, err := analyzer.Summarize(text, p)

	result.Details = []string{
		fmt.Sprintf("Lines: %d", res.Lines),
		fmt.Sprintf("Messages: %d", len(res.Messages)),
		fmt.Sprintf("Continuations: %d", res.Continuations),
		fmt.Sprintf("System notices: %d", res.SystemNotices),
		fmt.Sprintf("Dropped lines: %d", res.Dropped),
		fmt.Sprintf("Unresolved timestamps: %d", res.Unresolved),
	}

	switch {
	case errors.Is(err, parser.ErrNoMessages):
		result.Status = "error"
		result.Message = "No messages could be parsed"
		result.Suggests = []string{"Run 'chatwrap detect' on the export to see which lines are recognized"}
	case errors.Is(err, analyzer.ErrNoTimestamps):
		result.Status = "error"
		result.Message = fmt.Sprintf("%d messages parsed but none has a valid timestamp", len(res.Messages))
		result.Suggests = []string{"Dates must be valid calendar dates read month-first or day-first"}
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Analysis failed: %v", err)
	case res.Unresolved > 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d messages analyzed, %d left out with unresolved timestamps",
			stats.TotalMessages, res.Unresolved)
		result.Suggests = []string{"Messages with unresolved timestamps are left out of every statistic"}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("%d messages from %d authors", stats.TotalMessages, len(stats.Authors))
		if !opts.Verbose {
			result.Details = nil
		}
	}

	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== chatwrap Export Diagnostics ===")
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
		fmt.Fprintln(w, "\nFix the errors above before running analysis.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nExport is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nExport looks good!")
	}
}

func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check:   fmt.Sprintf("Webhook: %s", name),
			Status:  "ok",
			Message: fmt.Sprintf("Trigger: %s", wh.Trigger),
		}
		if wh.Trigger == config.WebhookTriggerNever {
			result.Status = "warning"
			result.Message = "Trigger is never; this webhook will not fire"
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

		if opts.Verbose {
			conn := checkWebhookConnectivity(ctx, wh)
			conn.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, conn)
		}
	}

	return results
}

func checkWebhookConnectivity(ctx context.Context, wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, wh.URL, nil)
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

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
