package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatwrap/pkg/config"
	"github.com/ccollicutt/chatwrap/pkg/detector"
	"github.com/ccollicutt/chatwrap/pkg/parser"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <export>",
		Short: "Detect the header format of a chat export",
		Long: `Sample a chat export to identify its message header format and
whether its dates are written day-first or month-first.

Detection is informational. Dates are always read month-first, falling back
to day-first only when month-first is not a valid calendar date; detect
reports whether the sampled dates prove either order.

Optionally generates a starter profile with --write-config.

Recognizes:
  - Android exports, 12-hour and 24-hour clocks
  - iOS bracketed exports, 12-hour and 24-hour clocks
  - Dotted European dates

Example:
  chatwrap detect "WhatsApp Chat with Alice.zip"
  chatwrap detect --sample 500 chat.txt
  chatwrap detect --write-config chatwrap.yaml chat.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", config.OutputText, "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 100, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all detected formats, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter profile to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	export := args[0]
	ctx := commandContext(cmd)

	if err := config.ValidateOutput(opts.Output); err != nil {
		return err
	}

	if _, err := os.Stat(export); os.IsNotExist(err) {
		return fmt.Errorf("export not found: %s", export)
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	d := detector.New(
		detector.WithSampleSize(opts.SampleSize),
		detector.WithResolver(parser.NewTimestampResolver(cfg.Location())),
	)

	result, err := d.DetectFromFile(ctx, export)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	out := cmd.OutOrStdout()

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(out, result, export, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case config.OutputJSON:
		return outputDetectJSON(out, result, export, opts)
	default:
		return outputDetectText(out, result, export, opts)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, export string, opts *DetectOptions) error {
	fmt.Fprintln(w, "=== Export Format Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", export)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintf(w, "Header lines: %d\n", result.HeaderLines)
	fmt.Fprintln(w)

	if !result.HasMatch() {
		fmt.Fprintln(w, "No header format detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: The file may not be a chat export, or it uses an uncommon layout.")
		fmt.Fprintln(w, "Each message should start with a line like \"12/24/23, 9:05 PM - Alice: Hello\".")
		return nil
	}

	best := result.BestMatch()
	fmt.Fprintf(w, "Detected Format: %s\n", best.Format.Name)
	fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d lines matched)\n",
		best.Confidence*100, best.MatchCount, result.SampledLines)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sample match:\n  %s\n", best.SampleLine)
	if best.SampleTime.Valid {
		fmt.Fprintf(w, "Parsed as: %s\n", best.SampleTime.Time.Format("2006-01-02 15:04:05 MST"))
	} else {
		fmt.Fprintln(w, "Parsed as: (unresolved)")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Date order: %s (day-first evidence %d, month-first evidence %d)\n",
		result.DateOrder, result.DayFirst, result.MonthFirst)
	if result.AmbiguityNote != "" {
		fmt.Fprintf(w, "WARNING: %s\n", result.AmbiguityNote)
	}
	fmt.Fprintln(w)

	if opts.ShowAll && len(result.Matches) > 1 {
		fmt.Fprintln(w, "--- Alternative formats detected ---")
		for i, m := range result.Matches[1:] {
			fmt.Fprintf(w, "%d. %s (%.1f%% confidence)\n", i+2, m.Format.Name, m.Confidence*100)
			fmt.Fprintf(w, "   pattern: '%s'\n", m.Format.PatternStr)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// JSONMatch represents a format match in JSON output.
type JSONMatch struct {
	Name       string           `json:"name"`
	Pattern    string           `json:"pattern"`
	Confidence float64          `json:"confidence"`
	MatchCount int              `json:"match_count"`
	SampleLine string           `json:"sample_line"`
	SampleTime parser.Timestamp `json:"sample_time"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File          string      `json:"file"`
	Matches       []JSONMatch `json:"matches"`
	SampledLines  int         `json:"sampled_lines"`
	HeaderLines   int         `json:"header_lines"`
	DateOrder     string      `json:"date_order"`
	DayFirst      int         `json:"day_first_evidence"`
	MonthFirst    int         `json:"month_first_evidence"`
	AmbiguityNote string      `json:"ambiguity_note,omitempty"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, export string, opts *DetectOptions) error {
	out := JSONOutput{
		File:          export,
		SampledLines:  result.SampledLines,
		HeaderLines:   result.HeaderLines,
		DateOrder:     string(result.DateOrder),
		DayFirst:      result.DayFirst,
		MonthFirst:    result.MonthFirst,
		AmbiguityNote: result.AmbiguityNote,
		Matches:       make([]JSONMatch, 0),
	}

	matches := result.Matches
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1] // Only show best match
	}

	for _, m := range matches {
		out.Matches = append(out.Matches, JSONMatch{
			Name:       m.Format.Name,
			Pattern:    m.Format.PatternStr,
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			SampleLine: m.SampleLine,
			SampleTime: m.SampleTime,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(out)
}

// writeStarterConfig generates a starter profile for the detected export.
func writeStarterConfig(w io.Writer, result *detector.DetectionResult, export, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if !result.HasMatch() {
		return fmt.Errorf("cannot generate config: no header format detected")
	}

	content := generateStarterConfig(export, result)

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig creates a YAML profile template.
func generateStarterConfig(export string, result *detector.DetectionResult) string {
	absExport := export
	if abs, err := filepath.Abs(export); err == nil {
		absExport = abs
	}

	best := result.BestMatch()

	orderNote := "# Dates are read month-first, then day-first when month-first is invalid."
	if result.AmbiguityNote != "" {
		orderNote = "# " + result.AmbiguityNote
	}

	return fmt.Sprintf(`# chatwrap profile
# Generated by: chatwrap detect %s
# Detected format: %s (%.0f%% confidence)
# Date order: %s
%s

# Zone the export's wall-clock times are read in (IANA name or Local).
timezone: Local

# Report format for analyze (text|json).
output: text

# Number of authors ranked in the text report.
top_authors: 5

server:
  addr: ":8080"
  max_upload_bytes: 33554432

# webhooks:
#   - name: family-chat
#     url: https://hooks.example.com/chatwrap
#     token: ${CHATWRAP_WEBHOOK_TOKEN}
#     trigger: on_success  # on_success | always | never
#     timeout: 10s
`, absExport, best.Format.Name, best.Confidence*100, result.DateOrder, orderNote)
}
