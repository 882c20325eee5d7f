// Package output provides report assembly and formatting for chat statistics.
package output

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash"
	"github.com/google/uuid"

	"github.com/ccollicutt/chatwrap/pkg/analyzer"
	"github.com/ccollicutt/chatwrap/pkg/parser"
)

// Report is the complete analysis output for one export.
type Report struct {
	// Summary provides the headline numbers.
	Summary Summary `json:"summary"`

	// Stats is the full aggregate. Nil when no statistics could be produced.
	Stats *analyzer.Stats `json:"stats"`

	// Parse holds the parser's line counters.
	Parse *parser.Result `json:"parse,omitempty"`

	// Error explains why Stats is nil.
	Error string `json:"error,omitempty"`

	// Metadata provides context about the analysis.
	Metadata Metadata `json:"metadata"`
}

// Summary provides the headline numbers shown in quiet mode.
type Summary struct {
	TotalMessages  int    `json:"totalMessages"`
	Authors        int    `json:"authors"`
	DurationDays   int    `json:"durationDays"`
	MessagesPerDay int    `json:"messagesPerDay"`
	PeakHour       int    `json:"peakHour"`
	TopAuthor      string `json:"topAuthor,omitempty"`
	TopEmoji       string `json:"topEmoji,omitempty"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// RunID identifies this analysis run.
	RunID string `json:"runId"`

	// Source is the export file name or upload label.
	Source string `json:"source"`

	// Digest is the xxhash64 of the export text, hex encoded.
	Digest string `json:"digest"`

	// Timezone is the zone wall-clock times were read in.
	Timezone string `json:"timezone"`

	// AnalyzedAt is when the analysis was performed.
	AnalyzedAt time.Time `json:"analyzedAt"`

	// Duration is how long the analysis took.
	Duration time.Duration `json:"duration"`
}

// NewMetadata describes a run over text read from source. started is when
// the run began; the duration is measured up to now.
func NewMetadata(source, text string, loc *time.Location, started time.Time) Metadata {
	if loc == nil {
		loc = time.Local
	}
	now := time.Now()
	return Metadata{
		RunID:      uuid.NewString(),
		Source:     source,
		Digest:     Digest(text),
		Timezone:   loc.String(),
		AnalyzedAt: now,
		Duration:   now.Sub(started),
	}
}

// Digest fingerprints export text so repeated uploads can be recognized.
func Digest(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// NewReport creates a Report from analysis results. stats may be nil when
// analysis failed; analysisErr then explains why.
func NewReport(stats *analyzer.Stats, res *parser.Result, analysisErr error, meta Metadata) *Report {
	report := &Report{
		Stats:    stats,
		Parse:    res,
		Metadata: meta,
	}
	if analysisErr != nil {
		report.Error = analysisErr.Error()
	}
	if stats == nil {
		return report
	}

	report.Summary = Summary{
		TotalMessages:  stats.TotalMessages,
		Authors:        len(stats.Authors),
		DurationDays:   stats.DurationDays,
		MessagesPerDay: stats.MessagesPerDay(),
		PeakHour:       stats.PeakHour(),
	}
	if len(stats.Authors) > 0 {
		report.Summary.TopAuthor = stats.Authors[0].Name
	}
	if len(stats.TopEmojis) > 0 {
		report.Summary.TopEmoji = stats.TopEmojis[0].Emoji
	}

	return report
}

// HasStats returns true if the run produced statistics.
func (r *Report) HasStats() bool {
	return r.Stats != nil
}
