package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ccollicutt/chatwrap/pkg/analyzer"
)

const (
	dateLayout = "Jan 2, 2006"
	barWidth   = 20
)

// sparks are the eight block heights used for the hour chart.
var sparks = []rune("▁▂▃▄▅▆▇█")

// TextFormatter renders a report as a sequence of slides: intro, totals,
// authors, time of day, emoji and a closing line.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	if opts.TopAuthors <= 0 {
		opts.TopAuthors = 5
	}
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	if !report.HasStats() {
		_, err := fmt.Fprintf(w, "chatwrap: %s: %s\n", report.Metadata.Source, report.Error)
		return err
	}
	s := report.Summary
	_, err := fmt.Fprintf(w, "chatwrap: %s: %d messages from %d authors over %d days, busiest at %s\n",
		report.Metadata.Source, s.TotalMessages, s.Authors, s.DurationDays, FormatHour(s.PeakHour))
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	var b strings.Builder

	if !report.HasStats() {
		fmt.Fprintf(&b, "=== %s ===\n", report.Metadata.Source)
		fmt.Fprintf(&b, "No statistics: %s\n", report.Error)
		f.writeDetails(&b, report)
		_, err := io.WriteString(w, b.String())
		return err
	}

	stats := report.Stats
	slides := []func(*strings.Builder, *analyzer.Stats){
		f.introSlide,
		f.totalSlide,
		f.authorsSlide,
		f.timeSlide,
		f.emojiSlide,
		f.conclusionSlide,
	}
	for i, slide := range slides {
		if i > 0 {
			b.WriteString("\n")
		}
		slide(&b, stats)
	}
	f.writeDetails(&b, report)

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *TextFormatter) introSlide(b *strings.Builder, s *analyzer.Stats) {
	b.WriteString("=== Your Chat Wrapped ===\n")
	fmt.Fprintf(b, "From %s to %s\n", s.FirstDate.Format(dateLayout), s.LastDate.Format(dateLayout))
}

func (f *TextFormatter) totalSlide(b *strings.Builder, s *analyzer.Stats) {
	b.WriteString("--- Total Messages ---\n")
	fmt.Fprintf(b, "%d\n", s.TotalMessages)
	fmt.Fprintf(b, "That's about %d messages per day!\n", s.MessagesPerDay())
}

func (f *TextFormatter) authorsSlide(b *strings.Builder, s *analyzer.Stats) {
	b.WriteString("--- Top Chatterbox ---\n")
	top := s.TopAuthors(f.opts.TopAuthors)
	width := 0
	for _, a := range top {
		if n := len([]rune(a.Name)); n > width {
			width = n
		}
	}
	for i, a := range top {
		name := a.Name + strings.Repeat(" ", width-len([]rune(a.Name)))
		fmt.Fprintf(b, "%d. %s  %s %d\n", i+1, name, shareBar(s.AuthorShare(a)), a.Count)
	}
}

func (f *TextFormatter) timeSlide(b *strings.Builder, s *analyzer.Stats) {
	b.WriteString("--- Night Owl or Early Bird? ---\n")
	fmt.Fprintf(b, "%s is your busiest time\n", FormatHour(s.PeakHour()))
	fmt.Fprintf(b, "%s\n", Sparkline(s.Hours[:]))
	b.WriteString("12 AM       12 PM  11 PM\n")
}

func (f *TextFormatter) emojiSlide(b *strings.Builder, s *analyzer.Stats) {
	b.WriteString("--- Top Emojis ---\n")
	if len(s.TopEmojis) == 0 {
		b.WriteString("No emoji found\n")
		return
	}
	for _, e := range s.TopEmojis {
		fmt.Fprintf(b, "%s  %d uses\n", e.Emoji, e.Count)
	}
}

func (f *TextFormatter) conclusionSlide(b *strings.Builder, _ *analyzer.Stats) {
	b.WriteString("=== That's a Wrap! ===\n")
	b.WriteString("You've shared a lot of moments. Here is to many more!\n")
}

func (f *TextFormatter) writeDetails(b *strings.Builder, report *Report) {
	if !f.opts.Verbose {
		return
	}
	b.WriteString("\n---\n")
	if p := report.Parse; p != nil {
		fmt.Fprintf(b, "Lines: %d (blank %d, continuations %d, system notices %d, dropped %d)\n",
			p.Lines, p.BlankLines, p.Continuations, p.SystemNotices, p.Dropped)
		fmt.Fprintf(b, "Unresolved timestamps: %d\n", p.Unresolved)
	}
	if report.Stats != nil {
		fmt.Fprintf(b, "Calendar days: %d\n", report.Stats.CalendarDays)
	}
	m := report.Metadata
	fmt.Fprintf(b, "Run: %s  Digest: %s  Zone: %s\n", m.RunID, m.Digest, m.Timezone)
	fmt.Fprintf(b, "Duration: %s\n", m.Duration.Round(1e6))
}

// FormatHour renders an hour of the day on a 12-hour clock, e.g. "9 PM".
func FormatHour(h int) string {
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d %s", h, suffix)
}

// Sparkline draws counts as a row of block characters scaled to the maximum.
// Empty buckets render as a space.
func Sparkline(counts []int) string {
	peak := 0
	for _, n := range counts {
		if n > peak {
			peak = n
		}
	}
	var b strings.Builder
	for _, n := range counts {
		if n == 0 || peak == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(sparks[(n*len(sparks)-1)/peak])
	}
	return b.String()
}

func shareBar(percent float64) string {
	filled := int(percent/100*barWidth + 0.5)
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
}
