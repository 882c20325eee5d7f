// Package detector identifies which chat export header family a file uses
// and how its dates are ordered. It is diagnostic only and never changes how
// the parser resolves timestamps.
package detector

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/ccollicutt/chatwrap/pkg/parser"
)

// DateOrder describes what the sampled dates prove about field order.
type DateOrder string

const (
	DateOrderUnknown     DateOrder = "unknown"
	DateOrderMonthFirst  DateOrder = "month-first"
	DateOrderDayFirst    DateOrder = "day-first"
	DateOrderAmbiguous   DateOrder = "ambiguous"
	DateOrderConflicting DateOrder = "conflicting"
)

// DetectionResult holds the result of analyzing an export.
type DetectionResult struct {
	Matches       []FormatMatch // Formats that matched, sorted by confidence descending
	SampledLines  int           // Number of lines sampled
	HeaderLines   int           // Number of lines recognized as headers
	DayFirst      int           // Headers whose first date part exceeds 12
	MonthFirst    int           // Headers whose second date part exceeds 12
	DateOrder     DateOrder     // Conclusion drawn from the two counts
	AmbiguityNote string        // Warning about date ordering if applicable
}

// FormatMatch represents a format that matched with its confidence score.
type FormatMatch struct {
	Format     *HeaderFormat
	Confidence float64          // 0.0 to 1.0 (share of sampled lines matched)
	MatchCount int              // Number of lines that matched
	SampleLine string           // Example line that matched
	SampleTime parser.Timestamp // Timestamp resolved from the sample line
}

// Detector analyzes exports to identify header formats.
type Detector struct {
	formats    []*HeaderFormat
	sampleSize int
	resolver   *parser.TimestampResolver
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithResolver sets the resolver used for sample timestamps.
func WithResolver(r *parser.TimestampResolver) Option {
	return func(d *Detector) {
		if r != nil {
			d.resolver = r
		}
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: 100,
		resolver:   parser.NewTimestampResolver(nil),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile analyzes an export (.txt, .zip or .gz) and returns detected formats.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	text, err := parser.ReadExport(path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromText(text), nil
}

// DetectFromText samples already decoded export text.
func (d *Detector) DetectFromText(text string) *DetectionResult {
	return d.DetectFromLines(d.sample(text))
}

// DetectFromLines analyzes a slice of export lines.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{
		SampledLines: len(lines),
		DateOrder:    DateOrderUnknown,
	}

	if len(lines) == 0 {
		return result
	}

	type formatStats struct {
		format     *HeaderFormat
		matchCount int
		sampleLine string
		sampleTime parser.Timestamp
	}

	stats := make(map[string]*formatStats)

	for _, raw := range lines {
		line := parser.CleanLine(raw)
		if line == "" {
			continue
		}

		header := false
		for _, format := range d.formats {
			matches := format.Pattern.FindStringSubmatch(line)
			if len(matches) < 3 {
				continue
			}

			if !header {
				header = true
				d.countDateOrder(matches[1], result)
			}

			key := format.Name
			if stats[key] == nil {
				stats[key] = &formatStats{
					format:     format,
					sampleLine: line,
					sampleTime: d.resolver.Resolve(matches[1], matches[2]),
				}
			}
			stats[key].matchCount++
		}
		if header {
			result.HeaderLines++
		}
	}

	for _, s := range stats {
		result.Matches = append(result.Matches, FormatMatch{
			Format:     s.format,
			Confidence: float64(s.matchCount) / float64(len(lines)),
			MatchCount: s.matchCount,
			SampleLine: s.sampleLine,
			SampleTime: s.sampleTime,
		})
	}

	order := make(map[*HeaderFormat]int, len(d.formats))
	for i, f := range d.formats {
		order[f] = i
	}

	// Sort by confidence descending, then by declaration order (more specific first)
	sort.Slice(result.Matches, func(i, j int) bool {
		if result.Matches[i].Confidence != result.Matches[j].Confidence {
			return result.Matches[i].Confidence > result.Matches[j].Confidence
		}
		return order[result.Matches[i].Format] < order[result.Matches[j].Format]
	})

	result.DateOrder, result.AmbiguityNote = concludeDateOrder(result)

	return result
}

// countDateOrder records whether a date string proves either field order.
func (d *Detector) countDateOrder(date string, result *DetectionResult) {
	parts := strings.FieldsFunc(date, func(r rune) bool {
		return r == '/' || r == '.' || r == '-'
	})
	if len(parts) != 3 {
		return
	}
	first, err1 := strconv.Atoi(parts[0])
	second, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return
	}
	if first > 12 {
		result.DayFirst++
	}
	if second > 12 {
		result.MonthFirst++
	}
}

func concludeDateOrder(r *DetectionResult) (DateOrder, string) {
	switch {
	case r.HeaderLines == 0:
		return DateOrderUnknown, ""
	case r.DayFirst > 0 && r.MonthFirst > 0:
		return DateOrderConflicting, "Some dates only fit day-first and others only month-first. " +
			"Each date is resolved on its own, so the export may mix orders."
	case r.DayFirst > 0:
		return DateOrderDayFirst, ""
	case r.MonthFirst > 0:
		return DateOrderMonthFirst, ""
	default:
		return DateOrderAmbiguous, "No sampled date proves the field order (MM/DD vs DD/MM). " +
			"Dates are read month-first, and day-first only when month-first is not a valid date."
	}
}

// sample returns up to sampleSize non-empty lines from text.
// Uses simple head sampling for efficiency.
func (d *Detector) sample(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if len(lines) >= d.sampleSize {
			break
		}
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSuffix(line, "\r"))
		}
	}
	return lines
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}
