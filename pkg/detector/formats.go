package detector

import "regexp"

// HeaderFormat represents a known message header layout for detection.
type HeaderFormat struct {
	Name       string         // Human-readable name
	Pattern    *regexp.Regexp // Compiled regex; group 1 is the date, group 2 the clock
	PatternStr string         // Pattern string for display
	Examples   []string       // Example header prefixes
}

// DefaultFormats returns the built-in header families to detect.
// Formats are ordered roughly by specificity (more specific patterns first).
func DefaultFormats() []*HeaderFormat {
	formats := []*HeaderFormat{
		{
			Name:       "iOS bracketed 12-hour",
			PatternStr: `^\[(\d{1,2}/\d{1,2}/\d{2,4}),\s(\d{1,2}:\d{2}:\d{2}[\s\x{00A0}\x{202F}][AP]M)\]\s`,
			Examples:   []string{"[12/24/23, 9:05:12 PM] Alice: Hello"},
		},
		{
			Name:       "iOS bracketed 24-hour",
			PatternStr: `^\[(\d{1,2}[/.]\d{1,2}[/.]\d{2,4}),\s(\d{1,2}:\d{2}:\d{2})\]\s`,
			Examples:   []string{"[24.12.23, 21:05:12] Alice: Hello", "[24/12/2023, 21:05:12] Alice: Hello"},
		},
		{
			Name:       "Android 12-hour",
			PatternStr: `^(\d{1,2}/\d{1,2}/\d{2,4}),\s(\d{1,2}:\d{2}[\s\x{00A0}\x{202F}]?[AP]M)\s-\s`,
			Examples:   []string{"12/24/23, 9:05 PM - Alice: Hello"},
		},
		{
			Name:       "Android 24-hour",
			PatternStr: `^(\d{1,2}/\d{1,2}/\d{2,4}),\s(\d{1,2}:\d{2})\s-\s`,
			Examples:   []string{"24/12/2023, 21:05 - Alice: Hello"},
		},
		{
			Name:       "Dotted European",
			PatternStr: `^(\d{1,2}\.\d{1,2}\.\d{2,4}),?\s(\d{1,2}:\d{2}(?::\d{2})?)\s-\s`,
			Examples:   []string{"24.12.23, 21:05 - Alice: Hello", "24.12.2023 21:05 - Alice: Hello"},
		},
	}

	// Compile all patterns
	for _, f := range formats {
		f.Pattern = regexp.MustCompile(`(?i)` + f.PatternStr)
	}

	return formats
}
