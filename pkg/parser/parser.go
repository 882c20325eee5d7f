package parser

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrNoMessages is returned by callers when a parse produced no authored
// messages at all.
var ErrNoMessages = errors.New("no valid messages found")

// Header line building blocks. Dates accept "/", "." or "-" separators;
// times accept optional seconds and an optional AM/PM marker, which phones
// sometimes separate with a no-break space.
const (
	datePart   = `(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4})`
	timePart   = `(\d{1,2}:\d{2}(?::\d{2})?(?:[\s\x{00A0}\x{202F}]?[AP]M)?)`
	headerHead = `(?i)^\[?` + datePart + `[,\s]+` + timePart + `\]?\s(?:-\s)?`
)

var (
	// headerPattern matches "DATE, TIME - Author: content" and
	// "[DATE, TIME] Author: content". The author stops at the first ": ".
	headerPattern = regexp.MustCompile(headerHead + `(.+?):\s(.+)$`)

	// systemPattern matches the same date/time prefix with no author split,
	// e.g. encryption and group membership notices.
	systemPattern = regexp.MustCompile(headerHead + `(.+)$`)
)

// invisibles are removed from every line before matching. Zero-width
// joiners stay; they bind emoji sequences.
var invisibles = strings.NewReplacer(
	"\u200e", "", "\u200f", "", // LRM / RLM
	"\u202a", "", "\u202b", "", "\u202c", "", "\u202d", "", "\u202e", "",
	"\u2066", "", "\u2067", "", "\u2068", "", "\u2069", "",
	"\ufeff", "", // BOM
)

// Parser converts export text into messages.
// A Parser holds no per-parse state and may be reused.
type Parser struct {
	resolver *TimestampResolver
}

// Option configures a Parser.
type Option func(*Parser)

// WithLocation sets the zone header times are interpreted in (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		p.resolver = NewTimestampResolver(loc)
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{resolver: NewTimestampResolver(nil)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses text with a default Parser.
func Parse(text string) []Message {
	return New().Parse(text)
}

// Parse returns the authored messages in text, in input order.
// Malformed lines never cause an error; an empty result means nothing in
// the text looked like a chat message.
func (p *Parser) Parse(text string) []Message {
	return p.Scan(text).Messages
}

// Scan parses text and reports how each line was classified.
func (p *Parser) Scan(text string) *Result {
	res := &Result{}

	var open *draft
	for _, raw := range strings.Split(text, "\n") {
		res.Lines++
		open = p.step(open, CleanLine(raw), res)
	}
	if open != nil {
		res.Messages = append(res.Messages, open.close())
	}

	return res
}

// step consumes one cleaned line given the currently open message (or nil)
// and returns the message that is open afterwards.
func (p *Parser) step(open *draft, line string, res *Result) *draft {
	if line == "" {
		res.BlankLines++
		return open
	}

	if m := headerPattern.FindStringSubmatch(line); m != nil {
		if open != nil {
			res.Messages = append(res.Messages, open.close())
		}
		ts := p.resolver.Resolve(m[1], m[2])
		if !ts.Valid {
			res.Unresolved++
		}
		return &draft{timestamp: ts, author: m[3], lines: []string{m[4]}}
	}

	if systemPattern.MatchString(line) {
		res.SystemNotices++
	}

	// System notices inside an open message are kept as part of its body,
	// the same as any other non-header line.
	if open == nil {
		res.Dropped++
		return nil
	}

	open.lines = append(open.lines, line)
	res.Continuations++
	return open
}

// CleanLine removes bidi control characters and surrounding whitespace.
func CleanLine(line string) string {
	return strings.TrimSpace(invisibles.Replace(line))
}

// IsHeader reports whether a cleaned line starts a new authored message.
func IsHeader(line string) bool {
	return headerPattern.MatchString(line)
}

// IsSystemNotice reports whether a cleaned line is a dated line without an
// author, such as an encryption notice.
func IsSystemNotice(line string) bool {
	return !headerPattern.MatchString(line) && systemPattern.MatchString(line)
}

// SplitHeader returns the raw date, time and author of a header line.
func SplitHeader(line string) (date, clock, author string, ok bool) {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// draft is a message still accepting continuation lines.
type draft struct {
	timestamp Timestamp
	author    string
	lines     []string
}

func (d *draft) close() Message {
	return Message{
		Timestamp: d.timestamp,
		Author:    d.author,
		Content:   strings.Join(d.lines, "\n"),
	}
}
