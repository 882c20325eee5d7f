package analyzer

import (
	"errors"
	"sort"
	"time"

	"github.com/ccollicutt/chatwrap/pkg/parser"
)

// ErrNoTimestamps means messages were parsed but none had a usable
// timestamp, so no statistics can be produced.
var ErrNoTimestamps = errors.New("no messages with a valid timestamp")

// Spans are computed from Unix values rather than time.Duration, which
// saturates at about 292 years.
const (
	msPerDay  = int64(24 * time.Hour / time.Millisecond)
	secPerDay = int64(24 * time.Hour / time.Second)
)

// Analyze computes statistics over the messages that carry a valid
// timestamp. It returns ErrNoTimestamps when there are none.
//
// Analyze is a pure function: the same input always yields an equal Stats.
// Messages are assumed to be in chat order; they are not re-sorted.
func Analyze(messages []parser.Message) (*Stats, error) {
	working := make([]parser.Message, 0, len(messages))
	for _, m := range messages {
		if m.Timestamp.Valid {
			working = append(working, m)
		}
	}
	if len(working) == 0 {
		return nil, ErrNoTimestamps
	}

	stats := &Stats{TotalMessages: len(working)}

	authors := newTally()
	emojis := newTally()
	for _, m := range working {
		authors.add(m.Author)
		stats.Hours[m.Timestamp.Time.Hour()]++
		for _, e := range Emojis(m.Content) {
			emojis.add(e)
		}
	}

	for _, e := range authors.ranked() {
		stats.Authors = append(stats.Authors, AuthorCount{Name: e.key, Count: e.count})
	}

	ranked := emojis.ranked()
	if len(ranked) > TopEmojiLimit {
		ranked = ranked[:TopEmojiLimit]
	}
	stats.TopEmojis = make([]EmojiCount, 0, len(ranked))
	for _, e := range ranked {
		stats.TopEmojis = append(stats.TopEmojis, EmojiCount{Emoji: e.key, Count: e.count})
	}

	first := working[0].Timestamp.Time
	last := working[len(working)-1].Timestamp.Time
	stats.FirstDate = first
	stats.LastDate = last
	stats.DurationDays = int(floorDiv(last.UnixMilli()-first.UnixMilli(), msPerDay))
	stats.CalendarDays = calendarDays(first, last)

	return stats, nil
}

// Summarize parses text with p and analyzes the result. The parse result is
// returned even when analysis fails so callers can report line counters.
func Summarize(text string, p *parser.Parser) (*Stats, *parser.Result, error) {
	res := p.Scan(text)
	if len(res.Messages) == 0 {
		return nil, res, parser.ErrNoMessages
	}

	stats, err := Analyze(res.Messages)
	if err != nil {
		return nil, res, err
	}
	return stats, res, nil
}

// tally counts keys and remembers the order each key was first seen in.
type tally struct {
	index   map[string]int
	entries []tallyEntry
}

type tallyEntry struct {
	key   string
	count int
}

func newTally() *tally {
	return &tally{index: make(map[string]int)}
}

func (t *tally) add(key string) {
	i, ok := t.index[key]
	if !ok {
		i = len(t.entries)
		t.index[key] = i
		t.entries = append(t.entries, tallyEntry{key: key})
	}
	t.entries[i].count++
}

// ranked returns the entries by descending count; equal counts keep
// first-seen order.
func (t *tally) ranked() []tallyEntry {
	out := make([]tallyEntry, len(t.entries))
	copy(out, t.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].count > out[j].count
	})
	return out
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// calendarDays counts date changes between two times, each read in its own zone.
func calendarDays(first, last time.Time) int {
	y1, m1, d1 := first.Date()
	y2, m2, d2 := last.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC).Unix() / secPerDay
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC).Unix() / secPerDay
	return int(b - a)
}
