// Package analyzer computes descriptive statistics over parsed chat messages.
package analyzer

import (
	"math"
	"time"
)

// HoursPerDay is the number of buckets in the hour-of-day histogram.
const HoursPerDay = 24

// TopEmojiLimit is how many emoji the ranking keeps.
const TopEmojiLimit = 5

// Stats is the aggregate computed from one chat.
type Stats struct {
	// TotalMessages counts messages with a valid timestamp.
	TotalMessages int `json:"totalMessages"`

	// Authors holds per-author counts, busiest first. Ties keep the order in
	// which authors first appeared.
	Authors []AuthorCount `json:"authors"`

	// Hours is the hour-of-day histogram in the timestamps' own zone.
	Hours [HoursPerDay]int `json:"hours"`

	// TopEmojis is the emoji ranking, at most TopEmojiLimit entries.
	TopEmojis []EmojiCount `json:"topEmojis"`

	// FirstDate and LastDate are the timestamps of the first and last
	// timed messages by position in the chat.
	FirstDate time.Time `json:"firstDate"`
	LastDate  time.Time `json:"lastDate"`

	// DurationDays is the elapsed time between FirstDate and LastDate in
	// whole days, rounded down. 23:59 on one day to 00:01 two days later is
	// 1; CalendarDays is the field that counts the calendar span (2).
	DurationDays int `json:"durationDays"`

	// CalendarDays is the number of calendar date changes between
	// FirstDate and LastDate.
	CalendarDays int `json:"calendarDays"`
}

// AuthorCount is one row of the author ranking.
type AuthorCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// EmojiCount is one row of the emoji ranking.
type EmojiCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// MessagesPerDay is the rounded average daily volume. A span shorter than
// a day counts as one day.
func (s *Stats) MessagesPerDay() int {
	days := s.DurationDays
	if days < 1 {
		days = 1
	}
	return int(math.Round(float64(s.TotalMessages) / float64(days)))
}

// PeakHour returns the busiest hour of the day. Ties go to the earliest hour.
func (s *Stats) PeakHour() int {
	peak := 0
	for h, n := range s.Hours {
		if n > s.Hours[peak] {
			peak = h
		}
	}
	return peak
}

// TopAuthors returns up to n authors from the ranking.
func (s *Stats) TopAuthors(n int) []AuthorCount {
	if n < 0 || n > len(s.Authors) {
		n = len(s.Authors)
	}
	return s.Authors[:n]
}

// AuthorShare is the percentage of all timed messages sent by a.
func (s *Stats) AuthorShare(a AuthorCount) float64 {
	if s.TotalMessages == 0 {
		return 0
	}
	return float64(a.Count) / float64(s.TotalMessages) * 100
}
