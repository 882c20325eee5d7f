// Package parser turns exported chat-log text into ordered message records.
package parser

import (
	"encoding/json"
	"time"
)

// Message is a single chat message recovered from an export.
// Messages are values; the parser never mutates one after returning it.
type Message struct {
	// Timestamp is when the message was sent, or unresolved if the
	// header's date/time could not be turned into a calendar time.
	Timestamp Timestamp `json:"timestamp"`

	// Author is the sender label exactly as it appears in the header.
	Author string `json:"author"`

	// Content is the message body. Continuation lines are joined with "\n".
	Content string `json:"content"`

	// IsSystemMessage marks chat-system notices. The parser only emits
	// authored messages, so this is false on everything Parse returns.
	IsSystemMessage bool `json:"isSystemMessage"`
}

// Timestamp is the result of resolving a header's date and time.
// The zero value is an unresolved timestamp.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// Resolved wraps a calendar time as a valid Timestamp.
func Resolved(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

// Unresolved is the timestamp of a message whose date could not be parsed.
var Unresolved = Timestamp{}

// MarshalJSON encodes a valid timestamp as RFC 3339 and an unresolved one as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// UnmarshalJSON accepts the output of MarshalJSON.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Unresolved
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Resolved(parsed)
	return nil
}

// Result is the output of a full scan, with counters describing how each
// physical line was classified.
type Result struct {
	// Messages are the authored messages in input order.
	Messages []Message `json:"-"`

	// Lines is the number of physical lines read.
	Lines int `json:"lines"`

	// BlankLines is the number of lines that were empty after cleaning.
	BlankLines int `json:"blankLines"`

	// Continuations is the number of lines appended to an open message.
	Continuations int `json:"continuations"`

	// SystemNotices is the number of system notice lines recognized.
	SystemNotices int `json:"systemNotices"`

	// Dropped is the number of non-empty lines that produced no output.
	Dropped int `json:"dropped"`

	// Unresolved is the number of messages whose timestamp could not be resolved.
	Unresolved int `json:"unresolved"`
}
