package models

import (
	"strconv"
	"strings"
	"time"
)

// TimeWindow is an inclusive [Start, End] range in epoch seconds covering one calendar day.
type TimeWindow struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Oldest returns the window start in the format Slack expects for "oldest".
func (w TimeWindow) Oldest() string {
	return strconv.FormatInt(w.Start, 10)
}

// Latest returns the window end in the format Slack expects for "latest".
func (w TimeWindow) Latest() string {
	return strconv.FormatInt(w.End, 10)
}

// Contains reports whether a Slack timestamp token ("1700000000.000100") falls
// inside the window. Tokens that do not parse are treated as inside; the
// upstream already applied the range.
func (w TimeWindow) Contains(ts string) bool {
	sec := ts
	if i := strings.IndexByte(ts, '.'); i >= 0 {
		sec = ts[:i]
	}
	v, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return true
	}
	return v >= w.Start && v <= w.End
}

// Channel represents a Slack conversation the user is a member of
type Channel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Created     time.Time `json:"created"`
	MemberCount int       `json:"num_members"`
}

// IsDirect reports whether the channel is a direct message (no name).
func (c Channel) IsDirect() bool {
	return c.Name == ""
}

// Message is a read-only message as delivered by Slack
type Message struct {
	Text            string `json:"text"`
	AuthorID        string `json:"user"`
	Timestamp       string `json:"timestamp"`
	ThreadTimestamp string `json:"thread_ts,omitempty"`
}

// InThread reports whether the message belongs to a thread.
func (m Message) InThread() bool {
	return m.ThreadTimestamp != ""
}

// UserIdentity holds the resolved names of a workspace member
type UserIdentity struct {
	FullName    string `json:"full_name"`
	DisplayName string `json:"display_name"`
}

// UnknownUser is returned for ids missing from the identity cache.
var UnknownUser = UserIdentity{
	FullName:    "Unknown User",
	DisplayName: "unknown",
}

// EnrichedMessage is a Message with author names and optional thread context
type EnrichedMessage struct {
	Message
	AuthorFullName    string            `json:"user_full_name"`
	AuthorDisplayName string            `json:"user_display_name"`
	ThreadMessages    []EnrichedMessage `json:"thread_messages,omitempty"`
}

// ConversationRecord groups the relevant messages of one channel
type ConversationRecord struct {
	ChannelID   string            `json:"channel_id"`
	ChannelName string            `json:"channel_name"`
	Messages    []EnrichedMessage `json:"messages"`
}

// Email is the subset of a Gmail message used for summarization
type Email struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	From       string    `json:"from"`
	To         string    `json:"to,omitempty"`
	Subject    string    `json:"subject"`
	Snippet    string    `json:"snippet"`
	ReceivedAt time.Time `json:"received_at"`
}
