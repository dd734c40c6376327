// Package protocol defines the JSON document shapes exchanged with the
// chat backend: request/response envelopes for bridge calls, messages,
// and push notifications.
package protocol

import (
	"strings"

	"golang.org/x/text/cases"
)

// Message types as stored and reported by the backend.
const (
	MessageText      = "TEXT"
	MessageVoiceNote = "VOICE_NOTE"
)

// Message is a single chat message. Immutable once received; the
// backend's timestamp is the source of truth for ordering and is never
// re-sorted client-side.
type Message struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type,omitempty"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Text      string `json:"text_content"`
	FilePath  string `json:"file_path,omitempty"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// Key identifies a message for display deduplication. Two messages with
// the same key are the same message even when they arrive in different
// fetches. Voice notes carry no text, so they collide on (timestamp,
// sender) alone; that approximation is accepted.
type Key struct {
	Timestamp int64
	Sender    string
	Text      string
}

// Key returns the dedup key with the sender case-folded.
func (m Message) Key() Key {
	return Key{
		Timestamp: m.Timestamp,
		Sender:    Normalize(m.Sender),
		Text:      m.Text,
	}
}

// IsVoiceNote reports whether the message references a voice recording.
func (m Message) IsVoiceNote() bool {
	return m.Type == MessageVoiceNote
}

var folder = cases.Fold()

// Normalize folds and trims an identifier. Usernames, group names and
// message senders are compared case-insensitively throughout.
func Normalize(s string) string {
	return folder.String(strings.TrimSpace(s))
}
