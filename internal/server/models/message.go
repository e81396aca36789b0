// Package models defines server-side data models persisted in the document store.
package models

import (
	"time"

	"github.com/dmitrijs2005/gophchat/internal/codec"
)

// Message is a chat message in its stored form. Text and attachment payloads
// hold encoded bytes produced by the codec; metadata stays uncompressed so
// listings never need to inflate anything.
type Message struct {
	ID string
	// Text is nil, codec.RawText or codec.PackedText.
	Text      codec.Text
	Image     *Attachment
	File      *Attachment
	CreatedAt time.Time
	Edited    bool
	EditedAt  *time.Time
}

// Attachment is an image or file payload. Immutable once created.
type Attachment struct {
	// Data is the codec envelope.
	Data     []byte
	MimeType string
	// FileName and Size (original byte count) are set for files only.
	FileName string
	Size     int64
}

// StoredSize sums the payload bytes the message occupies in the store.
func (m *Message) StoredSize() int64 {
	var n int64
	if m.Text != nil {
		n += int64(m.Text.StoredSize())
	}
	if m.Image != nil {
		n += int64(len(m.Image.Data))
	}
	if m.File != nil {
		n += int64(len(m.File.Data))
	}
	return n
}

// Range selects messages by creation time. Zero values mean unbounded;
// Limit <= 0 means the repository default.
type Range struct {
	Before time.Time
	After  time.Time
	Limit  int
}

// Usage summarises what the store holds.
type Usage struct {
	Messages    int64
	StoredBytes int64
}
