// Package model defines the unified message record shared across parsers,
// pipeline stages, and writers.
package model

import "time"

// AttachmentKind tags the type of a media attachment.
type AttachmentKind string

const (
	KindPhoto    AttachmentKind = "photo"
	KindVideo    AttachmentKind = "video"
	KindAudio    AttachmentKind = "audio"
	KindVoice    AttachmentKind = "voice"
	KindFile     AttachmentKind = "file"
	KindSticker  AttachmentKind = "sticker"
	KindShare    AttachmentKind = "share"
	KindLink     AttachmentKind = "link"
	KindReaction AttachmentKind = "reaction"
	KindContact  AttachmentKind = "contact"
	KindLocation AttachmentKind = "location"
)

// Attachment is a media descriptor attached to a message. Name is the
// filename or caption when the source exposes one, otherwise empty.
type Attachment struct {
	Kind AttachmentKind
	Name string
}

// Message is a single chat message normalized from any platform export.
// Zero values encode absence: ID == "" means the platform exposed no id,
// EditedAt.IsZero() means the message was never edited.
type Message struct {
	Sender    string
	Timestamp time.Time
	Text      string

	ID            string
	ReplyTo       string
	EditedAt      time.Time
	ForwardedFrom string

	// System marks platform service lines ("X added Y") that carry no
	// real sender semantics.
	System bool

	Attachments []Attachment
}

// HasAttachments reports whether the message carries any attachments.
func (m Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}
