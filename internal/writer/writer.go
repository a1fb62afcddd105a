// Package writer serializes unified messages to CSV, JSON, or JSONL.
// Every writer streams: each message is serialized and flushed without
// buffering previously written output.
package writer

import (
	"fmt"
	"io"
	"strings"

	"github.com/chatpack/chatpack/internal/model"
)

// Format selects the output encoding.
type Format int

const (
	CSV Format = iota
	JSON
	JSONL
)

func (f Format) String() string {
	switch f {
	case CSV:
		return "csv"
	case JSON:
		return "json"
	case JSONL:
		return "jsonl"
	}
	return "unknown"
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string { return f.String() }

// ParseFormat resolves a format name from the CLI.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "jsonl":
		return JSONL, nil
	}
	return 0, fmt.Errorf("unknown format %q (want csv, json or jsonl)", s)
}

// FieldSelection enumerates the optional metadata fields to emit. Sender
// and text are always emitted.
type FieldSelection struct {
	Timestamps bool
	Replies    bool
	Edited     bool
	IDs        bool
}

// Writer consumes the final message sequence. Flush must be called once
// after the last message; it finishes the document and flushes the sink.
type Writer interface {
	Write(msg model.Message) error
	Flush() error
}

// New returns a streaming writer for the format.
func New(f Format, w io.Writer, sel FieldSelection) Writer {
	switch f {
	case JSON:
		return newJSONWriter(w, sel)
	case JSONL:
		return newJSONLWriter(w, sel)
	default:
		return newCSVWriter(w, sel)
	}
}

// timeLayout is the single timestamp rendering used by all writers, in
// UTC, so streaming and materialized runs stay byte-identical.
const timeLayout = "2006-01-02 15:04:05"

// renderText joins the message body with bracketed attachment tokens,
// keeping the output single-column friendly.
func renderText(msg model.Message) string {
	if len(msg.Attachments) == 0 {
		return msg.Text
	}
	var sb strings.Builder
	sb.WriteString(msg.Text)
	for _, att := range msg.Attachments {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		if att.Name != "" {
			fmt.Fprintf(&sb, "[%s: %s]", att.Kind, att.Name)
		} else {
			fmt.Fprintf(&sb, "[%s]", att.Kind)
		}
	}
	return sb.String()
}

// record is the serialized shape shared by the JSON writers. Field order
// here fixes the key order in the output.
type record struct {
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp,omitempty"`
	Text      string `json:"message"`
	ID        string `json:"id,omitempty"`
	ReplyTo   string `json:"reply_to,omitempty"`
	Edited    string `json:"edited,omitempty"`
}

func makeRecord(msg model.Message, sel FieldSelection) record {
	rec := record{
		Sender: msg.Sender,
		Text:   renderText(msg),
	}
	if sel.Timestamps {
		rec.Timestamp = msg.Timestamp.UTC().Format(timeLayout)
	}
	if sel.IDs {
		rec.ID = msg.ID
	}
	if sel.Replies {
		// Raw platform id only; the target may have been filtered out and
		// is never dereferenced.
		rec.ReplyTo = msg.ReplyTo
	}
	if sel.Edited && !msg.EditedAt.IsZero() {
		rec.Edited = msg.EditedAt.UTC().Format(timeLayout)
	}
	return rec
}
