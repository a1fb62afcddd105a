package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/chatpack/chatpack/internal/model"
)

// dcMessage is one element of the "messages" array in a DiscordChatExporter
// JSON export. Structurally the most regular of the four dialects.
type dcMessage struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Timestamp       string         `json:"timestamp"`
	TimestampEdited string         `json:"timestampEdited"`
	Content         string         `json:"content"`
	Author          dcAuthor       `json:"author"`
	Attachments     []dcAttachment `json:"attachments"`
	Stickers        []dcSticker    `json:"stickers"`
	Reference       *dcReference   `json:"reference"`
}

type dcAuthor struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
}

type dcAttachment struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

type dcSticker struct {
	Name string `json:"name"`
}

type dcReference struct {
	MessageID string `json:"messageId"`
}

type discordStream struct {
	dec  *json.Decoder
	opts Options
	idx  int
	done bool
}

func openDiscord(r io.Reader, opts Options) (Stream, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, &FileError{Platform: Discord, Err: fmt.Errorf("not a JSON document: %w", err)}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &FileError{Platform: Discord, Err: fmt.Errorf("expected a JSON object, got %v", tok)}
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &FileError{Platform: Discord, Err: fmt.Errorf("truncated document: %w", err)}
		}
		key, _ := keyTok.(string)
		if key != "messages" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, &FileError{Platform: Discord, Err: fmt.Errorf("field %q: %w", key, err)}
			}
			continue
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, &FileError{Platform: Discord, Err: fmt.Errorf("messages field: %w", err)}
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return nil, &FileError{Platform: Discord, Err: fmt.Errorf("messages field is not an array")}
		}
		return &discordStream{dec: dec, opts: opts}, nil
	}

	return nil, &FileError{Platform: Discord, Err: fmt.Errorf("no messages array in export")}
}

func (s *discordStream) Next() (model.Message, error) {
	for {
		if s.done || !s.dec.More() {
			s.done = true
			return model.Message{}, io.EOF
		}

		var raw dcMessage
		idx := s.idx
		s.idx++
		if err := s.dec.Decode(&raw); err != nil {
			s.done = true
			return model.Message{}, &FileError{Platform: Discord, Err: fmt.Errorf("message %d: %w", idx, err)}
		}

		msg, err := convertDiscord(&raw, s.opts)
		if err != nil {
			return model.Message{}, &RecordError{Index: idx, Err: err}
		}
		if msg == nil {
			continue // dropped system message
		}
		return *msg, nil
	}
}

func convertDiscord(raw *dcMessage, opts Options) (*model.Message, error) {
	sender := raw.Author.Nickname
	if sender == "" {
		sender = raw.Author.Name
	}
	if sender == "" {
		return nil, fmt.Errorf("message without author")
	}

	ts, err := parseDiscordTime(raw.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("unparseable timestamp %q", raw.Timestamp)
	}

	msg := model.Message{
		Sender:    sender,
		Timestamp: ts,
		Text:      raw.Content,
		ID:        raw.ID,
	}

	// Anything that is not a plain or reply message is a channel event.
	switch raw.Type {
	case "", "Default", "Reply":
	default:
		if !opts.IncludeSystem {
			return nil, nil
		}
		msg.System = true
	}

	if raw.TimestampEdited != "" {
		if edited, err := parseDiscordTime(raw.TimestampEdited); err == nil {
			msg.EditedAt = edited
		}
	}
	if raw.Reference != nil {
		msg.ReplyTo = raw.Reference.MessageID
	}

	for _, a := range raw.Attachments {
		name := a.FileName
		if name == "" {
			name = a.URL
		}
		msg.Attachments = append(msg.Attachments, model.Attachment{Kind: model.KindFile, Name: name})
	}
	for _, st := range raw.Stickers {
		msg.Attachments = append(msg.Attachments, model.Attachment{Kind: model.KindSticker, Name: st.Name})
	}

	return &msg, nil
}

func parseDiscordTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999-07:00"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
