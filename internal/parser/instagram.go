package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/chatpack/chatpack/internal/model"
	"github.com/chatpack/chatpack/internal/mojibake"
)

// igMessage is one element of the "messages" array in an Instagram data
// download. Every string field arrives mojibake-encoded and must pass
// through mojibake.Repair before use.
type igMessage struct {
	SenderName  string `json:"sender_name"`
	TimestampMS int64  `json:"timestamp_ms"`
	Content     string `json:"content"`

	Photos     []igMedia    `json:"photos"`
	Videos     []igMedia    `json:"videos"`
	AudioFiles []igMedia    `json:"audio_files"`
	Share      *igShare     `json:"share"`
	Sticker    *igMedia     `json:"sticker"`
	Reactions  []igReaction `json:"reactions"`
}

type igMedia struct {
	URI string `json:"uri"`
}

type igShare struct {
	Link      string `json:"link"`
	ShareText string `json:"share_text"`
}

type igReaction struct {
	Reaction string `json:"reaction"`
	Actor    string `json:"actor"`
}

type instagramStream struct {
	dec  *json.Decoder
	idx  int
	done bool
}

// openInstagram walks the export object to the "messages" array, exactly
// like the Telegram opener. Instagram writes messages newest-first; they
// are passed through in source order.
func openInstagram(r io.Reader, _ Options) (Stream, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, &FileError{Platform: Instagram, Err: fmt.Errorf("not a JSON document: %w", err)}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &FileError{Platform: Instagram, Err: fmt.Errorf("expected a JSON object, got %v", tok)}
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &FileError{Platform: Instagram, Err: fmt.Errorf("truncated document: %w", err)}
		}
		key, _ := keyTok.(string)
		if key != "messages" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, &FileError{Platform: Instagram, Err: fmt.Errorf("field %q: %w", key, err)}
			}
			continue
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, &FileError{Platform: Instagram, Err: fmt.Errorf("messages field: %w", err)}
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return nil, &FileError{Platform: Instagram, Err: fmt.Errorf("messages field is not an array")}
		}
		return &instagramStream{dec: dec}, nil
	}

	return nil, &FileError{Platform: Instagram, Err: fmt.Errorf("no messages array in export")}
}

func (s *instagramStream) Next() (model.Message, error) {
	if s.done || !s.dec.More() {
		s.done = true
		return model.Message{}, io.EOF
	}

	var raw igMessage
	idx := s.idx
	s.idx++
	if err := s.dec.Decode(&raw); err != nil {
		s.done = true
		return model.Message{}, &FileError{Platform: Instagram, Err: fmt.Errorf("message %d: %w", idx, err)}
	}

	msg, err := convertInstagram(&raw)
	if err != nil {
		return model.Message{}, &RecordError{Index: idx, Err: err}
	}
	return msg, nil
}

func convertInstagram(raw *igMessage) (model.Message, error) {
	sender := mojibake.Repair(raw.SenderName)
	if sender == "" {
		return model.Message{}, fmt.Errorf("message without sender")
	}
	if raw.TimestampMS == 0 {
		return model.Message{}, fmt.Errorf("message without timestamp")
	}

	msg := model.Message{
		Sender:    sender,
		Timestamp: time.UnixMilli(raw.TimestampMS).UTC(),
		Text:      mojibake.Repair(raw.Content),
	}

	for _, p := range raw.Photos {
		msg.Attachments = append(msg.Attachments, model.Attachment{Kind: model.KindPhoto, Name: mojibake.Repair(p.URI)})
	}
	for _, v := range raw.Videos {
		msg.Attachments = append(msg.Attachments, model.Attachment{Kind: model.KindVideo, Name: mojibake.Repair(v.URI)})
	}
	for _, a := range raw.AudioFiles {
		msg.Attachments = append(msg.Attachments, model.Attachment{Kind: model.KindAudio, Name: mojibake.Repair(a.URI)})
	}
	if raw.Sticker != nil {
		msg.Attachments = append(msg.Attachments, model.Attachment{Kind: model.KindSticker, Name: mojibake.Repair(raw.Sticker.URI)})
	}
	if raw.Share != nil {
		name := mojibake.Repair(raw.Share.ShareText)
		if name == "" {
			name = mojibake.Repair(raw.Share.Link)
		}
		msg.Attachments = append(msg.Attachments, model.Attachment{Kind: model.KindShare, Name: name})
	}
	for _, r := range raw.Reactions {
		msg.Attachments = append(msg.Attachments, model.Attachment{Kind: model.KindReaction, Name: mojibake.Repair(r.Reaction)})
	}

	return msg, nil
}
