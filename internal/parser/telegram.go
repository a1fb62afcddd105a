package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chatpack/chatpack/internal/model"
)

// tgMessage is one element of the "messages" array in a Telegram desktop
// export. Text is string-or-array; the numeric date is a string.
type tgMessage struct {
	ID            int64           `json:"id"`
	Type          string          `json:"type"`
	Date          string          `json:"date"`
	DateUnix      string          `json:"date_unixtime"`
	From          string          `json:"from"`
	Actor         string          `json:"actor"`
	Text          json.RawMessage `json:"text"`
	ReplyTo       int64           `json:"reply_to_message_id"`
	Edited        string          `json:"edited"`
	ForwardedFrom string          `json:"forwarded_from"`

	Photo        string `json:"photo"`
	File         string `json:"file"`
	FileName     string `json:"file_name"`
	MediaType    string `json:"media_type"`
	StickerEmoji string `json:"sticker_emoji"`

	Contact  json.RawMessage `json:"contact_information"`
	Location json.RawMessage `json:"location_information"`
}

type tgTextEntity struct {
	Text string `json:"text"`
}

const tgDateLayout = "2006-01-02T15:04:05"

type telegramStream struct {
	dec  *json.Decoder
	opts Options
	idx  int
	done bool
}

// openTelegram walks the top-level export object until it reaches the
// "messages" array, so the whole document never sits in memory.
func openTelegram(r io.Reader, opts Options) (Stream, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, &FileError{Platform: Telegram, Err: fmt.Errorf("not a JSON document: %w", err)}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &FileError{Platform: Telegram, Err: fmt.Errorf("expected a JSON object, got %v", tok)}
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &FileError{Platform: Telegram, Err: fmt.Errorf("truncated document: %w", err)}
		}
		key, _ := keyTok.(string)
		if key != "messages" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, &FileError{Platform: Telegram, Err: fmt.Errorf("field %q: %w", key, err)}
			}
			continue
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, &FileError{Platform: Telegram, Err: fmt.Errorf("messages field: %w", err)}
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return nil, &FileError{Platform: Telegram, Err: fmt.Errorf("messages field is not an array")}
		}
		return &telegramStream{dec: dec, opts: opts}, nil
	}

	return nil, &FileError{Platform: Telegram, Err: fmt.Errorf("no messages array in export")}
}

func (s *telegramStream) Next() (model.Message, error) {
	for {
		if s.done || !s.dec.More() {
			s.done = true
			return model.Message{}, io.EOF
		}

		var raw tgMessage
		idx := s.idx
		s.idx++
		if err := s.dec.Decode(&raw); err != nil {
			// A decode error inside the array desyncs the decoder, so it
			// cannot be skipped record-by-record.
			s.done = true
			return model.Message{}, &FileError{Platform: Telegram, Err: fmt.Errorf("message %d: %w", idx, err)}
		}

		msg, err := convertTelegram(&raw, s.opts)
		if err != nil {
			return model.Message{}, &RecordError{Index: idx, Err: err}
		}
		if msg == nil {
			continue // dropped system message
		}
		return *msg, nil
	}
}

func convertTelegram(raw *tgMessage, opts Options) (*model.Message, error) {
	switch raw.Type {
	case "message", "service":
	default:
		return nil, fmt.Errorf("unknown message type %q", raw.Type)
	}

	ts, err := tgTimestamp(raw.Date, raw.DateUnix)
	if err != nil {
		return nil, err
	}

	msg := model.Message{
		Timestamp:     ts,
		Text:          flattenTelegramText(raw.Text),
		ForwardedFrom: raw.ForwardedFrom,
	}
	if raw.ID != 0 {
		msg.ID = strconv.FormatInt(raw.ID, 10)
	}
	if raw.ReplyTo != 0 {
		msg.ReplyTo = strconv.FormatInt(raw.ReplyTo, 10)
	}
	if raw.Edited != "" {
		if edited, err := time.Parse(tgDateLayout, raw.Edited); err == nil {
			msg.EditedAt = edited.UTC()
		}
	}

	if raw.Type == "service" {
		if !opts.IncludeSystem {
			return nil, nil
		}
		msg.System = true
		msg.Sender = raw.Actor
		if msg.Sender == "" {
			msg.Sender = "system"
		}
		return &msg, nil
	}

	msg.Sender = raw.From
	if msg.Sender == "" {
		return nil, fmt.Errorf("message without sender")
	}

	msg.Attachments = telegramAttachments(raw)
	return &msg, nil
}

func tgTimestamp(date, unix string) (time.Time, error) {
	if date != "" {
		if ts, err := time.Parse(tgDateLayout, date); err == nil {
			return ts.UTC(), nil
		}
	}
	if unix != "" {
		if sec, err := strconv.ParseInt(unix, 10, 64); err == nil {
			return time.Unix(sec, 0).UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", date)
}

// flattenTelegramText renders Telegram's rich text field to plain text.
// The field is either a plain string or an array of strings and entity
// objects; fragments are joined with a single space at entity boundaries.
func flattenTelegramText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	out := ""
	for _, part := range parts {
		var fragment string
		if err := json.Unmarshal(part, &fragment); err != nil {
			var entity tgTextEntity
			if err := json.Unmarshal(part, &entity); err != nil {
				continue
			}
			fragment = entity.Text
		}
		if fragment == "" {
			continue
		}
		// Keep a single space at the boundary unless one side already has it.
		if out != "" && !strings.HasSuffix(out, " ") && !strings.HasPrefix(fragment, " ") {
			out += " "
		}
		out += fragment
	}
	return out
}

func telegramAttachments(raw *tgMessage) []model.Attachment {
	var atts []model.Attachment

	if raw.Photo != "" {
		atts = append(atts, model.Attachment{Kind: model.KindPhoto, Name: raw.Photo})
	}
	if raw.File != "" || raw.MediaType != "" {
		kind := model.KindFile
		switch raw.MediaType {
		case "video_file", "animation", "video_message":
			kind = model.KindVideo
		case "voice_message":
			kind = model.KindVoice
		case "audio_file":
			kind = model.KindAudio
		case "sticker":
			kind = model.KindSticker
		}
		name := raw.FileName
		if kind == model.KindSticker && raw.StickerEmoji != "" {
			name = raw.StickerEmoji
		}
		atts = append(atts, model.Attachment{Kind: kind, Name: name})
	}
	if raw.Contact != nil {
		atts = append(atts, model.Attachment{Kind: model.KindContact})
	}
	if raw.Location != nil {
		atts = append(atts, model.Attachment{Kind: model.KindLocation})
	}
	return atts
}
