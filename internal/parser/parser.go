// Package parser turns platform-native chat exports into streams of
// unified model.Message records. One parser per platform; all of them
// produce messages in source order without materializing the input.
package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/chatpack/chatpack/internal/model"
)

// Platform selects one of the supported export dialects.
type Platform int

const (
	Telegram Platform = iota
	WhatsApp
	Instagram
	Discord
)

func (p Platform) String() string {
	switch p {
	case Telegram:
		return "telegram"
	case WhatsApp:
		return "whatsapp"
	case Instagram:
		return "instagram"
	case Discord:
		return "discord"
	}
	return "unknown"
}

// ParsePlatform resolves a short or long platform name.
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "tg", "telegram":
		return Telegram, nil
	case "wa", "whatsapp":
		return WhatsApp, nil
	case "ig", "instagram":
		return Instagram, nil
	case "dc", "discord":
		return Discord, nil
	}
	return 0, fmt.Errorf("unknown source %q (want tg, wa, ig or dc)", s)
}

// Options adjusts parsing behavior shared by all platforms.
type Options struct {
	// IncludeSystem keeps platform service messages ("X added Y") in the
	// stream. They are dropped by default.
	IncludeSystem bool
}

// FileError is a file-level failure: the input is not a valid export of
// the declared platform. It aborts the run before any output is written.
type FileError struct {
	Platform Platform
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s export: %v", e.Platform, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// RecordError is a single malformed record inside an otherwise valid
// file. It is yielded in-stream; the stream stays usable afterwards.
type RecordError struct {
	Index int // zero-based position in the source
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Stream is a pull-based message sequence. Next returns io.EOF after the
// last message. A returned *RecordError reports one bad record and leaves
// the stream usable; any other error is file-fatal.
type Stream interface {
	Next() (model.Message, error)
}

// Open validates the input's file-level structure and returns a stream
// over it. A nil error means parsing has started successfully, so the
// caller may create the output sink.
func Open(p Platform, r io.Reader, opts Options) (Stream, error) {
	switch p {
	case Telegram:
		return openTelegram(r, opts)
	case WhatsApp:
		return openWhatsApp(r, opts)
	case Instagram:
		return openInstagram(r, opts)
	case Discord:
		return openDiscord(r, opts)
	}
	return nil, fmt.Errorf("unknown platform %d", p)
}

// Collect materializes a stream, counting skipped record errors. Used by
// the non-streaming path and by tests.
func Collect(s Stream) ([]model.Message, int, error) {
	var msgs []model.Message
	skipped := 0
	for {
		msg, err := s.Next()
		if err == io.EOF {
			return msgs, skipped, nil
		}
		if err != nil {
			var rerr *RecordError
			if errors.As(err, &rerr) {
				skipped++
				continue
			}
			return nil, skipped, err
		}
		msgs = append(msgs, msg)
	}
}
