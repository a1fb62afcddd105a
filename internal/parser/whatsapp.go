package parser

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/chatpack/chatpack/internal/dateformat"
	"github.com/chatpack/chatpack/internal/model"
)

// waHeader matches a line that starts a new message:
// "<date>, <time> - <rest>". Everything else continues the previous
// message's text.
var waHeader = regexp.MustCompile(`^(\d{1,4}[./-]\d{1,2}[./-]\d{1,4},[\s\x{202f}\x{00a0}]+\d{1,2}:\d{2}(?:[\s\x{202f}\x{00a0}]?[APap][Mm])?)[\s\x{202f}]+-[\s\x{202f}]+(.*)$`)

const waMediaOmitted = "<Media omitted>"

// waSampleLineBudget caps how many raw lines layout detection may read.
// Without it a file of few messages with huge multi-line bodies would be
// swallowed whole before streaming starts.
const waSampleLineBudget = 2048

type whatsAppStream struct {
	scanner *bufio.Scanner
	layout  dateformat.Layout
	opts    Options

	backlog   []string // lines consumed during layout detection, replayed first
	pending   *model.Message
	queuedErr error // record error to deliver after a flushed message
	idx       int
	done      bool
}

// openWhatsApp reads a leading sample of header lines, fixes the date
// layout for the whole file, then streams from the sample backlog and the
// rest of the input. The sample stops at SampleSize headers or at the
// line budget, whichever comes first, so detection never drains the file.
func openWhatsApp(r io.Reader, opts Options) (Stream, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var backlog []string
	var sample []string
	for len(sample) < dateformat.SampleSize && len(backlog) < waSampleLineBudget && scanner.Scan() {
		line := scanner.Text()
		backlog = append(backlog, line)
		if m := waHeader.FindStringSubmatch(stripDirectionMarks(line)); m != nil {
			sample = append(sample, m[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &FileError{Platform: WhatsApp, Err: fmt.Errorf("read: %w", err)}
	}
	if len(backlog) == 0 {
		return nil, &FileError{Platform: WhatsApp, Err: fmt.Errorf("empty input")}
	}

	layout, err := dateformat.Detect(sample)
	if err != nil {
		return nil, &FileError{Platform: WhatsApp, Err: err}
	}

	return &whatsAppStream{
		scanner: scanner,
		layout:  layout,
		opts:    opts,
		backlog: backlog,
	}, nil
}

func (s *whatsAppStream) Next() (model.Message, error) {
	for {
		if s.queuedErr != nil {
			err := s.queuedErr
			s.queuedErr = nil
			return model.Message{}, err
		}

		line, ok := s.nextLine()
		if !ok {
			if err := s.scanner.Err(); err != nil {
				s.done = true
				return model.Message{}, &FileError{Platform: WhatsApp, Err: fmt.Errorf("read: %w", err)}
			}
			// Flush the final pending message.
			if msg := s.take(); msg != nil {
				return *msg, nil
			}
			return model.Message{}, io.EOF
		}

		line = stripDirectionMarks(line)
		m := waHeader.FindStringSubmatch(line)
		if m == nil {
			// Continuation line: belongs to the previous message.
			if s.pending != nil {
				if s.pending.Text != "" {
					s.pending.Text += "\n"
				}
				s.pending.Text += line
			}
			// A continuation before any header is preamble noise; drop it.
			continue
		}

		idx := s.idx
		s.idx++
		ts, err := s.layout.Parse(m[1])
		if err != nil {
			// The layout was fixed for the whole file, so a non-parsing
			// header is a bad record, not a detection failure. Deliver any
			// completed message first, then the record error.
			s.queuedErr = &RecordError{Index: idx, Err: fmt.Errorf("unparseable header %q", m[1])}
			if flushed := s.take(); flushed != nil {
				return *flushed, nil
			}
			continue
		}

		msg := waMessage(ts, m[2])
		flushed := s.take()
		if msg.System && !s.opts.IncludeSystem {
			if flushed != nil {
				return *flushed, nil
			}
			continue
		}
		s.pending = &msg
		if flushed != nil {
			return *flushed, nil
		}
	}
}

// nextLine yields replayed backlog lines before reading from the scanner.
func (s *whatsAppStream) nextLine() (string, bool) {
	if len(s.backlog) > 0 {
		line := s.backlog[0]
		s.backlog = s.backlog[1:]
		return line, true
	}
	if s.done {
		return "", false
	}
	if !s.scanner.Scan() {
		s.done = true
		return "", false
	}
	return s.scanner.Text(), true
}

// take detaches and returns the pending message, if any.
func (s *whatsAppStream) take() *model.Message {
	msg := s.pending
	s.pending = nil
	return msg
}

// waMessage builds a message from the text after the "<date>, <time> - "
// header. A missing "Sender: " prefix marks a system/service line.
func waMessage(ts time.Time, rest string) model.Message {
	msg := model.Message{Timestamp: ts}

	sender, text, found := strings.Cut(rest, ": ")
	if !found || sender == "" {
		msg.System = true
		msg.Sender = "system"
		msg.Text = rest
		return msg
	}

	msg.Sender = sender
	if text == waMediaOmitted {
		msg.Attachments = []model.Attachment{{Kind: model.KindFile}}
	} else {
		msg.Text = text
	}
	return msg
}

// stripDirectionMarks removes the Unicode bidi/control marks WhatsApp
// scatters through exported lines.
func stripDirectionMarks(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200e', '\u200f', '\ufeff':
			return -1
		}
		return r
	}, s)
}
