package pipeline

import "github.com/chatpack/chatpack/internal/model"

// mergeSeparator joins constituent texts in a merged message. A line
// break marks the original message boundary without inventing content.
const mergeSeparator = "\n"

// merger collapses consecutive same-sender messages into one combined
// record. It holds at most the current run, so the streaming path's
// working set stays bounded by the largest mergeable run. Adjacency is
// the only criterion: elapsed time between messages never splits a run.
type merger struct {
	current *model.Message
}

// Push offers the next message and returns a completed merged message
// once the current run is closed by a sender change. The returned
// pointer is nil while the run is still open. System messages never
// merge; they close and flush any open run.
func (m *merger) Push(msg model.Message) *model.Message {
	if m.current == nil {
		m.current = &msg
		return nil
	}

	if m.current.Sender == msg.Sender && !m.current.System && !msg.System {
		absorb(m.current, msg)
		return nil
	}

	done := m.current
	m.current = &msg
	return done
}

// Flush returns the final open run, if any.
func (m *merger) Flush() *model.Message {
	done := m.current
	m.current = nil
	return done
}

// absorb folds msg into the accumulated run record:
// text joined in order, earliest timestamp of the run, no id if any
// constituent lacks one, latest edit, first reply-to and forward-from,
// attachments concatenated in order.
func absorb(run *model.Message, msg model.Message) {
	// Sources are not required to be chronological, so the run start is
	// not necessarily the earliest message.
	if !msg.Timestamp.IsZero() && (run.Timestamp.IsZero() || msg.Timestamp.Before(run.Timestamp)) {
		run.Timestamp = msg.Timestamp
	}
	if msg.Text != "" {
		if run.Text != "" {
			run.Text += mergeSeparator
		}
		run.Text += msg.Text
	}
	if msg.ID == "" {
		run.ID = ""
	}
	if msg.EditedAt.After(run.EditedAt) {
		run.EditedAt = msg.EditedAt
	}
	run.Attachments = append(run.Attachments, msg.Attachments...)
}

// Merge collapses a materialized sequence. Merge(Merge(x)) == Merge(x):
// a merged sequence has no two adjacent messages with the same sender
// left to combine.
func Merge(msgs []model.Message) []model.Message {
	if len(msgs) == 0 {
		return msgs
	}
	var m merger
	out := make([]model.Message, 0, len(msgs))
	for _, msg := range msgs {
		if done := m.Push(msg); done != nil {
			out = append(out, *done)
		}
	}
	if done := m.Flush(); done != nil {
		out = append(out, *done)
	}
	return out
}
