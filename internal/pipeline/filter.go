package pipeline

import (
	"time"

	"github.com/chatpack/chatpack/internal/model"
)

// Filter holds the optional message predicates. Zero values disable the
// corresponding check; the overall predicate is their conjunction.
// Filtering runs before merging so that removed messages cannot be
// silently absorbed into a merged neighbor's text.
type Filter struct {
	From   time.Time // inclusive lower bound
	To     time.Time // inclusive upper bound
	Sender string    // case-sensitive exact match
}

// Active reports whether any predicate is configured.
func (f Filter) Active() bool {
	return !f.From.IsZero() || !f.To.IsZero() || f.Sender != ""
}

// Match reports whether the message passes every configured predicate.
func (f Filter) Match(msg model.Message) bool {
	if !f.From.IsZero() && msg.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && msg.Timestamp.After(f.To) {
		return false
	}
	if f.Sender != "" && msg.Sender != f.Sender {
		return false
	}
	return true
}

// Apply filters a materialized sequence, preserving order.
func (f Filter) Apply(msgs []model.Message) []model.Message {
	if !f.Active() {
		return msgs
	}
	out := msgs[:0:0]
	for _, m := range msgs {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}
