// Package dateformat infers which locale-specific date/time layout a
// WhatsApp export uses. WhatsApp writes message headers in the phone's
// locale, so the same file structure appears with day-first, month-first,
// dotted, and ISO dates; the layout must be fixed once per file before
// any line can be parsed.
package dateformat

import (
	"errors"
	"strings"
	"time"
)

// ErrAmbiguous is returned when no sampled line matches any known layout.
var ErrAmbiguous = errors.New("dateformat: no known date layout matches the sampled lines")

// Layout is one recognized WhatsApp date/time layout.
type Layout struct {
	Name   string // short identifier for logs
	Format string // Go time layout
}

// Layouts is the closed set of recognized layouts, in preference order.
// On a tie (every sampled day is <= 12, so day-first and month-first both
// parse) the earlier entry wins, which resolves toward day-first.
var Layouts = []Layout{
	{Name: "day-first-24h", Format: "2/1/2006, 15:04"},
	{Name: "month-first-12h", Format: "1/2/2006, 3:04 PM"},
	{Name: "dotted-24h", Format: "2.1.2006, 15:04"},
	{Name: "iso-24h", Format: "2006-01-02, 15:04"},
}

// SampleSize is how many candidate header lines Detect considers.
const SampleSize = 64

// Detect scores every known layout against a sample of message header
// prefixes (the text before the " - " separator) and returns the layout
// that parses the most of them. It returns ErrAmbiguous when nothing
// parses at all.
func Detect(sample []string) (Layout, error) {
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}

	best := -1
	bestScore := 0
	for i, layout := range Layouts {
		score := 0
		for _, line := range sample {
			if _, err := time.Parse(layout.Format, normalize(line)); err == nil {
				score++
			}
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}

	if best < 0 {
		return Layout{}, ErrAmbiguous
	}
	return Layouts[best], nil
}

// Parse parses one header prefix with the detected layout. Times are
// interpreted as UTC: exports carry no zone information and inventing a
// local zone would make output machine-dependent.
func (l Layout) Parse(prefix string) (time.Time, error) {
	return time.Parse(l.Format, normalize(prefix))
}

// normalize strips the narrow no-break spaces and bracket variants some
// WhatsApp builds emit around the time component.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\u202f", " ")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return s
}
