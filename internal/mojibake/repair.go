// Package mojibake repairs text that was corrupted by decoding UTF-8 bytes
// as a single-byte encoding and re-encoding the result. Instagram exports
// systematically ship every string field in this state.
package mojibake

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// maxRounds bounds the fixpoint iteration. Real-world corruption is one or
// two rounds deep; anything past that is not the signature we recognize.
const maxRounds = 4

// cp1252Punct maps the Windows-1252 punctuation runes back to their source
// bytes in the 0x80-0x9F range. Runes below 0x100 map to themselves
// (Latin-1), so only these need a table.
var cp1252Punct = buildPunctTable()

func buildPunctTable() map[rune]byte {
	m := make(map[rune]byte, 27)
	for b := 0x80; b <= 0x9f; b++ {
		r := charmap.Windows1252.DecodeByte(byte(b))
		if r >= 0x100 {
			m[r] = byte(b)
		}
	}
	return m
}

// Repair reverses the mojibake corruption signature: every rune of the
// string maps back to a Latin-1/Windows-1252 byte, and the resulting byte
// string is valid UTF-8 containing at least one multi-byte sequence. The
// reversal is applied until a fixpoint, so doubly-corrupted text resolves
// in one call. Text that does not match the signature is returned
// unchanged; Repair never fails on arbitrary input and is idempotent.
func Repair(s string) string {
	for i := 0; i < maxRounds; i++ {
		fixed, ok := reverseOnce(s)
		if !ok || fixed == s {
			return s
		}
		s = fixed
	}
	return s
}

// reverseOnce undoes one round of corruption. It reports false when the
// input does not carry the signature.
func reverseOnce(s string) (string, bool) {
	if isASCII(s) {
		return s, false
	}

	raw := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x100 {
			raw = append(raw, byte(r))
			continue
		}
		b, ok := cp1252Punct[r]
		if !ok {
			// Rune has no single-byte origin: genuine text, not mojibake.
			return s, false
		}
		raw = append(raw, b)
	}

	if !utf8.Valid(raw) {
		return s, false
	}
	if utf8.RuneCount(raw) == len(raw) {
		// No multi-byte sequences appeared, so nothing was double-encoded.
		return s, false
	}
	return string(raw), true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
