// Package offset converts between the offset units the collaborators
// speak: the editor addresses documents in UTF-16 code units, Agda in
// Unicode code points, and Go strings in UTF-8 bytes. Proof texts are full
// of astral-plane symbols (𝕃, 𝔹, …) that occupy two UTF-16 code units, so
// the conversions cannot be identity maps.
package offset

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// UTF16ToByte converts a UTF-16 code-unit offset into a byte offset within
// s. Offsets past the end clamp to len(s). An offset landing inside a
// surrogate pair resolves to the next rune boundary.
func UTF16ToByte(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	units := 0
	for i, r := range s {
		if units >= offset {
			return i
		}
		units += len(utf16.Encode([]rune{r}))
	}
	return len(s)
}

// ByteToUTF16 converts a byte offset into a UTF-16 code-unit offset within
// s. Offsets past the end clamp to the total code-unit length; an offset
// inside a rune resolves to the next rune boundary.
func ByteToUTF16(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	units := 0
	for i, r := range s {
		if i >= offset {
			return units
		}
		units += len(utf16.Encode([]rune{r}))
	}
	return units
}

// CodePointToByte converts a code-point offset (Agda's unit) into a byte
// offset within s, clamping past the end.
func CodePointToByte(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	n := 0
	for i := range s {
		if n == offset {
			return i
		}
		n++
	}
	return len(s)
}

// ByteToCodePoint converts a byte offset into a code-point offset.
func ByteToCodePoint(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	if offset > len(s) {
		offset = len(s)
	}
	return utf8.RuneCountInString(s[:offset])
}

// NormalizeEOL rewrites CRLF line endings to LF and returns, for each
// removed CR, its byte offset in the original text. The offsets let a
// caller map positions in the normalized text back to the original.
func NormalizeEOL(s string) (normalized string, removed []int) {
	if !strings.Contains(s, "\r\n") {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n' {
			removed = append(removed, i)
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String(), removed
}

// DenormalizeOffset maps a byte offset in normalized text back to the
// original CRLF text, given the removed-CR offsets from NormalizeEOL.
func DenormalizeOffset(offset int, removed []int) int {
	for _, cr := range removed {
		if cr <= offset {
			offset++
		}
	}
	return offset
}
