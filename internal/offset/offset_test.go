package offset

import "testing"

// "𝕃" and "𝔹" are astral-plane letters: 4 UTF-8 bytes, 2 UTF-16 code
// units, 1 code point each. "ℕ" is 3 bytes, 1 unit, 1 point.
const sample = "x : 𝕃 ℕ"

func TestUTF16ToByte(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		offset int
		want   int
	}{
		{"ascii start", "abc", 0, 0},
		{"ascii middle", "abc", 2, 2},
		{"negative clamps", "abc", -1, 0},
		{"past end clamps", "abc", 9, 3},
		{"before astral", sample, 4, 4},
		{"after astral pair", sample, 6, 8},
		{"inside surrogate pair resolves past the rune", sample, 5, 8},
		{"end of string", sample, 8, len(sample)},
		{"past end clamps to length", sample, 9, len(sample)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UTF16ToByte(tt.s, tt.offset); got != tt.want {
				t.Errorf("UTF16ToByte(%q, %d) = %d, want %d", tt.s, tt.offset, got, tt.want)
			}
		})
	}
}

func TestByteToUTF16(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		offset int
		want   int
	}{
		{"start", sample, 0, 0},
		{"before astral", sample, 4, 4},
		{"after astral", sample, 8, 6},
		{"inside rune resolves past the rune", sample, 6, 6},
		{"end", sample, len(sample), 8},
		{"past end clamps", sample, 100, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ByteToUTF16(tt.s, tt.offset); got != tt.want {
				t.Errorf("ByteToUTF16(%q, %d) = %d, want %d", tt.s, tt.offset, got, tt.want)
			}
		})
	}
}

func TestUTF16ByteRoundTrip(t *testing.T) {
	// Rune-aligned byte offsets must survive the round trip.
	for i := range sample {
		units := ByteToUTF16(sample, i)
		if back := UTF16ToByte(sample, units); back != i {
			t.Errorf("round trip at byte %d: units=%d back=%d", i, units, back)
		}
	}
}

func TestCodePointConversions(t *testing.T) {
	if got := CodePointToByte(sample, 4); got != 4 {
		t.Errorf("CodePointToByte before astral: got %d", got)
	}
	if got := CodePointToByte(sample, 5); got != 8 {
		t.Errorf("CodePointToByte after astral: got %d", got)
	}
	if got := CodePointToByte(sample, 100); got != len(sample) {
		t.Errorf("CodePointToByte past end: got %d", got)
	}

	if got := ByteToCodePoint(sample, 8); got != 5 {
		t.Errorf("ByteToCodePoint: got %d", got)
	}
	if got := ByteToCodePoint(sample, len(sample)); got != 7 {
		t.Errorf("ByteToCodePoint end: got %d", got)
	}
}

func TestNormalizeEOL(t *testing.T) {
	norm, removed := NormalizeEOL("a\r\nb\r\nc")
	if norm != "a\nb\nc" {
		t.Errorf("normalized: got %q", norm)
	}
	if len(removed) != 2 || removed[0] != 1 || removed[1] != 4 {
		t.Errorf("removed offsets: got %v", removed)
	}

	// LF-only text passes through untouched.
	norm, removed = NormalizeEOL("a\nb")
	if norm != "a\nb" || removed != nil {
		t.Errorf("lf passthrough: got %q %v", norm, removed)
	}

	// A lone CR is not a line ending and stays.
	norm, _ = NormalizeEOL("a\rb\r\nc")
	if norm != "a\rb\nc" {
		t.Errorf("lone cr: got %q", norm)
	}
}

func TestDenormalizeOffset(t *testing.T) {
	orig := "a\r\nb\r\nc"
	norm, removed := NormalizeEOL(orig)

	// Every rune in the normalized text must map back onto the same rune
	// in the original.
	for i := range norm {
		j := DenormalizeOffset(i, removed)
		if j < len(orig) && norm[i] != orig[j] && norm[i] != '\n' {
			t.Errorf("offset %d maps to %d: %q vs %q", i, j, norm[i], orig[j])
		}
	}

	if got := DenormalizeOffset(2, removed); got != 3 {
		t.Errorf("DenormalizeOffset(2) = %d, want 3", got)
	}
	if got := DenormalizeOffset(4, removed); got != 6 {
		t.Errorf("DenormalizeOffset(4) = %d, want 6", got)
	}
}
