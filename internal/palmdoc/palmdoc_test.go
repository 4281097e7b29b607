package palmdoc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecompressLiterals(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"empty", nil, []byte{}},
		{"ascii", []byte("Hello"), []byte("Hello")},
		{"nul", []byte{0x00, 'a'}, []byte{0x00, 'a'}},
		{"verbatim run", []byte{0x03, 0x01, 0xFF, 0x80}, []byte{0x01, 0xFF, 0x80}},
		{"space pair", []byte{'a', 0xE2}, []byte("a b")},
		{"truncated run", []byte{0x05, 'x', 'y'}, []byte("xy")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decompress(tt.in)
			if d := cmp.Diff(tt.want, got); d != "" {
				t.Errorf("Decompress() mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestDecompressBackReference(t *testing.T) {
	// distance=3, length=3: b0=0x80, b1=(3<<3)|0
	in := append([]byte("abcabc"), 0x80, 0x18)
	got := Decompress(in)
	if string(got) != "abcabcabc" {
		t.Errorf("Decompress() = %q, want %q", got, "abcabcabc")
	}
}

func TestDecompressOverlappingCopy(t *testing.T) {
	// distance=1, length=5 repeats the last byte
	in := []byte{'a', 0x80, 1<<3 | 2}
	got := Decompress(in)
	if string(got) != "aaaaaa" {
		t.Errorf("Decompress() = %q, want %q", got, "aaaaaa")
	}
}

func TestDecompressOutOfRangeReference(t *testing.T) {
	// distance=10 but only 2 bytes produced so far
	in := []byte{'a', 'b', 0x80, 10 << 3, 'z'}
	got := Decompress(in)
	if string(got) != "ab" {
		t.Errorf("Decompress() = %q, want %q", got, "ab")
	}

	// dangling first byte of a pair
	got = Decompress([]byte{'q', 0x85})
	if string(got) != "q" {
		t.Errorf("Decompress() = %q, want %q", got, "q")
	}
}

func TestCompressLiteralRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		[]byte("x"),
		[]byte("exactly8"),
		{0x00, 0x01, 0x08, 0x80, 0xC0, 0xFF, 0x7F, 0x09, 0x0A},
		bytes.Repeat([]byte{0xAB, 0x02}, 37),
	}
	for _, in := range inputs {
		enc := CompressLiteral(in)
		got := Decompress(enc)
		if !bytes.Equal(got, in) {
			t.Errorf("round trip of %v = %v", in, got)
		}
	}
}

func TestCompressRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"The quick brown fox jumps over the lazy dog. The quick brown fox jumps again.",
		strings.Repeat("la ", 500),
		"café – naïve – 第一章 – 제1장",
		"\x01\x02\x03 tabs\tand\nnewlines\x00",
	}
	for _, in := range inputs {
		enc := Compress([]byte(in))
		got := Decompress(enc)
		if string(got) != in {
			t.Errorf("round trip mismatch for %q: got %q", in, got)
		}
	}
}

func TestCompressShrinksRepetitiveText(t *testing.T) {
	in := []byte(strings.Repeat("Once upon a time ", 200))
	enc := Compress(in)
	if len(enc) >= len(in)/2 {
		t.Errorf("Compress() produced %d bytes for %d input bytes", len(enc), len(in))
	}
}
