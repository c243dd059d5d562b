package compress

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("85283473fffffff,"), 512)
	small := []byte{1, 2, 3}

	for _, c := range []Codec{None, LZ4, Zstd} {
		for name, data := range map[string][]byte{"compressible": compressible, "small": small, "empty": {}} {
			t.Run(c.String()+"/"+name, func(t *testing.T) {
				frame, err := Encode(c, data)
				if err != nil {
					t.Fatalf("Encode: %v", err)
				}
				got, err := Decode(frame)
				if err != nil {
					t.Fatalf("Decode: %v", err)
				}
				if !bytes.Equal(got, data) {
					t.Fatalf("round trip mismatch: %d bytes, want %d", len(got), len(data))
				}
			})
		}
	}
}

func TestCompressibleDataShrinks(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 4096)
	for _, c := range []Codec{LZ4, Zstd} {
		frame, err := Encode(c, data)
		if err != nil {
			t.Fatal(err)
		}
		if Codec(frame[0]) != c || len(frame) >= len(data)/2 {
			t.Fatalf("%s: codec byte %d, %d bytes for %d input", c, frame[0], len(frame), len(data))
		}
	}
}

func TestDecodeCorrupt(t *testing.T) {
	for name, frame := range map[string][]byte{
		"short":   {2, 0},
		"codec":   {9, 0, 0, 0, 0},
		"size":    {0, 5, 0, 0, 0, 1},
		"garbage": {2, 10, 0, 0, 0, 1, 2, 3},
	} {
		if _, err := Decode(frame); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: want ErrCorrupt, got %v", name, err)
		}
	}
}

func TestParseCodec(t *testing.T) {
	for in, want := range map[string]Codec{"": None, "none": None, "LZ4": LZ4, " zstd ": Zstd} {
		got, err := ParseCodec(in)
		if err != nil || got != want {
			t.Fatalf("ParseCodec(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseCodec("gzip"); err == nil {
		t.Fatalf("expected an error for gzip")
	}
}
