package engine

import (
	"testing"
)

func TestRandomIntBounds(t *testing.T) {
	tests := []struct {
		name   string
		src    Source
		lo, hi int
	}{
		{name: "system source", src: NewSource(), lo: 1, hi: 100},
		{name: "seeded source", src: NewSeededSource("server", "client", 0), lo: 1, hi: 100},
		{name: "two values", src: NewSource(), lo: 0, hi: 1},
		{name: "negative range", src: NewSeededSource("s", "c", 3), lo: -5, hi: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 2000; i++ {
				v := RandomInt(tt.src, tt.lo, tt.hi)
				if v < tt.lo || v > tt.hi {
					t.Fatalf("draw %d = %d, outside [%d, %d]", i, v, tt.lo, tt.hi)
				}
			}
		})
	}
}

func TestRandomIntCollapsedRange(t *testing.T) {
	src := NewSequenceSource(7)
	if got := RandomInt(src, 4, 4); got != 4 {
		t.Errorf("RandomInt(4, 4) = %d, want 4", got)
	}
	if got := RandomInt(src, 9, 2); got != 9 {
		t.Errorf("RandomInt(9, 2) = %d, want 9", got)
	}
	if src.Draws() != 0 {
		t.Errorf("collapsed range consumed %d draws, want 0", src.Draws())
	}
}

func TestRandomIntCoversRange(t *testing.T) {
	src := NewSeededSource("coverage", "seed", 1)
	seen := make(map[int]bool)
	for i := 0; i < 5000; i++ {
		seen[RandomInt(src, 1, 6)] = true
	}
	for v := 1; v <= 6; v++ {
		if !seen[v] {
			t.Errorf("value %d never drawn in 5000 draws", v)
		}
	}
}

func TestSeededSourceDeterministic(t *testing.T) {
	a := NewSeededSource("server_seed", "client_seed", 42)
	b := NewSeededSource("server_seed", "client_seed", 42)
	c := NewSeededSource("server_seed", "client_seed", 43)

	same := true
	for i := 0; i < 64; i++ {
		x, y, z := a.IntN(1000), b.IntN(1000), c.IntN(1000)
		if x != y {
			t.Fatalf("draw %d differs for identical seeds: %d vs %d", i, x, y)
		}
		if x != z {
			same = false
		}
	}
	if same {
		t.Error("different nonces produced identical streams")
	}
}

func TestByteGeneratorCursor(t *testing.T) {
	full := NewByteGenerator("server", "client", 1, 0)
	var stream [40]byte
	for i := range stream {
		stream[i] = full.Next()
	}

	// Cursor 31 straddles the first round boundary.
	bg := NewByteGenerator("server", "client", 1, 31)
	for i := 31; i < 40; i++ {
		if got := bg.Next(); got != stream[i] {
			t.Fatalf("byte %d = %d, want %d", i, got, stream[i])
		}
	}
}

func TestNextFloatRange(t *testing.T) {
	bg := NewByteGenerator("test_server_seed", "test_client_seed", 1, 0)
	for i := 0; i < 256; i++ {
		f := bg.NextFloat()
		if f < 0 || f >= 1 {
			t.Fatalf("float %d out of range [0, 1): %f", i, f)
		}
	}
}

func TestParseSeed(t *testing.T) {
	tests := []struct {
		in         string
		wantServer string
		wantClient string
		wantErr    bool
	}{
		{in: "abc:def", wantServer: "abc", wantClient: "def"},
		{in: "abc", wantServer: "abc"},
		{in: "  abc:def  ", wantServer: "abc", wantClient: "def"},
		{in: "abc:d:e", wantServer: "abc", wantClient: "d:e"},
		{in: "", wantErr: true},
		{in: ":client", wantErr: true},
	}

	for _, tt := range tests {
		server, client, err := ParseSeed(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSeed(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSeed(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if server != tt.wantServer || client != tt.wantClient {
			t.Errorf("ParseSeed(%q) = (%q, %q), want (%q, %q)", tt.in, server, client, tt.wantServer, tt.wantClient)
		}
	}
}

func TestSequenceSource(t *testing.T) {
	src := NewSequenceSource(0, 5, -1)
	want := []int{0, 2, 2, 0}
	for i, w := range want {
		if got := src.IntN(3); got != w {
			t.Errorf("draw %d = %d, want %d", i, got, w)
		}
	}
	if src.Draws() != 4 {
		t.Errorf("Draws() = %d, want 4", src.Draws())
	}
}
