package utils

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"
)

func TestEncodeBase62(t *testing.T) {
	tests := []struct {
		n        uint64
		expected string
	}{
		{0, "0"},
		{1, "1"},
		{10, "A"},
		{35, "Z"},
		{36, "a"},
		{61, "z"},
		{62, "10"},
		{62*62 - 1, "zz"},
	}

	for _, tt := range tests {
		if got := EncodeBase62(tt.n); got != tt.expected {
			t.Errorf("EncodeBase62(%d) = %s, expected %s", tt.n, got, tt.expected)
		}
	}

	// 2^64-1 must fit the fixed buffer
	if got := EncodeBase62(^uint64(0)); len(got) != 11 {
		t.Errorf("EncodeBase62(max) = %s, expected 11 symbols", got)
	}
}

func TestFitCode(t *testing.T) {
	tests := []struct {
		name     string
		encoded  string
		length   int
		expected string
	}{
		{"Pads short encodings", "abc", 5, "00abc"},
		{"Keeps exact length", "abcde", 5, "abcde"},
		{"Truncates long encodings", "123456789", 8, "12345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FitCode(tt.encoded, tt.length); got != tt.expected {
				t.Errorf("FitCode(%q, %d) = %q, expected %q", tt.encoded, tt.length, got, tt.expected)
			}
		})
	}
}

func TestNewCode_LengthAndAlphabet(t *testing.T) {
	for _, length := range []int{1, 4, 8, 9, 12, 20} {
		for i := 0; i < 200; i++ {
			code, err := NewCode(length)
			if err != nil {
				t.Fatalf("NewCode(%d) returned unexpected error: %v", length, err)
			}
			if len(code) != length {
				t.Fatalf("NewCode(%d) = %q has length %d", length, code, len(code))
			}
			if !IsBase62(code) {
				t.Fatalf("NewCode(%d) = %q contains symbols outside the alphabet", length, code)
			}
		}
	}
}

func TestNewCode_DeterministicSource(t *testing.T) {
	original := randReader
	defer func() { randReader = original }()

	randReader = bytes.NewReader(make([]byte, 6))
	code, err := NewCode(8)
	if err != nil {
		t.Fatalf("NewCode returned unexpected error: %v", err)
	}
	if code != "00000000" {
		t.Errorf("zero entropy should pad to all zeros, got %q", code)
	}

	randReader = bytes.NewReader(bytes.Repeat([]byte{0xff}, 6))
	code, err = NewCode(8)
	if err != nil {
		t.Fatalf("NewCode returned unexpected error: %v", err)
	}
	full := EncodeBase62(1<<EntropyBits - 1)
	if len(full) != 9 || !strings.HasPrefix(full, code) {
		t.Errorf("max entropy should truncate %q to its first 8 symbols, got %q", full, code)
	}
}

func TestNewCode_Errors(t *testing.T) {
	if _, err := NewCode(0); err == nil {
		t.Error("NewCode(0) expected error but got nil")
	}

	original := randReader
	defer func() { randReader = original }()
	randReader = iotest.ErrReader(errors.New("entropy pool drained"))

	if _, err := NewCode(8); err == nil {
		t.Error("NewCode with failing reader expected error but got nil")
	}
}

func TestIsBase62(t *testing.T) {
	tests := map[string]bool{
		"abcXYZ09":     true,
		"":             false,
		"abc-123":      false,
		"doesnotexist": true,
		"ü":            false,
	}
	for in, want := range tests {
		if got := IsBase62(in); got != want {
			t.Errorf("IsBase62(%q) = %v, expected %v", in, got, want)
		}
	}
}

// BenchmarkNewCode measures code generation from crypto/rand
func BenchmarkNewCode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = NewCode(8)
	}
}
