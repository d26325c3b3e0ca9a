package utils

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// EntropyBits is the number of random bits drawn per code, independent of the requested length.
// 48 bits encode to at most 9 base62 symbols, so lengths above 9 are left-padded with '0' and lengths
// below 9 truncate the encoding, which lowers the effective entropy.
const EntropyBits = 48

// randReader is swapped in tests
var randReader io.Reader = rand.Reader

// CodeFunc produces a short code of the given length
type CodeFunc func(length int) (string, error)

// NewCode draws EntropyBits from crypto/rand and returns exactly length base62 symbols
func NewCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}

	var buf [8]byte
	if _, err := io.ReadFull(randReader, buf[8-EntropyBits/8:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return FitCode(EncodeBase62(binary.BigEndian.Uint64(buf[:])), length), nil
}

// FitCode left-pads encoded with the zero symbol, or truncates it to its first length symbols
func FitCode(encoded string, length int) string {
	if len(encoded) < length {
		return strings.Repeat(string(Base62Charset[0]), length-len(encoded)) + encoded
	}
	return encoded[:length]
}
