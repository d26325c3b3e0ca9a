package utils

const (
	// Base62Charset is the code alphabet (0-9, A-Z, a-z). Its first symbol is the padding zero.
	Base62Charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// EncodeBase62 converts n to its natural base62 representation, most significant digit first
func EncodeBase62(n uint64) string {
	if n == 0 {
		return string(Base62Charset[0])
	}

	var buf [11]byte // 62^11 > 2^64
	i := len(buf)
	base := uint64(len(Base62Charset))

	for n > 0 {
		i--
		buf[i] = Base62Charset[n%base]
		n /= base
	}

	return string(buf[i:])
}

// IsBase62 reports whether s is non-empty and made only of Base62Charset symbols
func IsBase62(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}
