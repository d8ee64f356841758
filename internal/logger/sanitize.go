package logger

import "strings"

const maxLoggedValueLength = 256

// SanitizeString strips control characters from a value before it is logged,
// preventing log injection via CRLF sequences and keeping entries single-line.
func SanitizeString(s string) string {
	if len(s) > maxLoggedValueLength {
		s = s[:maxLoggedValueLength]
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizePath sanitizes a request path for logging
func SanitizePath(path string) string {
	return SanitizeString(path)
}
