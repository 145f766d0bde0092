package formatter

import (
	"strconv"
	"strings"
)

// FormatCount converts an integer to a string with commas as thousands separators.
// Example: 1234567 -> "1,234,567"
func FormatCount(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		s = s[1:]
	}

	le := len(s)
	if le <= 3 {
		if n < 0 {
			return "-" + s
		}
		return s
	}

	sepCount := (le - 1) / 3

	res := make([]byte, le+sepCount)

	j := len(res) - 1
	for i := le - 1; i >= 0; i-- {
		res[j] = s[i]
		j--
		if (le-i)%3 == 0 && i > 0 {
			res[j] = ','
			j--
		}
	}

	if n < 0 {
		return "-" + string(res)
	}
	return string(res)
}

// FirstLine returns the text up to the first line break, trimmed.
func FirstLine(s string) string {
	if idx := strings.IndexAny(s, "\r\n"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// Ellipsize truncates s to at most max runes, appending an ellipsis when
// anything was cut off.
func Ellipsize(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
