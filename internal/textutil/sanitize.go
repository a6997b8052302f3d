package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFileName makes name usable as a single path component. The input
// is NFC-normalized, path separators and ':' or '*' become '-', and shell or
// Windows-hostile characters are dropped. "." and ".." sanitize to "".
func SanitizeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|', 0:
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// SanitizeToken lowercases value and replaces anything outside [a-z0-9_-]
// with '_'. Leading and trailing separators are trimmed; an empty result
// becomes "unknown".
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return '_'
		}
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, strings.TrimSpace(value))
	if token = strings.Trim(token, "_-"); token == "" {
		return "unknown"
	}
	return token
}
