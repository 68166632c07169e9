package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// MaxRequestBodySize caps POST and PUT bodies (1MB).
const MaxRequestBodySize = 1 << 20

// MaxIdentifierLength bounds cache ids, event types and categories.
const MaxIdentifierLength = 128

// ValidateRequestBody limits the size of request bodies.
func ValidateRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// SanitizeString trims input, drops invalid UTF-8 and truncates to
// maxLength bytes without splitting a rune.
func SanitizeString(input string, maxLength int) string {
	input = strings.TrimSpace(input)
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	if len(input) > maxLength {
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = input[:cut]
	}
	return input
}

// ValidateIdentifier accepts ids like "proposal-42", "calc.total" or
// "session_1700000000_ab12". Letters, digits, '_', '-', '.' and ':' only.
func ValidateIdentifier(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if len(value) > MaxIdentifierLength {
		return fmt.Errorf("%s too long (max %d characters)", field, MaxIdentifierLength)
	}
	for _, c := range value {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' || c == '-' || c == '.' || c == ':':
		default:
			return fmt.Errorf("%s contains invalid characters", field)
		}
	}
	return nil
}
