package param

import (
	"regexp"
	"strconv"
	"strings"
)

// Token is one key=value pair from a parameter string
type Token struct {
	Key   string
	Value string
}

var numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

func isSeparator(r rune) bool {
	switch r {
	case ':', ',', ';', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// Parse splits a parameter string into tokens. Tokens without '=' or with an
// empty key are dropped. An empty string yields no tokens.
func Parse(params string) []Token {
	fields := strings.FieldsFunc(params, isSeparator)
	tokens := make([]Token, 0, len(fields))
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		tokens = append(tokens, Token{Key: key, Value: strings.TrimSpace(value)})
	}
	return tokens
}

// ParseNumber reads the leading numeric prefix of s ("12px" -> 12). When no
// number can be read it returns 0 and ok=false; callers clamp either way.
func ParseNumber(s string) (float64, bool) {
	prefix := numberPrefix.FindString(strings.TrimSpace(s))
	if prefix == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		// out of range parses as ±Inf, which clamps to a bound
		return v, false
	}
	return v, prefix == strings.TrimSpace(s)
}
