package store

import (
	"strings"
	"unicode"
)

// TokenizeWords splits text into lowercase index terms. Words are runs of
// letters and digits; a mixed-case word such as "TypeScript" is emitted
// whole and also as its camelCase parts, so both "typescript" and "script"
// find it.
func TokenizeWords(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		tokens = append(tokens, strings.ToLower(word))

		parts := SplitCamelCase(word)
		if len(parts) < 2 {
			continue
		}
		for _, p := range parts {
			if len([]rune(p)) >= 2 {
				tokens = append(tokens, strings.ToLower(p))
			}
		}
	}
	return tokens
}

// SplitCamelCase splits camelCase and PascalCase identifiers.
// Examples:
//   - "getUserById" -> ["get", "User", "By", "Id"]
//   - "HTTPHandler" -> ["HTTP", "Handler"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// acronym boundary: "HTTPHandler" splits before the final upper
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}
