package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeWords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{
			name:   "whitespace",
			input:  "event loop",
			expect: []string{"event", "loop"},
		},
		{
			name:   "punctuation",
			input:  "Node.js (event-loop)",
			expect: []string{"node", "js", "event", "loop"},
		},
		{
			name:   "camel case emits whole word and parts",
			input:  "TypeScript",
			expect: []string{"typescript", "type", "script"},
		},
		{
			name:   "unicode letters",
			input:  "Композиція API",
			expect: []string{"композиція", "api"},
		},
		{
			name:   "empty",
			input:  "  ",
			expect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, TokenizeWords(tt.input))
		})
	}
}

func TestSplitCamelCase(t *testing.T) {
	tests := []struct {
		input  string
		expect []string
	}{
		{"getUserById", []string{"get", "User", "By", "Id"}},
		{"HTTPHandler", []string{"HTTP", "Handler"}},
		{"parseHTTPRequest", []string{"parse", "HTTP", "Request"}},
		{"simple", []string{"simple"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expect, SplitCamelCase(tt.input))
		})
	}
}
