package caveo

import (
	"strings"
	"testing"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "email address",
			input:    "Contact alice@example.com for details",
			expected: "Contact [REDACTED] for details",
		},
		{
			name:     "ipv4 address",
			input:    "The server at 192.168.1.100 responded",
			expected: "The server at [REDACTED] responded",
		},
		{
			name:     "long hex token",
			input:    "Use key deadbeefdeadbeefdeadbeefdeadbeef to authenticate",
			expected: "Use key [REDACTED] to authenticate",
		},
		{
			name:     "short hex left alone",
			input:    "Commit abc123 fixed it",
			expected: "Commit abc123 fixed it",
		},
		{
			name:     "bold markup stripped",
			input:    "This is **very** important",
			expected: "This is very important",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  an answer  ",
			expected: "an answer",
		},
		{
			name:     "multiple findings in one text",
			input:    "bob@test.org connected from 10.0.0.1",
			expected: "[REDACTED] connected from [REDACTED]",
		},
		{
			name:     "email split by emphasis markers",
			input:    "contact admin@exa**mple.com now",
			expected: "contact [REDACTED] now",
		},
		{
			name:     "ip split by emphasis markers",
			input:    "host 192.168.**1.100 responded",
			expected: "host [REDACTED] responded",
		},
		{
			name:     "clean text unchanged",
			input:    "Nothing sensitive here.",
			expected: "Nothing sensitive here.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Redact(tt.input)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRedactIdempotent(t *testing.T) {
	inputs := []string{
		"Contact alice@example.com at 192.168.1.1",
		"Token deadbeefdeadbeefdeadbeefdeadbeef issued",
		"**bold** and ***bolder*** text",
		"contact admin@exa**mple.com now",
		"token deadbeefdead**beefdeadbeefdeadbeef issued",
		"plain text",
	}

	for _, input := range inputs {
		once := Redact(input)
		if strings.Contains(once, "@") {
			t.Errorf("first pass released an address in %q: %q", input, once)
		}
	}

	for _, input := range inputs {
		once := Redact(input)
		twice := Redact(once)
		if once != twice {
			t.Errorf("not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestRedactMarkNotRecursive(t *testing.T) {
	// The replacement token itself must never match a redaction pattern.
	if got := Redact(redactedMark); got != redactedMark {
		t.Errorf("redaction mark was altered: %q", got)
	}
	if strings.Contains(redactedMark, "@") {
		t.Error("redaction mark must not contain pattern-matching characters")
	}
}
