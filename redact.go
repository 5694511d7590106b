package caveo

import (
	"regexp"
	"strings"
)

// Deterministic redaction patterns, compiled once at process start.
var (
	emailPattern    = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	ipv4Pattern     = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)
	hexTokenPattern = regexp.MustCompile(`\b[a-fA-F0-9]{32,}\b`)
)

// redactedMark replaces sensitive substrings. It contains no characters
// that any redaction pattern matches, which makes Redact idempotent.
const redactedMark = "[REDACTED]"

// Redact strips emphasis markup artifacts and masks email-like,
// IP-address-like, and long-hex-token-like substrings. Applied to all
// text leaving the executor. Applying it twice yields the same text.
//
// Markup is stripped before the patterns run: emphasis markers can split
// a sensitive token (admin@exa**mple.com) that only matches once they
// are removed.
func Redact(text string) string {
	text = strings.ReplaceAll(text, "***", "")
	text = strings.ReplaceAll(text, "**", "")

	text = emailPattern.ReplaceAllString(text, redactedMark)
	text = ipv4Pattern.ReplaceAllString(text, redactedMark)
	text = hexTokenPattern.ReplaceAllString(text, redactedMark)

	return strings.TrimSpace(text)
}
