// Package redact scrubs secrets from strings before they reach logs or
// error messages. Provider error bodies sometimes echo the Authorization
// header back, and asset payload references can be multi-megabyte data
// URIs; both must never surface verbatim.
package redact

import (
	"fmt"
	"regexp"
)

// Placeholders substituted for matched secrets.
const (
	KeyPlaceholder     = "[REDACTED_KEY]"
	PayloadPlaceholder = "[PAYLOAD_OMITTED]"
)

var (
	// Bearer tokens in echoed request headers.
	bearerRegex = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.~+/]{8,}`)

	// API keys passed as query parameters or JSON fields.
	keyParamRegex = regexp.MustCompile(
		`(?i)(api[_-]?key|key|token|secret)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// Common provider key shapes (OpenAI-style sk-, Google AIza).
	keyShapeRegex = regexp.MustCompile(`\b(sk-[A-Za-z0-9_-]{8,}|AIza[A-Za-z0-9_-]{8,})\b`)

	// Inline base64 payloads. Anything long enough to be an encoded asset
	// is noise in a log line.
	dataURIRegex = regexp.MustCompile(`data:[\w/+.-]+;base64,[A-Za-z0-9+/=]{16,}`)
)

// String redacts credentials and inline payloads from the input.
func String(input string) string {
	if input == "" {
		return input
	}

	out := bearerRegex.ReplaceAllString(input, KeyPlaceholder)
	out = keyParamRegex.ReplaceAllString(out, "${1}${2}"+KeyPlaceholder)
	out = keyShapeRegex.ReplaceAllString(out, KeyPlaceholder)
	out = dataURIRegex.ReplaceAllString(out, PayloadPlaceholder)
	return out
}

// Error redacts an error's message. Returns "" for a nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Fingerprint returns a short stable identifier for a secret that is safe
// to log: the first and last three characters with the middle elided.
// Short secrets are fully elided.
func Fingerprint(secret string) string {
	if len(secret) < 10 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", secret[:3], secret[len(secret)-3:])
}
