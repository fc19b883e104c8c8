package errors

import "regexp"

// Credential-shaped patterns that must never reach an error payload or a
// log line. Matching is best effort: false positives are acceptable,
// leaked keys are not.
var redactPatterns = []*regexp.Regexp{
	// Google API keys
	regexp.MustCompile(`AIza[0-9A-Za-z\-_]{30,}`),
	// Generic provider keys (sk-..., ghp_..., xoxb-...)
	regexp.MustCompile(`\b(?:sk|ghp|gho|xoxb|xoxp)[-_][0-9A-Za-z\-_]{12,}`),
	// Bearer tokens in headers echoed to stderr
	regexp.MustCompile(`(?i)bearer\s+[0-9A-Za-z\-._~+/]{8,}=*`),
	// key=value style assignments
	regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|auth[_-]?token|secret)\s*[=:]\s*\S+`),
}

const redactedMarker = "[redacted]"

// Redact masks recognizable key/token patterns in s. Applied to any
// subprocess output before it is attached to an error or logged.
func Redact(s string) string {
	for _, p := range redactPatterns {
		s = p.ReplaceAllString(s, redactedMarker)
	}
	return s
}
