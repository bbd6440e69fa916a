package acquire

import (
	"regexp"
)

// Error text from providers and external processes can embed signed URLs,
// tokens and credentials. Redact scrubs those before a message is persisted
// or surfaced on a task.
var redactPatterns = []*regexp.Regexp{
	// credential-bearing query parameters
	regexp.MustCompile(`(?i)([?&](?:token|access_token|api_key|apikey|key|secret|auth|authorization|password|sig|signature|session)=)[^&\s"']+`),
	// bearer and basic authorization headers echoed into errors
	regexp.MustCompile(`(?i)\b(bearer|basic)\s+[a-z0-9._~+/=-]+`),
	// userinfo in URLs
	regexp.MustCompile(`(//)[^/@\s]+:[^/@\s]+@`),
}

// Redact replaces credential-looking fragments in msg with a placeholder.
func Redact(msg string) string {
	out := msg
	out = redactPatterns[0].ReplaceAllString(out, "${1}[redacted]")
	out = redactPatterns[1].ReplaceAllString(out, "${1} [redacted]")
	out = redactPatterns[2].ReplaceAllString(out, "${1}[redacted]@")
	return out
}
