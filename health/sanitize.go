package health

import "regexp"

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// Applied in order: URLs before paths since URLs contain paths, and
// addresses before bare ports.
var redactions = []redaction{
	{regexp.MustCompile(`(?i)\b(password|passwd|token|secret|credential|api[_-]?key|key)\s*[:=]\s*[^,;\s}&]+`), "$1=[REDACTED]"},
	{regexp.MustCompile(`(?i)\b(?:https?|wss?|nats|tls)://\S+`), "[URL]"},
	{regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}(?::\d{1,5})?\b`), "[ADDR]"},
	{regexp.MustCompile(`[A-Za-z]:\\\S+`), "[PATH]"},
	{regexp.MustCompile(`(^|[\s"'(=])(?:/[\w.-]+)+`), "${1}[PATH]"},
	{regexp.MustCompile(`:\d{2,5}\b`), ":[PORT]"},
}

// Sanitize strips endpoints, filesystem paths and credentials from msg so a
// stage error can be served to unauthenticated health probes.
func Sanitize(msg string) string {
	for _, r := range redactions {
		msg = r.pattern.ReplaceAllString(msg, r.replacement)
	}
	return msg
}
