// Package redact strips bot tokens from strings before they are logged.
package redact

import "regexp"

// tokenPattern matches the token part of /bot<token> path segments, including
// those embedded in upstream URLs inside error messages.
var tokenPattern = regexp.MustCompile(`(/bot)[^/\s"?]+`)

// Path returns p with every bot token replaced by [REDACTED].
func Path(p string) string {
	return tokenPattern.ReplaceAllString(p, "${1}[REDACTED]")
}

// Error returns the error message with bot tokens redacted.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return Path(err.Error())
}
