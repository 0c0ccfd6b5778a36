// Package logging configures the process logger and provides helpers for
// keeping account identifiers out of log output.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns the root logger. Debug mode lowers the level to Trace so the
// raw protocol exchange becomes visible.
func New(debug bool) zerolog.Logger {
	level := zerolog.ErrorLevel
	if debug {
		level = zerolog.TraceLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// MaskEmail hides most of an email address while keeping it recognizable
// in logs.
func MaskEmail(s string) string {
	s = strings.TrimSpace(s)
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return s
	}

	mask := func(part string) string {
		if len(part) <= 1 {
			return "*"
		}
		masked := len(part) - 2
		return part[:1] + strings.Repeat("*", masked) + part[len(part)-1:]
	}

	domainParts := strings.Split(s[at+1:], ".")
	for i, p := range domainParts {
		domainParts[i] = mask(p)
	}
	return mask(s[:at]) + "@" + strings.Join(domainParts, ".")
}
