// Package utf7 implements the modified UTF-7 mailbox name encoding used by
// the IMAP dialect of the backend (RFC 2060). Folder names cross the wire as
// quoted literals, so Encode also wraps its result in double quotes with
// backslash escaping, and Decode undoes that wrapping when present.
package utf7

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf16"
)

// Encode transcodes a Unicode folder name into the wire-safe quoted form.
// Printable ASCII (0x20-0x7E) is copied verbatim, except '&' which becomes
// the escape sequence "&-". Any run of other characters is emitted as
// "&<base64 of UTF-16BE, '/' replaced by ',', no padding>-".
func Encode(name string) string {
	var b strings.Builder
	var run []rune

	flush := func() {
		if len(run) == 0 {
			return
		}
		b.WriteByte('&')
		b.WriteString(encodeRun(run))
		b.WriteByte('-')
		run = run[:0]
	}

	for _, r := range name {
		if r >= 0x20 && r <= 0x7e {
			flush()
			if r == '&' {
				b.WriteString("&-")
			} else {
				b.WriteRune(r)
			}
			continue
		}
		run = append(run, r)
	}
	flush()

	return quote(b.String())
}

// Decode transcodes a wire folder name back to Unicode. The surrounding
// quotes and backslash escapes added by Encode are removed when present, so
// Decode(Encode(s)) == s.
func Decode(encoded string) (string, error) {
	s := encoded
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	s = unescape(s)

	segments := strings.Split(s, "&")

	var b strings.Builder
	b.WriteString(segments[0])

	for _, segment := range segments[1:] {
		payload, rest, found := strings.Cut(segment, "-")
		if !found {
			return "", fmt.Errorf("unterminated escape in folder name %q", encoded)
		}
		if payload == "" {
			// "&-" escapes a literal ampersand.
			b.WriteByte('&')
		} else {
			run, err := decodeRun(payload)
			if err != nil {
				return "", fmt.Errorf("invalid escape %q in folder name %q: %w", payload, encoded, err)
			}
			b.WriteString(run)
		}
		b.WriteString(rest)
	}

	return b.String(), nil
}

func encodeRun(run []rune) string {
	units := utf16.Encode(run)
	raw := make([]byte, 0, len(units)*2)
	for _, u := range units {
		raw = append(raw, byte(u>>8), byte(u))
	}
	s := base64.StdEncoding.WithPadding(base64.NoPadding).EncodeToString(raw)
	return strings.ReplaceAll(s, "/", ",")
}

func decodeRun(payload string) (string, error) {
	raw, err := base64.StdEncoding.WithPadding(base64.NoPadding).DecodeString(strings.ReplaceAll(payload, ",", "/"))
	if err != nil {
		return "", err
	}
	if len(raw)%2 != 0 {
		return "", fmt.Errorf("odd UTF-16 byte count %d", len(raw))
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}
	return string(utf16.Decode(units)), nil
}

// quote wraps s in double quotes, escaping embedded backslashes and double
// quotes for transmission as an IMAP quoted literal.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || s[i] == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
