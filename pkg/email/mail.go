// Package email models one backend message and builds the MIME messages
// that carry chunk payloads.
package email

import (
	"mime"
	"strings"
	"time"
)

// encodedWordMarker starts a MIME encoded-word carrying UTF-8
// quoted-printable text in a Subject header.
const encodedWordMarker = "=?UTF-8?Q?"

// dateLayout is the RFC 2822 style timestamp the backend writes, including
// the trailing zone name parenthetical.
const dateLayout = "Mon, 2 Jan 2006 15:04:05 -0700 (MST)"

// Mail is one backend message reduced to the fields the drive cares about.
// The ID is only stable within a session's view of a folder, so mails are
// re-fetched for every call and never cached.
type Mail struct {
	ID      string
	Subject string
	Date    time.Time
}

// FromHeaders builds a Mail from the raw header block of a FETCH reply.
// Lines are CRLF delimited; folded headers are unfolded first, so a long
// Subject split across continuation lines comes back whole. A Subject
// value starting with the encoded-word marker is decoded per the
// encoded-word rules; anything else is taken verbatim. A missing Date
// header deliberately falls back to the current time rather than failing.
func FromHeaders(id string, raw []byte) Mail {
	m := Mail{ID: id, Date: time.Now()}

	headers := unfold(string(raw))
	for _, line := range strings.Split(headers, "\r\n") {
		if subject, ok := strings.CutPrefix(line, "Subject: "); ok {
			m.Subject = decodeSubject(subject)
			continue
		}
		if date, ok := strings.CutPrefix(line, "Date: "); ok {
			if parsed, err := time.Parse(dateLayout, date); err == nil {
				m.Date = parsed
			}
		}
	}

	return m
}

// unfold joins folded header lines: a CRLF followed by whitespace marks a
// continuation of the previous line, with the whitespace standing in for
// the space the folding replaced.
func unfold(headers string) string {
	headers = strings.ReplaceAll(headers, "\r\n ", " ")
	return strings.ReplaceAll(headers, "\r\n\t", " ")
}

func decodeSubject(value string) string {
	if !strings.HasPrefix(value, encodedWordMarker) {
		return value
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		// Keep the undecoded value; a garbled subject is skipped later by
		// the chunk pattern match instead of failing the whole listing.
		return value
	}
	return decoded
}
