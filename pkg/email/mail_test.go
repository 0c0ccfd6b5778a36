package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHeadersPlainSubject(t *testing.T) {
	raw := []byte("Subject: report.pdf.part1\r\nDate: Tue, 5 Mar 2024 10:57:01 +0000 (UTC)\r\n\r\n")

	m := FromHeaders("42", raw)

	assert.Equal(t, "42", m.ID)
	assert.Equal(t, "report.pdf.part1", m.Subject)
	assert.Equal(t, time.Date(2024, time.March, 5, 10, 57, 1, 0, time.UTC), m.Date.UTC())
}

func TestFromHeadersEncodedSubject(t *testing.T) {
	raw := []byte("Subject: =?UTF-8?Q?r=C3=A9sum=C3=A9.pdf.part1?=\r\nDate: Wed, 14 Feb 2024 08:00:00 +0100 (CET)\r\n\r\n")

	m := FromHeaders("7", raw)

	assert.Equal(t, "résumé.pdf.part1", m.Subject)
}

func TestFromHeadersFoldedSubject(t *testing.T) {
	raw := []byte("Subject: annual report with a very long\r\n descriptive name.pdf.part1\r\n" +
		"Date: Tue, 5 Mar 2024 10:57:01 +0000 (UTC)\r\n\r\n")

	m := FromHeaders("42", raw)

	assert.Equal(t, "annual report with a very long descriptive name.pdf.part1", m.Subject)
}

func TestFromHeadersTabFoldedSubject(t *testing.T) {
	raw := []byte("Subject: first half\r\n\tsecond half.txt.part2\r\n\r\n")

	m := FromHeaders("3", raw)

	assert.Equal(t, "first half second half.txt.part2", m.Subject)
}

func TestSubjectSurvivesMessageRoundTrip(t *testing.T) {
	// Long enough that the header writer folds the Subject across lines.
	name := "a rather long file name with many spaces that comfortably exceeds the folding column limit.bin"
	subject := name + ".part1"

	msg, err := BuildChunkMessage(subject, name, []byte("payload"))
	require.NoError(t, err)

	m := FromHeaders("1", msg)
	assert.Equal(t, subject, m.Subject)
}

func TestFromHeadersMissingDate(t *testing.T) {
	before := time.Now()
	m := FromHeaders("1", []byte("Subject: notes.txt.part1\r\n\r\n"))
	after := time.Now()

	// No Date header defaults to the parse time, on purpose.
	assert.False(t, m.Date.Before(before))
	assert.False(t, m.Date.After(after))
}

func TestFromHeadersUnparsableDate(t *testing.T) {
	m := FromHeaders("1", []byte("Subject: notes.txt.part1\r\nDate: not a date\r\n\r\n"))
	assert.WithinDuration(t, time.Now(), m.Date, time.Minute)
}

func TestBuildChunkMessage(t *testing.T) {
	msg, err := BuildChunkMessage("data.bin.part3", "data.bin", []byte{0x00, 0x01, 0xff})
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "Subject: data.bin.part3")
	assert.Contains(t, s, "Content-Transfer-Encoding: base64")
	assert.Contains(t, s, "Content-Type: application/bin")
	assert.Contains(t, s, "filename=")
	assert.Contains(t, s, "data.bin.part3")
	// Base64 of 0x00 0x01 0xff.
	assert.Contains(t, s, "AAH/")
}

func TestAttachmentContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", attachmentContentType("report.pdf"))
	assert.Equal(t, "application/octet-stream", attachmentContentType("README"))
}
