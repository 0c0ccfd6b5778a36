package email

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/pkg/errors"
)

// BuildChunkMessage assembles the multipart message storing one chunk: the
// subject names the chunk and a single attachment carries the payload,
// base64 encoded. Sender and recipient headers are not needed, the message
// is only ever APPENDed, never sent.
func BuildChunkMessage(subject, fileName string, payload []byte) ([]byte, error) {
	var buf bytes.Buffer

	var header mail.Header
	header.SetSubject(subject)

	mw, err := mail.CreateWriter(&buf, header)
	if err != nil {
		return nil, errors.Wrap(err, "create message writer")
	}

	var ah mail.AttachmentHeader
	ah.SetFilename(subject)
	ah.Set("Content-Type", attachmentContentType(fileName))
	ah.Set("Content-Transfer-Encoding", "base64")

	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return nil, errors.Wrap(err, "create attachment")
	}
	if _, err := aw.Write(payload); err != nil {
		return nil, errors.Wrap(err, "write attachment payload")
	}
	if err := aw.Close(); err != nil {
		return nil, errors.Wrap(err, "close attachment")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "close message")
	}

	return buf.Bytes(), nil
}

// attachmentContentType derives the application subtype from the file
// extension, matching how chunks have always been stored.
func attachmentContentType(fileName string) string {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	if ext == "" {
		ext = "octet-stream"
	}
	return "application/" + ext
}
