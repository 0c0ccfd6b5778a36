package imap

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mathieures/ymd/pkg/email"
	"github.com/mathieures/ymd/pkg/logging"
	"github.com/mathieures/ymd/pkg/reliability"
	"github.com/mathieures/ymd/pkg/utf7"
)

// trashFolder receives deleted chunk mails when the caller asks for a
// trash move instead of a hard delete.
const trashFolder = "Trash"

// Session is one authenticated connection to the mail backend. A Session
// must not be used by more than one task at a time; the drive holds a pool
// of independent sessions, one per concurrent worker.
type Session struct {
	conn *Conn
	log  zerolog.Logger
}

// NewSession dials the backend and authenticates with the given address
// and password. Dialing is retried with backoff; authentication is not.
func NewSession(ctx context.Context, address, password string, log zerolog.Logger) (*Session, error) {
	log.Debug().Str("server", ServerAddr).Str("address", logging.MaskEmail(address)).Msg("connecting to IMAP server")

	var conn *Conn
	err := reliability.Retry(ctx, reliability.DialConfig(), func() error {
		var dialErr error
		conn, dialErr = DialTLS(ctx, log)
		return dialErr
	})
	if err != nil {
		return nil, err
	}

	if _, err := conn.execute(fmt.Sprintf("LOGIN %s %s", quoteString(address), quoteString(password))); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "authenticate")
	}

	return &Session{conn: conn, log: log}, nil
}

// SelectFolder selects the given folder, read-only or with write access.
func (s *Session) SelectFolder(name string, readonly bool) error {
	verb := "SELECT"
	if readonly {
		verb = "EXAMINE"
	}
	s.log.Debug().Str("folder", name).Bool("readonly", readonly).Msg("selecting folder")

	_, err := s.conn.execute(verb + " " + utf7.Encode(name))
	return errors.Wrapf(err, "select folder %q", name)
}

// Folders returns every folder path known to the backend, decoded to
// Unicode.
func (s *Session) Folders() ([]string, error) {
	resp, err := s.conn.execute(`LIST "" "*"`)
	if err != nil {
		return nil, errors.Wrap(err, "list folders")
	}

	encoded, err := ParseFolderList(resp.linesWithPrefix("LIST "))
	if err != nil {
		return nil, err
	}

	folders := make([]string, 0, len(encoded))
	for _, name := range encoded {
		decoded, err := utf7.Decode(name)
		if err != nil {
			return nil, errors.Wrapf(err, "decode folder name %q", name)
		}
		folders = append(folders, decoded)
	}

	s.log.Debug().Strs("folders", folders).Msg("retrieved folders")
	return folders, nil
}

// CreateFolder creates the given folder unless it already exists. The
// backend misbehaves when a child is created before its ancestors, so
// every missing ancestor in a slash-delimited path is created first.
func (s *Session) CreateFolder(path string) error {
	folders, err := s.Folders()
	if err != nil {
		return err
	}
	if slices.Contains(folders, path) {
		s.log.Debug().Str("folder", path).Msg("folder already exists")
		return nil
	}

	segments := strings.Split(path, "/")
	for i := range segments {
		sub := strings.Join(segments[:i+1], "/")
		if slices.Contains(folders, sub) {
			continue
		}
		s.log.Debug().Str("folder", sub).Msg("creating folder")
		if _, err := s.conn.execute("CREATE " + utf7.Encode(sub)); err != nil {
			return errors.Wrapf(err, "create folder %q", sub)
		}
	}
	return nil
}

// DeleteFolder deletes the given folder. Existence checks belong to the
// drive layer, which knows whether the name was meant as file or folder.
func (s *Session) DeleteFolder(path string) error {
	s.log.Debug().Str("folder", path).Msg("deleting folder")
	_, err := s.conn.execute("DELETE " + utf7.Encode(path))
	return errors.Wrapf(err, "delete folder %q", path)
}

// Mails returns all mails in the given folder, in ascending id order, and
// leaves the folder selected read-only on this session.
func (s *Session) Mails(folder string) ([]email.Mail, error) {
	s.log.Debug().Str("folder", folder).Msg("retrieving all mails")
	if err := s.SelectFolder(folder, true); err != nil {
		return nil, err
	}

	resp, err := s.conn.execute("UID SEARCH ALL")
	if err != nil {
		return nil, errors.Wrap(err, "search mail ids")
	}
	searchLines := resp.linesWithPrefix("SEARCH")
	if len(searchLines) == 0 {
		return nil, &MailsRetrievalError{Folder: folder, Err: errors.New("missing SEARCH reply")}
	}
	ids := strings.Fields(string(searchLines[0]))
	s.log.Debug().Strs("ids", ids).Msg("retrieved mail ids")
	if len(ids) == 0 {
		return nil, nil
	}

	// One FETCH covers every mail when the ids are comma separated.
	cmd := fmt.Sprintf("UID FETCH %s (BODY[HEADER.FIELDS (SUBJECT DATE FROM)])", strings.Join(ids, ","))
	resp, err = s.conn.execute(cmd)
	if err != nil {
		return nil, errors.Wrap(err, "fetch mail headers")
	}

	batch, err := ParseFetch(resp.fetchFragments())
	if err != nil {
		return nil, &MailsRetrievalError{Folder: folder, Err: err}
	}

	mails := make([]email.Mail, 0, len(batch.IDs))
	for i, id := range batch.IDs {
		mails = append(mails, email.FromHeaders(id, batch.Data[i]))
	}
	return mails, nil
}

// Attachment returns the decoded attachment content of the given mail. The
// mail's folder must currently be selected on this session.
func (s *Session) Attachment(m email.Mail) ([]byte, error) {
	resp, err := s.conn.execute(fmt.Sprintf("UID FETCH %s (BODY.PEEK[1])", m.ID))
	if err != nil {
		return nil, errors.Wrapf(err, "fetch attachment of mail %s", m.ID)
	}

	batch, err := ParseFetch(resp.fetchFragments())
	if err != nil {
		return nil, err
	}
	return decodeBase64Body(batch.Data[0])
}

// Save appends the message to the given folder, flagged \Seen so stored
// chunks are not mistaken for real unread mail.
func (s *Session) Save(msg []byte, folder string) error {
	return errors.Wrapf(s.conn.executeAppend(utf7.Encode(folder), `\Seen`, msg), "save mail to %q", folder)
}

// DeleteMails flags all given mails deleted, optionally copying them to
// the trash folder first. The folder is selected writable for the
// duration and restored to read-only afterwards.
func (s *Session) DeleteMails(mails []email.Mail, folder string, moveToTrash bool) error {
	if len(mails) == 0 {
		return nil
	}

	ids := make([]string, len(mails))
	for i, m := range mails {
		ids[i] = m.ID
	}
	idList := strings.Join(ids, ",")
	s.log.Debug().Str("folder", folder).Str("ids", idList).Bool("trash", moveToTrash).Msg("deleting mails")

	if err := s.SelectFolder(folder, false); err != nil {
		return err
	}
	if moveToTrash {
		if _, err := s.conn.execute(fmt.Sprintf("UID COPY %s %s", idList, trashFolder)); err != nil {
			return errors.Wrap(err, "copy mails to trash")
		}
	}
	if _, err := s.conn.execute(fmt.Sprintf(`UID STORE %s +FLAGS (\Deleted)`, idList)); err != nil {
		return errors.Wrap(err, "flag mails deleted")
	}
	return s.SelectFolder(folder, true)
}

// decodeBase64Body decodes a base64 body section, tolerating the CRLF
// wrapping mail transports insert.
func decodeBase64Body(raw []byte) ([]byte, error) {
	cleaned := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b == '\r' || b == '\n' {
			continue
		}
		cleaned = append(cleaned, b)
	}
	content, err := base64.StdEncoding.DecodeString(string(cleaned))
	return content, errors.Wrap(err, "decode attachment content")
}

// Noop sends a NOOP. It has no effect but keeps an idle session from
// timing out; it is never sent automatically.
func (s *Session) Noop() error {
	_, err := s.conn.execute("NOOP")
	return errors.Wrap(err, "noop")
}

// Logout closes the session. Every subsequent command fails.
func (s *Session) Logout() error {
	s.log.Debug().Str("server", ServerAddr).Msg("closing connection to IMAP server")
	_, err := s.conn.execute("LOGOUT")
	closeErr := s.conn.Close()
	if err != nil {
		return errors.Wrap(err, "logout")
	}
	return closeErr
}
