package drive

import (
	"bytes"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	gomessage "github.com/emersion/go-message"
	"github.com/pkg/errors"

	"github.com/mathieures/ymd/pkg/email"
)

// fakeBackend is an in-memory mailbox shared by all fake sessions of one
// test, the way pooled sessions share one account.
type fakeBackend struct {
	mu      sync.Mutex
	folders []string
	mails   map[string][]storedMail
	nextUID int

	deletedFolders []string
	trashed        []string
}

type storedMail struct {
	uid     string
	subject string
	date    time.Time
	content []byte
}

func newFakeBackend(folders ...string) *fakeBackend {
	return &fakeBackend{
		folders: folders,
		mails:   make(map[string][]storedMail),
	}
}

func (b *fakeBackend) addMail(folder, subject string, content []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextUID++
	b.mails[folder] = append(b.mails[folder], storedMail{
		uid:     uid(b.nextUID),
		subject: subject,
		date:    time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
		content: content,
	})
}

func (b *fakeBackend) subjects(folder string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var subjects []string
	for _, m := range b.mails[folder] {
		subjects = append(subjects, m.subject)
	}
	return subjects
}

func uid(n int) string {
	return string(rune('0' + n/10)) + string(rune('0'+n%10))
}

// fakeSession implements Session against a fakeBackend.
type fakeSession struct {
	backend  *fakeBackend
	selected string
	saved    int
}

func (s *fakeSession) Folders() ([]string, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	return slices.Clone(s.backend.folders), nil
}

func (s *fakeSession) CreateFolder(path string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	segments := strings.Split(path, "/")
	for i := range segments {
		sub := strings.Join(segments[:i+1], "/")
		if !slices.Contains(s.backend.folders, sub) {
			s.backend.folders = append(s.backend.folders, sub)
		}
	}
	return nil
}

func (s *fakeSession) DeleteFolder(path string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	i := slices.Index(s.backend.folders, path)
	if i < 0 {
		return errors.Errorf("no such folder: %s", path)
	}
	s.backend.folders = slices.Delete(s.backend.folders, i, i+1)
	delete(s.backend.mails, path)
	s.backend.deletedFolders = append(s.backend.deletedFolders, path)
	return nil
}

func (s *fakeSession) Mails(folder string) ([]email.Mail, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.selected = folder
	var mails []email.Mail
	for _, m := range s.backend.mails[folder] {
		mails = append(mails, email.Mail{ID: m.uid, Subject: m.subject, Date: m.date})
	}
	return mails, nil
}

func (s *fakeSession) Attachment(m email.Mail) ([]byte, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	for _, stored := range s.backend.mails[s.selected] {
		if stored.uid == m.ID {
			return stored.content, nil
		}
	}
	return nil, errors.Errorf("no mail with uid %s in %q", m.ID, s.selected)
}

// Save parses the appended message the way the real backend would store
// it: subject from the header, attachment content decoded from base64.
func (s *fakeSession) Save(msg []byte, folder string) error {
	entity, err := gomessage.Read(bytes.NewReader(msg))
	if err != nil {
		return err
	}
	subject := entity.Header.Get("Subject")

	mr := entity.MultipartReader()
	if mr == nil {
		return errors.New("appended message is not multipart")
	}
	part, err := mr.NextPart()
	if err != nil {
		return err
	}
	content, err := io.ReadAll(part.Body)
	if err != nil {
		return err
	}

	s.backend.addMail(folder, subject, content)
	s.saved++
	return nil
}

func (s *fakeSession) DeleteMails(mails []email.Mail, folder string, moveToTrash bool) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	for _, doomed := range mails {
		for i, stored := range s.backend.mails[folder] {
			if stored.uid == doomed.ID {
				if moveToTrash {
					s.backend.trashed = append(s.backend.trashed, stored.subject)
				}
				s.backend.mails[folder] = slices.Delete(s.backend.mails[folder], i, i+1)
				break
			}
		}
	}
	return nil
}

func (s *fakeSession) Noop() error   { return nil }
func (s *fakeSession) Logout() error { return nil }
