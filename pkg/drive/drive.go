// Package drive maps a backend mailbox onto a tree of virtual files and
// directories: folders are directories, and each file is the ordered set
// of chunk mails whose subjects share its name. Everything is recomputed
// from the live mail listing on every call; nothing is cached.
package drive

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mathieures/ymd/pkg/chunk"
	"github.com/mathieures/ymd/pkg/email"
	"github.com/mathieures/ymd/pkg/imap"
)

// UnlimitedDepth makes Files recurse through every descendant folder.
const UnlimitedDepth = -1

// Session is the slice of backend behavior the drive needs from one
// authenticated connection. *imap.Session implements it.
type Session interface {
	Folders() ([]string, error)
	CreateFolder(path string) error
	DeleteFolder(path string) error
	Mails(folder string) ([]email.Mail, error)
	Attachment(m email.Mail) ([]byte, error)
	Save(msg []byte, folder string) error
	DeleteMails(mails []email.Mail, folder string, moveToTrash bool) error
	Noop() error
	Logout() error
}

// ProgressFunc receives monotonically increasing progress counts while
// chunks transfer. It may be called from several goroutines during an
// upload, but never concurrently for different labels.
type ProgressFunc func(label string, current, total int)

// Drive owns a pool of exclusively-owned sessions and the current target
// folder path. Folder creation, deletion and listing always go through
// sessions[0] so structural operations never race; the other sessions
// only ever carry upload batches.
type Drive struct {
	sessions []Session
	target   string
	log      zerolog.Logger
	progress ProgressFunc
}

// New dials one session per requested connection and returns a drive
// rooted at targetFolder, creating the folder up front so no later
// operation has to.
func New(ctx context.Context, address, password, targetFolder string, connections int, log zerolog.Logger) (*Drive, error) {
	if connections < 1 {
		return nil, errors.New("cannot create less than one connection to the backend")
	}

	sessions := make([]Session, 0, connections)
	for i := 0; i < connections; i++ {
		s, err := imap.NewSession(ctx, address, password, log)
		if err != nil {
			for _, open := range sessions {
				open.Logout()
			}
			return nil, err
		}
		sessions = append(sessions, s)
	}

	d, err := NewWithSessions(sessions, targetFolder, log)
	if err != nil {
		for _, open := range sessions {
			open.Logout()
		}
		return nil, err
	}
	return d, nil
}

// NewWithSessions builds a drive on already-established sessions. The
// first session is the designated structural session.
func NewWithSessions(sessions []Session, targetFolder string, log zerolog.Logger) (*Drive, error) {
	if len(sessions) == 0 {
		return nil, errors.New("cannot create a drive without sessions")
	}

	d := &Drive{
		sessions: sessions,
		target:   targetFolder,
		log:      log,
	}
	if err := sessions[0].CreateFolder(targetFolder); err != nil {
		return nil, err
	}
	return d, nil
}

// Target returns the current target folder path.
func (d *Drive) Target() string {
	return d.target
}

// SetTarget switches the drive to another target folder, creating it (and
// any missing ancestors) first.
func (d *Drive) SetTarget(folder string) error {
	if err := d.sessions[0].CreateFolder(folder); err != nil {
		return err
	}
	d.target = folder
	return nil
}

// SetProgress installs the callback receiving transfer progress counts.
func (d *Drive) SetProgress(fn ProgressFunc) {
	d.progress = fn
}

// Folders returns every folder path known to the backend.
func (d *Drive) Folders() ([]string, error) {
	return d.sessions[0].Folders()
}

// Files lists the virtual files of the target folder. With maxDepth 0 only
// the folder itself is listed. A positive maxDepth expands descendant
// folders up to that depth; folders at exactly the limit appear as
// placeholder entries with zero chunks, keyed by their relative path plus
// a trailing separator. UnlimitedDepth expands everything.
func (d *Drive) Files(maxDepth int) (*FileSet, error) {
	result, err := d.filesInFolder(d.target, "")
	if err != nil {
		return nil, err
	}
	if maxDepth == 0 {
		return result, nil
	}

	subfolders, err := d.subfolders(d.target, false)
	if err != nil {
		return nil, err
	}
	for _, sub := range subfolders {
		relative := strings.TrimPrefix(sub, d.target+"/") + "/"
		depth := strings.Count(relative, "/")

		if maxDepth > 0 && depth > maxDepth {
			continue
		}
		if maxDepth > 0 && depth == maxDepth {
			// Visible but not expanded.
			result.Add(relative)
			continue
		}

		subFiles, err := d.filesInFolder(sub, relative)
		if err != nil {
			return nil, err
		}
		result.merge(subFiles)
	}

	return result, nil
}

// Noop pings every pooled session, keeping them all from timing out.
func (d *Drive) Noop() error {
	for _, s := range d.sessions {
		if err := s.Noop(); err != nil {
			return err
		}
	}
	return nil
}

// Close logs out every session. The drive is unusable afterwards.
func (d *Drive) Close() error {
	var firstErr error
	for _, s := range d.sessions {
		if err := s.Logout(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// filesInFolder groups the folder's mails into virtual files by the file
// name embedded in each chunk subject. Mails whose subject does not match
// the chunk pattern are skipped with a warning; regular mail can share a
// folder with stored chunks without breaking listings.
func (d *Drive) filesInFolder(folder, keyPrefix string) (*FileSet, error) {
	mails, err := d.sessions[0].Mails(folder)
	if err != nil {
		return nil, &FilesRetrievalError{Folder: folder, Err: err}
	}

	files := NewFileSet()
	for _, m := range mails {
		name, ok := chunk.FileName(m.Subject)
		if !ok {
			d.log.Warn().Str("subject", m.Subject).Msg("could not determine file name of chunk")
			continue
		}
		files.Add(keyPrefix+name, m)
	}
	return files, nil
}

// subfolders returns the descendants of the given folder sorted by depth,
// shallowest first, or deepest first when reverse is set.
func (d *Drive) subfolders(folder string, reverse bool) ([]string, error) {
	folders, err := d.Folders()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(folders, folder) {
		return nil, &FolderNotFoundError{Name: folder}
	}

	var descendants []string
	for _, f := range folders {
		if strings.HasPrefix(f, folder+"/") {
			descendants = append(descendants, f)
		}
	}

	depth := func(path string) int { return strings.Count(path, "/") }
	sort.SliceStable(descendants, func(i, j int) bool {
		if reverse {
			return depth(descendants[i]) > depth(descendants[j])
		}
		return depth(descendants[i]) < depth(descendants[j])
	})
	return descendants, nil
}

func (d *Drive) reportProgress(label string, current, total int) {
	if d.progress == nil {
		return
	}
	d.progress(label, current, total)
}
