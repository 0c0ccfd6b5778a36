package drive

import "github.com/mathieures/ymd/pkg/email"

// FileSet is the virtual files of one listing: an insertion-ordered map
// from file name to the ordered chunk mails reconstructing it. Names keep
// their first-seen order so listings are reproducible. A name can be
// present with zero chunks; that is how folders at the recursion depth
// limit show up as placeholders.
type FileSet struct {
	names  []string
	chunks map[string][]email.Mail
}

// NewFileSet returns an empty file set.
func NewFileSet() *FileSet {
	return &FileSet{chunks: make(map[string][]email.Mail)}
}

// Add appends the given chunk mails to the named file, registering the
// name on first use. Adding a name with no mails records a placeholder.
func (fs *FileSet) Add(name string, mails ...email.Mail) {
	if _, seen := fs.chunks[name]; !seen {
		fs.names = append(fs.names, name)
		fs.chunks[name] = nil
	}
	fs.chunks[name] = append(fs.chunks[name], mails...)
}

func (fs *FileSet) merge(other *FileSet) {
	for _, name := range other.names {
		fs.Add(name, other.chunks[name]...)
	}
}

// Names returns the file names in first-seen order.
func (fs *FileSet) Names() []string {
	return fs.names
}

// Chunks returns the ordered chunk mails of the named file.
func (fs *FileSet) Chunks(name string) []email.Mail {
	return fs.chunks[name]
}

// Contains reports whether the named file is part of the set.
func (fs *FileSet) Contains(name string) bool {
	_, ok := fs.chunks[name]
	return ok
}

// Len returns the number of virtual files in the set.
func (fs *FileSet) Len() int {
	return len(fs.names)
}
