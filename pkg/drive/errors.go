package drive

import "fmt"

// FileNotFoundError reports a requested virtual file absent from the
// target folder.
type FileNotFoundError struct {
	Name string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("the file %q was not found on the server", e.Name)
}

// FolderNotFoundError reports a requested folder absent from the backend.
type FolderNotFoundError struct {
	Name string
}

func (e *FolderNotFoundError) Error() string {
	return fmt.Sprintf("folder %q was not found on the server", e.Name)
}

// ChunkAlreadyExistsError guards against overwriting a chunk that is
// already stored. Hitting it with startChunk 0 means the whole file exists;
// hitting it with a later startChunk is the signal used to resume partial
// uploads at the right index.
type ChunkAlreadyExistsError struct {
	Subject string
}

func (e *ChunkAlreadyExistsError) Error() string {
	return fmt.Sprintf("a chunk named %q already exists on the server", e.Subject)
}

// AmbiguousNameError reports a name denoting both a virtual file and a
// folder. Removal never guesses which one was meant.
type AmbiguousNameError struct {
	Name   string
	Folder string
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("the name %q is ambiguous and could target both a file in the folder %q or a folder", e.Name, e.Folder)
}

// FolderNotEmptyError blocks non-recursive removal of a folder that still
// holds virtual files or subfolders.
type FolderNotEmptyError struct {
	Name string
}

func (e *FolderNotEmptyError) Error() string {
	return fmt.Sprintf("folder %q is not empty; enable recursion to force deletion", e.Name)
}

// FilesRetrievalError wraps a mail listing failure encountered while
// computing the virtual files of a folder.
type FilesRetrievalError struct {
	Folder string
	Err    error
}

func (e *FilesRetrievalError) Error() string {
	return fmt.Sprintf("could not get the files data in %q: %v", e.Folder, e.Err)
}

func (e *FilesRetrievalError) Unwrap() error { return e.Err }
