// Package chunk computes how an uploaded payload is split into attachment
// sized pieces and how the pieces are named.
package chunk

import (
	"fmt"
	"io"
	"strings"
)

// MaxAttachmentSize is the byte budget for one chunk. It sits below the
// backend's documented attachment cap to leave headroom for long subject
// and attachment file names.
const MaxAttachmentSize = 29 * 1 << 20 // 29 MiB

// PathSeparator delimits virtual directory segments in folder paths.
const PathSeparator = "/"

// subjectMarker separates the file name from the chunk number in a chunk
// mail subject.
const subjectMarker = ".part"

// Count returns the number of chunks needed to store a payload of the given
// length. The formula is length/M + 1: it yields one chunk for an empty
// payload, and a payload of exactly n*M bytes yields n+1 chunks, the last
// one empty. Files already on the backend were written with this formula,
// so it must not change.
func Count(length int64) int {
	return int(length/MaxAttachmentSize) + 1
}

// Subject returns the mail subject identifying one chunk of a file. Chunk
// indices are 0-based internally but numbered from 1 in subjects.
func Subject(fileName string, index int) string {
	return fmt.Sprintf("%s%s%d", fileName, subjectMarker, index+1)
}

// FileName extracts the file name from a chunk mail subject. It reports
// false when the subject does not follow the chunk naming pattern.
func FileName(subject string) (string, bool) {
	name, _, found := strings.Cut(subject, subjectMarker)
	if !found {
		return "", false
	}
	return name, true
}

// Bounds returns the byte range [start, end) of the chunk at the given
// index in the source payload.
func Bounds(index int) (start, end int64) {
	return int64(index) * MaxAttachmentSize, int64(index+1) * MaxAttachmentSize
}

// Read returns the bytes in [start, end) of the source. The final chunk of
// a payload is usually short, so a read that hits EOF before end is not an
// error; the returned slice is simply shorter.
func Read(src io.ReadSeeker, start, end int64) ([]byte, error) {
	if _, err := src.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, end-start)
	n, err := io.ReadFull(src, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
