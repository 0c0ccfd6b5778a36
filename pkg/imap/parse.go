package imap

import (
	"bytes"
	"strings"
)

// listDelimiter is the literal separator the backend puts between the flag
// list and the quoted path of every LIST reply line.
const listDelimiter = ` "/" `

// Fragment is one element of a raw untagged reply. A data-bearing element
// has the metadata line in Line and the following literal blob in Literal;
// a bare element (such as the closing sentinel of a FETCH item) has only
// Line set.
type Fragment struct {
	Line    []byte
	Literal []byte
}

// FetchBatch is the parsed result of one multi-id FETCH call: parallel
// sequences of message ids and raw data blobs, in ascending id order. The
// two slices are always the same length.
type FetchBatch struct {
	IDs  []string
	Data [][]byte
}

// ParseFetch decodes the raw reply to a FETCH. The backend interleaves one
// metadata line and one data blob per matched message, appends a closing
// sentinel after each, and returns messages newest first. Pairing up every
// other element and reversing restores ascending id order.
func ParseFetch(raw []Fragment) (FetchBatch, error) {
	if len(raw) == 0 || raw[0].Literal == nil {
		return FetchBatch{}, &FetchExtractionError{Reason: "first data slot is empty"}
	}
	if len(raw)%2 != 0 {
		return FetchBatch{}, &FetchExtractionError{Reason: "odd element count, malformed pairing"}
	}

	count := len(raw) / 2
	batch := FetchBatch{
		IDs:  make([]string, 0, count),
		Data: make([][]byte, 0, count),
	}

	for i := 0; i < len(raw); i += 2 {
		if raw[i].Literal == nil {
			return FetchBatch{}, &FetchExtractionError{Reason: "data slot without literal"}
		}
		id, ok := extractUID(raw[i].Line)
		if !ok {
			return FetchBatch{}, &FetchExtractionError{Reason: "metadata line without id token"}
		}
		batch.IDs = append(batch.IDs, id)
		batch.Data = append(batch.Data, raw[i].Literal)
	}

	reverse(batch.IDs)
	reverse(batch.Data)

	return batch, nil
}

// ParseFolderList decodes the raw reply lines of a LIST. Each line has the
// shape `(<flags>) "/" "<path>"`; the path is returned with its
// surrounding quotes stripped.
func ParseFolderList(lines [][]byte) ([]string, error) {
	folders := make([]string, 0, len(lines))
	for _, line := range lines {
		_, rest, found := bytes.Cut(line, []byte(listDelimiter))
		if !found {
			return nil, &ListExtractionError{Line: string(line)}
		}
		path := strings.TrimSuffix(strings.TrimPrefix(string(rest), `"`), `"`)
		folders = append(folders, path)
	}
	return folders, nil
}

// extractUID pulls the id following the UID token out of a FETCH metadata
// line such as `3 (UID 17 BODY[HEADER.FIELDS (SUBJECT DATE)] {128}`.
func extractUID(line []byte) (string, bool) {
	fields := strings.Fields(string(line))
	for i, field := range fields {
		if field == "UID" && i+1 < len(fields) {
			id := strings.TrimRight(fields[i+1], ")")
			if id != "" && isDigits(id) {
				return id, true
			}
		}
	}
	return "", false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
