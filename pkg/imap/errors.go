package imap

import "fmt"

// FetchExtractionError reports a FETCH reply whose element shape does not
// match the pairing the backend normally produces. It is never retried;
// callers surface it as a retrieval failure.
type FetchExtractionError struct {
	Reason string
}

func (e *FetchExtractionError) Error() string {
	return fmt.Sprintf("could not extract FETCH result: %s", e.Reason)
}

// ListExtractionError reports a LIST reply line missing the folder
// delimiter syntax.
type ListExtractionError struct {
	Line string
}

func (e *ListExtractionError) Error() string {
	return fmt.Sprintf("could not extract LIST result from: %q", e.Line)
}

// MailsRetrievalError wraps a malformed server reply encountered while
// listing the mails of a folder.
type MailsRetrievalError struct {
	Folder string
	Err    error
}

func (e *MailsRetrievalError) Error() string {
	return fmt.Sprintf("could not retrieve the mails in folder %q: invalid server reply: %v", e.Folder, e.Err)
}

func (e *MailsRetrievalError) Unwrap() error { return e.Err }
