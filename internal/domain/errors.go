package domain

import "fmt"

// FileProcessingError indicates the file-processing upstream rejected or
// failed a document submission. Status carries the upstream status text
// when the failure was an HTTP error.
type FileProcessingError struct {
	Status string
	Err    error
}

func (e *FileProcessingError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("file processing failed: %s", e.Status)
	}
	return fmt.Sprintf("file processing failed: %v", e.Err)
}

func (e *FileProcessingError) Unwrap() error { return e.Err }

// SessionError classifies a failure from the AI session. The underlying
// message is preserved verbatim.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string { return e.Err.Error() }

func (e *SessionError) Unwrap() error { return e.Err }

// BackendRequestError indicates the generic text backend failed. When the
// backend was reached only because no AI session was available, the message
// states both facts.
type BackendRequestError struct {
	SessionUnavailable bool
	Err                error
}

func (e *BackendRequestError) Error() string {
	if e.SessionUnavailable {
		return fmt.Sprintf("no AI session available and backend request failed: %v", e.Err)
	}
	return fmt.Sprintf("backend request failed: %v", e.Err)
}

func (e *BackendRequestError) Unwrap() error { return e.Err }

// FormExtractionError wraps an upstream failure while extracting form
// fields from a document.
type FormExtractionError struct {
	Err error
}

func (e *FormExtractionError) Error() string {
	return fmt.Sprintf("form field extraction failed: %v", e.Err)
}

func (e *FormExtractionError) Unwrap() error { return e.Err }

// FormPopulationError wraps an upstream failure while populating a form
// document with user-entered values.
type FormPopulationError struct {
	Err error
}

func (e *FormPopulationError) Error() string {
	return fmt.Sprintf("form population failed: %v", e.Err)
}

func (e *FormPopulationError) Unwrap() error { return e.Err }
