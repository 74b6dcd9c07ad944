package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrNoteNotFound is returned when a note is not found on the given lead
	ErrNoteNotFound = errors.New("note not found")

	// ErrInvalidStatus is returned for an unknown lifecycle status
	ErrInvalidStatus = errors.New("invalid lead status")

	// ErrInvalidNoteType is returned for an unknown note type
	ErrInvalidNoteType = errors.New("invalid note type")
)
