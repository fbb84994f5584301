package util

import "errors"

var (
	// ErrUnrecognizedFormat means no registered validator matched. Callers
	// log and skip; it never aborts a batch.
	ErrUnrecognizedFormat = errors.New("no registered format matched file content")

	// ErrMalformedInput means a validator matched but an expected section or
	// field was missing during extraction. Wrap it with the name of the
	// missing structural element.
	ErrMalformedInput = errors.New("expected structure missing during extraction")
)
