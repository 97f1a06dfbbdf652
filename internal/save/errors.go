package save

import "errors"

// Save document parse errors.
// These are returned by Parse and Load alongside wrapped decode errors from
// the model package, so callers can distinguish document-level shape
// problems with errors.Is().
var (
	// ErrNotObject is returned when the top level of the document is not a
	// JSON object. The save format is a mapping from user id to record;
	// arrays or scalars at the top level mean the wrong file was given.
	ErrNotObject = errors.New("save document is not a JSON object")

	// ErrTrailingData is returned when well-formed JSON is followed by more
	// content. Concatenated documents are ambiguous, so they are rejected
	// rather than silently audited half-way.
	ErrTrailingData = errors.New("save document has trailing data after the top-level object")
)
