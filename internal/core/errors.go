package core

import "errors"

// Error taxonomy for the triage pipeline. Only ErrMalformedEmail removes an
// email from output entirely; every other condition degrades to a flagged,
// possibly incomplete record so no anomaly silently disappears.
var (
	// ErrMalformedEmail marks an email with no usable text or HTML body.
	ErrMalformedEmail = errors.New("malformed email: no usable body")

	// ErrClassificationAmbiguous marks content that matched conflicting
	// account signals. Callers fall back to standard single-segment handling.
	ErrClassificationAmbiguous = errors.New("account classification ambiguous")

	// ErrExtractionFailed marks a segment whose LLM analysis exhausted its
	// retry budget. The record is still emitted with minimal fields.
	ErrExtractionFailed = errors.New("llm extraction failed after retries")

	// ErrLinkNotFound is returned when no console link could be recovered.
	ErrLinkNotFound = errors.New("console link not found")
)
