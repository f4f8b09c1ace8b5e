package batch

import "errors"

// Errors surfaced by the ingestion and catalog paths. Callers match them with
// errors.Is; the wrapped message carries the offending field and limit.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidSubmission   = errors.New("invalid submission")
	ErrArchiveWriteFailed  = errors.New("archive write failed")
	ErrFrontierWriteFailed = errors.New("frontier write failed")
	ErrInvalidDateFormat   = errors.New("invalid date format")
	ErrInvalidOwnerToken   = errors.New("invalid owner token")
	ErrInvalidURL          = errors.New("invalid url")
	ErrBatchNotFound       = errors.New("batch not found")
	ErrObjectExists        = errors.New("object already exists")
	ErrRateLimited         = errors.New("rate limited")
)
