package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned when an uploaded file is not a
// spreadsheet format the parser understands.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ValidationError rejects a batch wholesale: after header normalisation the
// required columns were not all present. No rows are processed.
type ValidationError struct {
	Missing []string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// StoreError wraps a history read or commit failure. The whole batch
// aborts; no partial writes are retained.
type StoreError struct {
	Err error
}

func (e StoreError) Error() string {
	return e.Err.Error()
}

func (e StoreError) Unwrap() error {
	return e.Err
}

func IsStoreError(err error) bool {
	var se StoreError
	return errors.As(err, &se)
}
