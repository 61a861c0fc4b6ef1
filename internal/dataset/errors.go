package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty means the upload had no data rows. There is nothing to analyse,
// which callers should not treat as a failure.
var ErrEmpty = errors.New("no data rows")

// MissingColumnsError lists required headers absent from the upload.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// RowError points at the first bad cell of an upload. Line counts the header
// as line 1.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %s (%q): %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err describes bad upload content rather than
// an I/O or cancellation problem.
func IsValidation(err error) bool {
	var missing *MissingColumnsError
	var row *RowError
	return errors.As(err, &missing) || errors.As(err, &row)
}
