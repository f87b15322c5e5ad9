package api

import (
	"errors"
	"fmt"
)

var (
	// ErrParse matches every *ParseError with errors.Is.
	ErrParse = errors.New("parse error")

	// ErrIncompleteData is returned when uncertainties are to be written but
	// the set carries none.
	ErrIncompleteData = errors.New("uncertainties requested but not present")

	// ErrUnknownDialect is returned for dialect names or values not registered.
	ErrUnknownDialect = errors.New("unknown dialect")

	// ErrColumns is the cause of a ParseError for lines with the wrong number of fields.
	ErrColumns = errors.New("wrong number of columns")

	// ErrNumber is the cause of a ParseError for fields that are not numbers.
	ErrNumber = errors.New("not a number")

	// ErrHeader is the cause of a ParseError for a missing or broken header.
	ErrHeader = errors.New("bad header")

	// ErrRecord is the cause of a ParseError for an unknown record keyword.
	ErrRecord = errors.New("unknown record keyword")

	// ErrInvalidName is returned when an attribute can not be written as a
	// header key.
	ErrInvalidName = errors.New("invalid attribute name")
)

// ParseError reports a malformed line.
type ParseError struct {
	Dialect Dialect
	Line    int    // 1-based line number
	Text    string // raw line
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: line %d: %v: %q", e.Dialect, e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
