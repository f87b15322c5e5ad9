package api

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/batchatco/go-thrower"
)

// Line is a split text line. Its accessors throw a *ParseError (see
// go-thrower) instead of returning errors; codecs catch it at their exported
// boundary with thrower.RecoverError.
type Line struct {
	Dialect Dialect
	No      int
	Text    string
	Fields  []string
}

func NewLine(d Dialect, no int, text string) *Line {
	return &Line{Dialect: d, No: no, Text: text, Fields: strings.Fields(text)}
}

func (l *Line) Len() int {
	return len(l.Fields)
}

// Fail throws a *ParseError for this line.
func (l *Line) Fail(err error) {
	thrower.Throw(&ParseError{Dialect: l.Dialect, Line: l.No, Text: l.Text, Err: err})
}

// Assert throws err unless condition holds.
func (l *Line) Assert(condition bool, err error) {
	if condition {
		return
	}
	l.Fail(err)
}

// AssertLen throws ErrColumns unless the line has one of the given field counts.
func (l *Line) AssertLen(counts ...int) {
	for _, c := range counts {
		if len(l.Fields) == c {
			return
		}
	}
	l.Fail(fmt.Errorf("%w: got %d, want %v", ErrColumns, len(l.Fields), counts))
}

// AssertMinLen throws ErrColumns if the line has fewer than min fields.
func (l *Line) AssertMinLen(min int) {
	if len(l.Fields) < min {
		l.Fail(fmt.Errorf("%w: got %d, want at least %d", ErrColumns, len(l.Fields), min))
	}
}

func (l *Line) Int(i int) int {
	v, err := strconv.Atoi(l.Fields[i])
	if err != nil {
		l.Fail(fmt.Errorf("%w: field %d %q", ErrNumber, i+1, l.Fields[i]))
	}
	return v
}

// Float parses field i. Fortran style exponents (1.0D+00) are accepted.
func (l *Line) Float(i int) float64 {
	v, err := ParseFloat(l.Fields[i])
	if err != nil {
		l.Fail(fmt.Errorf("%w: field %d %q", ErrNumber, i+1, l.Fields[i]))
	}
	return v
}

// ParseFloat is strconv.ParseFloat accepting D/d exponent markers.
func ParseFloat(s string) (float64, error) {
	if strings.ContainsAny(s, "Dd") {
		s = strings.NewReplacer("D", "E", "d", "e").Replace(s)
	}
	return strconv.ParseFloat(s, 64)
}

// Printf writes to w and throws on error.
func Printf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	thrower.ThrowIfError(err)
}
