package util

import (
	"bufio"
	"io"
)

const maxLineLength = 1 << 20

// LineReader reads text lines and keeps track of the 1-based number of the
// line last returned. One line can be pushed back with Unread.
type LineReader struct {
	sc      *bufio.Scanner
	line    string
	lineNo  int
	unread  bool
	scanned bool
}

func NewLineReader(r io.Reader) *LineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return &LineReader{sc: sc}
}

// Next returns the next line without its line terminator. It returns false
// at end of input or on a read error; Err tells them apart.
func (lr *LineReader) Next() (string, bool) {
	if lr.unread {
		lr.unread = false
		lr.lineNo++
		return lr.line, true
	}
	if !lr.sc.Scan() {
		return "", false
	}
	lr.scanned = true
	lr.lineNo++
	lr.line = lr.sc.Text()
	return lr.line, true
}

// Unread pushes the last line back so the next call to Next returns it
// again. Only one line can be pushed back.
func (lr *LineReader) Unread() {
	if !lr.scanned || lr.unread {
		panic("LineReader: nothing to unread")
	}
	lr.unread = true
	lr.lineNo--
}

// LineNo is the number of the line last returned by Next.
func (lr *LineReader) LineNo() int {
	return lr.lineNo
}

func (lr *LineReader) Err() error {
	return lr.sc.Err()
}
