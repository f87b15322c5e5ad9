package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression is the transport compression of a text file, selected by the
// file name suffix.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

var suffixes = []struct {
	suffix string
	c      Compression
}{
	{".gz", CompressionGzip},
	{".zst", CompressionZstd},
	{".lz4", CompressionLZ4},
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// SplitCompression strips a known compression suffix from name and reports
// which compression it denotes.
func SplitCompression(name string) (string, Compression) {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.suffix) {
			return strings.TrimSuffix(name, s.suffix), s.c
		}
	}
	return name, CompressionNone
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

// Close closes in order and returns the first error.
func (mc *multiCloser) Close() error {
	var first error
	for _, c := range mc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenText opens path for reading through the given decompressor.
// Closing the result closes the file.
func OpenText(path string, c Compression) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc, err := NewTextReader(file, c)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &multiCloser{Reader: rc, closers: []io.Closer{rc, file}}, nil
}

// NewTextReader wraps r with the decompressor for c. Closing the result
// does not close r.
func NewTextReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return dec.IOReadCloser(), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, fmt.Errorf("unsupported compression: %v", c)
}

type textWriter struct {
	*bufio.Writer
	closers []io.Closer
}

// Close flushes and then closes the compressor and the file. The first
// error wins.
func (tw *textWriter) Close() error {
	first := tw.Flush()
	for _, c := range tw.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CreateText creates (or truncates) path for writing through the given
// compressor. Nothing is guaranteed on disk until Close returns nil.
func CreateText(path string, c Compression) (io.WriteCloser, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	var closers []io.Closer
	var w io.Writer = file
	switch c {
	case CompressionNone:
	case CompressionGzip:
		zw := gzip.NewWriter(file)
		w, closers = zw, append(closers, zw)
	case CompressionZstd:
		enc, err := zstd.NewWriter(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("zstd: %w", err)
		}
		w, closers = enc, append(closers, enc)
	case CompressionLZ4:
		lw := lz4.NewWriter(file)
		w, closers = lw, append(closers, lw)
	default:
		file.Close()
		return nil, fmt.Errorf("unsupported compression: %v", c)
	}
	closers = append(closers, file)
	return &textWriter{Writer: bufio.NewWriter(w), closers: closers}, nil
}

// FirstLine returns the first line of the (decompressed) file, or "" for an
// empty file. The file is closed before returning.
func FirstLine(path string, c Compression) (line string, err error) {
	rc, err := OpenText(path, c)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := rc.Close(); err == nil {
			err = cerr
		}
	}()
	lr := NewLineReader(rc)
	line, _ = lr.Next()
	return line, lr.Err()
}
