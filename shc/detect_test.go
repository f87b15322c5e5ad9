package shc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/batchatco/go-native-shc/shc/api"
	"github.com/batchatco/go-native-shc/shc/util"
)

func writeText(t *testing.T, path, text string) {
	t.Helper()
	_, c := util.SplitCompression(path)
	w, err := util.CreateText(path, c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(text)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

const standardText = `META 2 2005.0 2005.5 2006.0
0 0 1.0 0.0 0.1 0.0
1 0 2.0 0.0 0.2 0.0
1 1 3.0 4.0 0.3 0.4
2 0 5.0 0.0 0.5 0.0
2 1 6.0 7.0 0.6 0.7
2 2 8.0 9.0 0.8 0.9
`

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		text    string
		dialect api.Dialect
		c       util.Compression
	}{
		{"model.txt", standardText, api.DialectStandard, util.CompressionNone},
		{"model.gz", standardText, api.DialectStandard, util.CompressionGzip},
		{"model.txt.zst", standardText, api.DialectStandard, util.CompressionZstd},
		{"model.lz4", standardText, api.DialectStandard, util.CompressionLZ4},
		{"unknown.txt", "META 10 2005.0 2005.5 2006.0\n", api.DialectStandard, util.CompressionNone},
		{"unknown2.txt", "10 2005.0 2005.5 2006.0\n", api.DialectFallback, util.CompressionNone},
		{"empty.txt", "", api.DialectFallback, util.CompressionNone},
		{"model.gfc.gz", "begin_of_head\n", api.DialectExchange, util.CompressionGzip},
		{"comment.txt", "# METADATA\n", api.DialectStandard, util.CompressionNone},
	}
	for _, test := range tests {
		path := filepath.Join(dir, test.name)
		writeText(t, path, test.text)
		f, err := Detect(path, false)
		if err != nil {
			t.Error(test.name, err)
			continue
		}
		if f.Dialect != test.dialect || f.Compression != test.c {
			t.Error(test.name, f.Dialect, f.Compression)
		}
		if f.Compressed() != (test.c != util.CompressionNone) {
			t.Error(test.name, "compressed flag")
		}
	}
}

func TestDetectExchangeWithoutReading(t *testing.T) {
	// the file does not exist, so it can not have been read
	f, err := Detect(filepath.Join(t.TempDir(), "model.gfc"), true)
	if err != nil {
		t.Fatal(err)
	}
	if f.Dialect != api.DialectExchange || f.Compressed() {
		t.Error(f)
	}
}

func TestDetectStrict(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		text string
		err  error
	}{
		{"10 2005.0 2005.5 2006.0\n", ErrAmbiguousFormat},
		{"", ErrAmbiguousFormat},
		{"header:\n   title: x\n", nil},
		{"GRCOF2 0 0 1.0 0.0\n", nil},
		{"# METADATA 2 2005.0\n", ErrAmbiguousFormat},
	}
	for i, test := range tests {
		path := filepath.Join(dir, "file"+string(rune('a'+i)))
		writeText(t, path, test.text)
		f, err := Detect(path, true)
		if !errors.Is(err, test.err) {
			t.Errorf("%q: got %v", test.text, err)
		}
		if test.err == nil && f.Dialect != api.DialectFallback {
			t.Errorf("%q: got %v", test.text, f.Dialect)
		}
	}
}

func TestDetectStrictStandard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.txt")
	writeText(t, path, "  META 2 2005.0 2005.5 2006.0\n")
	f, err := Detect(path, true)
	if err != nil || f.Dialect != api.DialectStandard {
		t.Error(f, err)
	}
}

func TestDetectMissing(t *testing.T) {
	_, err := Detect(filepath.Join(t.TempDir(), "missing.txt"), false)
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("expected not exist, got", err)
	}
}

func TestWriteFormat(t *testing.T) {
	tests := []struct {
		name    string
		d       api.Dialect
		dialect api.Dialect
		c       util.Compression
	}{
		{"a.gfc", api.DialectAuto, api.DialectExchange, util.CompressionNone},
		{"a.GFC.gz", api.DialectAuto, api.DialectExchange, util.CompressionGzip},
		{"a.txt", api.DialectAuto, api.DialectStandard, util.CompressionNone},
		{"a.txt", api.DialectFallback, api.DialectFallback, util.CompressionNone},
		{"a.gfc.zst", api.DialectStandard, api.DialectStandard, util.CompressionZstd},
	}
	for _, test := range tests {
		f := writeFormat(test.name, test.d)
		if f.Dialect != test.dialect || f.Compression != test.c {
			t.Error(test.name, f)
		}
	}
}

func TestCodecFor(t *testing.T) {
	for _, d := range []api.Dialect{api.DialectStandard, api.DialectExchange, api.DialectFallback} {
		c, err := codecFor(d)
		if err != nil || c.Dialect() != d {
			t.Error(d, err)
		}
	}
	if _, err := codecFor(api.DialectAuto); !errors.Is(err, api.ErrUnknownDialect) {
		t.Error("auto has a codec")
	}
}
