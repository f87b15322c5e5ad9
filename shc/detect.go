package shc

import (
	"strings"

	"github.com/batchatco/go-native-shc/shc/api"
	"github.com/batchatco/go-native-shc/shc/gsm"
	"github.com/batchatco/go-native-shc/shc/icgem"
	"github.com/batchatco/go-native-shc/shc/standard"
	"github.com/batchatco/go-native-shc/shc/util"
)

// Format is the outcome of detection: the dialect of the text and the
// transport compression wrapped around it.
type Format struct {
	Dialect     api.Dialect
	Compression util.Compression
}

// Compressed is true when the file has a compression suffix.
func (f Format) Compressed() bool {
	return f.Compression != util.CompressionNone
}

// Detect determines the format of the file at path.
//
// A compression suffix is stripped first. A remaining .gfc suffix selects
// the ICGEM dialect without reading the file. Otherwise the first line is
// read: if it holds the META marker anywhere the standard dialect is chosen,
// else the GSM dialect. A line like "# METADATA" is thus taken as standard
// and then fails to parse as a header.
//
// With strict set, the marker must be the first field of the line, GSM is
// only chosen when the first line looks like GSM, and ErrAmbiguousFormat is
// returned otherwise.
func Detect(path string, strict bool) (Format, error) {
	base, c := util.SplitCompression(path)
	f := Format{Compression: c}
	if strings.HasSuffix(strings.ToLower(base), icgem.Suffix) {
		f.Dialect = api.DialectExchange
		return f, nil
	}
	line, err := util.FirstLine(path, c)
	if err != nil {
		return Format{}, err
	}
	trimmed := strings.TrimSpace(line)
	fields := strings.Fields(line)
	switch {
	case strict && len(fields) > 0 && fields[0] == standard.Marker,
		!strict && strings.Contains(line, standard.Marker):
		f.Dialect = api.DialectStandard
	case !strict,
		strings.HasPrefix(trimmed, gsm.HeaderStart),
		strings.HasPrefix(trimmed, gsm.Record):
		f.Dialect = api.DialectFallback
	default:
		logger.Warnf("%s: can not tell the dialect from %q", path, line)
		return Format{}, ErrAmbiguousFormat
	}
	logger.Infof("%s: detected %v (compression %v)", path, f.Dialect, f.Compression)
	return f, nil
}

// writeFormat picks the format of a file to be written. Only the name is
// used.
func writeFormat(path string, d api.Dialect) Format {
	base, c := util.SplitCompression(path)
	f := Format{Dialect: d, Compression: c}
	if d != api.DialectAuto {
		return f
	}
	if strings.HasSuffix(strings.ToLower(base), icgem.Suffix) {
		f.Dialect = api.DialectExchange
	} else {
		f.Dialect = api.DialectStandard
	}
	return f
}

var codecs = map[api.Dialect]func() api.Codec{
	api.DialectStandard: standard.New,
	api.DialectExchange: icgem.New,
	api.DialectFallback: gsm.New,
}

func codecFor(d api.Dialect) (api.Codec, error) {
	newCodec, has := codecs[d]
	if !has {
		return nil, api.ErrUnknownDialect
	}
	return newCodec(), nil
}
