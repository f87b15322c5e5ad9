// Package icgem implements the ICGEM gravity field exchange dialect (.gfc).
//
// A file starts with free text, followed by a header of "key value" pairs
// between begin_of_head and end_of_head, followed by one record per line:
//
//	gfc   n m C S [sigmaC sigmaS]
//	gfct  n m C S [sigmaC sigmaS] t0
//	trnd|dot|acos|asin ...
//
// Only the static part (gfc, and the reference value of gfct) is loaded.
package icgem

import (
	"fmt"
	"io"
	"strings"

	"github.com/batchatco/go-native-shc/internal"
	"github.com/batchatco/go-native-shc/shc/api"
	"github.com/batchatco/go-native-shc/shc/coef"
	"github.com/batchatco/go-native-shc/shc/shindex"
	"github.com/batchatco/go-native-shc/shc/util"
	"github.com/batchatco/go-thrower"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// Suffix is the file name suffix of the dialect.
const Suffix = ".gfc"

const (
	beginHead = "begin_of_head"
	endHead   = "end_of_head"
	caption   = "key"

	keyProductType = "product_type"
	keyMaxDegree   = "max_degree"
)

// Header keys written in this order, with their defaults.
var standardKeys = []struct {
	key string
	def any
}{
	{keyProductType, "gravity_field"},
	{api.AttrModelName, "unnamed"},
	{api.AttrGM, 3.986004415e+14},
	{api.AttrRadius, 6.3781363e+06},
	{keyMaxDegree, nil},
	{api.AttrErrors, nil},
	{api.AttrNorm, "fully_normalized"},
	{api.AttrTideSystem, "unknown"},
}

// Keys recognized before begin_of_head, for files that omit it.
var knownKeys = map[string]bool{
	keyProductType:     true,
	api.AttrModelName:  true,
	api.AttrGM:         true,
	api.AttrRadius:     true,
	keyMaxDegree:       true,
	api.AttrErrors:     true,
	api.AttrNorm:       true,
	api.AttrTideSystem: true,
}

// Attributes owned by the reader, never written back as header keys.
var readerKeys = map[string]bool{
	api.AttrNmax:     true,
	api.AttrNmaxFile: true,
	api.AttrTStart:   true,
	api.AttrTCent:    true,
	api.AttrTEnd:     true,
}

// Time-variable records, not part of the static field.
var timeVariable = map[string]bool{
	"trnd": true,
	"dot":  true,
	"acos": true,
	"asin": true,
}

var (
	logger = internal.NewLogger("icgem")
)

type Codec struct{}

func New() api.Codec {
	return Codec{}
}

func (Codec) Dialect() api.Dialect {
	return api.DialectExchange
}

func (Codec) ParseHeader(lr *util.LineReader) (hdr *api.Header, err error) {
	defer thrower.RecoverError(&err)
	attrs, err := util.NewOrderedMap(nil, nil)
	thrower.ThrowIfError(err)

	inHead := false
	ended := false
	for !ended {
		text, ok := lr.Next()
		if !ok {
			thrower.ThrowIfError(lr.Err())
			break
		}
		line := api.NewLine(api.DialectExchange, lr.LineNo(), text)
		if line.Len() == 0 {
			continue
		}
		key := line.Fields[0]
		switch {
		case key == beginHead:
			inHead = true
			continue
		case key == endHead:
			ended = true
			continue
		case key == caption:
			continue
		case !inHead && !knownKeys[key]:
			// free text before the header
			continue
		}
		attrs.Add(key, headerValue(line))
	}
	if !ended {
		thrower.Throw(&api.ParseError{Dialect: api.DialectExchange, Line: lr.LineNo(),
			Err: fmt.Errorf("%w: missing %s", api.ErrHeader, endHead)})
	}

	nmax, has := attrs.GetInt(keyMaxDegree)
	if !has {
		thrower.Throw(&api.ParseError{Dialect: api.DialectExchange, Line: lr.LineNo(),
			Err: fmt.Errorf("%w: missing or invalid %s", api.ErrHeader, keyMaxDegree)})
	}
	if err := shindex.CheckNmax(nmax); err != nil {
		thrower.Throw(&api.ParseError{Dialect: api.DialectExchange, Line: lr.LineNo(),
			Err: fmt.Errorf("%w: %s: %w", api.ErrHeader, keyMaxDegree, err)})
	}
	attrs.Add(api.AttrNmaxFile, nmax)
	errs, _ := attrs.GetString(api.AttrErrors)
	hdr = &api.Header{
		Attributes: attrs,
		Nmax:       nmax,
		Errors:     errs != "" && errs != "no",
	}
	logger.WithFields(logrus.Fields{
		"nmax":   nmax,
		"errors": errs,
	}).Info("read header")
	return hdr, nil
}

// headerValue converts the value of a header line. Numeric keys are parsed,
// everything else is kept as text.
func headerValue(line *api.Line) any {
	if line.Len() < 2 {
		return ""
	}
	switch line.Fields[0] {
	case keyMaxDegree:
		return line.Int(1)
	case api.AttrGM, api.AttrRadius:
		return line.Float(1)
	}
	return strings.Join(line.Fields[1:], " ")
}

func (Codec) ParseBody(lr *util.LineReader, hdr *api.Header, req api.BodyRequest) (set *coef.Set, err error) {
	defer thrower.RecoverError(&err)
	nmax := req.Nmax
	if nmax < 0 {
		nmax = hdr.Nmax
	}
	idx, err := shindex.New(req.Guide, nmax)
	thrower.ThrowIfError(err)
	b := coef.NewBuilder(idx, hdr.Errors && req.WithErrors)

	minLen := 5
	if hdr.Errors {
		minLen = 7
	}
	skipped, ignored := 0, 0
	for {
		text, ok := lr.Next()
		if !ok {
			break
		}
		line := api.NewLine(api.DialectExchange, lr.LineNo(), text)
		if line.Len() == 0 {
			continue
		}
		kw := line.Fields[0]
		switch {
		case kw == "gfc" || kw == "gfct":
			if kw == "gfct" {
				line.AssertMinLen(minLen + 1)
			} else {
				line.AssertMinLen(minLen)
			}
			n := line.Int(1)
			if n > nmax {
				skipped++
				continue
			}
			m := line.Int(2)
			if err := b.SetPair(n, m, line.Float(3), line.Float(4)); err != nil {
				line.Fail(err)
			}
			if b.WithSigmas() {
				if err := b.SetSigmaPair(n, m, line.Float(5), line.Float(6)); err != nil {
					line.Fail(err)
				}
			}
		case timeVariable[kw]:
			ignored++
		default:
			line.Fail(fmt.Errorf("%w: %q", api.ErrRecord, kw))
		}
	}
	thrower.ThrowIfError(lr.Err())
	if ignored > 0 {
		logger.Warnf("ignored %d time-variable records", ignored)
	}
	if skipped > 0 {
		logger.Infof("dropped %d records above degree %d", skipped, nmax)
	}
	thrower.ThrowIfError(b.SetEpoch(hdr.Epoch))
	return b.Build()
}

func (Codec) Serialize(w io.Writer, set *coef.Set, attrs api.AttributeMap, withErrors bool) (err error) {
	defer thrower.RecoverError(&err)
	api.Printf(w, "%s\n", beginHead)
	written := map[string]bool{}
	for _, sk := range standardKeys {
		written[sk.key] = true
		var val any
		switch sk.key {
		case keyMaxDegree:
			val = set.Nmax()
		case api.AttrErrors:
			val = errorsValue(attrs, withErrors)
		default:
			val = sk.def
			if attrs != nil {
				if v, has := attrs.Get(sk.key); has {
					val = v
				}
			}
		}
		writeKey(w, sk.key, val)
	}
	if attrs != nil {
		for _, key := range attrs.Keys() {
			if written[key] || readerKeys[key] {
				continue
			}
			if !internal.IsValidAttributeName(key) {
				thrower.Throw(fmt.Errorf("%w: %q", api.ErrInvalidName, key))
			}
			v, _ := attrs.Get(key)
			writeKey(w, key, v)
		}
	}
	if withErrors {
		api.Printf(w, "%-6s%5s%5s%20s%20s%20s%20s\n", caption, "L", "M", "C", "S", "sigma C", "sigma S")
	} else {
		api.Printf(w, "%-6s%5s%5s%20s%20s\n", caption, "L", "M", "C", "S")
	}
	api.Printf(w, "%s\n", endHead)

	idx := set.Index()
	var vals, sigs [2]float64
	for _, off := range shindex.Canonical(idx) {
		tr, err := idx.Triple(off)
		thrower.ThrowIfError(err)
		vals[tr.T], sigs[tr.T] = set.At(off), set.SigmaAt(off)
		if tr.M > 0 && tr.T == shindex.Cos {
			continue
		}
		if tr.M == 0 {
			vals[shindex.Sin], sigs[shindex.Sin] = 0, 0
		}
		if withErrors {
			api.Printf(w, "gfc   %5d%5d %19.12e %19.12e %19.12e %19.12e\n", tr.N, tr.M,
				vals[0], vals[1], sigs[0], sigs[1])
		} else {
			api.Printf(w, "gfc   %5d%5d %19.12e %19.12e\n", tr.N, tr.M, vals[0], vals[1])
		}
	}
	return nil
}

// errorsValue keeps the kind of uncertainty named by the attributes when it
// agrees with what is written.
func errorsValue(attrs api.AttributeMap, withErrors bool) string {
	if !withErrors {
		return "no"
	}
	if attrs != nil {
		if v, has := attrs.Get(api.AttrErrors); has {
			if s, err := cast.ToStringE(v); err == nil && s != "" && s != "no" {
				return s
			}
		}
	}
	return "formal"
}

func writeKey(w io.Writer, key string, val any) {
	var s string
	switch v := val.(type) {
	case float64:
		s = fmt.Sprintf("%.10e", v)
	default:
		var err error
		s, err = cast.ToStringE(v)
		if err != nil {
			thrower.Throw(fmt.Errorf("%w: value of %q: %v", api.ErrInvalidName, key, err))
		}
	}
	// header values are whitespace separated on read
	s = strings.Join(strings.Fields(s), " ")
	api.Printf(w, "%-26s%s\n", key, s)
}
