// Package api is common to the different coefficient file dialects
// (standard, ICGEM, GSM).
package api

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/batchatco/go-native-shc/shc/coef"
	"github.com/batchatco/go-native-shc/shc/shindex"
	"github.com/batchatco/go-native-shc/shc/util"
)

// Attribute keys filled in by every dialect.
const (
	AttrNmax     = "nmax"     // effective (possibly truncated) maximum degree
	AttrNmaxFile = "nmaxfile" // maximum degree declared on disk
	AttrTStart   = "tstart"
	AttrTCent    = "tcent"
	AttrTEnd     = "tend"
)

// Attribute keys shared by the ICGEM and GSM dialects.
const (
	AttrModelName  = "modelname"
	AttrGM         = "earth_gravity_constant"
	AttrRadius     = "radius"
	AttrErrors     = "errors"
	AttrNorm       = "norm"
	AttrTideSystem = "tide_system"
)

// Names of the variables an archive exposes.
const (
	VarValues = "cnm"
	VarSigmas = "sigcnm"
	VarGuide  = "nmt"
)

// Dialect identifies a coefficient file dialect.
type Dialect int

const (
	DialectAuto     Dialect = iota // detect from the file
	DialectStandard                // META header, one line per (n, m)
	DialectExchange                // ICGEM .gfc
	DialectFallback                // GRACE GSM
)

func (d Dialect) String() string {
	switch d {
	case DialectAuto:
		return "auto"
	case DialectStandard:
		return "standard"
	case DialectExchange:
		return "icgem"
	case DialectFallback:
		return "gsm"
	}
	return fmt.Sprintf("dialect(%d)", int(d))
}

// ParseDialect accepts the String names and a few aliases.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return DialectAuto, nil
	case "standard", "std":
		return DialectStandard, nil
	case "icgem", "gfc", "exchange":
		return DialectExchange, nil
	case "gsm", "fallback":
		return DialectFallback, nil
	}
	return DialectAuto, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
}

type AttributeMap interface {
	// Ordered list of keys
	Keys() []string
	// Indexed lookup
	Get(key string) (val any, has bool)
}

type Variable struct {
	Values     any
	Dimensions []string
	Attributes AttributeMap
}

type VarGetter interface {
	// Len() is the total length of the variable's slice.
	Len() int64

	// Values returns all the values of the variable.
	Values() (any, error)

	// GetSlice gets a (smaller) slice of the variable's slice
	GetSlice(begin, end int64) (any, error)

	Dimensions() []string

	Attributes() AttributeMap

	// GoType returns the base type in Go format, not including dimensions.
	GoType() string
}

// Header is the metadata a codec extracts without reading coefficients.
type Header struct {
	Attributes *util.OrderedMap
	Epoch      coef.Epoch
	// Nmax is the maximum degree declared by the file, -1 if the dialect
	// does not declare one.
	Nmax int
	// Errors is set when the header itself announces uncertainty columns.
	Errors bool
}

// BodyRequest tells a codec how to populate the coefficient set.
type BodyRequest struct {
	// Nmax is the degree to size the set to. Lines above it are dropped.
	// A negative value means "whatever the file holds".
	Nmax       int
	WithErrors bool
	Guide      shindex.Kind
}

// Codec is implemented once per dialect. Codecs are stateless and can be
// shared.
type Codec interface {
	Dialect() Dialect

	// ParseHeader consumes the header lines and nothing more.
	ParseHeader(lr *util.LineReader) (*Header, error)

	// ParseBody reads the remaining lines after ParseHeader.
	ParseBody(lr *util.LineReader, hdr *Header, req BodyRequest) (*coef.Set, error)

	// Serialize writes a header and one line per (n, m) in canonical order.
	// Uncertainty columns are written when withErrors is set; the caller
	// checks the set has them.
	Serialize(w io.Writer, set *coef.Set, attrs AttributeMap, withErrors bool) error
}

// EpochOf returns the epoch of set, filling bounds the set leaves unset from
// the tstart/tcent/tend attributes.
func EpochOf(set *coef.Set, attrs AttributeMap) coef.Epoch {
	ep := set.Epoch()
	if attrs == nil {
		return ep
	}
	fill := func(dst *time.Time, key string) {
		if !dst.IsZero() {
			return
		}
		if v, has := attrs.Get(key); has {
			if tm, ok := v.(time.Time); ok {
				*dst = tm
			}
		}
	}
	fill(&ep.Start, AttrTStart)
	fill(&ep.Center, AttrTCent)
	fill(&ep.End, AttrTEnd)
	return ep
}
