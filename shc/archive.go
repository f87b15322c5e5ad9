// Package shc reads and writes spherical harmonic coefficient files in the
// standard, ICGEM and GSM text dialects.
//
// Open an existing file with Open and load it lazily through the returned
// Archive, or use Read for a one-shot load. Files are written with Create
// and Archive.Save, or with Write.
package shc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/batchatco/go-native-shc/internal"
	"github.com/batchatco/go-native-shc/shc/api"
	"github.com/batchatco/go-native-shc/shc/coef"
	"github.com/batchatco/go-native-shc/shc/shindex"
	"github.com/batchatco/go-native-shc/shc/util"
	"github.com/batchatco/go-thrower"
	"github.com/sirupsen/logrus"
)

var (
	ErrClosed          = errors.New("archive is closed")
	ErrNotOpen         = errors.New("archive is not open")
	ErrWrongMode       = errors.New("operation not allowed in this mode")
	ErrAmbiguousFormat = errors.New("can not tell the dialect of the file")
	ErrNotFound        = errors.New("not found")
)

var (
	logger = internal.NewLogger("shc")
)

// SetLogLevel sets the level of all loggers of this module (0 fatal,
// 1 error, 2 warn, 3 info) and returns the old one.
func SetLogLevel(level int) int {
	return int(logger.SetLogLevel(internal.LogLevel(level)))
}

// State is the lifecycle state of an Archive.
type State int

const (
	StateUnopened State = iota
	StateOpened
	StateHeaderLoaded
	StateFullyLoaded
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpened:
		return "opened"
	case StateHeaderLoaded:
		return "header loaded"
	case StateFullyLoaded:
		return "fully loaded"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type mode int

const (
	modeRead mode = iota
	modeWrite
)

// Options control reading.
type Options struct {
	// MaxDegree truncates the coefficients. Nil or negative loads the
	// degree the file declares.
	MaxDegree *int
	// Dialect overrides detection.
	Dialect api.Dialect
	// Epoch is used as center epoch when the file carries none.
	Epoch time.Time
	// HeaderOnly makes Read return the attributes only.
	HeaderOnly bool
	// Guide is the storage order of the coefficient buffers.
	Guide shindex.Kind
	// WithErrors loads uncertainties when the file has them.
	WithErrors bool
	// Strict makes detection fail instead of falling back to GSM.
	Strict bool
}

// WriteOptions control writing.
type WriteOptions struct {
	// Dialect defaults to ICGEM for .gfc names and standard otherwise.
	Dialect api.Dialect
	// WithErrors writes the uncertainty columns. The set must have them.
	WithErrors bool
}

// AllDegrees asks Load for every degree the file declares.
const AllDegrees = -1

// Degree returns a pointer to n, for Options.MaxDegree.
func Degree(n int) *int { return &n }

func (o Options) maxDegree() int {
	if o.MaxDegree == nil || *o.MaxDegree < 0 {
		return AllDegrees
	}
	return *o.MaxDegree
}

type loadKey struct {
	nmax       int
	withErrors bool
}

// Archive is one coefficient file. The file itself is only open during a
// call. An Archive must not be used from several goroutines at once.
type Archive struct {
	path   string
	mode   mode
	state  State
	format Format
	codec  api.Codec
	opts   Options
	wopts  WriteOptions

	hdr   *api.Header
	attrs *util.OrderedMap
	set   *coef.Set
	key   loadKey
}

// Open prepares the file at path for reading. The dialect is detected
// unless opts names one.
func Open(path string, opts Options) (*Archive, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	var format Format
	if opts.Dialect == api.DialectAuto {
		var err error
		format, err = Detect(path, opts.Strict)
		if err != nil {
			return nil, err
		}
	} else {
		_, c := util.SplitCompression(path)
		format = Format{Dialect: opts.Dialect, Compression: c}
	}
	codec, err := codecFor(format.Dialect)
	if err != nil {
		return nil, err
	}
	return &Archive{
		path:   path,
		mode:   modeRead,
		state:  StateOpened,
		format: format,
		codec:  codec,
		opts:   opts,
	}, nil
}

// Create prepares path for writing. Nothing is written until Save.
func Create(path string, opts WriteOptions) (*Archive, error) {
	format := writeFormat(path, opts.Dialect)
	codec, err := codecFor(format.Dialect)
	if err != nil {
		return nil, err
	}
	return &Archive{
		path:   path,
		mode:   modeWrite,
		state:  StateOpened,
		format: format,
		codec:  codec,
		wopts:  opts,
	}, nil
}

func (a *Archive) Path() string   { return a.path }
func (a *Archive) Format() Format { return a.format }
func (a *Archive) State() State   { return a.state }

// check throws unless the archive is usable in mode m.
func (a *Archive) check(m mode) {
	switch {
	case a.state == StateClosed:
		thrower.Throw(ErrClosed)
	case a.state == StateUnopened:
		thrower.Throw(ErrNotOpen)
	case a.mode != m:
		thrower.Throw(ErrWrongMode)
	}
}

// withReader runs fn on a fresh line reader over the file. The file is
// closed when withReader returns.
func (a *Archive) withReader(fn func(lr *util.LineReader)) {
	rc, err := util.OpenText(a.path, a.format.Compression)
	thrower.ThrowIfError(err)
	defer rc.Close()
	fn(util.NewLineReader(rc))
}

func (a *Archive) parseHeader(lr *util.LineReader) *api.Header {
	hdr, err := a.codec.ParseHeader(lr)
	thrower.ThrowIfError(err)
	if !a.opts.Epoch.IsZero() && hdr.Epoch.Center.IsZero() {
		hdr.Epoch.Center = a.opts.Epoch
		hdr.Attributes.Add(api.AttrTCent, a.opts.Epoch)
	}
	return hdr
}

// LoadHeader reads the header only. It returns the attributes and epoch a
// full Load would return, without reading any coefficient.
func (a *Archive) LoadHeader() (attrs api.AttributeMap, epoch coef.Epoch, err error) {
	defer thrower.RecoverError(&err)
	a.check(modeRead)
	if a.hdr == nil {
		a.withReader(func(lr *util.LineReader) {
			a.hdr = a.parseHeader(lr)
		})
		a.attrs = a.hdr.Attributes.Copy()
		nmax := a.hdr.Nmax
		if n := a.opts.maxDegree(); n >= 0 {
			nmax = n
		}
		if nmax >= 0 {
			a.attrs.Add(api.AttrNmax, nmax)
		}
	}
	if a.state == StateOpened {
		a.state = StateHeaderLoaded
	}
	return a.attrs, a.hdr.Epoch, nil
}

// Load reads the whole file, truncated to degree nmax. A negative nmax
// (AllDegrees) loads the declared degree. The result is cached; calling Load again with the same arguments
// does not read the file again.
func (a *Archive) Load(nmax int, withErrors bool) (set *coef.Set, err error) {
	defer thrower.RecoverError(&err)
	a.check(modeRead)
	if nmax < 0 {
		nmax = AllDegrees
	}
	key := loadKey{nmax, withErrors}
	if a.state == StateFullyLoaded && a.key == key {
		return a.set, nil
	}
	var hdr *api.Header
	a.withReader(func(lr *util.LineReader) {
		hdr = a.parseHeader(lr)
		req := api.BodyRequest{Nmax: nmax, WithErrors: withErrors, Guide: a.opts.Guide}
		set, err = a.codec.ParseBody(lr, hdr, req)
		thrower.ThrowIfError(err)
	})
	attrs := hdr.Attributes.Copy()
	if _, has := attrs.Get(api.AttrNmaxFile); !has && nmax < 0 {
		// nothing declared, the data decided
		attrs.Add(api.AttrNmaxFile, set.Nmax())
	}
	attrs.Add(api.AttrNmax, set.Nmax())
	a.hdr, a.attrs, a.set, a.key = hdr, attrs, set, key
	a.state = StateFullyLoaded
	logger.WithFields(logrus.Fields{
		"path":    a.path,
		"dialect": a.format.Dialect,
		"nmax":    set.Nmax(),
		"sigmas":  set.HasSigmas(),
	}).Info("loaded")
	return set, nil
}

func (a *Archive) ensureLoaded() {
	if a.state == StateFullyLoaded {
		return
	}
	if a.mode == modeWrite {
		thrower.Throw(fmt.Errorf("%w: nothing saved yet", ErrNotFound))
	}
	_, err := a.Load(a.opts.maxDegree(), a.opts.WithErrors)
	thrower.ThrowIfError(err)
}

// Attributes returns the attributes, reading the header if needed.
func (a *Archive) Attributes() (attrs api.AttributeMap, err error) {
	defer thrower.RecoverError(&err)
	if a.state == StateClosed {
		return nil, ErrClosed
	}
	if a.attrs == nil {
		attrs, _, err := a.LoadHeader()
		return attrs, err
	}
	return a.attrs, nil
}

// Set returns the loaded or saved coefficients, loading them with the
// archive's options if needed.
func (a *Archive) Set() (set *coef.Set, err error) {
	defer thrower.RecoverError(&err)
	if a.state == StateClosed {
		return nil, ErrClosed
	}
	a.ensureLoaded()
	return a.set, nil
}

// ListVariables lists the named buffers: cnm, sigcnm when uncertainties were
// loaded, and nmt.
func (a *Archive) ListVariables() (names []string, err error) {
	defer thrower.RecoverError(&err)
	if a.state == StateClosed {
		return nil, ErrClosed
	}
	a.ensureLoaded()
	names = []string{api.VarValues}
	if a.set.HasSigmas() {
		names = append(names, api.VarSigmas)
	}
	return append(names, api.VarGuide), nil
}

func (a *Archive) getVarCommon(name string) api.VarGetter {
	if a.state == StateClosed {
		thrower.Throw(ErrClosed)
	}
	a.ensureLoaded()
	set := a.set
	varAttrs, err := util.NewOrderedMap(nil, nil)
	thrower.ThrowIfError(err)
	varAttrs.Add("guide", set.Index().Kind().String())
	varAttrs.Add(api.AttrNmax, set.Nmax())
	dims := []string{"offset"}
	switch name {
	case api.VarValues:
		return internal.NewFloatSlicer(set.Values(), dims, varAttrs)
	case api.VarSigmas:
		if !set.HasSigmas() {
			break
		}
		return internal.NewFloatSlicer(set.Sigmas(), dims, varAttrs)
	case api.VarGuide:
		idx := set.Index()
		get := func(begin, end int64) (any, error) {
			out := make([]shindex.Triple, 0, end-begin)
			for off := begin; off < end; off++ {
				tr, err := idx.Triple(int(off))
				if err != nil {
					return nil, err
				}
				out = append(out, tr)
			}
			return out, nil
		}
		return internal.NewSlicer(get, int64(idx.Size()), dims, varAttrs, "shindex.Triple")
	}
	thrower.Throw(fmt.Errorf("%w: variable %q", ErrNotFound, name))
	return nil
}

// GetVarGetter returns a getter for a named buffer.
func (a *Archive) GetVarGetter(name string) (getter api.VarGetter, err error) {
	defer thrower.RecoverError(&err)
	return a.getVarCommon(name), nil
}

// GetVariable returns the named buffer or sets the error if not found.
func (a *Archive) GetVariable(name string) (v *api.Variable, err error) {
	defer thrower.RecoverError(&err)
	sl := a.getVarCommon(name)
	vals, err := sl.Values()
	thrower.ThrowIfError(err)
	return &api.Variable{
		Values:     vals,
		Dimensions: sl.Dimensions(),
		Attributes: sl.Attributes()}, nil
}

// Save writes set and attrs to the archive's file, replacing it. The
// uncertainty columns are written when the archive was created with
// WithErrors, which fails with api.ErrIncompleteData if set has none.
func (a *Archive) Save(set *coef.Set, attrs api.AttributeMap) (err error) {
	defer thrower.RecoverError(&err)
	a.check(modeWrite)
	if set == nil {
		thrower.Throw(fmt.Errorf("%w: no coefficient set", api.ErrIncompleteData))
	}
	if a.wopts.WithErrors && !set.HasSigmas() {
		thrower.Throw(api.ErrIncompleteData)
	}
	if attrs != nil {
		for _, key := range attrs.Keys() {
			if !internal.IsValidAttributeName(key) {
				thrower.Throw(fmt.Errorf("%w: %q", api.ErrInvalidName, key))
			}
		}
	}
	w, err := util.CreateText(a.path, a.format.Compression)
	thrower.ThrowIfError(err)
	err = a.serialize(w, set, attrs)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(a.path)
		return err
	}

	saved, err := util.NewOrderedMap(nil, nil)
	thrower.ThrowIfError(err)
	if attrs != nil {
		for _, key := range attrs.Keys() {
			v, _ := attrs.Get(key)
			saved.Add(key, v)
		}
	}
	saved.Add(api.AttrNmax, set.Nmax())
	a.attrs, a.set = saved, set
	a.state = StateFullyLoaded
	logger.WithFields(logrus.Fields{
		"path":    a.path,
		"dialect": a.format.Dialect,
		"nmax":    set.Nmax(),
		"sigmas":  a.wopts.WithErrors,
	}).Info("saved")
	return nil
}

func (a *Archive) serialize(w io.Writer, set *coef.Set, attrs api.AttributeMap) error {
	return a.codec.Serialize(w, set, attrs, a.wopts.WithErrors)
}

// Close releases the archive. Every later call fails with ErrClosed.
func (a *Archive) Close() error {
	if a.state == StateClosed {
		return ErrClosed
	}
	a.state = StateClosed
	a.hdr, a.attrs, a.set = nil, nil, nil
	return nil
}
