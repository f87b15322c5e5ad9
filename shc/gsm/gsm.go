// Package gsm implements the GRACE Level-2 GSM dialect, which is also the
// dialect chosen when a file carries no other recognizable marker.
//
// A file starts with an optional YAML header closed by EndMarker, followed by
// one record per line:
//
//	GRCOF2 n m C S [sigmaC sigmaS [t0 t1 flags]]
//
// Records with other tags are skipped.
package gsm

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/batchatco/go-native-shc/internal"
	"github.com/batchatco/go-native-shc/shc/api"
	"github.com/batchatco/go-native-shc/shc/coef"
	"github.com/batchatco/go-native-shc/shc/shindex"
	"github.com/batchatco/go-native-shc/shc/util"
	"github.com/batchatco/go-thrower"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	// Record is the tag of a coefficient record.
	Record = "GRCOF2"
	// EndMarker closes the YAML header.
	EndMarker = "# End of YAML header"
	// HeaderStart is the first line of a YAML header.
	HeaderStart = "header:"

	timeLayout = "2006-01-02T15:04:05.000"

	keyTimeStart = "time_coverage_start"
	keyTimeEnd   = "time_coverage_end"
	keyGM        = "earth_gravity_param"
	keyRadius    = "mean_equator_radius"
)

const (
	defaultGM     = 3.9860044180e+14
	defaultRadius = 6.3781363000e+06
)

// Attributes owned by the reader or written in a fixed place.
var reservedKeys = map[string]bool{
	api.AttrNmax:     true,
	api.AttrNmaxFile: true,
	api.AttrTStart:   true,
	api.AttrTCent:    true,
	api.AttrTEnd:     true,
	api.AttrGM:       true,
	api.AttrRadius:   true,
	keyTimeStart:     true,
	keyTimeEnd:       true,
}

var (
	logger = internal.NewLogger("gsm")
)

type yamlDimensions struct {
	Degree any `yaml:"degree"`
	Order  any `yaml:"order"`
}

type yamlBody struct {
	Dimensions       yamlDimensions `yaml:"dimensions"`
	GlobalAttributes yaml.Node      `yaml:"global_attributes"`
	NonStandard      yaml.Node      `yaml:"non-standard_attributes"`
}

type yamlHeader struct {
	Header yamlBody `yaml:"header"`
}

type Codec struct{}

func New() api.Codec {
	return Codec{}
}

func (Codec) Dialect() api.Dialect {
	return api.DialectFallback
}

func (Codec) ParseHeader(lr *util.LineReader) (hdr *api.Header, err error) {
	defer thrower.RecoverError(&err)
	attrs, err := util.NewOrderedMap(nil, nil)
	thrower.ThrowIfError(err)
	hdr = &api.Header{Attributes: attrs, Nmax: -1}

	var buf bytes.Buffer
	first := true
	for {
		text, ok := lr.Next()
		if !ok {
			thrower.ThrowIfError(lr.Err())
			if first {
				// empty file, empty body
				return hdr, nil
			}
			thrower.Throw(&api.ParseError{Dialect: api.DialectFallback, Line: lr.LineNo(),
				Err: fmt.Errorf("%w: missing %q", api.ErrHeader, EndMarker)})
		}
		if first && strings.TrimSpace(text) == "" {
			continue
		}
		if first && strings.HasPrefix(strings.TrimSpace(text), Record) {
			// no header at all
			lr.Unread()
			logger.Info("no YAML header")
			return hdr, nil
		}
		first = false
		if strings.HasPrefix(text, EndMarker) {
			break
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
	}

	var yh yamlHeader
	if err := yaml.Unmarshal(buf.Bytes(), &yh); err != nil {
		thrower.Throw(&api.ParseError{Dialect: api.DialectFallback, Line: lr.LineNo(),
			Err: fmt.Errorf("%w: %v", api.ErrHeader, err)})
	}
	fail := func(err error) {
		thrower.Throw(&api.ParseError{Dialect: api.DialectFallback, Line: lr.LineNo(),
			Text: EndMarker, Err: fmt.Errorf("%w: %w", api.ErrHeader, err)})
	}

	if yh.Header.Dimensions.Degree != nil {
		nmax, err := cast.ToIntE(yh.Header.Dimensions.Degree)
		if err != nil {
			fail(fmt.Errorf("invalid degree %v", yh.Header.Dimensions.Degree))
		}
		if err := shindex.CheckNmax(nmax); err != nil {
			fail(err)
		}
		hdr.Nmax = nmax
		attrs.Add(api.AttrNmaxFile, nmax)
	}

	global := &yh.Header.GlobalAttributes
	for i := 0; global.Kind == yaml.MappingNode && i+1 < len(global.Content); i += 2 {
		key, val := global.Content[i].Value, global.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			continue
		}
		switch key {
		case keyTimeStart, keyTimeEnd:
			tm, err := cast.ToTimeE(val.Value)
			if err != nil {
				fail(fmt.Errorf("%s: %v", key, err))
			}
			if key == keyTimeStart {
				hdr.Epoch.Start = tm
			} else {
				hdr.Epoch.End = tm
			}
			continue
		}
		var v any
		if err := val.Decode(&v); err != nil {
			fail(fmt.Errorf("%s: %v", key, err))
		}
		attrs.Add(key, v)
	}
	if !hdr.Epoch.Start.IsZero() && !hdr.Epoch.End.IsZero() {
		hdr.Epoch.Center = hdr.Epoch.Start.Add(hdr.Epoch.End.Sub(hdr.Epoch.Start) / 2)
	}
	for _, ep := range []struct {
		key string
		tm  time.Time
	}{
		{api.AttrTStart, hdr.Epoch.Start},
		{api.AttrTCent, hdr.Epoch.Center},
		{api.AttrTEnd, hdr.Epoch.End},
	} {
		if !ep.tm.IsZero() {
			attrs.Add(ep.key, ep.tm)
		}
	}

	for _, c := range []struct{ from, to string }{{keyGM, api.AttrGM}, {keyRadius, api.AttrRadius}} {
		node := findValue(&yh.Header.NonStandard, c.from)
		if node == nil {
			node = findValue(global, c.from)
		}
		if node == nil {
			continue
		}
		f, err := cast.ToFloat64E(node.Value)
		if err != nil {
			fail(fmt.Errorf("%s: %v", c.from, err))
		}
		attrs.Add(c.to, f)
	}

	logger.WithFields(logrus.Fields{
		"nmax":  hdr.Nmax,
		"start": hdr.Epoch.Start,
		"end":   hdr.Epoch.End,
	}).Info("read YAML header")
	return hdr, nil
}

// findValue returns the scalar node at key.value inside a mapping node.
func findValue(m *yaml.Node, key string) *yaml.Node {
	sub := lookup(m, key)
	if sub == nil {
		return nil
	}
	if sub.Kind == yaml.ScalarNode {
		return sub
	}
	v := lookup(sub, "value")
	if v == nil || v.Kind != yaml.ScalarNode {
		return nil
	}
	return v
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// population hides whether the maximum degree is known before the body is
// read.
type population interface {
	add(line *api.Line, n, m int, c, s float64, sigmas []float64)
	withSigmas() bool
	build(epoch coef.Epoch) (*coef.Set, error)
}

type sized struct {
	b *coef.Builder
}

func (p sized) add(line *api.Line, n, m int, c, s float64, sigmas []float64) {
	if err := p.b.SetPair(n, m, c, s); err != nil {
		line.Fail(err)
	}
	if sigmas != nil {
		if err := p.b.SetSigmaPair(n, m, sigmas[0], sigmas[1]); err != nil {
			line.Fail(err)
		}
	}
}

func (p sized) withSigmas() bool { return p.b.WithSigmas() }

func (p sized) build(epoch coef.Epoch) (*coef.Set, error) {
	if err := p.b.SetEpoch(epoch); err != nil {
		return nil, err
	}
	return p.b.Build()
}

type scattered struct {
	c     *coef.Collector
	sigma bool
	guide shindex.Kind
}

func (p scattered) add(line *api.Line, n, m int, c, s float64, sigmas []float64) {
	line.Assert(n >= 0 && m >= 0 && m <= n,
		fmt.Errorf("%w: (%d,%d)", shindex.ErrOutOfRange, n, m))
	if err := shindex.CheckNmax(n); err != nil {
		line.Fail(err)
	}
	if sigmas != nil {
		p.c.AddWithSigma(n, m, c, s, sigmas[0], sigmas[1])
	} else {
		p.c.Add(n, m, c, s)
	}
}

func (p scattered) withSigmas() bool { return p.sigma }

func (p scattered) build(epoch coef.Epoch) (*coef.Set, error) {
	p.c.SetEpoch(epoch)
	return p.c.Build(p.guide, -1)
}

func (Codec) ParseBody(lr *util.LineReader, hdr *api.Header, req api.BodyRequest) (set *coef.Set, err error) {
	defer thrower.RecoverError(&err)
	nmax := req.Nmax
	if nmax < 0 {
		nmax = hdr.Nmax
	}

	var pop population
	newPopulation := func(sigmas bool) population {
		if nmax < 0 {
			logger.Info("degree not declared, collecting records")
			return scattered{c: coef.NewCollector(sigmas), sigma: sigmas, guide: req.Guide}
		}
		idx, err := shindex.New(req.Guide, nmax)
		thrower.ThrowIfError(err)
		return sized{b: coef.NewBuilder(idx, sigmas)}
	}

	skipped, ignored := 0, 0
	for {
		text, ok := lr.Next()
		if !ok {
			break
		}
		line := api.NewLine(api.DialectFallback, lr.LineNo(), text)
		if line.Len() == 0 {
			continue
		}
		if line.Fields[0] != Record {
			ignored++
			continue
		}
		line.AssertMinLen(5)
		if pop == nil {
			// the first record decides for the whole file
			withErrors := line.Len() >= 7
			pop = newPopulation(withErrors && req.WithErrors)
			logger.WithFields(logrus.Fields{
				"nmax":   nmax,
				"errors": withErrors,
			}).Info("reading body")
		}
		n := line.Int(1)
		if nmax >= 0 && n > nmax {
			skipped++
			continue
		}
		m := line.Int(2)
		var sigmas []float64
		if pop.withSigmas() && line.Len() >= 7 {
			sigmas = []float64{line.Float(5), line.Float(6)}
		}
		pop.add(line, n, m, line.Float(3), line.Float(4), sigmas)
	}
	thrower.ThrowIfError(lr.Err())
	if ignored > 0 {
		logger.Warnf("ignored %d lines without %s tag", ignored, Record)
	}
	if skipped > 0 {
		logger.Infof("dropped %d records above degree %d", skipped, nmax)
	}
	if pop == nil {
		if nmax < 0 {
			thrower.Throw(&api.ParseError{Dialect: api.DialectFallback, Line: lr.LineNo(),
				Err: fmt.Errorf("%w: no degree declared and no %s records", api.ErrHeader, Record)})
		}
		logger.Warn("no coefficients in body")
		pop = newPopulation(false)
	}
	return pop.build(hdr.Epoch)
}

func scalar(v any) *yaml.Node {
	var n yaml.Node
	thrower.ThrowIfError(n.Encode(v))
	return &n
}

func mapping(pairs ...any) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(pairs); i += 2 {
		key := pairs[i].(string)
		val, ok := pairs[i+1].(*yaml.Node)
		if !ok {
			val = scalar(pairs[i+1])
		}
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, val)
	}
	return m
}

func attrFloat(attrs api.AttributeMap, key string, def float64) float64 {
	if attrs == nil {
		return def
	}
	v, has := attrs.Get(key)
	if !has {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		thrower.Throw(fmt.Errorf("%w: value of %q: %v", api.ErrInvalidName, key, err))
	}
	return f
}

func (Codec) Serialize(w io.Writer, set *coef.Set, attrs api.AttributeMap, withErrors bool) (err error) {
	defer thrower.RecoverError(&err)

	global := mapping()
	if attrs != nil {
		for _, key := range attrs.Keys() {
			if reservedKeys[key] {
				continue
			}
			if !internal.IsValidAttributeName(key) {
				thrower.Throw(fmt.Errorf("%w: %q", api.ErrInvalidName, key))
			}
			v, _ := attrs.Get(key)
			global.Content = append(global.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: key}, scalar(v))
		}
	}
	epoch := api.EpochOf(set, attrs)
	if !epoch.Start.IsZero() {
		global.Content = append(global.Content, mapping(keyTimeStart,
			epoch.Start.UTC().Format(timeLayout)).Content...)
	}
	if !epoch.End.IsZero() {
		global.Content = append(global.Content, mapping(keyTimeEnd,
			epoch.End.UTC().Format(timeLayout)).Content...)
	}

	doc := mapping(
		"header", mapping(
			"dimensions", mapping("degree", set.Nmax(), "order", set.Nmax()),
			"global_attributes", global,
			"non-standard_attributes", mapping(
				keyGM, mapping(
					"long_name", "gravitational constant times mass of Earth",
					"units", "m3/s2",
					"value", attrFloat(attrs, api.AttrGM, defaultGM)),
				keyRadius, mapping(
					"long_name", "mean equator radius",
					"units", "meters",
					"value", attrFloat(attrs, api.AttrRadius, defaultRadius)),
			),
		),
	)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(3)
	thrower.ThrowIfError(enc.Encode(doc))
	thrower.ThrowIfError(enc.Close())
	api.Printf(w, "%s\n", EndMarker)

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
			api.Printf(w, "%s %5d %5d %19.12e %19.12e %19.12e %19.12e\n", Record, tr.N, tr.M,
				vals[0], vals[1], sigs[0], sigs[1])
		} else {
			api.Printf(w, "%s %5d %5d %19.12e %19.12e\n", Record, tr.N, tr.M, vals[0], vals[1])
		}
	}
	return nil
}
