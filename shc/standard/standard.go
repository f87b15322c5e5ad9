// Package standard implements the "standard" coefficient dialect: a single
// META header line followed by one line per (n, m) pair.
//
//	META   <nmax> <tstart> <tcent> <tend>
//	<n> <m> <C> <S> [<sigmaC> <sigmaS>]
//
// Epochs are decimal years; zero or negative means unset. Whether the file
// carries uncertainties is decided by the first body line: six columns mean
// yes, four mean no.
package standard

import (
	"fmt"
	"io"

	"github.com/batchatco/go-native-shc/internal"
	"github.com/batchatco/go-native-shc/shc/api"
	"github.com/batchatco/go-native-shc/shc/coef"
	"github.com/batchatco/go-native-shc/shc/shindex"
	"github.com/batchatco/go-native-shc/shc/util"
	"github.com/batchatco/go-thrower"
	"github.com/sirupsen/logrus"
)

// Marker is the first token of the header line.
const Marker = "META"

var (
	logger = internal.NewLogger("standard")
)

type Codec struct{}

func New() api.Codec {
	return Codec{}
}

func (Codec) Dialect() api.Dialect {
	return api.DialectStandard
}

var epochKeys = []string{api.AttrTStart, api.AttrTCent, api.AttrTEnd}

func (Codec) ParseHeader(lr *util.LineReader) (hdr *api.Header, err error) {
	defer thrower.RecoverError(&err)
	text, ok := lr.Next()
	if !ok {
		thrower.ThrowIfError(lr.Err())
		return nil, &api.ParseError{Dialect: api.DialectStandard, Line: 1,
			Err: fmt.Errorf("%w: empty file", api.ErrHeader)}
	}
	line := api.NewLine(api.DialectStandard, lr.LineNo(), text)
	line.AssertMinLen(5)
	line.Assert(line.Fields[0] == Marker,
		fmt.Errorf("%w: expected %s marker", api.ErrHeader, Marker))
	nmax := line.Int(1)
	if err := shindex.CheckNmax(nmax); err != nil {
		line.Fail(fmt.Errorf("%w: %w", api.ErrHeader, err))
	}

	attrs, err := util.NewOrderedMap(nil, nil)
	thrower.ThrowIfError(err)
	attrs.Add(api.AttrNmaxFile, nmax)

	var epoch coef.Epoch
	for i, key := range epochKeys {
		decyr := line.Float(2 + i)
		if decyr <= 0 {
			continue
		}
		tm := util.DecimalYearToTime(decyr)
		attrs.Add(key, tm)
		switch i {
		case 0:
			epoch.Start = tm
		case 1:
			epoch.Center = tm
		case 2:
			epoch.End = tm
		}
	}
	return &api.Header{Attributes: attrs, Epoch: epoch, Nmax: nmax}, nil
}

func (Codec) ParseBody(lr *util.LineReader, hdr *api.Header, req api.BodyRequest) (set *coef.Set, err error) {
	defer thrower.RecoverError(&err)
	nmax := req.Nmax
	if nmax < 0 {
		nmax = hdr.Nmax
	}
	idx, err := shindex.New(req.Guide, nmax)
	thrower.ThrowIfError(err)

	var b *coef.Builder
	skipped := 0
	for {
		text, ok := lr.Next()
		if !ok {
			break
		}
		line := api.NewLine(api.DialectStandard, lr.LineNo(), text)
		if line.Len() == 0 {
			continue
		}
		line.AssertLen(4, 6)
		if b == nil {
			// the first body line decides for the whole file
			withErrors := line.Len() == 6
			b = coef.NewBuilder(idx, withErrors && req.WithErrors)
			logger.WithFields(logrus.Fields{
				"nmax":   nmax,
				"errors": withErrors,
			}).Info("reading body")
		}
		n := line.Int(0)
		if n > nmax {
			skipped++
			continue
		}
		m := line.Int(1)
		if err := b.SetPair(n, m, line.Float(2), line.Float(3)); err != nil {
			line.Fail(err)
		}
		if b.WithSigmas() && line.Len() == 6 {
			if err := b.SetSigmaPair(n, m, line.Float(4), line.Float(5)); err != nil {
				line.Fail(err)
			}
		}
	}
	thrower.ThrowIfError(lr.Err())
	if skipped > 0 {
		logger.Infof("dropped %d lines above degree %d", skipped, nmax)
	}
	if b == nil {
		logger.Warn("no coefficients in body")
		b = coef.NewBuilder(idx, false)
	}
	thrower.ThrowIfError(b.SetEpoch(hdr.Epoch))
	return b.Build()
}

func (Codec) Serialize(w io.Writer, set *coef.Set, attrs api.AttributeMap, withErrors bool) (err error) {
	defer thrower.RecoverError(&err)
	epoch := api.EpochOf(set, attrs)
	api.Printf(w, "%s   %d %f %f %f\n", Marker, set.Nmax(),
		util.TimeToDecimalYear(epoch.Start),
		util.TimeToDecimalYear(epoch.Center),
		util.TimeToDecimalYear(epoch.End))

	idx := set.Index()
	var vals, sigs [2]float64
	for _, off := range shindex.Canonical(idx) {
		tr, err := idx.Triple(off)
		thrower.ThrowIfError(err)
		vals[tr.T], sigs[tr.T] = set.At(off), set.SigmaAt(off)
		if tr.M > 0 && tr.T == shindex.Cos {
			// wait for the sine term
			continue
		}
		if tr.M == 0 {
			vals[shindex.Sin], sigs[shindex.Sin] = 0, 0
		}
		if withErrors {
			api.Printf(w, "%d %d %.12e %.12e %.12e %.12e\n", tr.N, tr.M,
				vals[0], vals[1], sigs[0], sigs[1])
		} else {
			api.Printf(w, "%d %d %.12e %.12e\n", tr.N, tr.M, vals[0], vals[1])
		}
	}
	return nil
}
