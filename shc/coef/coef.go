// Package coef holds canonical in-memory spherical harmonic coefficient sets.
//
// A Set is produced once, by a Builder or a Collector, and is read-only
// afterwards. Accessors that return slices return copies.
package coef

import (
	"errors"
	"fmt"
	"time"

	"github.com/batchatco/go-native-shc/shc/shindex"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrBuilt   = errors.New("builder already built")
	ErrNoSigma = errors.New("set carries no uncertainties")
)

// Epoch is the temporal validity of a model realization.
// A zero time means the bound is unset.
type Epoch struct {
	Start  time.Time
	Center time.Time
	End    time.Time
}

func (e Epoch) IsZero() bool {
	return e.Start.IsZero() && e.Center.IsZero() && e.End.IsZero()
}

type Set struct {
	idx    shindex.Index
	values []float64
	sigmas []float64 // nil when the source supplied no uncertainties
	epoch  Epoch
}

func (s *Set) Index() shindex.Index { return s.idx }
func (s *Set) Nmax() int            { return s.idx.Nmax() }
func (s *Set) Len() int             { return len(s.values) }
func (s *Set) HasSigmas() bool      { return s.sigmas != nil }
func (s *Set) Epoch() Epoch         { return s.epoch }

// At returns the value stored at offset. It panics if offset is out of range,
// like a slice index.
func (s *Set) At(offset int) float64 {
	return s.values[offset]
}

// SigmaAt returns the uncertainty at offset, or zero when the set has none.
func (s *Set) SigmaAt(offset int) float64 {
	if s.sigmas == nil {
		return 0
	}
	return s.sigmas[offset]
}

func (s *Set) Value(n, m int, t shindex.Trig) (float64, error) {
	off, err := s.idx.Offset(n, m, t)
	if err != nil {
		return 0, err
	}
	return s.values[off], nil
}

func (s *Set) Sigma(n, m int, t shindex.Trig) (float64, error) {
	if s.sigmas == nil {
		return 0, ErrNoSigma
	}
	off, err := s.idx.Offset(n, m, t)
	if err != nil {
		return 0, err
	}
	return s.sigmas[off], nil
}

// Values returns a copy of the coefficient buffer in index order.
func (s *Set) Values() []float64 {
	return append([]float64(nil), s.values...)
}

// Sigmas returns a copy of the uncertainty buffer, or nil.
func (s *Set) Sigmas() []float64 {
	if s.sigmas == nil {
		return nil
	}
	return append([]float64(nil), s.sigmas...)
}

// DegreeVariances returns, for every degree n, the sum of the squared
// cosine and sine coefficients of that degree.
func (s *Set) DegreeVariances() []float64 {
	nmax := s.Nmax()
	out := make([]float64, nmax+1)
	buf := make([]float64, 0, 2*nmax+1)
	for n := 0; n <= nmax; n++ {
		buf = buf[:0]
		for m := 0; m <= n; m++ {
			c, _ := s.Value(n, m, shindex.Cos)
			buf = append(buf, c)
			if m > 0 {
				sv, _ := s.Value(n, m, shindex.Sin)
				buf = append(buf, sv)
			}
		}
		out[n] = floats.Dot(buf, buf)
	}
	return out
}

// Builder populates a Set of a fixed, pre-sized guide. Entries may arrive in
// any order.
type Builder struct {
	set   *Set
	built bool
}

func NewBuilder(idx shindex.Index, withSigmas bool) *Builder {
	s := &Set{idx: idx, values: make([]float64, idx.Size())}
	if withSigmas {
		s.sigmas = make([]float64, idx.Size())
	}
	return &Builder{set: s}
}

func (b *Builder) Nmax() int            { return b.set.idx.Nmax() }
func (b *Builder) WithSigmas() bool     { return b.set.sigmas != nil }
func (b *Builder) Index() shindex.Index { return b.set.idx }

func (b *Builder) Set(n, m int, t shindex.Trig, v float64) error {
	if b.built {
		return ErrBuilt
	}
	off, err := b.set.idx.Offset(n, m, t)
	if err != nil {
		return err
	}
	b.set.values[off] = v
	return nil
}

// SetSigma stores an uncertainty. It is a no-op when the builder was created
// without uncertainties.
func (b *Builder) SetSigma(n, m int, t shindex.Trig, v float64) error {
	if b.built {
		return ErrBuilt
	}
	off, err := b.set.idx.Offset(n, m, t)
	if err != nil {
		return err
	}
	if b.set.sigmas != nil {
		b.set.sigmas[off] = v
	}
	return nil
}

// SetPair stores the cosine and, for m > 0, the sine value of (n, m).
func (b *Builder) SetPair(n, m int, c, s float64) error {
	if err := b.Set(n, m, shindex.Cos, c); err != nil {
		return err
	}
	if m == 0 {
		return nil
	}
	return b.Set(n, m, shindex.Sin, s)
}

// SetSigmaPair is SetPair for uncertainties.
func (b *Builder) SetSigmaPair(n, m int, c, s float64) error {
	if err := b.SetSigma(n, m, shindex.Cos, c); err != nil {
		return err
	}
	if m == 0 {
		return nil
	}
	return b.SetSigma(n, m, shindex.Sin, s)
}

func (b *Builder) SetEpoch(e Epoch) error {
	if b.built {
		return ErrBuilt
	}
	b.set.epoch = e
	return nil
}

// Build hands out the Set. The builder can not be used afterwards.
func (b *Builder) Build() (*Set, error) {
	if b.built {
		return nil, ErrBuilt
	}
	b.built = true
	return b.set, nil
}

// FromSlices builds a Set from existing buffers, which are copied.
// sigmas may be nil.
func FromSlices(idx shindex.Index, values, sigmas []float64, epoch Epoch) (*Set, error) {
	if len(values) != idx.Size() {
		return nil, fmt.Errorf("%w: %d values for a guide of size %d",
			shindex.ErrOutOfRange, len(values), idx.Size())
	}
	if sigmas != nil && len(sigmas) != idx.Size() {
		return nil, fmt.Errorf("%w: %d uncertainties for a guide of size %d",
			shindex.ErrOutOfRange, len(sigmas), idx.Size())
	}
	s := &Set{idx: idx, values: append([]float64(nil), values...), epoch: epoch}
	if sigmas != nil {
		s.sigmas = append([]float64(nil), sigmas...)
	}
	return s, nil
}
