// Package shindex maps spherical harmonic (degree, order, trig) triples to
// linear array offsets and back.
//
// Two guides are provided. The degree-major guide (NMT) stores entries in the
// order the standard text dialect writes them: ascending degree, then
// ascending order, cosine before sine. The order-major guide (TMN) stores all
// cosine terms first, sorted by order and then degree, followed by all sine
// terms in the same arrangement. Both guides omit the sine term of zonal
// (m = 0) coefficients, so a guide of maximum degree nmax always holds
// (nmax+1)^2 entries.
package shindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Trig selects the cosine or sine component of an (n, m) pair.
type Trig int

const (
	Cos Trig = iota
	Sin
)

func (t Trig) String() string {
	switch t {
	case Cos:
		return "C"
	case Sin:
		return "S"
	}
	return fmt.Sprintf("Trig(%d)", int(t))
}

// Kind identifies the storage order of an Index.
type Kind int

const (
	// NMT is degree-major: n, then m, then trig.
	NMT Kind = iota
	// TMN is trig-major: trig, then m, then n.
	TMN
)

func (k Kind) String() string {
	switch k {
	case NMT:
		return "nmt"
	case TMN:
		return "tmn"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names returned by Kind.String.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "nmt", "":
		return NMT, nil
	case "tmn":
		return TMN, nil
	}
	return 0, fmt.Errorf("%w: unknown index guide %q", ErrOutOfRange, name)
}

var (
	// ErrOutOfRange is returned for degrees above nmax, orders above the
	// degree, sine terms of zonal coefficients and offsets outside the guide.
	ErrOutOfRange = errors.New("index out of range")
)

// Triple is one (degree, order, trig) element of a guide.
type Triple struct {
	N, M int
	T    Trig
}

func (tr Triple) String() string {
	return fmt.Sprintf("(%d,%d,%s)", tr.N, tr.M, tr.T)
}

// Index is a bijection between valid triples up to Nmax and [0, Size()).
type Index interface {
	Kind() Kind
	Nmax() int
	Size() int
	Offset(n, m int, t Trig) (int, error)
	Triple(offset int) (Triple, error)
}

// Size returns the number of entries of a guide with maximum degree nmax.
func Size(nmax int) int {
	if nmax < 0 {
		return 0
	}
	return (nmax + 1) * (nmax + 1)
}

// MaxDegree is the largest maximum degree a guide can be built for.
const MaxDegree = 10800

// CheckNmax reports whether nmax is a maximum degree a guide can be built for.
func CheckNmax(nmax int) error {
	switch {
	case nmax < 0:
		return fmt.Errorf("%w: negative maximum degree %d", ErrOutOfRange, nmax)
	case nmax > MaxDegree:
		return fmt.Errorf("%w: maximum degree %d above %d", ErrOutOfRange, nmax, MaxDegree)
	}
	return nil
}

// New returns a guide of the given kind.
func New(kind Kind, nmax int) (Index, error) {
	if err := CheckNmax(nmax); err != nil {
		return nil, err
	}
	switch kind {
	case NMT:
		return NewNMT(nmax), nil
	case TMN:
		return NewTMN(nmax), nil
	}
	return nil, fmt.Errorf("%w: unknown index guide %v", ErrOutOfRange, kind)
}

func check(n, m int, t Trig, nmax int) error {
	switch {
	case n < 0 || n > nmax:
		return fmt.Errorf("%w: degree %d not in [0,%d]", ErrOutOfRange, n, nmax)
	case m < 0 || m > n:
		return fmt.Errorf("%w: order %d not in [0,%d]", ErrOutOfRange, m, n)
	case t != Cos && t != Sin:
		return fmt.Errorf("%w: invalid trig %d", ErrOutOfRange, int(t))
	case t == Sin && m == 0:
		return fmt.Errorf("%w: no sine term for zonal coefficient (%d,0)", ErrOutOfRange, n)
	}
	return nil
}

func checkOffset(offset, size int) error {
	if offset < 0 || offset >= size {
		return fmt.Errorf("%w: offset %d not in [0,%d)", ErrOutOfRange, offset, size)
	}
	return nil
}

// nmt is the degree-major guide. Offsets do not depend on nmax, so a
// truncated guide is a prefix of a larger one.
type nmt struct {
	nmax int
}

// NewNMT returns the degree-major guide. nmax must not be negative.
func NewNMT(nmax int) Index {
	return nmt{nmax: nmax}
}

func (g nmt) Kind() Kind { return NMT }
func (g nmt) Nmax() int  { return g.nmax }
func (g nmt) Size() int  { return Size(g.nmax) }

func (g nmt) Offset(n, m int, t Trig) (int, error) {
	if err := check(n, m, t, g.nmax); err != nil {
		return 0, err
	}
	if m == 0 {
		return n * n, nil
	}
	return n*n + 2*m - 1 + int(t), nil
}

func (g nmt) Triple(offset int) (Triple, error) {
	if err := checkOffset(offset, g.Size()); err != nil {
		return Triple{}, err
	}
	n := isqrt(offset)
	r := offset - n*n
	if r == 0 {
		return Triple{n, 0, Cos}, nil
	}
	// r = 2m-1 for cosine, 2m for sine
	if r%2 == 1 {
		return Triple{n, (r + 1) / 2, Cos}, nil
	}
	return Triple{n, r / 2, Sin}, nil
}

func isqrt(v int) int {
	n := int(math.Sqrt(float64(v)))
	for n*n > v {
		n--
	}
	for (n+1)*(n+1) <= v {
		n++
	}
	return n
}

// tmn is the order-major guide: the cosine block holds (nmax+1)(nmax+2)/2
// entries, the sine block the remaining nmax(nmax+1)/2.
type tmn struct {
	nmax int
}

// NewTMN returns the order-major guide. nmax must not be negative.
func NewTMN(nmax int) Index {
	return tmn{nmax: nmax}
}

func (g tmn) Kind() Kind { return TMN }
func (g tmn) Nmax() int  { return g.nmax }
func (g tmn) Size() int  { return Size(g.nmax) }

func (g tmn) cosSize() int {
	return (g.nmax + 1) * (g.nmax + 2) / 2
}

// cosStart is the offset of (m, m, Cos).
func (g tmn) cosStart(m int) int {
	return m*(g.nmax+1) - m*(m-1)/2
}

// sinStart is the offset of (m, m, Sin) relative to the sine block, m >= 1.
func (g tmn) sinStart(m int) int {
	return g.cosStart(m) - (g.nmax + 1)
}

func (g tmn) Offset(n, m int, t Trig) (int, error) {
	if err := check(n, m, t, g.nmax); err != nil {
		return 0, err
	}
	if t == Cos {
		return g.cosStart(m) + n - m, nil
	}
	return g.cosSize() + g.sinStart(m) + n - m, nil
}

func (g tmn) Triple(offset int) (Triple, error) {
	if err := checkOffset(offset, g.Size()); err != nil {
		return Triple{}, err
	}
	if offset < g.cosSize() {
		m := 0
		for m < g.nmax && g.cosStart(m+1) <= offset {
			m++
		}
		return Triple{offset - g.cosStart(m) + m, m, Cos}, nil
	}
	r := offset - g.cosSize()
	m := 1
	for m < g.nmax && g.sinStart(m+1) <= r {
		m++
	}
	return Triple{r - g.sinStart(m) + m, m, Sin}, nil
}

// Triples lists the elements of idx in offset order.
func Triples(idx Index) []Triple {
	out := make([]Triple, idx.Size())
	for i := range out {
		tr, err := idx.Triple(i)
		if err != nil {
			// a guide that cannot invert its own offsets is broken
			panic(err)
		}
		out[i] = tr
	}
	return out
}

// Less orders triples by degree, then order, then trig.
func Less(a, b Triple) bool {
	if a.N != b.N {
		return a.N < b.N
	}
	if a.M != b.M {
		return a.M < b.M
	}
	return a.T < b.T
}

// Canonical returns the offsets of idx sorted into file order (see Less),
// regardless of how idx arranges its storage.
func Canonical(idx Index) []int {
	triples := Triples(idx)
	order := make([]int, len(triples))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return Less(triples[order[i]], triples[order[j]])
	})
	return order
}
