package coef

import (
	"fmt"

	"github.com/batchatco/go-native-shc/shc/shindex"
)

type entry struct {
	n, m       int
	c, s       float64
	sigC, sigS float64
}

// Collector gathers (n, m) pairs whose maximum degree is not known up front.
// The guide is sized when Build is called.
type Collector struct {
	entries    []entry
	maxN       int
	withSigmas bool
	epoch      Epoch
}

func NewCollector(withSigmas bool) *Collector {
	return &Collector{maxN: -1, withSigmas: withSigmas}
}

func (c *Collector) Add(n, m int, cv, sv float64) {
	c.AddWithSigma(n, m, cv, sv, 0, 0)
}

func (c *Collector) AddWithSigma(n, m int, cv, sv, sigC, sigS float64) {
	c.entries = append(c.entries, entry{n, m, cv, sv, sigC, sigS})
	if n > c.maxN {
		c.maxN = n
	}
}

// MaxDegree is the highest degree added so far, or -1.
func (c *Collector) MaxDegree() int { return c.maxN }

func (c *Collector) SetEpoch(e Epoch) { c.epoch = e }

// Build sizes a guide of the given kind and fills it. A negative nmax uses
// the highest degree collected; entries above nmax are dropped.
func (c *Collector) Build(kind shindex.Kind, nmax int) (*Set, error) {
	if nmax < 0 {
		nmax = c.maxN
	}
	if nmax < 0 {
		return nil, fmt.Errorf("%w: no coefficients collected", shindex.ErrOutOfRange)
	}
	idx, err := shindex.New(kind, nmax)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(idx, c.withSigmas)
	for _, e := range c.entries {
		if e.n > nmax {
			continue
		}
		if err := b.SetPair(e.n, e.m, e.c, e.s); err != nil {
			return nil, err
		}
		if err := b.SetSigmaPair(e.n, e.m, e.sigC, e.sigS); err != nil {
			return nil, err
		}
	}
	if err := b.SetEpoch(c.epoch); err != nil {
		return nil, err
	}
	return b.Build()
}
