package coef

import (
	"errors"
	"testing"
	"time"

	"github.com/batchatco/go-native-shc/shc/shindex"
	"gonum.org/v1/gonum/floats"
)

func TestBuilder(t *testing.T) {
	for _, kind := range []shindex.Kind{shindex.NMT, shindex.TMN} {
		idx, _ := shindex.New(kind, 3)
		b := NewBuilder(idx, true)
		for n := 0; n <= 3; n++ {
			for m := 0; m <= n; m++ {
				if err := b.SetPair(n, m, float64(10*n+m), -float64(10*n+m)); err != nil {
					t.Fatal(err)
				}
				if err := b.SetSigmaPair(n, m, 0.5, 0.25); err != nil {
					t.Fatal(err)
				}
			}
		}
		set, err := b.Build()
		if err != nil {
			t.Fatal(err)
		}
		if set.Len() != 16 || !set.HasSigmas() {
			t.Fatal("bad set", set.Len(), set.HasSigmas())
		}
		v, err := set.Value(3, 2, shindex.Sin)
		if err != nil || v != -32 {
			t.Error(kind, "value", v, err)
		}
		sig, err := set.Sigma(2, 0, shindex.Cos)
		if err != nil || sig != 0.5 {
			t.Error(kind, "sigma", sig, err)
		}
		if _, err := set.Value(4, 0, shindex.Cos); !errors.Is(err, shindex.ErrOutOfRange) {
			t.Error("expected out of range, got", err)
		}
		if err := b.Set(0, 0, shindex.Cos, 1); err != ErrBuilt {
			t.Error("builder usable after Build")
		}
		if _, err := b.Build(); err != ErrBuilt {
			t.Error("second Build succeeded")
		}
	}
}

func TestCopiesAreReadOnly(t *testing.T) {
	b := NewBuilder(shindex.NewNMT(1), false)
	_ = b.Set(1, 1, shindex.Sin, 4)
	set, _ := b.Build()
	vals := set.Values()
	vals[3] = 100
	if set.At(3) != 4 {
		t.Error("Values returned an alias")
	}
	if set.Sigmas() != nil {
		t.Error("expected no sigmas")
	}
	if _, err := set.Sigma(0, 0, shindex.Cos); err != ErrNoSigma {
		t.Error("expected ErrNoSigma, got", err)
	}
	if set.SigmaAt(0) != 0 {
		t.Error("SigmaAt should be zero without sigmas")
	}
}

func TestBuilderWithoutSigmasIgnoresThem(t *testing.T) {
	b := NewBuilder(shindex.NewNMT(2), false)
	if err := b.SetSigmaPair(2, 1, 1, 1); err != nil {
		t.Error(err)
	}
	if err := b.SetSigma(3, 0, shindex.Cos, 1); !errors.Is(err, shindex.ErrOutOfRange) {
		t.Error("expected out of range, got", err)
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector(true)
	c.AddWithSigma(4, 2, 1, 2, 0.1, 0.2)
	c.Add(0, 0, 1, 0)
	c.AddWithSigma(2, 1, 3, 4, 0.3, 0.4)
	when := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetEpoch(Epoch{Center: when})
	if c.MaxDegree() != 4 {
		t.Fatal("max degree", c.MaxDegree())
	}
	set, err := c.Build(shindex.TMN, -1)
	if err != nil {
		t.Fatal(err)
	}
	if set.Nmax() != 4 || set.Index().Kind() != shindex.TMN {
		t.Fatal("nmax", set.Nmax())
	}
	if v, _ := set.Value(4, 2, shindex.Sin); v != 2 {
		t.Error("value", v)
	}
	if v, _ := set.Sigma(2, 1, shindex.Sin); v != 0.4 {
		t.Error("sigma", v)
	}
	if !set.Epoch().Center.Equal(when) {
		t.Error("epoch lost")
	}

	trunc, err := c.Build(shindex.NMT, 2)
	if err != nil {
		t.Fatal(err)
	}
	if trunc.Len() != shindex.Size(2) {
		t.Error("truncated size", trunc.Len())
	}

	if _, err := NewCollector(false).Build(shindex.NMT, -1); err == nil {
		t.Error("empty collector built")
	}
	huge := NewCollector(false)
	huge.Add(4000000000, 0, 1, 0)
	if _, err := huge.Build(shindex.NMT, -1); !errors.Is(err, shindex.ErrOutOfRange) {
		t.Error("oversized collector built", err)
	}
}

func TestDegreeVariances(t *testing.T) {
	b := NewBuilder(shindex.NewNMT(2), false)
	_ = b.SetPair(0, 0, 1, 0)
	_ = b.SetPair(1, 0, 2, 0)
	_ = b.SetPair(1, 1, 3, 4)
	_ = b.SetPair(2, 2, 1, 1)
	set, _ := b.Build()
	got := set.DegreeVariances()
	want := []float64{1, 4 + 9 + 16, 2}
	if !floats.Equal(got, want) {
		t.Error("got", got, "want", want)
	}
}

func TestFromSlices(t *testing.T) {
	idx := shindex.NewNMT(1)
	if _, err := FromSlices(idx, make([]float64, 3), nil, Epoch{}); err == nil {
		t.Error("wrong length accepted")
	}
	if _, err := FromSlices(idx, make([]float64, 4), make([]float64, 2), Epoch{}); err == nil {
		t.Error("wrong sigma length accepted")
	}
	vals := []float64{1, 2, 3, 4}
	set, err := FromSlices(idx, vals, nil, Epoch{})
	if err != nil {
		t.Fatal(err)
	}
	vals[0] = 9
	if set.At(0) != 1 {
		t.Error("FromSlices did not copy")
	}
}
