package shc

import (
	"github.com/batchatco/go-native-shc/shc/api"
	"github.com/batchatco/go-native-shc/shc/coef"
	"github.com/batchatco/go-native-shc/shc/shindex"
)

// Result is what Read returns. With Options.HeaderOnly only Attributes and
// Epoch are set.
type Result struct {
	Attributes api.AttributeMap
	Epoch      coef.Epoch
	Index      shindex.Index
	Values     []float64
	Sigmas     []float64 // nil without uncertainties
	Set        *coef.Set
}

// Read loads the file at path in one call.
func Read(path string, opts Options) (*Result, error) {
	a, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	if opts.HeaderOnly {
		attrs, epoch, err := a.LoadHeader()
		if err != nil {
			return nil, err
		}
		return &Result{Attributes: attrs, Epoch: epoch}, nil
	}
	set, err := a.Load(opts.maxDegree(), opts.WithErrors)
	if err != nil {
		return nil, err
	}
	attrs, err := a.Attributes()
	if err != nil {
		return nil, err
	}
	return &Result{
		Attributes: attrs,
		Epoch:      set.Epoch(),
		Index:      set.Index(),
		Values:     set.Values(),
		Sigmas:     set.Sigmas(),
		Set:        set,
	}, nil
}

// Write saves set and attrs to path in one call.
func Write(path string, set *coef.Set, attrs api.AttributeMap, opts WriteOptions) error {
	a, err := Create(path, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Save(set, attrs)
}
