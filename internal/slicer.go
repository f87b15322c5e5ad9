package internal

import (
	"errors"

	"github.com/batchatco/go-native-shc/shc/api"
)

var ErrBadSlice = errors.New("invalid slice parameters")

type slice struct {
	getSlice func(begin, end int64) (any, error)
	length   int64
	dimNames []string
	attrs    api.AttributeMap
	goType   string
}

func (sl *slice) GetSlice(begin, end int64) (any, error) {
	if begin < 0 || end < begin || end > sl.length {
		return nil, ErrBadSlice
	}
	return sl.getSlice(begin, end)
}

func (sl *slice) Values() (any, error) {
	return sl.getSlice(0, sl.length)
}

func (sl *slice) Len() int64 {
	return sl.length
}

func (sl *slice) Attributes() api.AttributeMap {
	return sl.attrs
}

func (sl *slice) Dimensions() []string {
	return sl.dimNames
}

func (sl *slice) GoType() string {
	return sl.goType
}

func NewSlicer(getSlice func(begin, end int64) (any, error),
	length int64, dimNames []string, attributes api.AttributeMap,
	goType string) api.VarGetter {
	return &slice{
		getSlice: getSlice,
		length:   length,
		dimNames: dimNames,
		attrs:    attributes,
		goType:   goType,
	}
}

// NewFloatSlicer exposes a float64 buffer. Slices are copies.
func NewFloatSlicer(buf []float64, dimNames []string, attributes api.AttributeMap) api.VarGetter {
	get := func(begin, end int64) (any, error) {
		return append([]float64(nil), buf[begin:end]...), nil
	}
	return NewSlicer(get, int64(len(buf)), dimNames, attributes, "float64")
}
