package util

import (
	"errors"
	"sort"
	"time"

	"github.com/spf13/cast"
)

// OrderedMap is the attribute store shared by all dialects. Keys keep their
// insertion order; replacing a value keeps the key's original position.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

var (
	ErrorKeysDontMatchValues = errors.New("keys don't match values")
)

func NewOrderedMap(keys []string, values map[string]any) (*OrderedMap, error) {
	if len(keys) != len(values) {
		return nil, ErrorKeysDontMatchValues
	}
	mapKeys := []string{}
	for k := range values {
		mapKeys = append(mapKeys, k)
	}
	sort.Strings(mapKeys)

	sortedKeys := make([]string, len(keys))
	copy(sortedKeys, keys)
	sort.Strings(sortedKeys)

	for i := range sortedKeys {
		if mapKeys[i] != sortedKeys[i] {
			return nil, ErrorKeysDontMatchValues
		}
	}
	if values == nil {
		values = map[string]any{}
	}
	return &OrderedMap{
		keys:   append([]string{}, keys...),
		values: values}, nil
}

// Add sets name to val, appending name if it is new.
func (om *OrderedMap) Add(name string, val any) {
	if _, has := om.values[name]; !has {
		om.keys = append(om.keys, name)
	}
	om.values[name] = val
}

func (om *OrderedMap) Get(key string) (val any, has bool) {
	if om == nil {
		return nil, false
	}
	val, has = om.values[key]
	return
}

func (om *OrderedMap) Delete(key string) {
	if _, has := om.values[key]; !has {
		return
	}
	delete(om.values, key)
	for i, k := range om.keys {
		if k == key {
			om.keys = append(om.keys[:i], om.keys[i+1:]...)
			break
		}
	}
}

func (om *OrderedMap) Keys() []string {
	if om == nil {
		return nil
	}
	return om.keys
}

func (om *OrderedMap) Len() int {
	if om == nil {
		return 0
	}
	return len(om.keys)
}

// Copy returns an independent map with the same keys and values.
func (om *OrderedMap) Copy() *OrderedMap {
	values := make(map[string]any, len(om.values))
	for k, v := range om.values {
		values[k] = v
	}
	return &OrderedMap{keys: append([]string{}, om.keys...), values: values}
}

// GetString returns the value of key converted to a string.
func (om *OrderedMap) GetString(key string) (string, bool) {
	v, has := om.values[key]
	if !has {
		return "", false
	}
	s, err := cast.ToStringE(v)
	return s, err == nil
}

// GetInt returns the value of key converted to an int.
func (om *OrderedMap) GetInt(key string) (int, bool) {
	v, has := om.values[key]
	if !has {
		return 0, false
	}
	i, err := cast.ToIntE(v)
	return i, err == nil
}

// GetFloat returns the value of key converted to a float64.
func (om *OrderedMap) GetFloat(key string) (float64, bool) {
	v, has := om.values[key]
	if !has {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	return f, err == nil
}

// GetTime returns the value of key converted to a time.Time.
func (om *OrderedMap) GetTime(key string) (time.Time, bool) {
	v, has := om.values[key]
	if !has {
		return time.Time{}, false
	}
	tm, err := cast.ToTimeE(v)
	return tm, err == nil
}
