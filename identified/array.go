// Package identified provides an insertion-ordered collection of uniquely
// keyed elements, the state container the collection-scoped reducer adapter
// operates over.
package identified

import (
	"errors"
	"fmt"
)

var ErrDuplicateKey = errors.New("identified: duplicate key")

// Array is an ordered collection addressable by stable key: positional order
// is insertion order, lookup by key is O(1). The zero value is not usable;
// construct with New or Collect.
type Array[K comparable, V any] struct {
	keys  []K
	vals  []V
	index map[K]int
}

func New[K comparable, V any]() *Array[K, V] {
	return &Array[K, V]{index: make(map[K]int)}
}

// Collect builds an array from values, deriving each key with id. Panics on
// duplicate keys: construction-time duplicates are a programming error.
func Collect[K comparable, V any](id func(V) K, vals ...V) *Array[K, V] {
	a := New[K, V]()
	for _, v := range vals {
		if err := a.Append(id(v), v); err != nil {
			panic(fmt.Sprintf("identified.Collect: %v", err))
		}
	}
	return a
}

func (a *Array[K, V]) Len() int {
	return len(a.keys)
}

// Keys returns a snapshot copy of the keys in positional order.
func (a *Array[K, V]) Keys() []K {
	out := make([]K, len(a.keys))
	copy(out, a.keys)
	return out
}

func (a *Array[K, V]) Contains(key K) bool {
	_, ok := a.index[key]
	return ok
}

func (a *Array[K, V]) Get(key K) (V, bool) {
	if i, ok := a.index[key]; ok {
		return a.vals[i], true
	}
	var zero V
	return zero, false
}

// Ptr returns a pointer to the element's storage for in-place mutation. The
// pointer is valid only until the next structural mutation of the array.
func (a *Array[K, V]) Ptr(key K) (*V, bool) {
	if i, ok := a.index[key]; ok {
		return &a.vals[i], true
	}
	return nil, false
}

// At returns the key and value at position i.
func (a *Array[K, V]) At(i int) (K, V) {
	return a.keys[i], a.vals[i]
}

// Append adds a new element at the end. Fails with ErrDuplicateKey if the
// key is already present.
func (a *Array[K, V]) Append(key K, val V) error {
	if _, ok := a.index[key]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
	}
	a.index[key] = len(a.keys)
	a.keys = append(a.keys, key)
	a.vals = append(a.vals, val)
	return nil
}

// Upsert replaces the value in place when the key exists, preserving its
// position; otherwise it appends.
func (a *Array[K, V]) Upsert(key K, val V) {
	if i, ok := a.index[key]; ok {
		a.vals[i] = val
		return
	}
	a.index[key] = len(a.keys)
	a.keys = append(a.keys, key)
	a.vals = append(a.vals, val)
}

// Remove deletes the element for key, preserving the order of the rest.
// Reports whether the key was present.
func (a *Array[K, V]) Remove(key K) bool {
	i, ok := a.index[key]
	if !ok {
		return false
	}
	a.keys = append(a.keys[:i], a.keys[i+1:]...)
	a.vals = append(a.vals[:i], a.vals[i+1:]...)
	delete(a.index, key)
	for j := i; j < len(a.keys); j++ {
		a.index[a.keys[j]] = j
	}
	return true
}
