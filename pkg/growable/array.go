// Package growable provides a resizable buffer with an explicit, predictable
// growth policy. Chunks use it for their code, line and constant sequences.
package growable

import (
	"errors"
	"fmt"
)

// minCapacity is the first allocation made for an empty array.
const minCapacity = 8

// ErrCapacityExceeded is returned when an append would grow an array past
// its configured element limit. It stands in for an allocation failure.
var ErrCapacityExceeded = errors.New("growable: capacity exceeded")

// GrowCapacity returns the capacity an array moves to when it is full.
func GrowCapacity(old int) int {
	if old < minCapacity {
		return minCapacity
	}
	return old * 2
}

// Option configures an Array.
type Option func(*config)

type config struct {
	limit int
}

// WithLimit caps the number of elements an array may hold. Appends past the
// limit fail with ErrCapacityExceeded. A limit <= 0 means unlimited.
func WithLimit(n int) Option {
	return func(c *config) { c.limit = n }
}

// Array is a generic growable sequence. The zero value is an empty array
// ready for use.
type Array[T any] struct {
	items []T // len(items) == capacity; only items[:count] are live
	count int
	limit int
}

// New creates an empty array with the given options applied.
func New[T any](opts ...Option) *Array[T] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Array[T]{limit: cfg.limit}
}

// Append adds v to the end of the array, reallocating if it is full.
func (a *Array[T]) Append(v T) error {
	if a.limit > 0 && a.count+1 > a.limit {
		return fmt.Errorf("%w: limit %d", ErrCapacityExceeded, a.limit)
	}
	if a.count+1 > len(a.items) {
		newCap := GrowCapacity(len(a.items))
		if a.limit > 0 && newCap > a.limit {
			newCap = a.limit
		}
		grown := make([]T, newCap)
		copy(grown, a.items[:a.count])
		a.items = grown
	}
	a.items[a.count] = v
	a.count++
	return nil
}

// At returns the element at index i. It panics if i is out of range.
func (a *Array[T]) At(i int) T {
	if i < 0 || i >= a.count {
		panic(fmt.Sprintf("growable: index %d out of range [0:%d]", i, a.count))
	}
	return a.items[i]
}

// Set overwrites the element at index i.
func (a *Array[T]) Set(i int, v T) {
	if i < 0 || i >= a.count {
		panic(fmt.Sprintf("growable: index %d out of range [0:%d]", i, a.count))
	}
	a.items[i] = v
}

// Len returns the number of live elements.
func (a *Array[T]) Len() int { return a.count }

// Cap returns the allocated capacity.
func (a *Array[T]) Cap() int { return len(a.items) }

// Items returns the live elements. The slice aliases the array's storage and
// is only valid until the next Append or Free.
func (a *Array[T]) Items() []T { return a.items[:a.count] }

// Free releases the storage and returns the array to its empty state. The
// element limit is kept.
func (a *Array[T]) Free() {
	a.items = nil
	a.count = 0
}
