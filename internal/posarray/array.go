// Package posarray provides growable arrays of primitive values with
// nearest-match binary search, used as sorted position lists.
package posarray

import (
	"errors"
	"fmt"
)

// Default growth bounds, in elements.
const (
	DefaultMinIncrement = 16
	DefaultMaxIncrement = 1 << 20
)

// ErrIndexOutOfRange is returned for accesses outside [0, Len()).
var ErrIndexOutOfRange = errors.New("index out of range")

// IndexError reports an out-of-range access.
type IndexError struct {
	Index int
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("posarray: index %d out of range [0, %d)", e.Index, e.Size)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// Number is the set of element types an Array can hold.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Array is a resizable array of primitive values. Elements [0, Len()) are
// valid. An Array is not safe for concurrent writers; once built it may be
// read from many goroutines.
type Array[T Number] struct {
	data []T // len(data) is the capacity
	size int

	minIncrement int
	maxIncrement int
}

// Option configures an Array.
type Option func(*options)

type options struct {
	minIncrement int
	maxIncrement int
}

// WithIncrements bounds how many elements a single resize may add.
func WithIncrements(lo, hi int) Option {
	return func(o *options) {
		if lo > 0 {
			o.minIncrement = lo
		}
		if hi >= o.minIncrement {
			o.maxIncrement = hi
		}
	}
}

// New creates an empty array with the given initial capacity.
func New[T Number](capacity int, opts ...Option) *Array[T] {
	o := options{minIncrement: DefaultMinIncrement, maxIncrement: DefaultMaxIncrement}
	for _, opt := range opts {
		opt(&o)
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Array[T]{
		data:         make([]T, capacity),
		minIncrement: o.minIncrement,
		maxIncrement: o.maxIncrement,
	}
}

// FromSlice builds an array holding a copy of values.
func FromSlice[T Number](values []T, opts ...Option) *Array[T] {
	a := New[T](len(values), opts...)
	copy(a.data, values)
	a.size = len(values)
	return a
}

// Len returns the number of valid elements.
func (a *Array[T]) Len() int { return a.size }

// Cap returns the capacity of the backing buffer.
func (a *Array[T]) Cap() int { return len(a.data) }

// Append adds v at the end, growing the buffer when full.
func (a *Array[T]) Append(v T) {
	if a.size == len(a.data) {
		a.grow()
	}
	a.data[a.size] = v
	a.size++
}

// growthStep doubles the capacity, clamped to [minIncrement, maxIncrement].
func (a *Array[T]) growthStep() int {
	step := len(a.data)
	if step > a.maxIncrement {
		step = a.maxIncrement
	}
	if step < a.minIncrement {
		step = a.minIncrement
	}
	return step
}

func (a *Array[T]) grow() {
	data := make([]T, len(a.data)+a.growthStep())
	copy(data, a.data[:a.size])
	a.data = data
}

// Get returns the element at i.
func (a *Array[T]) Get(i int) (T, error) {
	if i < 0 || i >= a.size {
		var zero T
		return zero, &IndexError{Index: i, Size: a.size}
	}
	return a.data[i], nil
}

// At returns the element at i and panics when i is out of range. It is meant
// for loops already bounded by Len.
func (a *Array[T]) At(i int) T {
	if i < 0 || i >= a.size {
		panic(&IndexError{Index: i, Size: a.size})
	}
	return a.data[i]
}

// Set replaces the element at i.
func (a *Array[T]) Set(i int, v T) error {
	if i < 0 || i >= a.size {
		return &IndexError{Index: i, Size: a.size}
	}
	a.data[i] = v
	return nil
}

// Last returns the final element, or false when the array is empty.
func (a *Array[T]) Last() (T, bool) {
	if a.size == 0 {
		var zero T
		return zero, false
	}
	return a.data[a.size-1], true
}

// ResizeTo truncates or extends the array to n elements. Extended slots are
// zero. Only the overlapping prefix is copied.
func (a *Array[T]) ResizeTo(n int) {
	if n < 0 {
		n = 0
	}
	data := make([]T, n)
	keep := a.size
	if n < keep {
		keep = n
	}
	copy(data, a.data[:keep])
	a.data = data
	a.size = n
}

// Values returns the valid elements. The slice aliases the array and must not
// be modified.
func (a *Array[T]) Values() []T {
	return a.data[:a.size:a.size]
}

// NearestIndexOf returns the index of v when present, otherwise the index of
// the first element greater than v, or Len() when v exceeds every element.
// The array must be sorted in non-decreasing order.
func (a *Array[T]) NearestIndexOf(v T) int {
	start, stop := 0, a.size
	for start < stop {
		mid := start + (stop-start)/2
		if a.data[mid] < v {
			start = mid + 1
		} else {
			stop = mid
		}
	}
	return start
}

// LastIndexAtOrBefore returns the index of the last element <= v, or -1.
func (a *Array[T]) LastIndexAtOrBefore(v T) int {
	start, stop := 0, a.size
	for start < stop {
		mid := start + (stop-start)/2
		if a.data[mid] <= v {
			start = mid + 1
		} else {
			stop = mid
		}
	}
	return start - 1
}
