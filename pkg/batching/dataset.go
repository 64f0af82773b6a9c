// Package batching builds batch loaders over in-memory datasets and computes
// training-step counts for optimization loops.
package batching

// Dataset is a finite, random-access collection of examples.
type Dataset[T any] interface {
	Len() int
	At(i int) T
}

// Slice adapts a plain slice to the Dataset interface.
type Slice[T any] []T

func (s Slice[T]) Len() int   { return len(s) }
func (s Slice[T]) At(i int) T { return s[i] }
