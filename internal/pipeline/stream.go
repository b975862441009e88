package pipeline

import (
	"fmt"
	"iter"
)

var (
	ErrKindNotFound     = fmt.Errorf("content kind not found")
	ErrPathNotFound     = fmt.Errorf("path not found")
	ErrInvalidChunkSize = fmt.Errorf("chunk size must be positive")
	ErrMalformedPage    = fmt.Errorf("malformed page")
)

// Kind describes what a [Stream] yields.
type Kind string

const (
	Untyped   Kind = ""
	Tracks    Kind = "tracks"
	Albums    Kind = "albums"
	Artists   Kind = "artists"
	Playlists Kind = "playlists"
)

// ParseKind maps a kind name to a [Kind].
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Tracks, Albums, Artists, Playlists:
		return k, nil
	default:
		return Untyped, fmt.Errorf("%w: %q", ErrKindNotFound, s)
	}
}

// Stream is a single-pass lazy sequence paired with the kind of value it yields.
//
// Each element arrives with an error; a non-nil error ends the stream.
// Ranging over [Stream.All] a second time yields nothing.
type Stream[T any] struct {
	kind     Kind
	seq      iter.Seq2[T, error]
	consumed bool
}

// New returns a stream over seq tagged with kind.
func New[T any](kind Kind, seq iter.Seq2[T, error]) *Stream[T] {
	return &Stream[T]{kind: kind, seq: seq}
}

// Untagged returns a stream over seq with no kind.
func Untagged[T any](seq iter.Seq2[T, error]) *Stream[T] {
	return &Stream[T]{seq: seq}
}

// FromSlice returns a stream over a fixed set of values.
func FromSlice[T any](kind Kind, values ...T) *Stream[T] {
	return New(kind, func(yield func(T, error) bool) {
		for _, v := range values {
			if !yield(v, nil) {
				return
			}
		}
	})
}

// Fail returns a stream that yields err once.
func Fail[T any](kind Kind, err error) *Stream[T] {
	return New(kind, func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	})
}

// Derive returns a stream over seq that carries the parent's kind.
func Derive[T, U any](parent *Stream[T], seq iter.Seq2[U, error]) *Stream[U] {
	return &Stream[U]{kind: parent.kind, seq: seq}
}

// Inherit copies the parent's kind onto child and returns child.
func Inherit[T, U any](parent *Stream[T], child *Stream[U]) *Stream[U] {
	child.kind = parent.kind
	return child
}

// Tag records kind on the stream, replacing any previous kind.
func (s *Stream[T]) Tag(kind Kind) *Stream[T] {
	s.kind = kind
	return s
}

// Kind returns the stream's kind, or [ErrKindNotFound] when it was never tagged.
func (s *Stream[T]) Kind() (Kind, error) {
	if s.kind == Untyped {
		return Untyped, ErrKindNotFound
	}
	return s.kind, nil
}

// All returns the underlying sequence. Only the first call yields anything.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if s.consumed {
			return
		}
		s.consumed = true
		s.seq(yield)
	}
}

// Collect drains the stream into a slice, stopping at the first error.
func (s *Stream[T]) Collect() ([]T, error) {
	var out []T
	for v, err := range s.All() {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Take returns a stream that stops after n values. n <= 0 means no limit.
func Take[T any](s *Stream[T], n int) *Stream[T] {
	if n <= 0 {
		return s
	}
	return Derive(s, func(yield func(T, error) bool) {
		count := 0
		for v, err := range s.All() {
			if err != nil {
				yield(v, err)
				return
			}
			if !yield(v, nil) {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	})
}

// Filter returns a stream of the values for which keep returns true.
func Filter[T any](s *Stream[T], keep func(T) (bool, error)) *Stream[T] {
	return Derive(s, func(yield func(T, error) bool) {
		for v, err := range s.All() {
			if err != nil {
				yield(v, err)
				return
			}
			ok, err := keep(v)
			if err != nil {
				yield(v, err)
				return
			}
			if ok && !yield(v, nil) {
				return
			}
		}
	})
}

// Concat chains streams end to end under the given kind.
func Concat[T any](kind Kind, streams ...*Stream[T]) *Stream[T] {
	return New(kind, func(yield func(T, error) bool) {
		for _, s := range streams {
			for v, err := range s.All() {
				if !yield(v, err) || err != nil {
					return
				}
			}
		}
	})
}
