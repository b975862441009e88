package pipeline

import (
	"fmt"
	"iter"
)

// Chunk groups seq into slices of n values, preserving order.
//
// Every group holds exactly n values except the last, which holds the remainder and is emitted once seq is exhausted.
// No empty group is ever emitted and at most one group is buffered.
// An error from seq is forwarded at once; values buffered in the current group are dropped.
func Chunk[T any](seq iter.Seq2[T, error], n int) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		if n <= 0 {
			yield(nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, n))
			return
		}

		chunk := make([]T, 0, n)
		for v, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			chunk = append(chunk, v)
			if len(chunk) == n {
				if !yield(chunk, nil) {
					return
				}
				chunk = make([]T, 0, n)
			}
		}
		if len(chunk) > 0 {
			yield(chunk, nil)
		}
	}
}

// Chunks is [Chunk] over a stream; the result keeps the stream's kind.
func Chunks[T any](s *Stream[T], n int) *Stream[[]T] {
	return Derive(s, Chunk(s.All(), n))
}
