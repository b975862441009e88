package pipeline

import (
	"cmp"
	"math/rand/v2"
	"slices"
)

// Order is a sort direction.
type Order int

const (
	Ascending Order = iota
	Descending
)

// SortBy materialises the stream, stable-sorts it by key and re-emits it lazily.
//
// Keys are computed once per value before sorting. An error from the source or from key ends the stream.
func SortBy[T any, K cmp.Ordered](s *Stream[T], key func(T) (K, error), order Order) *Stream[T] {
	type keyed struct {
		v T
		k K
	}

	return Derive(s, func(yield func(T, error) bool) {
		var all []keyed
		for v, err := range s.All() {
			if err != nil {
				yield(v, err)
				return
			}
			k, err := key(v)
			if err != nil {
				yield(v, err)
				return
			}
			all = append(all, keyed{v: v, k: k})
		}

		slices.SortStableFunc(all, func(a, b keyed) int {
			if order == Descending {
				return cmp.Compare(b.k, a.k)
			}
			return cmp.Compare(a.k, b.k)
		})
		for _, e := range all {
			if !yield(e.v, nil) {
				return
			}
		}
	})
}

// Shuffle materialises the stream and re-emits it in a uniformly random order.
func Shuffle[T any](s *Stream[T], rng *rand.Rand) *Stream[T] {
	return Derive(s, func(yield func(T, error) bool) {
		all, err := s.Collect()
		if err != nil {
			var zero T
			yield(zero, err)
			return
		}
		rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		for _, v := range all {
			if !yield(v, nil) {
				return
			}
		}
	})
}

// Sample yields min(k, n) values chosen uniformly without replacement from the n values of the stream.
//
// Only k values are held in memory at once. The sample is emitted in reservoir order.
func Sample[T any](s *Stream[T], k int, rng *rand.Rand) *Stream[T] {
	return Derive(s, func(yield func(T, error) bool) {
		if k <= 0 {
			return
		}

		reservoir := make([]T, 0, k)
		seen := 0
		for v, err := range s.All() {
			if err != nil {
				yield(v, err)
				return
			}
			seen++
			if len(reservoir) < k {
				reservoir = append(reservoir, v)
				continue
			}
			if j := rng.IntN(seen); j < k {
				reservoir[j] = v
			}
		}
		for _, v := range reservoir {
			if !yield(v, nil) {
				return
			}
		}
	})
}
