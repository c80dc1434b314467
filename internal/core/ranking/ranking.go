// Package ranking implements the top-k selection shared by every mining query.
//
// Candidates are accumulated on a Board keyed by entity identity. Ranked
// orders them by descending score; equal scores keep the order in which the
// candidates were first added, so repeated runs over the same input return
// the same sequence.
package ranking

import (
	"sort"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

// Scored is a candidate and its score.
type Scored[T any] struct {
	Item  T
	Score float64
}

// Board accumulates scores per key.
type Board[K comparable, T any] struct {
	index   map[K]int
	entries []Scored[T]
}

// NewBoard returns an empty board sized for n candidates.
func NewBoard[K comparable, T any](n int) *Board[K, T] {
	return &Board[K, T]{
		index:   make(map[K]int, n),
		entries: make([]Scored[T], 0, n),
	}
}

// Add increases the score of key by delta, registering item on first sight.
func (b *Board[K, T]) Add(key K, item T, delta float64) {
	if i, ok := b.index[key]; ok {
		b.entries[i].Score += delta
		return
	}
	b.index[key] = len(b.entries)
	b.entries = append(b.entries, Scored[T]{Item: item, Score: delta})
}

// Set overwrites the score of key, registering item on first sight.
func (b *Board[K, T]) Set(key K, item T, score float64) {
	if i, ok := b.index[key]; ok {
		b.entries[i].Score = score
		return
	}
	b.index[key] = len(b.entries)
	b.entries = append(b.entries, Scored[T]{Item: item, Score: score})
}

// Len is the number of distinct candidates.
func (b *Board[K, T]) Len() int {
	return len(b.entries)
}

// Ranked returns a copy of the entries ordered by descending score.
func (b *Board[K, T]) Ranked() []Scored[T] {
	out := make([]Scored[T], len(b.entries))
	copy(out, b.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// TopK returns exactly k items from ranked. It fails with
// domain.ErrInvalidArgument when k < 1 or k exceeds the candidate count.
func TopK[T any](ranked []Scored[T], k int) ([]T, error) {
	if k < 1 {
		return nil, domain.Invalid("top-k", "k must be at least 1, got %d", k)
	}
	if k > len(ranked) {
		return nil, domain.Invalid("top-k", "k=%d exceeds %d candidates", k, len(ranked))
	}
	return Head(ranked, k), nil
}

// Head returns the first min(k, len(ranked)) items and never fails.
func Head[T any](ranked []Scored[T], k int) []T {
	if k < 1 {
		return []T{}
	}
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]T, 0, k)
	for _, s := range ranked[:k] {
		out = append(out, s.Item)
	}
	return out
}
