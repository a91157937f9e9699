// Package vindex is an exact nearest-neighbour index over fixed-dimension
// embeddings, addressed by caller-supplied integer ordinals.
package vindex

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrConfiguration marks fatal setup problems such as a dimension mismatch.
	ErrConfiguration = errors.New("configuration error")

	// ErrDimensionMismatch is returned when a vector length differs from the index dimension.
	ErrDimensionMismatch = fmt.Errorf("%w: embedding dimension mismatch", ErrConfiguration)

	// ErrDuplicateOrdinal is returned when adding an ordinal that is already present.
	ErrDuplicateOrdinal = errors.New("ordinal already indexed")
)

// Hit is one search result.
type Hit struct {
	Ordinal  int64   `json:"ordinal"`
	Distance float32 `json:"distance"`
}

// Index is a flat squared-Euclidean index. It is safe for concurrent use.
type Index struct {
	dims    int
	mu      sync.RWMutex
	vectors map[int64][]float32
}

// New creates an empty index for vectors of length dims.
func New(dims int) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrConfiguration, dims)
	}
	return &Index{dims: dims, vectors: make(map[int64][]float32)}, nil
}

// Dims returns the configured dimension.
func (ix *Index) Dims() int { return ix.dims }

// Len returns the number of indexed vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Has reports whether ordinal is indexed.
func (ix *Index) Has(ordinal int64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.vectors[ordinal]
	return ok
}

// CheckDims validates a vector length against the index dimension.
func (ix *Index) CheckDims(vec []float32) error {
	if len(vec) != ix.dims {
		return fmt.Errorf("%w: got %d want %d", ErrDimensionMismatch, len(vec), ix.dims)
	}
	return nil
}

// Add stores vec under ordinal. The vector is copied.
func (ix *Index) Add(ordinal int64, vec []float32) error {
	if err := ix.CheckDims(vec); err != nil {
		return err
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.vectors[ordinal]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateOrdinal, ordinal)
	}
	ix.vectors[ordinal] = cp
	return nil
}

// Remove deletes ordinal. Absent ordinals are ignored.
func (ix *Index) Remove(ordinal int64) {
	ix.mu.Lock()
	delete(ix.vectors, ordinal)
	ix.mu.Unlock()
}

// Search returns up to k hits ordered by ascending distance, ties broken by
// ascending ordinal.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if err := ix.CheckDims(query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	hits := make([]Hit, 0, len(ix.vectors))
	for ord, vec := range ix.vectors {
		hits = append(hits, Hit{Ordinal: ord, Distance: squaredL2(query, vec)})
	}
	ix.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
