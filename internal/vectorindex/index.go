// Package vectorindex implements the per-knowledge-base in-memory vector index.
// Vectors are L2-normalized on insert so cosine similarity reduces to a dot
// product at query time. Readers operate on immutable snapshots published
// atomically by writers; a reader never observes a partially applied mutation.
package vectorindex

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrDimensionMismatch reports a vector whose length differs from the index dimension
type ErrDimensionMismatch struct {
	Want int
	Got  int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: index dimension %d, got %d", e.Want, e.Got)
}

// Entry pairs a chunk identity with its embedding vector
type Entry struct {
	ChunkID uuid.UUID
	Vector  []float32
}

// Candidate is one ranked search hit
type Candidate struct {
	ChunkID uuid.UUID
	Score   float64
}

// Index maps chunk identities to normalized embedding vectors for a single
// knowledge base. Mutations are serialized by an internal mutex; each mutation
// builds a fresh snapshot and publishes it atomically.
type Index struct {
	dimension int

	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// New creates an empty index with a fixed vector dimension
func New(dimension int) *Index {
	idx := &Index{dimension: dimension}
	idx.current.Store(&Snapshot{dimension: dimension, entries: map[uuid.UUID][]float32{}})
	return idx
}

// Dimension returns the fixed vector dimension of the index
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Size returns the number of entries in the current snapshot
func (idx *Index) Size() int {
	return idx.Snapshot().Size()
}

// Snapshot returns the current immutable view of the index. Writers never
// mutate a published snapshot in place.
func (idx *Index) Snapshot() *Snapshot {
	return idx.current.Load()
}

// Insert adds or replaces a single entry
func (idx *Index) Insert(chunkID uuid.UUID, vector []float32) error {
	return idx.InsertBatch([]Entry{{ChunkID: chunkID, Vector: vector}})
}

// InsertBatch adds or replaces a set of entries in one atomic publish. Either
// every entry becomes visible or none does.
func (idx *Index) InsertBatch(entries []Entry) error {
	for _, e := range entries {
		if len(e.Vector) != idx.dimension {
			return &ErrDimensionMismatch{Want: idx.dimension, Got: len(e.Vector)}
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := idx.current.Load().clone()
	for _, e := range entries {
		next.entries[e.ChunkID] = normalize(e.Vector)
	}
	idx.current.Store(next)
	return nil
}

// Remove deletes a single entry. Removing an absent id is a no-op.
func (idx *Index) Remove(chunkID uuid.UUID) {
	idx.RemoveBatch([]uuid.UUID{chunkID})
}

// RemoveBatch deletes a set of entries in one atomic publish
func (idx *Index) RemoveBatch(chunkIDs []uuid.UUID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := idx.current.Load().clone()
	for _, id := range chunkIDs {
		delete(next.entries, id)
	}
	idx.current.Store(next)
}

// Search ranks entries by cosine similarity against queryVector on the current snapshot
func (idx *Index) Search(queryVector []float32, k int) ([]Candidate, error) {
	return idx.Snapshot().Search(queryVector, k)
}

// Snapshot is an immutable view of an index used by concurrent readers
type Snapshot struct {
	dimension int
	entries   map[uuid.UUID][]float32
}

// Size returns the number of entries in the snapshot
func (s *Snapshot) Size() int {
	return len(s.entries)
}

// Search returns up to k candidates ordered by descending cosine similarity.
// Scores are clamped to [0, 1]. Ties are broken by ascending chunk id so the
// ranking is reproducible. k <= 0 yields an empty result; k larger than the
// snapshot is clamped.
func (s *Snapshot) Search(queryVector []float32, k int) ([]Candidate, error) {
	if len(queryVector) != s.dimension {
		return nil, &ErrDimensionMismatch{Want: s.dimension, Got: len(queryVector)}
	}
	if k <= 0 || len(s.entries) == 0 {
		return []Candidate{}, nil
	}

	query := normalize(queryVector)

	candidates := make([]Candidate, 0, len(s.entries))
	for id, vec := range s.entries {
		candidates = append(candidates, Candidate{ChunkID: id, Score: clampScore(dot(query, vec))})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return bytes.Compare(candidates[i].ChunkID[:], candidates[j].ChunkID[:]) < 0
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k], nil
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)

	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (s *Snapshot) clone() *Snapshot {
	entries := make(map[uuid.UUID][]float32, len(s.entries))
	for id, vec := range s.entries {
		entries[id] = vec
	}
	return &Snapshot{dimension: s.dimension, entries: entries}
}
