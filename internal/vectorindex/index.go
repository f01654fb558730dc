// Package vectorindex stores chunk embeddings tagged with their owner and
// answers similarity queries restricted to one owner's document.
package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Payload keys written on every point.
const (
	KeyUserID        = "user_id"
	KeyLibraryItemID = "library_item_id"
	KeyTextChunk     = "text_chunk"
	KeyChunkIndex    = "chunk_index"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmptyFilter       = errors.New("filter must constrain at least one field")
)

// Index is the vector index access layer.
type Index interface {
	// EnsureCollection creates the collection if missing and checks its dimension.
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []Point) error
	// Search returns at most req.Limit points matching every filter field,
	// ordered by descending similarity.
	Search(ctx context.Context, req SearchRequest) ([]ScoredPoint, error)
	DeleteByFilter(ctx context.Context, filter Filter) error
}

// Payload is the metadata stored with each vector.
type Payload struct {
	UserID        int64
	LibraryItemID int64
	TextChunk     string
	ChunkIndex    int
}

type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Filter is a conjunction of conditions. Zero fields are unconstrained.
// FromChunk keeps points whose chunk index is at least FromChunk; it narrows
// an owner filter and never counts as one on its own.
type Filter struct {
	UserID        int64
	LibraryItemID int64
	FromChunk     int
}

func (f Filter) IsEmpty() bool {
	return f.UserID == 0 && f.LibraryItemID == 0
}

func (f Filter) Matches(p Payload) bool {
	if f.UserID != 0 && p.UserID != f.UserID {
		return false
	}
	if f.LibraryItemID != 0 && p.LibraryItemID != f.LibraryItemID {
		return false
	}
	return p.ChunkIndex >= f.FromChunk
}

type SearchRequest struct {
	Vector []float32
	Filter Filter
	Limit  int
}

type ScoredPoint struct {
	ID      string
	Score   float32
	Payload Payload
}

var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("skimzy:vector-point"))

// PointID derives a stable point id from the chunk's owner and position, so
// re-indexing a document overwrites its points instead of duplicating them.
func PointID(userID, libraryItemID int64, chunkIndex int) string {
	name := fmt.Sprintf("%d/%d/%d", userID, libraryItemID, chunkIndex)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}

// NewPoints tags each chunk with its owner. chunks and vectors must be the same length.
func NewPoints(userID, libraryItemID int64, chunks []string, vectors [][]float32) ([]Point, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	points := make([]Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = Point{
			ID:     PointID(userID, libraryItemID, i),
			Vector: vectors[i],
			Payload: Payload{
				UserID:        userID,
				LibraryItemID: libraryItemID,
				TextChunk:     chunk,
				ChunkIndex:    i,
			},
		}
	}
	return points, nil
}

func checkDimensions(points []Point, dim int) error {
	for _, p := range points {
		if len(p.Vector) != dim {
			return fmt.Errorf("%w: point %s has %d, index expects %d", ErrDimensionMismatch, p.ID, len(p.Vector), dim)
		}
	}
	return nil
}
