// Package vector provides the interface for vector storage backends used
// by semantic knowledge search.
package vector

import (
	"context"

	"ai-interview-copilot/internal/models"
)

// Point is a stored vector with its knowledge item payload.
type Point struct {
	ID     string
	Vector []float32
	UserID string
	Item   models.KnowledgeItem
}

// Result is a single similarity search hit.
type Result struct {
	ID    string
	Score float64
	Item  models.KnowledgeItem
}

// Store is a vector database for knowledge items. Search is scoped to a
// single user; results below threshold are never returned.
type Store interface {
	// Ensure creates the backing collection if it does not exist.
	Ensure(ctx context.Context) error

	// Search returns up to limit hits for vec, scoped to userID, with
	// score >= threshold, best first.
	Search(ctx context.Context, vec []float32, userID string, threshold float64, limit int) ([]Result, error)

	// Upsert writes points, replacing any with the same ID.
	Upsert(ctx context.Context, points []Point) error

	// Delete removes points by ID.
	Delete(ctx context.Context, ids []string) error
}
