package interfaces

import (
	"context"

	"github.com/ternarybob/corpora/internal/models"
)

// VectorStorage stores and searches chunk embeddings, one collection
// per knowledge domain.
type VectorStorage interface {
	// EnsureCollection creates the domain's collection if it does not
	// exist. Existing collections are left untouched even when their
	// dimension differs.
	EnsureCollection(ctx context.Context, domainID string, dimension int) error

	// Upsert writes points into the domain's collection, creating it
	// first when needed. Points are sent in batches and each batch is
	// durable before the call returns.
	Upsert(ctx context.Context, domainID string, points []models.VectorPoint) error

	// DeleteByDocument removes all points belonging to a document.
	// A missing collection is a no-op, not an error.
	DeleteByDocument(ctx context.Context, domainID string, documentID string) error

	// Search returns the closest matches for a query vector, best first.
	// A missing collection yields an empty result, not an error.
	Search(ctx context.Context, domainID string, vector []float32, limit int, scoreThreshold float32) ([]models.SearchMatch, error)

	// DeleteCollection drops the domain's collection entirely
	DeleteCollection(ctx context.Context, domainID string) error

	// CollectionInfo reports existence and point counts for a domain
	CollectionInfo(ctx context.Context, domainID string) (*models.CollectionInfo, error)

	// IsAvailable checks connectivity to the vector database
	IsAvailable(ctx context.Context) bool
}
