package interfaces

import (
	"context"

	"github.com/ternarybob/corpora/internal/models"
)

// PipelineService orchestrates document ingestion: parse, normalize,
// chunk, embed and index, while driving the document status machine.
type PipelineService interface {
	// ProcessDocument runs the full pipeline for one document. Any stage
	// failure marks the document failed and returns the stage error.
	// onProgress may be nil.
	ProcessDocument(ctx context.Context, doc *models.Document, onProgress models.ProgressFunc) error

	// ReprocessDocument resets a document to queued and runs the
	// pipeline again. Rejected without state change once the retry
	// budget is exhausted.
	ReprocessDocument(ctx context.Context, id string) error

	// ProcessPendingDocuments processes up to limit queued documents for
	// a domain. Per-document failures are recorded in the result and the
	// sweep continues.
	ProcessPendingDocuments(ctx context.Context, domainID string, limit int) (*models.SweepResult, error)

	// ParseDocument runs extraction only, without touching stored state.
	// Useful for previewing what a file would contribute.
	ParseDocument(filePath string, fileType models.FileType) models.ParseResult

	// SearchSimilar embeds the query and searches the domain's collection
	SearchSimilar(ctx context.Context, domainID string, query string, limit int, scoreThreshold float32) ([]models.SearchMatch, error)
}
