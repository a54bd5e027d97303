package interfaces

import (
	"github.com/ternarybob/corpora/internal/models"
)

// DocumentStorage persists document metadata and enforces the status
// state machine. Raw file bytes live on disk; vectors live in the
// vector store; this tracks everything in between.
type DocumentStorage interface {
	// Create stores a new document record. Fills ID, UploadedAt and
	// Status (queued) when unset.
	Create(doc *models.Document) error

	// GetDocument retrieves a document by ID
	GetDocument(id string) (*models.Document, error)

	// Update persists the full document record
	Update(doc *models.Document) error

	// Delete removes the document record
	Delete(id string) error

	// MarkAsProcessing transitions queued -> processing and resets
	// progress and error message. Fails for documents not in queued.
	MarkAsProcessing(id string) error

	// MarkAsCompleted transitions processing -> completed, records the
	// chunk count, sets progress to 100 and stamps ProcessedAt.
	MarkAsCompleted(id string, chunkCount int) error

	// MarkAsFailed transitions to failed, records the error message and
	// increments RetryCount.
	MarkAsFailed(id string, errorMessage string) error

	// ResetToQueued returns a document to the queued state for
	// reprocessing, clearing progress, error message and chunk count.
	ResetToQueued(id string) error

	// FindPendingDocuments returns up to limit queued documents for a
	// domain, oldest upload first. Empty domainID means all domains.
	FindPendingDocuments(domainID string, limit int) ([]*models.Document, error)

	// FindRetryableDocuments returns failed documents whose RetryCount
	// is below maxRetries, oldest upload first.
	FindRetryableDocuments(maxRetries int, limit int) ([]*models.Document, error)

	// ListByDomain returns all documents in a domain, newest upload first
	ListByDomain(domainID string) ([]*models.Document, error)

	// CountByStatus returns the number of documents in the given status
	CountByStatus(status models.DocumentStatus) (int, error)
}
