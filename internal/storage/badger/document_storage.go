package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/corpora/internal/common"
	"github.com/ternarybob/corpora/internal/interfaces"
	"github.com/ternarybob/corpora/internal/models"
)

// DocumentStorage implements the DocumentStorage interface for Badger.
// Status transitions are enforced here so no caller can move a document
// into an illegal state.
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

// Compile-time interface assertion
var _ interfaces.DocumentStorage = (*DocumentStorage)(nil)

func (s *DocumentStorage) Create(doc *models.Document) error {
	if doc.DomainID == "" {
		return fmt.Errorf("document domain ID is required")
	}
	if doc.ID == "" {
		doc.ID = common.NewDocumentID()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	if doc.Status == "" {
		doc.Status = models.StatusQueued
	}

	if err := s.db.Store().Insert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) GetDocument(id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("document not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStorage) Update(doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) Delete(id string) error {
	if err := s.db.Store().Delete(id, &models.Document{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// MarkAsProcessing transitions queued -> processing
func (s *DocumentStorage) MarkAsProcessing(id string) error {
	doc, err := s.GetDocument(id)
	if err != nil {
		return err
	}
	if !doc.Status.CanProcess() {
		return fmt.Errorf("document %s cannot be processed from status %s", id, doc.Status)
	}

	doc.Status = models.StatusProcessing
	doc.Progress = 0
	doc.ErrorMessage = ""
	return s.Update(doc)
}

// MarkAsCompleted transitions processing -> completed
func (s *DocumentStorage) MarkAsCompleted(id string, chunkCount int) error {
	doc, err := s.GetDocument(id)
	if err != nil {
		return err
	}
	if doc.Status != models.StatusProcessing {
		return fmt.Errorf("document %s cannot be completed from status %s", id, doc.Status)
	}

	now := time.Now()
	doc.Status = models.StatusCompleted
	doc.Progress = 100
	doc.ChunkCount = chunkCount
	doc.ErrorMessage = ""
	doc.ProcessedAt = &now
	return s.Update(doc)
}

// MarkAsFailed records the failure and spends one retry
func (s *DocumentStorage) MarkAsFailed(id string, errorMessage string) error {
	doc, err := s.GetDocument(id)
	if err != nil {
		return err
	}

	doc.Status = models.StatusFailed
	doc.ErrorMessage = errorMessage
	doc.RetryCount++
	return s.Update(doc)
}

// ResetToQueued returns a document to the queue for reprocessing
func (s *DocumentStorage) ResetToQueued(id string) error {
	doc, err := s.GetDocument(id)
	if err != nil {
		return err
	}

	doc.Status = models.StatusQueued
	doc.Progress = 0
	doc.ErrorMessage = ""
	doc.ChunkCount = 0
	doc.ProcessedAt = nil
	return s.Update(doc)
}

// FindPendingDocuments returns queued documents, oldest upload first
func (s *DocumentStorage) FindPendingDocuments(domainID string, limit int) ([]*models.Document, error) {
	query := badgerhold.Where("Status").Eq(models.StatusQueued)
	if domainID != "" {
		query = query.And("DomainID").Eq(domainID)
	}
	query = query.SortBy("UploadedAt")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var docs []models.Document
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to find pending documents: %w", err)
	}
	return toPointers(docs), nil
}

// FindRetryableDocuments returns failed documents with retries left
func (s *DocumentStorage) FindRetryableDocuments(maxRetries int, limit int) ([]*models.Document, error) {
	query := badgerhold.Where("Status").Eq(models.StatusFailed).
		And("RetryCount").Lt(maxRetries).
		SortBy("UploadedAt")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var docs []models.Document
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to find retryable documents: %w", err)
	}
	return toPointers(docs), nil
}

// ListByDomain returns all documents in a domain, newest upload first
func (s *DocumentStorage) ListByDomain(domainID string) ([]*models.Document, error) {
	var docs []models.Document
	query := badgerhold.Where("DomainID").Eq(domainID).SortBy("UploadedAt").Reverse()
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return toPointers(docs), nil
}

// CountByStatus returns the number of documents in the given status
func (s *DocumentStorage) CountByStatus(status models.DocumentStatus) (int, error) {
	count, err := s.db.Store().Count(&models.Document{}, badgerhold.Where("Status").Eq(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

func toPointers(docs []models.Document) []*models.Document {
	result := make([]*models.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result
}
