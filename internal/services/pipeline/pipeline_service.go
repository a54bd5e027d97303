// -----------------------------------------------------------------------
// Pipeline Service - Document ingestion orchestrator
// parse -> normalize -> chunk -> embed -> index, driving the document
// status state machine
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpora/internal/common"
	"github.com/ternarybob/corpora/internal/interfaces"
	"github.com/ternarybob/corpora/internal/models"
	"github.com/ternarybob/corpora/internal/services/chunker"
	"github.com/ternarybob/corpora/internal/services/textnorm"
)

const defaultMaxRetries = 3

// Service implements the PipelineService interface
type Service struct {
	documents  interfaces.DocumentStorage
	parser     interfaces.ParserService
	normalizer *textnorm.Normalizer
	chunker    *chunker.Chunker
	embedder   interfaces.EmbeddingService
	vectors    interfaces.VectorStorage
	logger     arbor.ILogger
	maxRetries int

	// Per-document locks so concurrent process/reprocess calls on the
	// same document cannot interleave their delete-then-upsert vector
	// operations. Entries are dropped once the last holder releases.
	mu    sync.Mutex
	locks map[string]*docLock
}

// docLock is a per-document mutex with a holder count so the map entry
// can be removed when nobody holds or waits on it.
type docLock struct {
	mu   sync.Mutex
	refs int
}

// Compile-time interface assertion
var _ interfaces.PipelineService = (*Service)(nil)

// NewService creates the ingestion pipeline with all its collaborators
func NewService(
	documents interfaces.DocumentStorage,
	parser interfaces.ParserService,
	normalizer *textnorm.Normalizer,
	chunk *chunker.Chunker,
	embedder interfaces.EmbeddingService,
	vectors interfaces.VectorStorage,
	config common.ProcessingConfig,
	logger arbor.ILogger,
) *Service {
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Service{
		documents:  documents,
		parser:     parser,
		normalizer: normalizer,
		chunker:    chunk,
		embedder:   embedder,
		vectors:    vectors,
		logger:     logger,
		maxRetries: maxRetries,
		locks:      make(map[string]*docLock),
	}
}

// ProcessDocument runs the full pipeline for one document. Every abort
// path persists the error to the document record before returning it.
func (s *Service) ProcessDocument(ctx context.Context, doc *models.Document, onProgress models.ProgressFunc) error {
	unlock := s.lockDocument(doc.ID)
	defer unlock()

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("filename", doc.Filename).
		Msg("Processing document")

	if err := s.documents.MarkAsProcessing(doc.ID); err != nil {
		return fmt.Errorf("failed to start processing: %w", err)
	}

	report(onProgress, models.StageValidation, 0, "validating document")

	if doc.FilePath == "" {
		return s.fail(doc, models.StageValidation, errors.New("document file path is empty"))
	}

	report(onProgress, models.StageExtraction, 10, "extracting text")

	parseResult := s.parser.Parse(doc.FilePath, doc.FileType)
	if !parseResult.Success || parseResult.Content == "" {
		msg := parseResult.Error
		if msg == "" {
			msg = "document parsing produced no content"
		}
		return s.fail(doc, models.StageExtraction, errors.New(msg))
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Int("words", parseResult.Metadata.WordCount).
		Msg("Text extracted")

	report(onProgress, models.StageCleaning, 30, "cleaning text")

	cleaned := s.normalizer.Normalize(parseResult.Content)

	report(onProgress, models.StageChunking, 40, "chunking text")

	chunks := s.chunker.Chunk(cleaned, doc.ID)
	if len(chunks) == 0 {
		return s.fail(doc, models.StageChunking, errors.New("no valid content after chunking"))
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Int("chunks", len(chunks)).
		Msg("Text chunked")

	report(onProgress, models.StageEmbedding, 50, "generating embeddings")

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return s.fail(doc, models.StageEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return s.fail(doc, models.StageEmbedding,
			fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(vectors)))
	}

	report(onProgress, models.StageIndexing, 80, "storing vectors")

	// Drop vectors from any prior run so reprocessing never accumulates.
	if err := s.vectors.DeleteByDocument(ctx, doc.DomainID, doc.ID); err != nil {
		return s.fail(doc, models.StageIndexing, err)
	}

	points := make([]models.VectorPoint, len(chunks))
	for i, c := range chunks {
		points[i] = models.VectorPoint{
			ID:     c.ID,
			Vector: vectors[i],
			Payload: models.VectorPayload{
				DocumentID:    doc.ID,
				DocumentName:  doc.Filename,
				Content:       c.Content,
				ChunkIndex:    c.ChunkIndex,
				StartPosition: c.StartPosition,
				EndPosition:   c.EndPosition,
			},
		}
	}
	if err := s.vectors.Upsert(ctx, doc.DomainID, points); err != nil {
		return s.fail(doc, models.StageIndexing, err)
	}

	if err := s.documents.MarkAsCompleted(doc.ID, len(chunks)); err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}

	report(onProgress, models.StageIndexing, 100, "processing complete")

	s.logger.Info().
		Str("document_id", doc.ID).
		Int("chunks", len(chunks)).
		Msg("Document processed")

	return nil
}

// ReprocessDocument re-queues and re-runs a document. Rejected without
// state change once the retry budget is spent.
func (s *Service) ReprocessDocument(ctx context.Context, id string) error {
	doc, err := s.documents.GetDocument(id)
	if err != nil {
		return err
	}

	if doc.RetryCount >= s.maxRetries {
		return fmt.Errorf("document has reached max retry count (%d)", s.maxRetries)
	}

	if err := s.documents.ResetToQueued(id); err != nil {
		return err
	}

	doc, err = s.documents.GetDocument(id)
	if err != nil {
		return err
	}

	return s.ProcessDocument(ctx, doc, nil)
}

// ProcessPendingDocuments sweeps up to limit queued documents.
// Individual failures are counted and the sweep continues.
func (s *Service) ProcessPendingDocuments(ctx context.Context, domainID string, limit int) (*models.SweepResult, error) {
	docs, err := s.documents.FindPendingDocuments(domainID, limit)
	if err != nil {
		return nil, err
	}

	result := &models.SweepResult{}
	for _, doc := range docs {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err := s.ProcessDocument(ctx, doc, nil); err != nil {
			result.Failed++
			s.logger.Error().
				Str("document_id", doc.ID).
				Str("filename", doc.Filename).
				Err(err).
				Msg("Sweep: document failed")
			continue
		}
		result.Processed++
	}

	s.logger.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Msg("Pending sweep complete")

	return result, nil
}

// ParseDocument runs extraction only, without touching stored state
func (s *Service) ParseDocument(filePath string, fileType models.FileType) models.ParseResult {
	return s.parser.Parse(filePath, fileType)
}

// SearchSimilar embeds the query and searches the domain's collection
func (s *Service) SearchSimilar(ctx context.Context, domainID string, query string, limit int, scoreThreshold float32) ([]models.SearchMatch, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.vectors.Search(ctx, domainID, vector, limit, scoreThreshold)
}

// fail persists the stage error to the document and wraps it
func (s *Service) fail(doc *models.Document, stage models.ProcessingStage, err error) error {
	s.logger.Error().
		Str("document_id", doc.ID).
		Str("stage", string(stage)).
		Err(err).
		Msg("Document processing failed")

	if markErr := s.documents.MarkAsFailed(doc.ID, err.Error()); markErr != nil {
		s.logger.Error().Str("document_id", doc.ID).Err(markErr).Msg("Failed to record document failure")
	}

	return &StageError{Stage: stage, Err: err}
}

// lockDocument acquires the mutex guarding a document id and returns
// the release func.
func (s *Service) lockDocument(id string) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &docLock{}
		s.locks[id] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func report(onProgress models.ProgressFunc, stage models.ProcessingStage, progress int, message string) {
	if onProgress != nil {
		onProgress(models.ProgressUpdate{Stage: stage, Progress: progress, Message: message})
	}
}
