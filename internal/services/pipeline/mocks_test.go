package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/corpora/internal/common"
	"github.com/ternarybob/corpora/internal/interfaces"
	"github.com/ternarybob/corpora/internal/models"
)

// memDocs is an in-memory DocumentStorage with the same transition
// rules as the badger implementation.
type memDocs struct {
	mu   sync.Mutex
	docs map[string]*models.Document
}

var _ interfaces.DocumentStorage = (*memDocs)(nil)

func newMemDocs() *memDocs {
	return &memDocs{docs: make(map[string]*models.Document)}
}

func (m *memDocs) Create(doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == "" {
		doc.ID = common.NewDocumentID()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	if doc.Status == "" {
		doc.Status = models.StatusQueued
	}
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *memDocs) GetDocument(id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	copied := *doc
	return &copied, nil
}

func (m *memDocs) Update(doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *memDocs) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memDocs) MarkAsProcessing(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	if !doc.Status.CanProcess() {
		return fmt.Errorf("document %s cannot be processed from status %s", id, doc.Status)
	}
	doc.Status = models.StatusProcessing
	doc.Progress = 0
	doc.ErrorMessage = ""
	return nil
}

func (m *memDocs) MarkAsCompleted(id string, chunkCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	if doc.Status != models.StatusProcessing {
		return fmt.Errorf("document %s cannot be completed from status %s", id, doc.Status)
	}
	now := time.Now()
	doc.Status = models.StatusCompleted
	doc.Progress = 100
	doc.ChunkCount = chunkCount
	doc.ProcessedAt = &now
	return nil
}

func (m *memDocs) MarkAsFailed(id string, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	doc.Status = models.StatusFailed
	doc.ErrorMessage = errorMessage
	doc.RetryCount++
	return nil
}

func (m *memDocs) ResetToQueued(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	doc.Status = models.StatusQueued
	doc.Progress = 0
	doc.ErrorMessage = ""
	doc.ChunkCount = 0
	doc.ProcessedAt = nil
	return nil
}

func (m *memDocs) FindPendingDocuments(domainID string, limit int) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Document
	for _, doc := range m.docs {
		if doc.Status != models.StatusQueued {
			continue
		}
		if domainID != "" && doc.DomainID != domainID {
			continue
		}
		copied := *doc
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UploadedAt.Before(result[j].UploadedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memDocs) FindRetryableDocuments(maxRetries int, limit int) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Document
	for _, doc := range m.docs {
		if doc.Status == models.StatusFailed && doc.RetryCount < maxRetries {
			copied := *doc
			result = append(result, &copied)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memDocs) ListByDomain(domainID string) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Document
	for _, doc := range m.docs {
		if doc.DomainID == domainID {
			copied := *doc
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *memDocs) CountByStatus(status models.DocumentStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, doc := range m.docs {
		if doc.Status == status {
			count++
		}
	}
	return count, nil
}

// stubParser returns canned results, optionally keyed by file path
type stubParser struct {
	results  map[string]models.ParseResult
	fallback models.ParseResult
}

var _ interfaces.ParserService = (*stubParser)(nil)

func (p *stubParser) Parse(filePath string, _ models.FileType) models.ParseResult {
	if r, ok := p.results[filePath]; ok {
		return r
	}
	return p.fallback
}

func (p *stubParser) Supports(models.FileType) bool { return true }

// stubEmbedder returns deterministic vectors; short drops vectors from
// the tail to simulate a count mismatch.
type stubEmbedder struct {
	mu    sync.Mutex
	err   error
	short int
	calls [][]string
}

var _ interfaces.EmbeddingService = (*stubEmbedder)(nil)

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.calls = append(e.calls, append([]string(nil), texts...))
	n := len(texts) - e.short
	if n < 0 {
		n = 0
	}
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = []float32{float32(i), 1}
	}
	return vectors, nil
}

func (e *stubEmbedder) EstimateTokens(text string) int   { return len(text) / 4 }
func (e *stubEmbedder) IsWithinTokenLimit(string) bool   { return true }
func (e *stubEmbedder) ModelName() string                { return "stub-model" }
func (e *stubEmbedder) Dimension() int                   { return 2 }
func (e *stubEmbedder) IsAvailable(context.Context) bool { return true }

// memVectors is an in-memory VectorStorage
type memVectors struct {
	mu         sync.Mutex
	points     map[string]map[string]models.VectorPoint // domain -> point id -> point
	upserts    int
	failUpsert error
}

var _ interfaces.VectorStorage = (*memVectors)(nil)

func newMemVectors() *memVectors {
	return &memVectors{points: make(map[string]map[string]models.VectorPoint)}
}

func (v *memVectors) EnsureCollection(context.Context, string, int) error { return nil }

func (v *memVectors) Upsert(_ context.Context, domainID string, points []models.VectorPoint) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failUpsert != nil {
		return v.failUpsert
	}
	v.upserts++
	if v.points[domainID] == nil {
		v.points[domainID] = make(map[string]models.VectorPoint)
	}
	for _, p := range points {
		v.points[domainID][p.ID] = p
	}
	return nil
}

func (v *memVectors) DeleteByDocument(_ context.Context, domainID string, documentID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, p := range v.points[domainID] {
		if p.Payload.DocumentID == documentID {
			delete(v.points[domainID], id)
		}
	}
	return nil
}

func (v *memVectors) Search(_ context.Context, domainID string, _ []float32, limit int, _ float32) ([]models.SearchMatch, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var matches []models.SearchMatch
	for _, p := range v.points[domainID] {
		matches = append(matches, models.SearchMatch{ID: p.ID, Score: 0.9, Payload: p.Payload})
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (v *memVectors) DeleteCollection(_ context.Context, domainID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.points, domainID)
	return nil
}

func (v *memVectors) CollectionInfo(_ context.Context, domainID string) (*models.CollectionInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	points, ok := v.points[domainID]
	return &models.CollectionInfo{Exists: ok, PointsCount: int64(len(points))}, nil
}

func (v *memVectors) IsAvailable(context.Context) bool { return true }

func (v *memVectors) documentPoints(domainID, documentID string) []models.VectorPoint {
	v.mu.Lock()
	defer v.mu.Unlock()
	var result []models.VectorPoint
	for _, p := range v.points[domainID] {
		if p.Payload.DocumentID == documentID {
			result = append(result, p)
		}
	}
	return result
}
