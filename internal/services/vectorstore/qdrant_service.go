// -----------------------------------------------------------------------
// Vector Storage Service - Qdrant REST client
// One collection per knowledge domain, cosine distance
// -----------------------------------------------------------------------

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpora/internal/common"
	"github.com/ternarybob/corpora/internal/interfaces"
	"github.com/ternarybob/corpora/internal/models"
)

const defaultBatchSize = 100

// QdrantService implements the VectorStorage interface against the
// Qdrant REST API.
type QdrantService struct {
	baseURL    string
	apiKey     string
	batchSize  int
	httpClient *http.Client
	logger     arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.VectorStorage = (*QdrantService)(nil)

// NewQdrantService creates a new vector storage service from configuration
func NewQdrantService(config common.QdrantConfig, logger arbor.ILogger) *QdrantService {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &QdrantService{
		baseURL:    strings.TrimSuffix(config.URL, "/"),
		apiKey:     config.APIKey,
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// collectionName maps a domain to its collection
func collectionName(domainID string) string {
	return "domain_" + domainID
}

// EnsureCollection creates the domain's collection if absent.
func (s *QdrantService) EnsureCollection(ctx context.Context, domainID string, dimension int) error {
	name := collectionName(domainID)

	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dimension,
			"distance": "Cosine",
		},
		"optimizers_config": map[string]interface{}{
			"default_segment_number": 2,
		},
		"replication_factor": 1,
	}
	if _, err := s.do(ctx, http.MethodPut, "/collections/"+name, body); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	s.logger.Info().Str("collection", name).Int("dimension", dimension).Msg("Collection created")
	return nil
}

// Upsert writes points in batches with wait=true so every batch is
// durable before the next is sent. The collection is created on demand
// using the first point's dimensionality.
func (s *QdrantService) Upsert(ctx context.Context, domainID string, points []models.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	name := collectionName(domainID)
	if err := s.EnsureCollection(ctx, domainID, len(points[0].Vector)); err != nil {
		return err
	}

	batchCount := (len(points) + s.batchSize - 1) / s.batchSize
	for i := 0; i < len(points); i += s.batchSize {
		end := i + s.batchSize
		if end > len(points) {
			end = len(points)
		}

		body := map[string]interface{}{"points": points[i:end]}
		if _, err := s.do(ctx, http.MethodPut, "/collections/"+name+"/points?wait=true", body); err != nil {
			return fmt.Errorf("failed to upsert points into %s: %w", name, err)
		}

		s.logger.Info().
			Str("collection", name).
			Int("batch", i/s.batchSize+1).
			Int("batches", batchCount).
			Int("points", end-i).
			Msg("Vector batch upserted")
	}

	return nil
}

// DeleteByDocument removes all points whose payload documentId matches.
// A missing collection means there is nothing to delete.
func (s *QdrantService) DeleteByDocument(ctx context.Context, domainID string, documentID string) error {
	name := collectionName(domainID)

	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		s.logger.Debug().Str("collection", name).Msg("Collection absent, no vectors to delete")
		return nil
	}

	body := map[string]interface{}{
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{
					"key":   "documentId",
					"match": map[string]interface{}{"value": documentID},
				},
			},
		},
	}
	if _, err := s.do(ctx, http.MethodPost, "/collections/"+name+"/points/delete?wait=true", body); err != nil {
		return fmt.Errorf("failed to delete vectors of document %s: %w", documentID, err)
	}

	s.logger.Info().Str("collection", name).Str("document_id", documentID).Msg("Document vectors deleted")
	return nil
}

// Search returns the closest matches, best first. A missing collection
// yields an empty result.
func (s *QdrantService) Search(ctx context.Context, domainID string, vector []float32, limit int, scoreThreshold float32) ([]models.SearchMatch, error) {
	name := collectionName(domainID)

	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.logger.Warn().Str("collection", name).Msg("Collection absent, returning empty search result")
		return []models.SearchMatch{}, nil
	}

	body := map[string]interface{}{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": scoreThreshold,
		"with_payload":    true,
	}
	respBody, err := s.do(ctx, http.MethodPost, "/collections/"+name+"/points/search", body)
	if err != nil {
		return nil, fmt.Errorf("search in %s failed: %w", name, err)
	}

	var parsed struct {
		Result []struct {
			ID      interface{}          `json:"id"`
			Score   float32              `json:"score"`
			Payload models.VectorPayload `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	matches := make([]models.SearchMatch, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		matches = append(matches, models.SearchMatch{
			ID:      fmt.Sprint(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}

	s.logger.Info().Str("collection", name).Int("matches", len(matches)).Msg("Similarity search complete")
	return matches, nil
}

// DeleteCollection drops the domain's collection. Missing is a no-op.
func (s *QdrantService) DeleteCollection(ctx context.Context, domainID string) error {
	name := collectionName(domainID)

	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if _, err := s.do(ctx, http.MethodDelete, "/collections/"+name, nil); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}

	s.logger.Info().Str("collection", name).Msg("Collection deleted")
	return nil
}

// CollectionInfo reports existence and point counts for a domain
func (s *QdrantService) CollectionInfo(ctx context.Context, domainID string) (*models.CollectionInfo, error) {
	name := collectionName(domainID)

	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &models.CollectionInfo{Exists: false}, nil
	}

	respBody, err := s.do(ctx, http.MethodGet, "/collections/"+name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", name, err)
	}

	var parsed struct {
		Result struct {
			PointsCount         int64 `json:"points_count"`
			IndexedVectorsCount int64 `json:"indexed_vectors_count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode collection info: %w", err)
	}

	vectorsCount := parsed.Result.IndexedVectorsCount
	if vectorsCount == 0 {
		vectorsCount = parsed.Result.PointsCount
	}

	return &models.CollectionInfo{
		Exists:       true,
		PointsCount:  parsed.Result.PointsCount,
		VectorsCount: vectorsCount,
	}, nil
}

// IsAvailable checks connectivity by listing collections
func (s *QdrantService) IsAvailable(ctx context.Context) bool {
	if _, err := s.do(ctx, http.MethodGet, "/collections", nil); err != nil {
		s.logger.Warn().Err(err).Msg("Qdrant unavailable")
		return false
	}
	return true
}

// collectionExists checks the collection list for a name
func (s *QdrantService) collectionExists(ctx context.Context, name string) (bool, error) {
	respBody, err := s.do(ctx, http.MethodGet, "/collections", nil)
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}

	var parsed struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return false, fmt.Errorf("failed to decode collection list: %w", err)
	}

	for _, c := range parsed.Result.Collections {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// do performs one REST call and returns the response body. Any
// non-success status is an error carrying the status and body.
func (s *QdrantService) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant API error: %d - %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
