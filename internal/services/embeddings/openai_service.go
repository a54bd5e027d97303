// -----------------------------------------------------------------------
// Embedding Service - OpenAI-compatible embeddings REST client
// Batched, order-preserving, rate limited
// -----------------------------------------------------------------------

package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/corpora/internal/common"
	"github.com/ternarybob/corpora/internal/interfaces"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBatchSize = 100
	defaultMaxTokens    = 8000
	defaultRateLimit    = 10
)

// OpenAIService implements the EmbeddingService interface against any
// endpoint speaking the OpenAI embeddings wire format.
type OpenAIService struct {
	baseURL      string
	apiKey       string
	model        string
	dimension    int
	maxBatchSize int
	maxTokens    int
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.EmbeddingService = (*OpenAIService)(nil)

// NewOpenAIService creates a new embedding service from configuration
func NewOpenAIService(config common.EmbeddingConfig, logger arbor.ILogger) *OpenAIService {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBatch := config.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatchSize
	}
	maxTokens := config.MaxTokensPerRequest
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	rateLimit := config.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	return &OpenAIService{
		baseURL:      strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:       config.APIKey,
		model:        config.Model,
		dimension:    config.Dimension,
		maxBatchSize: maxBatch,
		maxTokens:    maxTokens,
		httpClient:   &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		logger:       logger,
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed generates an embedding for a single text
func (s *OpenAIService) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("input text is empty")
	}

	vectors, err := s.requestEmbeddings(ctx, []string{trimmed})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Entries that are
// empty after trimming are dropped; the rest keep their relative order.
// Batches are capped at the provider limit and submitted sequentially.
func (s *OpenAIService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	valid := make([]string, 0, len(texts))
	for _, t := range texts {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			valid = append(valid, trimmed)
		}
	}
	if len(valid) == 0 {
		return [][]float32{}, nil
	}

	batchCount := (len(valid) + s.maxBatchSize - 1) / s.maxBatchSize
	all := make([][]float32, 0, len(valid))

	for i := 0; i < len(valid); i += s.maxBatchSize {
		end := i + s.maxBatchSize
		if end > len(valid) {
			end = len(valid)
		}

		vectors, err := s.requestEmbeddings(ctx, valid[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)

		s.logger.Info().
			Int("batch", i/s.maxBatchSize+1).
			Int("batches", batchCount).
			Int("texts", end-i).
			Msg("Embedding batch complete")
	}

	return all, nil
}

// requestEmbeddings performs one API call. The provider may return the
// vectors in any order; they are sorted by index to restore input order.
func (s *OpenAIService) requestEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	body, err := json.Marshal(embeddingRequest{Model: s.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}

	// No internal retry: the orchestrator owns retry policy.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding API error: %d - %s", resp.StatusCode, string(respBody))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding API returned no data")
	}

	sort.Slice(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})

	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = d.Embedding
	}

	s.logger.Debug().
		Int("texts", len(texts)).
		Int("tokens", parsed.Usage.TotalTokens).
		Msg("Embeddings generated")

	return vectors, nil
}

// EstimateTokens estimates token usage: CJK runs about 1.5 characters
// per token, everything else about 4.
func (s *OpenAIService) EstimateTokens(text string) int {
	cjk := 0
	total := 0
	for _, r := range text {
		total++
		if r >= 0x4E00 && r <= 0x9FA5 {
			cjk++
		}
	}
	other := total - cjk
	return int(math.Ceil(float64(cjk)/1.5 + float64(other)/4))
}

// IsWithinTokenLimit reports whether a text fits one request
func (s *OpenAIService) IsWithinTokenLimit(text string) bool {
	return s.EstimateTokens(text) <= s.maxTokens
}

// ModelName returns the configured embedding model identifier
func (s *OpenAIService) ModelName() string {
	return s.model
}

// Dimension returns the vector dimensionality the model produces
func (s *OpenAIService) Dimension() int {
	return s.dimension
}

// IsAvailable probes the endpoint with a tiny embedding request and
// verifies the configured dimension.
func (s *OpenAIService) IsAvailable(ctx context.Context) bool {
	vector, err := s.Embed(ctx, "test")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Embedding service unavailable")
		return false
	}
	return len(vector) == s.dimension
}
