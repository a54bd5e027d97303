package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/corpora/internal/common"
	"github.com/ternarybob/corpora/internal/models"
)

// fakeQdrant is an in-memory stand-in for the Qdrant REST API covering
// the endpoints the service uses.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string][]models.VectorPoint
	creates     int
	upserts     int
	waitSeen    bool
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{collections: make(map[string][]models.VectorPoint)}
}

func (f *fakeQdrant) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := strings.TrimPrefix(r.URL.Path, "/collections")
		switch {
		case path == "" && r.Method == http.MethodGet:
			names := []map[string]string{}
			for name := range f.collections {
				names = append(names, map[string]string{"name": name})
			}
			writeResult(w, map[string]interface{}{"collections": names})

		case r.Method == http.MethodPut && !strings.Contains(path, "/points"):
			f.creates++
			f.collections[strings.Trim(path, "/")] = nil
			writeResult(w, true)

		case r.Method == http.MethodDelete:
			delete(f.collections, strings.Trim(path, "/"))
			writeResult(w, true)

		case strings.HasSuffix(path, "/points") && r.Method == http.MethodPut:
			f.upserts++
			f.waitSeen = r.URL.Query().Get("wait") == "true"
			name := strings.TrimSuffix(strings.Trim(path, "/"), "/points")
			var body struct {
				Points []models.VectorPoint `json:"points"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			existing := f.collections[name]
			for _, p := range body.Points {
				replaced := false
				for i, old := range existing {
					if old.ID == p.ID {
						existing[i] = p
						replaced = true
						break
					}
				}
				if !replaced {
					existing = append(existing, p)
				}
			}
			f.collections[name] = existing
			writeResult(w, true)

		case strings.HasSuffix(path, "/points/delete"):
			name := strings.TrimSuffix(strings.Trim(path, "/"), "/points/delete")
			var body struct {
				Filter struct {
					Must []struct {
						Key   string `json:"key"`
						Match struct {
							Value string `json:"value"`
						} `json:"match"`
					} `json:"must"`
				} `json:"filter"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			docID := body.Filter.Must[0].Match.Value
			kept := f.collections[name][:0]
			for _, p := range f.collections[name] {
				if p.Payload.DocumentID != docID {
					kept = append(kept, p)
				}
			}
			f.collections[name] = kept
			writeResult(w, true)

		case strings.HasSuffix(path, "/points/search"):
			name := strings.TrimSuffix(strings.Trim(path, "/"), "/points/search")
			results := []map[string]interface{}{}
			for _, p := range f.collections[name] {
				results = append(results, map[string]interface{}{
					"id":      p.ID,
					"score":   0.9,
					"payload": p.Payload,
				})
			}
			writeResult(w, results)

		case r.Method == http.MethodGet:
			name := strings.Trim(path, "/")
			points, ok := f.collections[name]
			if !ok {
				http.Error(w, `{"status":{"error":"not found"}}`, http.StatusNotFound)
				return
			}
			writeResult(w, map[string]interface{}{
				"points_count":          len(points),
				"indexed_vectors_count": len(points),
			})

		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}
}

func writeResult(w http.ResponseWriter, result interface{}) {
	json.NewEncoder(w).Encode(map[string]interface{}{"result": result, "status": "ok"})
}

func (f *fakeQdrant) points(collection string) []models.VectorPoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.VectorPoint(nil), f.collections[collection]...)
}

func newTestService(t *testing.T, fake *fakeQdrant) *QdrantService {
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	return NewQdrantService(common.QdrantConfig{
		URL:       server.URL,
		BatchSize: 100,
		Timeout:   5 * time.Second,
	}, common.GetLogger())
}

func testPoint(id, docID string) models.VectorPoint {
	return models.VectorPoint{
		ID:     id,
		Vector: []float32{0.1, 0.2, 0.3},
		Payload: models.VectorPayload{
			DocumentID:   docID,
			DocumentName: "file.txt",
			Content:      "chunk content",
		},
	}
}

func TestEnsureCollection_Idempotent(t *testing.T) {
	fake := newFakeQdrant()
	s := newTestService(t, fake)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, "d1", 3))
	require.NoError(t, s.EnsureCollection(ctx, "d1", 3))

	assert.Equal(t, 1, fake.creates, "existing collection must not be recreated")
}

func TestUpsert_CreatesCollectionAndWaits(t *testing.T) {
	fake := newFakeQdrant()
	s := newTestService(t, fake)

	err := s.Upsert(context.Background(), "d1", []models.VectorPoint{testPoint("p1", "doc_a")})

	require.NoError(t, err)
	assert.Equal(t, 1, fake.creates)
	assert.True(t, fake.waitSeen, "upserts must be durability-synchronous")
	assert.Len(t, fake.points("domain_d1"), 1)
}

func TestUpsert_Batches(t *testing.T) {
	fake := newFakeQdrant()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	s := NewQdrantService(common.QdrantConfig{URL: server.URL, BatchSize: 2}, common.GetLogger())

	points := []models.VectorPoint{
		testPoint("p1", "doc_a"), testPoint("p2", "doc_a"),
		testPoint("p3", "doc_a"), testPoint("p4", "doc_a"), testPoint("p5", "doc_a"),
	}
	require.NoError(t, s.Upsert(context.Background(), "d1", points))

	assert.Equal(t, 3, fake.upserts)
	assert.Len(t, fake.points("domain_d1"), 5)
}

func TestUpsert_NoPointsIsNoop(t *testing.T) {
	fake := newFakeQdrant()
	s := newTestService(t, fake)

	require.NoError(t, s.Upsert(context.Background(), "d1", nil))
	assert.Equal(t, 0, fake.creates)
}

func TestDeleteByDocument_RemovesOnlyMatching(t *testing.T) {
	fake := newFakeQdrant()
	s := newTestService(t, fake)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "d1", []models.VectorPoint{
		testPoint("p1", "doc_a"),
		testPoint("p2", "doc_b"),
	}))

	require.NoError(t, s.DeleteByDocument(ctx, "d1", "doc_a"))

	remaining := fake.points("domain_d1")
	require.Len(t, remaining, 1)
	assert.Equal(t, "p2", remaining[0].ID)
}

func TestDeleteByDocument_AbsentCollectionIsNoop(t *testing.T) {
	fake := newFakeQdrant()
	s := newTestService(t, fake)

	assert.NoError(t, s.DeleteByDocument(context.Background(), "ghost", "doc_a"))
}

func TestSearch_AbsentCollectionReturnsEmpty(t *testing.T) {
	fake := newFakeQdrant()
	s := newTestService(t, fake)

	matches, err := s.Search(context.Background(), "ghost", []float32{0.1}, 5, 0.7)

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearch_ReturnsPayload(t *testing.T) {
	fake := newFakeQdrant()
	s := newTestService(t, fake)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "d1", []models.VectorPoint{testPoint("p1", "doc_a")}))

	matches, err := s.Search(ctx, "d1", []float32{0.1, 0.2, 0.3}, 5, 0.5)

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p1", matches[0].ID)
	assert.Equal(t, "doc_a", matches[0].Payload.DocumentID)
	assert.Equal(t, "chunk content", matches[0].Payload.Content)
	assert.InDelta(t, 0.9, matches[0].Score, 0.001)
}

func TestDeleteCollection(t *testing.T) {
	fake := newFakeQdrant()
	s := newTestService(t, fake)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, "d1", 3))
	require.NoError(t, s.DeleteCollection(ctx, "d1"))
	require.NoError(t, s.DeleteCollection(ctx, "d1"), "missing collection is a no-op")

	info, err := s.CollectionInfo(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestCollectionInfo(t *testing.T) {
	fake := newFakeQdrant()
	s := newTestService(t, fake)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "d1", []models.VectorPoint{
		testPoint("p1", "doc_a"), testPoint("p2", "doc_a"),
	}))

	info, err := s.CollectionInfo(ctx, "d1")

	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, int64(2), info.PointsCount)
}

func TestIsAvailable(t *testing.T) {
	fake := newFakeQdrant()
	s := newTestService(t, fake)

	assert.True(t, s.IsAvailable(context.Background()))

	down := NewQdrantService(common.QdrantConfig{URL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, common.GetLogger())
	assert.False(t, down.IsAvailable(context.Background()))
}
