package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/secondbrain/internal/llm"
	"github.com/xaenox/secondbrain/internal/models"
	"github.com/xaenox/secondbrain/internal/storage"
	"go.uber.org/zap"
)

// keywordEmbedder maps text onto fixed axes so similarity is predictable.
type keywordEmbedder struct {
	err   error
	tasks []llm.EmbedTask
	texts []string
}

func (k *keywordEmbedder) Embed(_ context.Context, text string, task llm.EmbedTask) ([]float32, error) {
	k.tasks = append(k.tasks, task)
	k.texts = append(k.texts, text)
	if k.err != nil {
		return nil, k.err
	}
	lower := strings.ToLower(text)
	vec := make([]float32, 3)
	for i, word := range []string{"cookie", "golang", "travel"} {
		if strings.Contains(lower, word) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func saveVector(t *testing.T, store storage.Storage, id, title string, vec []float32) {
	t.Helper()
	require.NoError(t, store.SaveLink(context.Background(), &models.Link{
		ID:        id,
		UserID:    1,
		URL:       "https://example.com/" + id,
		Title:     title,
		Embedding: vec,
	}))
}

func TestIngestStoresDocumentEmbedding(t *testing.T) {
	store := storage.NewMemoryStorage()
	embedder := &keywordEmbedder{}
	source := &fakeSource{result: models.FetchResult{RawText: "cookie dough", Title: "Cookie recipe"}}
	svc := NewService(source, offlineEngine(), &fakeChatter{}, store, zap.NewNop(), WithEmbedder(embedder))

	link, err := svc.Ingest(context.Background(), 1, "https://example.com/cookies")
	require.NoError(t, err)

	require.Len(t, embedder.tasks, 1)
	assert.Equal(t, llm.TaskRetrievalDocument, embedder.tasks[0])
	assert.Equal(t, link.EmbeddingText(), embedder.texts[0])
	assert.True(t, strings.HasPrefix(embedder.texts[0], "Title: "))

	stored, err := store.GetLink(context.Background(), 1, link.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Embedding, 3)
}

func TestIngestEmbeddingFailureStillSaves(t *testing.T) {
	store := storage.NewMemoryStorage()
	embedder := &keywordEmbedder{err: errors.New("quota exceeded")}
	source := &fakeSource{result: models.FetchResult{RawText: "text", Title: "T"}}
	svc := NewService(source, offlineEngine(), &fakeChatter{}, store, zap.NewNop(), WithEmbedder(embedder))

	link, err := svc.Ingest(context.Background(), 1, "https://example.com/a")
	require.NoError(t, err)
	assert.Nil(t, link.Embedding)

	_, err = store.GetLink(context.Background(), 1, link.ID)
	assert.NoError(t, err)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store := storage.NewMemoryStorage()
	saveVector(t, store, "cookies", "Cookies", []float32{1, 0, 0})
	saveVector(t, store, "go-cookies", "Go bakery", []float32{1, 1, 0})
	saveVector(t, store, "travel", "Lisbon", []float32{0, 0, 1})
	saveVector(t, store, "legacy", "No vector", nil)
	embedder := &keywordEmbedder{}
	svc := NewService(&fakeSource{}, offlineEngine(), &fakeChatter{}, store, zap.NewNop(), WithEmbedder(embedder))

	hits, err := svc.Search(context.Background(), 1, "cookie ideas", 0)
	require.NoError(t, err)

	require.Len(t, hits, 3)
	assert.Equal(t, "cookies", hits[0].Link.ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.Equal(t, "go-cookies", hits[1].Link.ID)
	assert.Equal(t, "travel", hits[2].Link.ID)
	assert.Equal(t, []llm.EmbedTask{llm.TaskRetrievalQuery}, embedder.tasks)
}

func TestSearchLimitAndIsolation(t *testing.T) {
	store := storage.NewMemoryStorage()
	saveVector(t, store, "a", "A", []float32{1, 0, 0})
	saveVector(t, store, "b", "B", []float32{1, 1, 0})
	require.NoError(t, store.SaveLink(context.Background(), &models.Link{
		ID: "other", UserID: 2, URL: "https://example.com/other", Embedding: []float32{1, 0, 0},
	}))
	svc := NewService(&fakeSource{}, offlineEngine(), &fakeChatter{}, store, zap.NewNop(), WithEmbedder(&keywordEmbedder{}))

	hits, err := svc.Search(context.Background(), 1, "cookie", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Link.ID)
}

func TestSearchErrors(t *testing.T) {
	store := storage.NewMemoryStorage()

	plain := NewService(&fakeSource{}, offlineEngine(), &fakeChatter{}, store, zap.NewNop())
	_, err := plain.Search(context.Background(), 1, "cookie", 0)
	assert.ErrorIs(t, err, ErrSearchUnavailable)

	svc := NewService(&fakeSource{}, offlineEngine(), &fakeChatter{}, store, zap.NewNop(), WithEmbedder(&keywordEmbedder{}))
	_, err = svc.Search(context.Background(), 1, "   ", 0)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	failing := NewService(&fakeSource{}, offlineEngine(), &fakeChatter{}, store, zap.NewNop(),
		WithEmbedder(&keywordEmbedder{err: errors.New("down")}))
	_, err = failing.Search(context.Background(), 1, "cookie", 0)
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Zero(t, sim)

	_, err = CosineSimilarity([]float32{1}, []float32{1, 0})
	assert.Error(t, err)
	_, err = CosineSimilarity([]float32{1}, nil)
	assert.Error(t, err)
}
