package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
	"go.uber.org/zap"
)

type fakeEmbedder struct {
	inputs [][]string
}

func (f *fakeEmbedder) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	req := conv.Convert()
	input, _ := req.Input.([]string)
	f.inputs = append(f.inputs, input)

	resp := openai.EmbeddingResponse{}
	for i := range input {
		resp.Data = append(resp.Data, openai.Embedding{Index: i, Embedding: []float32{float32(i), 1}})
	}
	return resp, nil
}

type fakeWeaviate struct {
	graphqlBody string
	queries     []string
	objects     []map[string]any
	deletes     []string
}

func (f *fakeWeaviate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	body, _ := io.ReadAll(r.Body)

	if r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/v1/objects/") {
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		f.deletes = append(f.deletes, id)
		for i, obj := range f.objects {
			if obj["id"] == id {
				f.objects = append(f.objects[:i], f.objects[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		http.NotFound(w, r)
		return
	}

	switch r.URL.Path {
	case "/v1/meta":
		_, _ = w.Write([]byte(`{"version":"1.31.4"}`))
	case "/v1/graphql":
		f.queries = append(f.queries, string(body))
		_, _ = w.Write([]byte(f.graphqlBody))
	case "/v1/objects":
		var obj map[string]any
		_ = json.Unmarshal(body, &obj)
		f.objects = append(f.objects, obj)
		_, _ = w.Write(body)
	default:
		http.NotFound(w, r)
	}
}

func newTestStore(t *testing.T, fake *fakeWeaviate) (*Store, *fakeEmbedder) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	embedder := &fakeEmbedder{}
	s, err := NewStore("http", strings.TrimPrefix(srv.URL, "http://"), embedder, "", zap.NewNop())
	require.NoError(t, err)
	return s, embedder
}

func TestBuildFilter(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		where, err := BuildFilter(nil)
		require.NoError(t, err)
		assert.Nil(t, where)
	})

	t.Run("Known", func(t *testing.T) {
		where, err := BuildFilter(map[string]string{"day": "2024-01-01", "source": "slack"})
		require.NoError(t, err)
		require.NotNil(t, where)
		rendered := where.String()
		assert.Contains(t, rendered, "2024-01-01")
		assert.Contains(t, rendered, "slack")
	})

	t.Run("UnknownKey", func(t *testing.T) {
		_, err := BuildFilter(map[string]string{"channel": "general"})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})
}

func TestAddDocuments(t *testing.T) {
	fake := &fakeWeaviate{}
	s, embedder := newTestStore(t, fake)

	ids, err := s.AddDocuments(context.Background(), []models.Document{
		{ID: "6f1c4f7e-6b36-4e8f-9a51-3d0c1f7d0a11", Text: "day summary", Metadata: map[string]string{"day": "2024-01-01", "kind": "summary"}},
		{Text: "slack section", Metadata: map[string]string{"source": "slack"}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "6f1c4f7e-6b36-4e8f-9a51-3d0c1f7d0a11", ids[0])
	assert.NotEmpty(t, ids[1])

	require.Len(t, embedder.inputs, 1, "texts are embedded in one call")
	assert.Equal(t, []string{"day summary", "slack section"}, embedder.inputs[0])

	require.Len(t, fake.objects, 2)
	assert.Equal(t, ClassName, fake.objects[0]["class"])
	props := fake.objects[0]["properties"].(map[string]any)
	assert.Equal(t, "2024-01-01", props["day"])
	assert.Equal(t, "day summary", props["text"])
}

func TestAddDocumentsReplacesExistingID(t *testing.T) {
	fake := &fakeWeaviate{}
	s, _ := newTestStore(t, fake)
	ctx := context.Background()
	const id = "6f1c4f7e-6b36-4e8f-9a51-3d0c1f7d0a11"

	for _, text := range []string{"first draft", "final summary"} {
		ids, err := s.AddDocuments(ctx, []models.Document{
			{ID: id, Text: text, Metadata: map[string]string{"day": "2024-01-01"}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{id}, ids)
	}

	assert.Equal(t, []string{id, id}, fake.deletes)
	require.Len(t, fake.objects, 1)
	assert.Equal(t, id, fake.objects[0]["id"])
	assert.Equal(t, "final summary", fake.objects[0]["properties"].(map[string]any)["text"])
}

func TestAddDocumentsRejectsUnknownMetadata(t *testing.T) {
	fake := &fakeWeaviate{}
	s, embedder := newTestStore(t, fake)

	_, err := s.AddDocuments(context.Background(), []models.Document{
		{Text: "x", Metadata: map[string]string{"owner": "alice"}},
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, embedder.inputs)
	assert.Empty(t, fake.objects)
}

func TestSimilarityQuery(t *testing.T) {
	fake := &fakeWeaviate{graphqlBody: `{"data":{"Get":{"DailyDocument":[
		{"docId":"d1","text":"Shipped Project-X","day":"2024-01-01","source":"summary","kind":"daily","_additional":{"distance":0.25}},
		{"docId":"d2","text":"Reviewed billing","day":"2024-01-01","_additional":{"distance":"0.5"}},
		"garbage"
	]}}}`}
	s, _ := newTestStore(t, fake)

	docs, err := s.SimilarityQuery(context.Background(), "project x", 2, map[string]string{"day": "2024-01-01"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d1", docs[0].ID)
	assert.InDelta(t, 0.75, docs[0].Score, 1e-9)
	assert.Equal(t, map[string]string{"day": "2024-01-01", "source": "summary", "kind": "daily"}, docs[0].Metadata)
	assert.InDelta(t, 0.5, docs[1].Score, 1e-9)

	require.Len(t, fake.queries, 1)
	assert.Contains(t, fake.queries[0], "nearVector")
	assert.Contains(t, fake.queries[0], "2024-01-01")
}

func TestSimilarityQueryEdgeCases(t *testing.T) {
	t.Run("NoHits", func(t *testing.T) {
		s, _ := newTestStore(t, &fakeWeaviate{graphqlBody: `{"data":{"Get":{"DailyDocument":null}}}`})
		docs, err := s.SimilarityQuery(context.Background(), "q", 0, nil)
		require.NoError(t, err)
		assert.NotNil(t, docs)
		assert.Empty(t, docs)
	})

	t.Run("GraphQLError", func(t *testing.T) {
		s, _ := newTestStore(t, &fakeWeaviate{graphqlBody: `{"errors":[{"message":"class not found"}]}`})
		_, err := s.SimilarityQuery(context.Background(), "q", 3, nil)
		assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	})

	t.Run("UnknownFilterKey", func(t *testing.T) {
		fake := &fakeWeaviate{}
		s, embedder := newTestStore(t, fake)
		_, err := s.SimilarityQuery(context.Background(), "q", 3, map[string]string{"author": "bob"})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		assert.Empty(t, embedder.inputs)
		assert.Empty(t, fake.queries)
	})
}
