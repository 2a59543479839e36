package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wmodels "github.com/weaviate/weaviate/entities/models"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
	"go.uber.org/zap"
)

const (
	ClassName = "DailyDocument"
	DefaultK  = 4
)

// FilterKeys are the metadata fields documents carry and queries may filter on.
var FilterKeys = []string{"day", "source", "kind"}

// Embedder is the subset of *openai.Client used to vectorize text.
type Embedder interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

type Store struct {
	client   *weaviate.Client
	embedder Embedder
	model    openai.EmbeddingModel
	logger   *zap.Logger
}

// NewStore connects to the Weaviate instance at host ("localhost:8080").
func NewStore(scheme, host string, embedder Embedder, model string, logger *zap.Logger) (*Store, error) {
	if scheme == "" {
		scheme = "http"
	}
	cl, err := weaviate.NewClient(weaviate.Config{Scheme: scheme, Host: host})
	if err != nil {
		return nil, fmt.Errorf("error creating weaviate client: %w", err)
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &Store{
		client:   cl,
		embedder: embedder,
		model:    openai.EmbeddingModel(model),
		logger:   logger,
	}, nil
}

// Bootstrap creates the document class when it does not exist yet.
func (s *Store) Bootstrap(ctx context.Context) error {
	if existing, err := s.client.Schema().ClassGetter().WithClassName(ClassName).Do(ctx); err == nil && existing != nil {
		return nil
	}

	class := &wmodels.Class{
		Class:      ClassName,
		Vectorizer: "none",
		Properties: []*wmodels.Property{
			{Name: "docId", DataType: []string{"text"}},
			{Name: "text", DataType: []string{"text"}},
			{Name: "day", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "kind", DataType: []string{"text"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return apperr.Upstream("create weaviate class", err)
	}
	s.logger.Info("Created search class", zap.String("class", ClassName))
	return nil
}

// AddDocuments embeds and stores docs, returning their ids. Documents
// without an id get a random one. A document with an id replaces any
// object already stored under it.
func (s *Store) AddDocuments(ctx context.Context, docs []models.Document) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}
	for _, d := range docs {
		if err := validateKeys(d.Metadata); err != nil {
			return nil, err
		}
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := s.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.New().String()
		} else {
			// a missing object is not an error
			_ = s.client.Data().Deleter().WithClassName(ClassName).WithID(id).Do(ctx)
		}
		props := map[string]interface{}{
			"docId": id,
			"text":  d.Text,
		}
		for k, v := range d.Metadata {
			props[k] = v
		}

		_, err := s.client.Data().Creator().
			WithClassName(ClassName).
			WithID(id).
			WithProperties(props).
			WithVector(vectors[i]).
			Do(ctx)
		if err != nil {
			return ids, apperr.Upstream("store document", err)
		}
		ids = append(ids, id)
	}

	s.logger.Info("Indexed documents", zap.Int("count", len(ids)))
	return ids, nil
}

// SimilarityQuery returns the k documents closest to text that match every
// filter entry exactly.
func (s *Store) SimilarityQuery(ctx context.Context, text string, k int, filter map[string]string) ([]models.Document, error) {
	if k <= 0 {
		k = DefaultK
	}
	where, err := BuildFilter(filter)
	if err != nil {
		return nil, err
	}

	vectors, err := s.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vectors[0])
	req := s.client.GraphQL().Get().
		WithClassName(ClassName).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(
			gql.Field{Name: "docId"},
			gql.Field{Name: "text"},
			gql.Field{Name: "day"},
			gql.Field{Name: "source"},
			gql.Field{Name: "kind"},
			gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "distance"}}},
		)
	if where != nil {
		req = req.WithWhere(where)
	}

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, apperr.Upstream("query documents", err)
	}
	if len(resp.Errors) > 0 {
		b, _ := json.Marshal(resp.Errors)
		return nil, apperr.Upstream("query documents", fmt.Errorf("weaviate graphql: %s", b))
	}

	return parseDocuments(resp.Data), nil
}

// BuildFilter turns exact-match metadata filters into a where clause.
// It returns nil for an empty filter and ErrInvalidInput for unknown keys.
func BuildFilter(filter map[string]string) (*filters.WhereBuilder, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	if err := validateKeys(filter); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	operands := make([]*filters.WhereBuilder, 0, len(keys))
	for _, k := range keys {
		operands = append(operands, filters.Where().
			WithPath([]string{k}).
			WithOperator(filters.Equal).
			WithValueText(filter[k]))
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return filters.Where().WithOperator(filters.And).WithOperands(operands), nil
}

func validateKeys(m map[string]string) error {
	for k := range m {
		if !knownKey(k) {
			return apperr.InvalidInput("unknown metadata key %q, expected one of %v", k, FilterKeys)
		}
	}
	return nil
}

func knownKey(k string) bool {
	for _, known := range FilterKeys {
		if k == known {
			return true
		}
	}
	return false
}

func (s *Store) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := s.embedder.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: s.model,
	})
	if err != nil {
		return nil, apperr.Upstream("create embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, apperr.Upstream("create embeddings",
			errors.New("embedding count does not match input count"))
	}

	vectors := make([][]float32, len(texts))
	for _, e := range resp.Data {
		if e.Index < 0 || e.Index >= len(texts) {
			return nil, apperr.Upstream("create embeddings", fmt.Errorf("embedding index %d out of range", e.Index))
		}
		vectors[e.Index] = e.Embedding
	}
	return vectors, nil
}

// parseDocuments reads Get.DailyDocument hits, skipping malformed items.
func parseDocuments(data map[string]wmodels.JSONObject) []models.Document {
	docs := []models.Document{}

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return docs
	}
	raw, ok := get[ClassName].([]interface{})
	if !ok {
		return docs
	}

	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		doc := models.Document{
			ID:       stringField(m, "docId"),
			Text:     stringField(m, "text"),
			Metadata: map[string]string{},
		}
		for _, k := range FilterKeys {
			if v := stringField(m, k); v != "" {
				doc.Metadata[k] = v
			}
		}
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			doc.Score = 1 - floatField(add["distance"])
		}
		docs = append(docs, doc)
	}
	return docs
}

func stringField(m map[string]interface{}, k string) string {
	v, _ := m[k].(string)
	return v
}

func floatField(v interface{}) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case string:
		if parsed, err := strconv.ParseFloat(f, 64); err == nil {
			return parsed
		}
	}
	return 0
}
