package vectorstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/rossirpaulo/agihouse-hackathon/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryDocs struct {
	docs map[uuid.UUID]repository.Document
}

func newMemoryDocs() *memoryDocs {
	return &memoryDocs{docs: make(map[uuid.UUID]repository.Document)}
}

func (m *memoryDocs) StoreDocument(_ context.Context, title, metadata string) (uuid.UUID, error) {
	id := uuid.New()
	m.docs[id] = repository.Document{ID: id, Title: title, Metadata: metadata, CreatedAt: time.Now()}
	return id, nil
}

func (m *memoryDocs) GetDocument(_ context.Context, id uuid.UUID) (*repository.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &doc, nil
}

type fakeIndex struct {
	points    []Point
	hits      []Hit
	searchErr error
}

func (f *fakeIndex) Upsert(_ context.Context, point Point) error {
	f.points = append(f.points, point)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, _ float32, _ int) ([]Hit, error) {
	return f.hits, f.searchErr
}

func TestStore_StoreChunkEmbedding(t *testing.T) {
	docs := newMemoryDocs()
	index := &fakeIndex{}
	store := NewStore(docs, index, nil)
	ctx := context.Background()

	id, err := store.StoreDocument(ctx, "Guide", "lang=en")
	require.NoError(t, err)

	require.NoError(t, store.StoreChunkEmbedding(ctx, id, "chunk text", []float32{0.1, 0.2}))
	require.Len(t, index.points, 1)

	point := index.points[0]
	assert.NotEqual(t, uuid.Nil, point.ID)
	assert.Equal(t, id, point.DocumentID)
	assert.Equal(t, "chunk text", point.Text)
	assert.Equal(t, "Guide", point.Title)
	assert.Equal(t, "lang=en", point.Metadata)
	assert.Equal(t, []float32{0.1, 0.2}, point.Vector)
}

func TestStore_StoreChunkEmbeddingUnknownDocument(t *testing.T) {
	index := &fakeIndex{}
	store := NewStore(newMemoryDocs(), index, nil)

	err := store.StoreChunkEmbedding(context.Background(), uuid.New(), "orphan", []float32{1})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, index.points)
}

func TestStore_QuerySimilar(t *testing.T) {
	docID := uuid.New()
	index := &fakeIndex{hits: []Hit{
		{Point: Point{ID: uuid.New(), DocumentID: docID, Text: "a", Title: "T"}, Score: 0.9},
		{Point: Point{ID: uuid.New(), DocumentID: docID, Text: "b", Title: "T"}, Score: 0.5},
	}}
	store := NewStore(newMemoryDocs(), index, nil)

	matches := store.QuerySimilar(context.Background(), []float32{1}, 0.5, 10)
	require.Len(t, matches, 1, "a score equal to the threshold is not a match")
	assert.Equal(t, "a", matches[0].Text)
	assert.Equal(t, "T", matches[0].Title)
	assert.Equal(t, docID, matches[0].DocumentID)
	assert.Equal(t, float32(0.9), matches[0].Similarity)
}

func TestStore_QuerySimilarErrorYieldsNoMatches(t *testing.T) {
	index := &fakeIndex{searchErr: errors.New("unavailable")}
	store := NewStore(newMemoryDocs(), index, nil)

	assert.Nil(t, store.QuerySimilar(context.Background(), []float32{1}, 0.5, 10))
}

func TestPointPayloadRoundTrip(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	point := Point{
		ID:         uuid.New(),
		DocumentID: uuid.New(),
		Text:       "some chunk",
		Title:      "Doc",
		Metadata:   "author=me",
		CreatedAt:  created,
		Vector:     []float32{0.5, 0.5},
	}

	ps := toPointStruct(point)
	assert.Equal(t, point.ID.String(), ps.GetId().GetUuid())
	assert.Equal(t, point.DocumentID.String(), ps.GetPayload()[fieldFileID].GetStringValue())

	hit := fromScoredPoint(&qdrant.ScoredPoint{
		Id:      ps.GetId(),
		Payload: ps.GetPayload(),
		Score:   0.75,
	})

	assert.Equal(t, float32(0.75), hit.Score)
	assert.Equal(t, point.ID, hit.ID)
	assert.Equal(t, point.DocumentID, hit.DocumentID)
	assert.Equal(t, point.Text, hit.Text)
	assert.Equal(t, point.Title, hit.Title)
	assert.Equal(t, point.Metadata, hit.Metadata)
	assert.True(t, created.Equal(hit.CreatedAt))
	assert.Nil(t, hit.Vector)
}
