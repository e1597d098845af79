package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rossirpaulo/agihouse-hackathon/internal/embedder"
	"github.com/rossirpaulo/agihouse-hackathon/internal/ingestion"
	"github.com/rossirpaulo/agihouse-hackathon/internal/repository"
	"github.com/rossirpaulo/agihouse-hackathon/internal/reranker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedChunk struct {
	documentID uuid.UUID
	text       string
	vector     []float32
}

type fakeStore struct {
	documents  map[uuid.UUID]repository.Document
	chunks     []storedChunk
	matches    []repository.QueryMatch
	storeErr   error
	chunkErr   error
	queryCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{documents: make(map[uuid.UUID]repository.Document)}
}

func (f *fakeStore) StoreDocument(_ context.Context, title, metadata string) (uuid.UUID, error) {
	if f.storeErr != nil {
		return uuid.Nil, f.storeErr
	}
	id := uuid.New()
	f.documents[id] = repository.Document{ID: id, Title: title, Metadata: metadata}
	return id, nil
}

func (f *fakeStore) GetDocument(_ context.Context, id uuid.UUID) (*repository.Document, error) {
	doc, ok := f.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &doc, nil
}

func (f *fakeStore) StoreChunkEmbedding(_ context.Context, documentID uuid.UUID, text string, vector []float32) error {
	if f.chunkErr != nil {
		return f.chunkErr
	}
	if _, ok := f.documents[documentID]; !ok {
		return repository.ErrNotFound
	}
	f.chunks = append(f.chunks, storedChunk{documentID: documentID, text: text, vector: vector})
	return nil
}

func (f *fakeStore) QuerySimilar(context.Context, []float32, float32, int) []repository.QueryMatch {
	f.queryCalls++
	return f.matches
}

// fakeEmbedder returns a vector per text unless batch is set.
type fakeEmbedder struct {
	query      []float32
	queryErr   error
	batch      *embedder.BatchResult
	batchErr   error
	batchTexts [][]string
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return f.query, f.queryErr
}

func (f *fakeEmbedder) EmbedDocument(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}

func (f *fakeEmbedder) BatchEmbedDocuments(_ context.Context, texts []string) (*embedder.BatchResult, error) {
	f.batchTexts = append(f.batchTexts, texts)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	if f.batch != nil {
		return f.batch, nil
	}
	result := &embedder.BatchResult{Vectors: make([][]float32, len(texts))}
	for i := range texts {
		result.Vectors[i] = []float32{float32(i + 1)}
	}
	return result, nil
}

type fakeReranker struct {
	results   []reranker.Result
	err       error
	calls     int
	documents []string
	topK      int
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, documents []string, topK int) ([]reranker.Result, error) {
	f.calls++
	f.documents = documents
	f.topK = topK
	return f.results, f.err
}

func TestRetrievalService_Ingest(t *testing.T) {
	store := newFakeStore()
	emb := &fakeEmbedder{}
	svc := NewRetrievalService(emb, store, &fakeReranker{}, WithChunkMaxSize(20))

	docID, err := svc.Ingest(context.Background(), ingestion.Source{
		Title:    "greeting",
		Content:  "Hello world. This is a test.",
		Metadata: "src:test",
	})
	require.NoError(t, err)

	require.Len(t, store.documents, 1)
	doc := store.documents[docID]
	assert.Equal(t, "greeting", doc.Title)
	assert.Equal(t, "src:test", doc.Metadata)

	require.Len(t, store.chunks, 2)
	assert.Equal(t, "Hello world", store.chunks[0].text)
	assert.Equal(t, "This is a test", store.chunks[1].text)
	for _, c := range store.chunks {
		assert.Equal(t, docID, c.documentID)
	}
	assert.Equal(t, []float32{1}, store.chunks[0].vector)
	assert.Equal(t, []float32{2}, store.chunks[1].vector)
}

func TestRetrievalService_IngestNormalizes(t *testing.T) {
	store := newFakeStore()
	emb := &fakeEmbedder{}
	svc := NewRetrievalService(emb, store, &fakeReranker{})

	_, err := svc.Ingest(context.Background(), ingestion.Source{
		Title:    "  notes\x00 ",
		Content:  "First\x01 line. \x02",
		Metadata: " src:test\x7f",
	})
	require.NoError(t, err)

	require.Len(t, store.documents, 1)
	for _, doc := range store.documents {
		assert.Equal(t, "notes", doc.Title)
		assert.Equal(t, "src:test", doc.Metadata)
	}
	require.Len(t, emb.batchTexts, 1)
	assert.Equal(t, []string{"First line"}, emb.batchTexts[0])
}

func TestRetrievalService_IngestSkipsAbsentVectors(t *testing.T) {
	store := newFakeStore()
	emb := &fakeEmbedder{batch: &embedder.BatchResult{
		Vectors: [][]float32{nil, {0.5}},
		Failed:  1,
	}}
	svc := NewRetrievalService(emb, store, &fakeReranker{}, WithChunkMaxSize(20))

	_, err := svc.Ingest(context.Background(), ingestion.Source{Title: "t", Content: "Hello world. This is a test."})
	require.NoError(t, err)

	require.Len(t, store.chunks, 1)
	assert.Equal(t, "This is a test", store.chunks[0].text)
}

func TestRetrievalService_IngestFailures(t *testing.T) {
	src := ingestion.Source{Title: "t", Content: "Hello world. This is a test."}

	t.Run("document store failure stops before embedding", func(t *testing.T) {
		store := newFakeStore()
		store.storeErr = errors.New("db down")
		emb := &fakeEmbedder{}

		docID, err := NewRetrievalService(emb, store, &fakeReranker{}).Ingest(context.Background(), src)
		assert.ErrorIs(t, err, store.storeErr)
		assert.Equal(t, uuid.Nil, docID)
		assert.Empty(t, emb.batchTexts)
	})

	t.Run("no embeddings stores no chunks", func(t *testing.T) {
		store := newFakeStore()
		emb := &fakeEmbedder{batchErr: embedder.ErrNoEmbeddings}

		docID, err := NewRetrievalService(emb, store, &fakeReranker{}).Ingest(context.Background(), src)
		assert.ErrorIs(t, err, embedder.ErrNoEmbeddings)
		assert.NotEqual(t, uuid.Nil, docID)
		assert.Empty(t, store.chunks)
	})

	t.Run("misaligned vectors store no chunks", func(t *testing.T) {
		store := newFakeStore()
		emb := &fakeEmbedder{batch: &embedder.BatchResult{Vectors: [][]float32{{1}}, DroppedBatches: 1}}

		_, err := NewRetrievalService(emb, store, &fakeReranker{}, WithChunkMaxSize(20)).Ingest(context.Background(), src)
		assert.ErrorIs(t, err, ErrVectorMismatch)
		assert.Empty(t, store.chunks)
	})

	t.Run("chunk write failure propagates", func(t *testing.T) {
		store := newFakeStore()
		store.chunkErr = errors.New("constraint violation")

		_, err := NewRetrievalService(&fakeEmbedder{}, store, &fakeReranker{}).Ingest(context.Background(), src)
		assert.ErrorIs(t, err, store.chunkErr)
	})

	t.Run("empty content stores only the document", func(t *testing.T) {
		store := newFakeStore()
		emb := &fakeEmbedder{}

		_, err := NewRetrievalService(emb, store, &fakeReranker{}).Ingest(context.Background(), ingestion.Source{Title: "empty", Content: " ... "})
		require.NoError(t, err)
		assert.Len(t, store.documents, 1)
		assert.Empty(t, emb.batchTexts)
	})
}

func TestRetrievalService_IngestAllIsolatesFailures(t *testing.T) {
	store := newFakeStore()
	calls := 0
	emb := &switchingEmbedder{fakeEmbedder: &fakeEmbedder{}, failOn: 2, calls: &calls}
	svc := NewRetrievalService(emb, store, &fakeReranker{})

	summary := svc.IngestAll(context.Background(), []ingestion.Source{
		{Title: "one", Content: "First doc."},
		{Title: "two", Content: "Second doc."},
		{Title: "three", Content: "Third doc."},
	})

	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, summary.Documents, 2)
	assert.Len(t, store.documents, 3)
	require.Len(t, store.chunks, 2)
	assert.Equal(t, "First doc", store.chunks[0].text)
	assert.Equal(t, "Third doc", store.chunks[1].text)
}

// switchingEmbedder fails the failOn-th batch call.
type switchingEmbedder struct {
	*fakeEmbedder
	failOn int
	calls  *int
}

func (s *switchingEmbedder) BatchEmbedDocuments(ctx context.Context, texts []string) (*embedder.BatchResult, error) {
	*s.calls++
	if *s.calls == s.failOn {
		return nil, embedder.ErrNoEmbeddings
	}
	return s.fakeEmbedder.BatchEmbedDocuments(ctx, texts)
}

func threeMatches() []repository.QueryMatch {
	doc := uuid.New()
	return []repository.QueryMatch{
		{ID: uuid.New(), DocumentID: doc, Text: "alpha", Title: "A", Metadata: "m-a", Similarity: 0.9},
		{ID: uuid.New(), DocumentID: doc, Text: "beta", Title: "B", Metadata: "m-b", Similarity: 0.7},
		{ID: uuid.New(), DocumentID: doc, Text: "gamma", Title: "C", Metadata: "m-c", Similarity: 0.6},
	}
}

func TestRetrievalService_Search(t *testing.T) {
	store := newFakeStore()
	store.matches = threeMatches()
	rr := &fakeReranker{results: []reranker.Result{
		{Index: 2, RelevanceScore: 0.99},
		{Index: 0, RelevanceScore: 0.42},
	}}
	svc := NewRetrievalService(&fakeEmbedder{query: []float32{0.1, 0.2}}, store, rr)

	results := svc.Search(context.Background(), "test query", 0.5, 20)
	require.Len(t, results, 2)

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, rr.documents)
	assert.Equal(t, 20, rr.topK)

	assert.Equal(t, RankedResult{
		Title:      "A",
		DocumentID: store.matches[0].DocumentID,
		Chunk:      "alpha",
		Metadata:   "m-a",
		Similarity: 0.9,
	}, results[0])
	assert.Equal(t, "gamma", results[1].Chunk)
	assert.Equal(t, float32(0.6), results[1].Similarity)
}

func TestRetrievalService_SearchSkipsOutOfRangeIndexes(t *testing.T) {
	store := newFakeStore()
	store.matches = threeMatches()
	rr := &fakeReranker{results: []reranker.Result{{Index: 5}, {Index: -1}, {Index: 1}}}
	svc := NewRetrievalService(&fakeEmbedder{query: []float32{1}}, store, rr)

	results := svc.Search(context.Background(), "q", 0.5, 20)
	require.Len(t, results, 1)
	assert.Equal(t, "beta", results[0].Chunk)
}

func TestRetrievalService_SearchEmptyOutcomes(t *testing.T) {
	t.Run("absent query embedding", func(t *testing.T) {
		store := newFakeStore()
		store.matches = threeMatches()
		rr := &fakeReranker{}
		svc := NewRetrievalService(&fakeEmbedder{}, store, rr)

		_, err := svc.Retrieve(context.Background(), "q", 0.5, 20)
		assert.ErrorIs(t, err, ErrNoQueryEmbedding)
		assert.Nil(t, svc.Search(context.Background(), "q", 0.5, 20))
		assert.Equal(t, 0, store.queryCalls)
		assert.Equal(t, 0, rr.calls)
	})

	t.Run("no matches skips reranker", func(t *testing.T) {
		rr := &fakeReranker{}
		svc := NewRetrievalService(&fakeEmbedder{query: []float32{1}}, newFakeStore(), rr)

		results, err := svc.Retrieve(context.Background(), "q", 0.5, 20)
		require.NoError(t, err)
		assert.Nil(t, results)
		assert.Equal(t, 0, rr.calls)
	})

	t.Run("empty rerank", func(t *testing.T) {
		store := newFakeStore()
		store.matches = threeMatches()
		svc := NewRetrievalService(&fakeEmbedder{query: []float32{1}}, store, &fakeReranker{results: []reranker.Result{}})

		results, err := svc.Retrieve(context.Background(), "q", 0.5, 20)
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("reranker failure", func(t *testing.T) {
		store := newFakeStore()
		store.matches = threeMatches()
		boom := errors.New("rerank unavailable")
		svc := NewRetrievalService(&fakeEmbedder{query: []float32{1}}, store, &fakeReranker{err: boom})

		_, err := svc.Retrieve(context.Background(), "q", 0.5, 20)
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, svc.Search(context.Background(), "q", 0.5, 20))
	})

	t.Run("query embedding failure", func(t *testing.T) {
		boom := errors.New("embed unavailable")
		svc := NewRetrievalService(&fakeEmbedder{queryErr: boom}, newFakeStore(), &fakeReranker{})

		_, err := svc.Retrieve(context.Background(), "q", 0.5, 20)
		assert.ErrorIs(t, err, boom)
	})
}
