package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection is the collection chunk vectors are written to.
const DefaultCollection = "embeddings"

// Payload fields of a point.
const (
	fieldFileID    = "file_id"
	fieldText      = "text"
	fieldTitle     = "title"
	fieldMetadata  = "metadata"
	fieldCreatedAt = "created_at"
)

// collectionClient is the part of *qdrant.Client the index uses.
type collectionClient interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Close() error
}

// QdrantIndex implements Index using a single Qdrant collection. The
// collection is created on first write, sized to that vector. Another
// process may create it first; that counts as created.
type QdrantIndex struct {
	client     collectionClient
	collection string

	// mu guards ready only; it is never held across a Qdrant call.
	mu    sync.Mutex
	ready bool
}

// NewQdrantIndex creates a Qdrant index client.
// url should be in format "host:port" (e.g., "localhost:6334")
func NewQdrantIndex(url, collection string) (*QdrantIndex, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return newQdrantIndex(client, collection), nil
}

func newQdrantIndex(client collectionClient, collection string) *QdrantIndex {
	if collection == "" {
		collection = DefaultCollection
	}
	return &QdrantIndex{client: client, collection: collection}
}

// Close closes the Qdrant client connection
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func (q *QdrantIndex) isReady() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready
}

func (q *QdrantIndex) markReady() {
	q.mu.Lock()
	q.ready = true
	q.mu.Unlock()
}

// exists reports whether the collection is there, remembering a positive answer.
func (q *QdrantIndex) exists(ctx context.Context) (bool, error) {
	if q.isReady() {
		return true, nil
	}

	ok, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if ok {
		q.markReady()
	}
	return ok, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, dimension int) error {
	ok, err := q.exists(ctx)
	if err != nil || ok {
		return err
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			q.markReady()
			return nil
		}
		// A lost race is not always reported as AlreadyExists.
		if ok, checkErr := q.client.CollectionExists(ctx, q.collection); checkErr == nil && ok {
			q.markReady()
			return nil
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}
	q.markReady()
	return nil
}

// Upsert writes point, creating the collection if needed.
func (q *QdrantIndex) Upsert(ctx context.Context, point Point) error {
	if len(point.Vector) == 0 {
		return fmt.Errorf("point %s has no vector", point.ID)
	}
	if err := q.ensureCollection(ctx, len(point.Vector)); err != nil {
		return err
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{toPointStruct(point)},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// Search performs similarity search. A collection that does not exist yet
// holds no points.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, minScore float32, limit int) ([]Hit, error) {
	ok, err := q.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	response, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
		ScoreThreshold: qdrant.PtrOf(minScore),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]Hit, 0, len(response))
	for _, scored := range response {
		hits = append(hits, fromScoredPoint(scored))
	}
	return hits, nil
}

func toPointStruct(point Point) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(point.ID.String()),
		Vectors: qdrant.NewVectors(point.Vector...),
		Payload: map[string]*qdrant.Value{
			fieldFileID:    qdrant.NewValueString(point.DocumentID.String()),
			fieldText:      qdrant.NewValueString(point.Text),
			fieldTitle:     qdrant.NewValueString(point.Title),
			fieldMetadata:  qdrant.NewValueString(point.Metadata),
			fieldCreatedAt: qdrant.NewValueString(point.CreatedAt.Format(time.RFC3339Nano)),
		},
	}
}

// fromScoredPoint reads a hit back. Payload fields that fail to parse are
// left zero.
func fromScoredPoint(scored *qdrant.ScoredPoint) Hit {
	payload := scored.GetPayload()
	str := func(key string) string { return payload[key].GetStringValue() }

	hit := Hit{Score: scored.GetScore()}
	hit.ID, _ = uuid.Parse(scored.GetId().GetUuid())
	hit.DocumentID, _ = uuid.Parse(str(fieldFileID))
	hit.Text = str(fieldText)
	hit.Title = str(fieldTitle)
	hit.Metadata = str(fieldMetadata)
	hit.CreatedAt, _ = time.Parse(time.RFC3339Nano, str(fieldCreatedAt))

	out := scored.GetVectors().GetVector()
	if dense := out.GetDense(); dense != nil {
		hit.Vector = dense.GetData()
	} else {
		hit.Vector = out.GetData()
	}
	return hit
}

// Ensure QdrantIndex implements Index interface.
var _ Index = (*QdrantIndex)(nil)
