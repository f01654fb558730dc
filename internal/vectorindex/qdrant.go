package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	PoolSize   uint
	Collection string
	Dimension  int
}

// Qdrant is the Index backed by a Qdrant collection over gRPC.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

func NewQdrant(cfg QdrantConfig) (*Qdrant, error) {
	if cfg.Collection == "" {
		return nil, errors.New("empty collection name")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		APIKey:   cfg.APIKey,
		UseTLS:   cfg.UseTLS,
		PoolSize: cfg.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant client: %w", err)
	}

	return &Qdrant{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}, nil
}

func (q *Qdrant) Close() error {
	return q.client.Close()
}

func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", q.collection, err)
	}

	if exists {
		info, err := q.client.GetCollectionInfo(ctx, q.collection)
		if err != nil {
			return fmt.Errorf("get collection %s: %w", q.collection, err)
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != uint64(q.dimension) {
			return fmt.Errorf("%w: collection %s has %d, configured %d", ErrDimensionMismatch, q.collection, size, q.dimension)
		}
		return nil
	}

	log.Info().Str("collection", q.collection).Int("dimension", q.dimension).Msg("creating qdrant collection")
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", q.collection, err)
	}

	for _, field := range []string{KeyUserID, KeyLibraryItemID, KeyChunkIndex} {
		_, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: q.collection,
			FieldName:      field,
			FieldType:      qdrant.PtrOf(qdrant.FieldType_FieldTypeInteger),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("create payload index %s: %w", field, err)
		}
	}

	return nil
}

func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := checkDimensions(points, q.dimension); err != nil {
		return err
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payloadToMap(p.Payload)),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", contextErr(err))
	}
	return nil
}

func (q *Qdrant) Search(ctx context.Context, req SearchRequest) ([]ScoredPoint, error) {
	if req.Filter.IsEmpty() {
		return nil, ErrEmptyFilter
	}
	if len(req.Vector) != q.dimension {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(req.Vector), q.dimension)
	}

	result, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(req.Vector...),
		Filter:         buildFilter(req.Filter),
		Limit:          qdrant.PtrOf(uint64(req.Limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", contextErr(err))
	}

	hits := make([]ScoredPoint, 0, len(result))
	for _, hit := range result {
		hits = append(hits, ScoredPoint{
			ID:      hit.GetId().GetUuid(),
			Score:   hit.GetScore(),
			Payload: payloadFromMap(hit.GetPayload()),
		})
	}
	return hits, nil
}

func (q *Qdrant) DeleteByFilter(ctx context.Context, filter Filter) error {
	if filter.IsEmpty() {
		return ErrEmptyFilter
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelectorFilter(buildFilter(filter)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", contextErr(err))
	}
	return nil
}

// contextErr surfaces the context error behind a gRPC status, which the
// client returns in place of ctx.Err() when a deadline or cancel hits.
func contextErr(err error) error {
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	case codes.Canceled:
		return fmt.Errorf("%w: %v", context.Canceled, err)
	default:
		return err
	}
}

// buildFilter turns the conjunction into qdrant "must" conditions so the
// restriction is applied inside the query, before ranking.
func buildFilter(f Filter) *qdrant.Filter {
	must := make([]*qdrant.Condition, 0, 3)
	if f.UserID != 0 {
		must = append(must, qdrant.NewMatchInt(KeyUserID, f.UserID))
	}
	if f.LibraryItemID != 0 {
		must = append(must, qdrant.NewMatchInt(KeyLibraryItemID, f.LibraryItemID))
	}
	if f.FromChunk > 0 {
		must = append(must, qdrant.NewRange(KeyChunkIndex, &qdrant.Range{Gte: qdrant.PtrOf(float64(f.FromChunk))}))
	}
	return &qdrant.Filter{Must: must}
}

func payloadToMap(p Payload) map[string]any {
	return map[string]any{
		KeyUserID:        p.UserID,
		KeyLibraryItemID: p.LibraryItemID,
		KeyTextChunk:     p.TextChunk,
		KeyChunkIndex:    int64(p.ChunkIndex),
	}
}

func payloadFromMap(m map[string]*qdrant.Value) Payload {
	return Payload{
		UserID:        m[KeyUserID].GetIntegerValue(),
		LibraryItemID: m[KeyLibraryItemID].GetIntegerValue(),
		TextChunk:     m[KeyTextChunk].GetStringValue(),
		ChunkIndex:    int(m[KeyChunkIndex].GetIntegerValue()),
	}
}
