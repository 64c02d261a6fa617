package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const defaultVectorDimension = 1024

// QdrantConnectionConfig holds the connection settings for Qdrant.
// Setting APIKey implies Qdrant Cloud and turns TLS on; UseTLS enables
// TLS without an API key.
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string
	UseTLS          bool
	VectorDimension int
}

// QdrantRepository stores caption embeddings and answers the
// near-duplicate queries run by validation.
type QdrantRepository struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimension   int
}

// NewQdrantRepository opens a gRPC connection to Qdrant. Local instances
// connect insecure; cloud instances get TLS 1.3 plus an api-key
// interceptor on every call.
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	dimension := cfg.VectorDimension
	if dimension <= 0 {
		dimension = defaultVectorDimension
	}

	conn, err := grpc.NewClient(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), dialOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  cfg.Collection,
		dimension:   dimension,
	}, nil
}

func dialOptions(cfg *QdrantConnectionConfig) []grpc.DialOption {
	if !cfg.UseTLS && cfg.APIKey == "" {
		return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}

	// Qdrant Cloud requires TLS 1.3
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})),
	}
	if cfg.APIKey != "" {
		key := cfg.APIKey
		opts = append(opts, grpc.WithUnaryInterceptor(
			func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
				ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
				return invoker(ctx, method, req, reply, cc, callOpts...)
			}))
	}
	return opts
}

// Close closes the gRPC connection.
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// PointIDForStem derives a stable UUID point ID from a file stem, so
// re-preparing the same pair overwrites its vector instead of duplicating it.
func PointIDForStem(stem string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(stem)).String()
}

// EnsureCollection creates the caption collection when it is missing and
// rejects an existing collection whose vector size disagrees with the
// configured embedding dimension.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collections.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err == nil {
		if size, ok := vectorSizeOf(info.GetResult()); ok && size != uint64(r.dimension) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", r.collection, size, r.dimension)
		}
		return nil
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// vectorSizeOf digs the configured vector size out of collection info,
// handling both single-vector and named-vector collections.
func vectorSizeOf(info *pb.CollectionInfo) (uint64, bool) {
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}

	if single := vectors.GetParams(); single != nil && single.GetSize() > 0 {
		return single.GetSize(), true
	}

	for _, params := range vectors.GetParamsMap().GetMap() {
		if params.GetSize() > 0 {
			return params.GetSize(), true
		}
	}
	return 0, false
}

// CaptionPayload is stored alongside each vector so near-duplicate hits
// can be reported without a second catalog lookup.
type CaptionPayload struct {
	PairID    string `json:"pair_id"`
	Stem      string `json:"stem"`
	ImageID   string `json:"image_id"`
	Source    string `json:"source"`
	Caption   string `json:"caption"`
	WordCount int    `json:"word_count"`
}

// Upsert writes one caption vector under the given point ID, replacing
// any previous vector at that ID.
func (r *QdrantRepository) Upsert(ctx context.Context, pointID string, vector []float32, payload *CaptionPayload) error {
	uid, err := uuid.Parse(pointID)
	if err != nil {
		return fmt.Errorf("invalid point ID: %w", err)
	}

	point := &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{Uuid: uid.String()},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: vector},
			},
		},
		Payload: map[string]*pb.Value{
			"pair_id":    stringValue(payload.PairID),
			"stem":       stringValue(payload.Stem),
			"image_id":   stringValue(payload.ImageID),
			"source":     stringValue(payload.Source),
			"caption":    stringValue(payload.Caption),
			"word_count": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(payload.WordCount)}},
		},
	}

	_, err = r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Points:         []*pb.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

// SearchResult is one scored neighbor.
type SearchResult struct {
	ID      string
	Score   float32
	Payload *CaptionPayload
}

// SearchFilters narrows a search. ExcludeStem drops the query's own
// point so a caption never reports itself as its duplicate.
type SearchFilters struct {
	Source      *string
	ExcludeStem *string
}

// Search returns the topK nearest caption vectors with payloads.
func (r *QdrantRepository) Search(ctx context.Context, vector []float32, topK int, filters *SearchFilters) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		Filter: filters.toProto(),
	}

	resp, err := r.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, len(resp.Result))
	for i, scored := range resp.Result {
		results[i] = SearchResult{
			ID:      scored.Id.GetUuid(),
			Score:   scored.Score,
			Payload: payloadFrom(scored.Payload),
		}
	}
	return results, nil
}

func (f *SearchFilters) toProto() *pb.Filter {
	if f == nil {
		return nil
	}

	var must, mustNot []*pb.Condition
	if f.Source != nil && *f.Source != "" {
		must = append(must, keywordCondition("source", *f.Source))
	}
	if f.ExcludeStem != nil && *f.ExcludeStem != "" {
		mustNot = append(mustNot, keywordCondition("stem", *f.ExcludeStem))
	}
	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}
	return &pb.Filter{Must: must, MustNot: mustNot}
}

func keywordCondition(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func payloadFrom(values map[string]*pb.Value) *CaptionPayload {
	if values == nil {
		return nil
	}
	return &CaptionPayload{
		PairID:    values["pair_id"].GetStringValue(),
		Stem:      values["stem"].GetStringValue(),
		ImageID:   values["image_id"].GetStringValue(),
		Source:    values["source"].GetStringValue(),
		Caption:   values["caption"].GetStringValue(),
		WordCount: int(values["word_count"].GetIntegerValue()),
	}
}
