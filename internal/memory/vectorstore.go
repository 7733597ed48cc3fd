package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var tracer = otel.Tracer("taskmated.memory.qdrant")

// Sentinel errors for the vector backend.
var (
	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// VectorConfig holds configuration for the Qdrant gRPC backend.
type VectorConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334, not the HTTP REST 6333).
	Port int

	// CollectionName is the collection holding memory entries.
	CollectionName string

	// VectorSize is the embedding dimensionality. Must match the
	// embedder's output.
	VectorSize int

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// MaxRetries is the retry budget for transient failures. Default: 3.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per retry. Default: 1s.
	RetryBackoff time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *VectorConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.CollectionName == "" {
		c.CollectionName = "taskmate_memory"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 1536
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
}

// Validate validates the configuration.
func (c VectorConfig) Validate() error {
	if c.Host == "" {
		return errors.New("qdrant: host required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("qdrant: invalid port: %d", c.Port)
	}
	if c.CollectionName == "" {
		return errors.New("qdrant: collection name required")
	}
	if c.VectorSize <= 0 {
		return errors.New("qdrant: vector size required")
	}
	return nil
}

// VectorStore is the Qdrant-backed Store implementation. Entries are
// embedded on write and retrieved by nearest-neighbor search.
type VectorStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   VectorConfig
}

// NewVectorStore connects to Qdrant, health-checks the connection, and
// ensures the memory collection exists.
func NewVectorStore(ctx context.Context, config VectorConfig, embedder Embedder) (*VectorStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if embedder == nil {
		return nil, errors.New("qdrant: embedder is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(50 * 1024 * 1024),
				grpc.MaxCallSendMsgSize(50 * 1024 * 1024),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &VectorStore{client: client, embedder: embedder, config: config}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(healthCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}

	if err := store.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the Qdrant gRPC connection.
func (s *VectorStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *VectorStore) ensureCollection(ctx context.Context) error {
	info, err := s.client.GetCollectionInfo(ctx, s.config.CollectionName)
	if err != nil {
		st, ok := status.FromError(err)
		if !ok || st.Code() != grpccodes.NotFound {
			return fmt.Errorf("checking collection %s: %w", s.config.CollectionName, err)
		}
	}
	if info != nil {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.config.VectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.config.CollectionName, err)
	}
	return nil
}

// isTransient reports whether an error should be retried.
func isTransient(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// retry runs an operation with exponential backoff on transient errors.
func (s *VectorStore) retry(ctx context.Context, name string, op func() error) error {
	backoff := s.config.RetryBackoff
	var err error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !isTransient(err) {
			return fmt.Errorf("%s failed (permanent): %w", name, err)
		}
		if attempt == s.config.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%s failed after %d retries: %w", name, s.config.MaxRetries, err)
}

// Store embeds the entry content and upserts the point.
func (s *VectorStore) Store(ctx context.Context, entry Entry) (string, error) {
	ctx, span := tracer.Start(ctx, "VectorStore.Store")
	defer span.End()

	if entry.Content == "" {
		return "", ErrEmptyContent
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	span.SetAttributes(attribute.String("entry_type", string(entry.Type)))

	vector, err := s.embedder.EmbedQuery(ctx, entry.Content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	point := &qdrant.PointStruct{
		Id:      pointID(entry.ID),
		Vectors: qdrant.NewVectors(vector...),
		Payload: entryPayload(entry),
	}

	err = s.retry(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.CollectionName,
			Points:         []*qdrant.PointStruct{point},
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("upserting entry: %w", err)
	}

	span.SetStatus(codes.Ok, "success")
	return entry.ID, nil
}

// Retrieve embeds the query and performs nearest-neighbor search, returning
// entries ranked by similarity score descending.
func (s *VectorStore) Retrieve(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	ctx, span := tracer.Start(ctx, "VectorStore.Retrieve")
	defer span.End()

	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 5
	}
	span.SetAttributes(attribute.Int("limit", limit))

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	var points []*qdrant.ScoredPoint
	err = s.retry(ctx, "query", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.CollectionName,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(limit)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", s.config.CollectionName, err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, SearchResult{
			Entry: entryFromPayload(point.Payload),
			Score: point.Score,
		})
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// Update fetches the point, applies the patch, re-embeds when the content
// changed, and upserts the result.
func (s *VectorStore) Update(ctx context.Context, id string, patch Patch) (bool, error) {
	ctx, span := tracer.Start(ctx, "VectorStore.Update")
	defer span.End()

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.config.CollectionName,
		Ids:            []*qdrant.PointId{pointID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("fetching entry %s: %w", id, err)
	}
	if len(points) == 0 {
		return false, nil
	}

	entry := entryFromPayload(points[0].Payload)
	if patch.Type != nil {
		entry.Type = *patch.Type
	}
	if patch.Content != nil {
		entry.Content = *patch.Content
	}
	if patch.Metadata != nil {
		entry.Metadata = patch.Metadata
	}
	entry.Timestamp = time.Now()
	entry.ID = id

	if _, err := s.Store(ctx, entry); err != nil {
		span.RecordError(err)
		return false, err
	}
	span.SetStatus(codes.Ok, "success")
	return true, nil
}

// Delete removes the entry's point.
func (s *VectorStore) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "VectorStore.Delete")
	defer span.End()

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.config.CollectionName,
		Ids:            []*qdrant.PointId{pointID(id)},
	})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("fetching entry %s: %w", id, err)
	}
	if len(points) == 0 {
		return false, nil
	}

	err = s.retry(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.CollectionName,
			Points:         qdrant.NewPointsSelector(pointID(id)),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("deleting entry %s: %w", id, err)
	}
	span.SetStatus(codes.Ok, "success")
	return true, nil
}

// GetByType scrolls entries of one type, newest first.
func (s *VectorStore) GetByType(ctx context.Context, t EntryType, limit int) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "VectorStore.GetByType")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.config.CollectionName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("type", string(t))},
		},
		Limit:       qdrant.PtrOf(uint32(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scrolling entries of type %s: %w", t, err)
	}

	entries := make([]Entry, 0, len(points))
	for _, point := range points {
		entries = append(entries, entryFromPayload(point.Payload))
	}
	sortEntriesNewestFirst(entries)

	span.SetStatus(codes.Ok, "success")
	return entries, nil
}

// Clear removes all points from the collection.
func (s *VectorStore) Clear(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "VectorStore.Clear")
	defer span.End()

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.config.CollectionName,
		Points:         qdrant.NewPointsSelectorFilter(&qdrant.Filter{}),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("clearing collection %s: %w", s.config.CollectionName, err)
	}
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Stats counts entries overall and per type.
func (s *VectorStore) Stats(ctx context.Context) (Stats, error) {
	ctx, span := tracer.Start(ctx, "VectorStore.Stats")
	defer span.End()

	stats := Stats{
		EntriesByType: make(map[EntryType]int),
		Backend:       "qdrant",
	}

	total, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.config.CollectionName,
	})
	if err != nil {
		span.RecordError(err)
		return stats, fmt.Errorf("counting entries: %w", err)
	}
	stats.TotalEntries = int(total)

	for _, t := range []EntryType{TypeTask, TypeDecision, TypeCode, TypeError, TypeContext} {
		count, err := s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.config.CollectionName,
			Filter: &qdrant.Filter{
				Must: []*qdrant.Condition{qdrant.NewMatch("type", string(t))},
			},
		})
		if err != nil {
			span.RecordError(err)
			return stats, fmt.Errorf("counting entries of type %s: %w", t, err)
		}
		if count > 0 {
			stats.EntriesByType[t] = int(count)
		}
	}

	span.SetStatus(codes.Ok, "success")
	return stats, nil
}

// pointID maps an entry id to a Qdrant point id. Entry ids are UUIDs; any
// other value is hashed into a deterministic UUID.
func pointID(id string) *qdrant.PointId {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

// entryPayload flattens an entry into a Qdrant payload. Metadata values of
// unsupported types are dropped.
func entryPayload(entry Entry) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		"id":        {Kind: &qdrant.Value_StringValue{StringValue: entry.ID}},
		"type":      {Kind: &qdrant.Value_StringValue{StringValue: string(entry.Type)}},
		"content":   {Kind: &qdrant.Value_StringValue{StringValue: entry.Content}},
		"timestamp": {Kind: &qdrant.Value_StringValue{StringValue: entry.Timestamp.Format(time.RFC3339Nano)}},
	}
	for k, v := range entry.Metadata {
		switch val := v.(type) {
		case string:
			payload["meta_"+k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
		case int:
			payload["meta_"+k] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
		case int64:
			payload["meta_"+k] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
		case float64:
			payload["meta_"+k] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
		case bool:
			payload["meta_"+k] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
		}
	}
	return payload
}

// entryFromPayload rebuilds an entry from a Qdrant payload.
func entryFromPayload(payload map[string]*qdrant.Value) Entry {
	entry := Entry{Metadata: make(map[string]any)}
	for k, v := range payload {
		switch k {
		case "id":
			entry.ID = v.GetStringValue()
		case "type":
			entry.Type = EntryType(v.GetStringValue())
		case "content":
			entry.Content = v.GetStringValue()
		case "timestamp":
			if ts, err := time.Parse(time.RFC3339Nano, v.GetStringValue()); err == nil {
				entry.Timestamp = ts
			}
		default:
			if len(k) > 5 && k[:5] == "meta_" {
				switch val := v.Kind.(type) {
				case *qdrant.Value_StringValue:
					entry.Metadata[k[5:]] = val.StringValue
				case *qdrant.Value_IntegerValue:
					entry.Metadata[k[5:]] = val.IntegerValue
				case *qdrant.Value_DoubleValue:
					entry.Metadata[k[5:]] = val.DoubleValue
				case *qdrant.Value_BoolValue:
					entry.Metadata[k[5:]] = val.BoolValue
				}
			}
		}
	}
	if len(entry.Metadata) == 0 {
		entry.Metadata = nil
	}
	return entry
}

func sortEntriesNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}
