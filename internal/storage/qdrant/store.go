// ABOUTME: Qdrant-backed retrieval store for deployments with a shared vector database
// ABOUTME: Chunks are points; payload carries content, source, category, and document hash
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/harper/emergency-intake/internal/models"
)

const (
	fieldChunkID   = "chunk_id"
	fieldContent   = "content"
	fieldSource    = "source"
	fieldCategory  = "category"
	fieldIndex     = "chunk_index"
	fieldHash      = "document_hash"
	fieldCreatedAt = "created_at"
)

// Config holds Qdrant connection configuration
type Config struct {
	// URL is the gRPC endpoint, e.g. "http://localhost:6334"
	URL        string
	APIKey     string
	Collection string
	Dimension  int
}

// Store implements the retrieval vector store on a Qdrant collection
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// New connects to Qdrant and makes sure the collection exists
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}
	host, port, useTLS, err := parseEndpoint(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &Store{client: client, collection: cfg.Collection, dimension: cfg.Dimension}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// parseEndpoint splits a URL into host, port, and TLS flag. Port defaults to 6334.
func parseEndpoint(raw string) (string, int, bool, error) {
	if raw == "" {
		return "", 0, false, fmt.Errorf("qdrant url is required")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("failed to parse qdrant url: %w", err)
	}
	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}
	return u.Hostname(), port, u.Scheme == "https", nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}
	if s.dimension <= 0 {
		return fmt.Errorf("vector dimension is required to create collection %s", s.collection)
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}
	return nil
}

// HasDocument reports whether any point carries this document hash
func (s *Store) HasDocument(ctx context.Context, hash string) (bool, error) {
	n, err := s.count(ctx, &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(fieldHash, hash)}})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReplaceDocument deletes all points for sourceName and upserts the new chunks
func (s *Store) ReplaceDocument(ctx context.Context, sourceName string, chunks []models.DocumentChunk) error {
	if err := s.RemoveDocument(ctx, sourceName); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			return fmt.Errorf("chunk %s has no vector", c.ID)
		}
		c.SourceName = sourceName
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(c.ID)),
			Vectors: qdrant.NewVectors(toFloat32(c.Vector)...),
			Payload: qdrant.NewValueMap(chunkPayload(c)),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// RemoveDocument deletes all points for sourceName
func (s *Store) RemoveDocument(ctx context.Context, sourceName string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(fieldSource, sourceName)},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points for %s: %w", sourceName, err)
	}
	return nil
}

// Search returns the limit nearest chunks
func (s *Store) Search(ctx context.Context, vector []float64, limit int) ([]models.ScoredChunk, error) {
	lim := uint64(limit)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(toFloat32(vector)...),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	results := make([]models.ScoredChunk, 0, len(points))
	for _, p := range points {
		results = append(results, models.ScoredChunk{
			Chunk: chunkFromPayload(p.Payload),
			Score: float64(p.Score),
		})
	}
	return results, nil
}

// Stats counts chunks, documents (first chunks), and chunks per category
func (s *Store) Stats(ctx context.Context) (models.IndexStats, error) {
	stats := models.IndexStats{ByCategory: make(map[models.Category]int)}

	total, err := s.count(ctx, nil)
	if err != nil {
		return stats, err
	}
	stats.Chunks = int(total)

	docs, err := s.count(ctx, &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatchInt(fieldIndex, 0)}})
	if err != nil {
		return stats, err
	}
	stats.Documents = int(docs)

	for _, c := range models.AllCategories {
		n, err := s.count(ctx, &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(fieldCategory, string(c))}})
		if err != nil {
			return stats, err
		}
		if n > 0 {
			stats.ByCategory[c] = int(n)
		}
	}
	return stats, nil
}

// Clear drops and recreates the collection
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", s.collection, err)
	}
	return s.ensureCollection(ctx)
}

// Close closes the gRPC connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) count(ctx context.Context, filter *qdrant.Filter) (uint64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count failed: %w", err)
	}
	return n, nil
}

// pointID derives a stable UUID from a chunk id; Qdrant only accepts UUIDs or integers
func pointID(chunkID string) string {
	if _, err := uuid.Parse(chunkID); err == nil {
		return chunkID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func chunkPayload(c models.DocumentChunk) map[string]any {
	return map[string]any{
		fieldChunkID:   c.ID,
		fieldContent:   c.Content,
		fieldSource:    c.SourceName,
		fieldCategory:  string(c.Category),
		fieldIndex:     int64(c.ChunkIndex),
		fieldHash:      c.DocumentHash,
		fieldCreatedAt: c.CreatedAt.Unix(),
	}
}

func chunkFromPayload(p map[string]*qdrant.Value) models.DocumentChunk {
	var c models.DocumentChunk
	if v, ok := p[fieldChunkID]; ok {
		c.ID = v.GetStringValue()
	}
	if v, ok := p[fieldContent]; ok {
		c.Content = v.GetStringValue()
	}
	if v, ok := p[fieldSource]; ok {
		c.SourceName = v.GetStringValue()
	}
	if v, ok := p[fieldCategory]; ok {
		c.Category = models.Category(v.GetStringValue())
	}
	if v, ok := p[fieldIndex]; ok {
		c.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := p[fieldHash]; ok {
		c.DocumentHash = v.GetStringValue()
	}
	if v, ok := p[fieldCreatedAt]; ok {
		c.CreatedAt = time.Unix(v.GetIntegerValue(), 0)
	}
	return c
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
