// ABOUTME: Retrieval chunk storage for SQLite
// ABOUTME: Vectors are stored as BLOBs and searched by brute-force cosine similarity
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/harper/emergency-intake/internal/models"
)

// DocumentStore persists document chunks and their embeddings
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// HasDocument reports whether chunks with this content hash are already indexed
func (s *DocumentStore) HasDocument(ctx context.Context, hash string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks WHERE document_hash = ?`, hash).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReplaceDocument atomically swaps all chunks of sourceName for the given set
func (s *DocumentStore) ReplaceDocument(ctx context.Context, sourceName string, chunks []models.DocumentChunk) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE source_name = ?`, sourceName); err != nil {
			return fmt.Errorf("failed to delete old chunks: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO document_chunks (id, document_hash, source_name, category, chunk_index, content, vector, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, c := range chunks {
			if len(c.Vector) == 0 {
				return fmt.Errorf("chunk %s has no vector", c.ID)
			}
			if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentHash, sourceName, string(c.Category),
				c.ChunkIndex, c.Content, vectorToBlob(c.Vector), c.CreatedAt); err != nil {
				return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// RemoveDocument deletes all chunks of sourceName
func (s *DocumentStore) RemoveDocument(ctx context.Context, sourceName string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE source_name = ?`, sourceName); err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", sourceName, err)
	}
	return nil
}

// Search returns the limit chunks most similar to vector
func (s *DocumentStore) Search(ctx context.Context, vector []float64, limit int) ([]models.ScoredChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_hash, source_name, category, chunk_index, content, vector, created_at
		FROM document_chunks
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []models.ScoredChunk
	for rows.Next() {
		var (
			c        models.DocumentChunk
			category string
			blob     []byte
		)
		if err := rows.Scan(&c.ID, &c.DocumentHash, &c.SourceName, &category, &c.ChunkIndex, &c.Content, &blob, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Category = models.Category(category)
		c.Vector = blobToVector(blob)

		results = append(results, models.ScoredChunk{
			Chunk: c,
			Score: CosineSimilarity(vector, c.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Stats counts indexed documents and chunks
func (s *DocumentStore) Stats(ctx context.Context) (models.IndexStats, error) {
	stats := models.IndexStats{ByCategory: make(map[models.Category]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT document_hash), COUNT(*) FROM document_chunks
	`).Scan(&stats.Documents, &stats.Chunks)
	if err != nil {
		return stats, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM document_chunks GROUP BY category`)
	if err != nil {
		return stats, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return stats, err
		}
		stats.ByCategory[models.Category(category)] = n
	}
	return stats, rows.Err()
}

// Clear deletes every chunk
func (s *DocumentStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks`)
	return err
}

// vectorToBlob converts a float64 slice to binary blob
func vectorToBlob(vector []float64) []byte {
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to float64 slice
func blobToVector(blob []byte) []float64 {
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := 0; i < count; i++ {
		vector[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return vector
}

// CosineSimilarity calculates cosine similarity between two vectors
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
