// ABOUTME: Retrieval index entities: chunks of reference documents and search hits
// ABOUTME: Chunks are immutable once indexed and grouped by document content hash
package models

import "time"

// DocumentChunk is one embedded slice of a reference document
type DocumentChunk struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Vector       []float64 `json:"-"`
	SourceName   string    `json:"source"`
	Category     Category  `json:"category"`
	ChunkIndex   int       `json:"chunkIndex"`
	DocumentHash string    `json:"documentHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ScoredChunk is a search hit with its cosine similarity
type ScoredChunk struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float64       `json:"score"`
}

// IndexStats summarizes the retrieval index
type IndexStats struct {
	Documents  int              `json:"documents"`
	Chunks     int              `json:"chunks"`
	ByCategory map[Category]int `json:"byCategory"`
}
