// ABOUTME: Retrieval index over chunked reference documents with category-filtered search
// ABOUTME: Content-hashed incremental indexing; search over-fetches then filters by category
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harper/emergency-intake/internal/llm"
	"github.com/harper/emergency-intake/internal/models"
)

// ErrEmptyDocument is returned when a document produces no chunks
var ErrEmptyDocument = errors.New("retrieval: document has no content")

// VectorStore persists chunks and answers nearest-neighbour queries
type VectorStore interface {
	HasDocument(ctx context.Context, hash string) (bool, error)
	ReplaceDocument(ctx context.Context, sourceName string, chunks []models.DocumentChunk) error
	RemoveDocument(ctx context.Context, sourceName string) error
	Search(ctx context.Context, vector []float64, limit int) ([]models.ScoredChunk, error)
	Stats(ctx context.Context) (models.IndexStats, error)
	Clear(ctx context.Context) error
}

// IndexResult reports what happened to one document
type IndexResult struct {
	Source   string          `json:"source"`
	Category models.Category `json:"category"`
	Chunks   int             `json:"chunks"`
	Skipped  bool            `json:"skipped"`
}

// Index ties a chunker, an embedder, and a vector store together
type Index struct {
	store     VectorStore
	embedder  llm.Embedder
	chunker   *Chunker
	overfetch int
	logger    *slog.Logger
	now       func() time.Time

	warmOnce sync.Once
	warmDone chan struct{}
}

// Option configures an Index
type Option func(*Index)

// WithChunker overrides the default chunker
func WithChunker(c *Chunker) Option {
	return func(ix *Index) { ix.chunker = c }
}

// WithOverfetch sets the similarity over-fetch multiplier
func WithOverfetch(n int) Option {
	return func(ix *Index) {
		if n >= 1 {
			ix.overfetch = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// NewIndex creates an Index
func NewIndex(store VectorStore, embedder llm.Embedder, opts ...Option) *Index {
	ix := &Index{
		store:     store,
		embedder:  embedder,
		chunker:   DefaultChunker(),
		overfetch: 2,
		logger:    slog.Default(),
		now:       time.Now,
		warmDone:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// ContentHash is the hex sha256 of a document's text
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// IndexDocument chunks, embeds, and stores content under sourceName.
// Unchanged content (same hash) is skipped unless force is set.
func (ix *Index) IndexDocument(ctx context.Context, content string, category models.Category, sourceName string, force bool) (IndexResult, error) {
	res := IndexResult{Source: sourceName, Category: category}
	if !category.Valid() {
		return res, fmt.Errorf("unknown category %q for %s", category, sourceName)
	}

	hash := ContentHash(content)
	if !force {
		has, err := ix.store.HasDocument(ctx, hash)
		if err != nil {
			return res, fmt.Errorf("failed to check %s: %w", sourceName, err)
		}
		if has {
			res.Skipped = true
			return res, nil
		}
	}

	texts := ix.chunker.Split(content)
	if len(texts) == 0 {
		return res, fmt.Errorf("%w: %s", ErrEmptyDocument, sourceName)
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return res, fmt.Errorf("failed to embed %s: %w", sourceName, err)
	}
	if len(vectors) != len(texts) {
		return res, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}

	now := ix.now()
	chunks := make([]models.DocumentChunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.DocumentChunk{
			ID:           "chunk_" + uuid.New().String(),
			Content:      text,
			Vector:       vectors[i],
			SourceName:   sourceName,
			Category:     category,
			ChunkIndex:   i,
			DocumentHash: hash,
			CreatedAt:    now,
		}
	}

	if err := ix.store.ReplaceDocument(ctx, sourceName, chunks); err != nil {
		return res, fmt.Errorf("failed to store %s: %w", sourceName, err)
	}
	res.Chunks = len(chunks)
	return res, nil
}

// IsDocument reports whether path has an indexable extension
func IsDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		return true
	}
	return false
}

// CategoryForPath reads the category from the first directory under root,
// e.g. root/MEDICAL/burns.md → MEDICAL
func CategoryForPath(root, path string) (models.Category, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "", false
	}
	return models.ParseCategory(parts[0])
}

// IndexFile indexes one file below root; the source name is its slash path relative to root
func (ix *Index) IndexFile(ctx context.Context, root, path string, force bool) (IndexResult, error) {
	category, ok := CategoryForPath(root, path)
	if !ok {
		return IndexResult{Source: path}, fmt.Errorf("%s is not under a category directory of %s", path, root)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return IndexResult{Source: path}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	rel, _ := filepath.Rel(root, path)
	return ix.IndexDocument(ctx, string(data), category, filepath.ToSlash(rel), force)
}

// RemoveFile drops every chunk indexed from path, a file below root that no longer exists
func (ix *Index) RemoveFile(ctx context.Context, root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is not under %s", path, root)
	}
	source := filepath.ToSlash(rel)
	if err := ix.store.RemoveDocument(ctx, source); err != nil {
		return source, fmt.Errorf("failed to remove %s from the index: %w", source, err)
	}
	ix.logger.Info("removed document from index", "source", source)
	return source, nil
}

// IndexDirectory indexes every document under root/<CATEGORY>/.
// Files outside a category directory are logged and skipped.
func (ix *Index) IndexDirectory(ctx context.Context, root string, force bool) ([]IndexResult, error) {
	var results []IndexResult

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsDocument(path) {
			return nil
		}
		if _, ok := CategoryForPath(root, path); !ok {
			ix.logger.Warn("skipping document outside a category directory", "path", path)
			return nil
		}

		res, err := ix.IndexFile(ctx, root, path, force)
		if err != nil {
			return err
		}
		ix.logger.Debug("indexed document", "source", res.Source, "chunks", res.Chunks, "skipped", res.Skipped)
		results = append(results, res)
		return nil
	})
	if err != nil {
		return results, fmt.Errorf("failed to index %s: %w", root, err)
	}
	return results, nil
}

// Search embeds query and returns up to k chunks whose category is in categories.
// An empty category list matches everything.
func (ix *Index) Search(ctx context.Context, query string, categories []models.Category, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	vector, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := ix.store.Search(ctx, vector, k*ix.overfetch)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	out := make([]models.ScoredChunk, 0, k)
	for _, c := range candidates {
		if len(categories) > 0 && !slices.Contains(categories, c.Chunk.Category) {
			continue
		}
		out = append(out, c)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// Stats returns index counts
func (ix *Index) Stats(ctx context.Context) (models.IndexStats, error) {
	return ix.store.Stats(ctx)
}

// Clear removes every chunk
func (ix *Index) Clear(ctx context.Context) error {
	return ix.store.Clear(ctx)
}

// Warm indexes root once in the background. Later calls are no-ops.
// Turns never wait for it; searches simply find fewer chunks until it finishes.
func (ix *Index) Warm(ctx context.Context, root string) {
	ix.warmOnce.Do(func() {
		go func() {
			defer close(ix.warmDone)
			if _, err := os.Stat(root); err != nil {
				ix.logger.Warn("reference documents unavailable", "dir", root, "error", err)
				return
			}
			start := time.Now()
			results, err := ix.IndexDirectory(ctx, root, false)
			if err != nil {
				ix.logger.Error("background indexing failed", "dir", root, "error", err)
				return
			}
			indexed := 0
			for _, r := range results {
				if !r.Skipped {
					indexed++
				}
			}
			ix.logger.Info("reference index warm", "documents", len(results), "indexed", indexed, "elapsed", time.Since(start))
		}()
	})
}

// Warmed is closed once a Warm pass has finished
func (ix *Index) Warmed() <-chan struct{} {
	return ix.warmDone
}
