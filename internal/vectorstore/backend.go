package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/ctxforge/internal/index"
)

// chunkToDocument converts an index.Chunk into the Document shape the
// persistent stores index, folding chunk-specific fields into metadata so
// they survive the round trip back in searchResultToIndexResult.
func chunkToDocument(chunk index.Chunk, collection string) Document {
	return Document{
		ID:         chunk.ID,
		Content:    chunk.Content,
		Collection: collection,
		Metadata: map[string]interface{}{
			"file_path":  chunk.FilePath,
			"name":       chunk.Name,
			"kind":       chunk.Kind,
			"language":   chunk.Language,
			"start_line": int64(chunk.StartLine),
			"end_line":   int64(chunk.EndLine),
			"checksum":   chunk.Checksum,
			"created_at": chunk.CreatedAt.Format(time.RFC3339),
		},
	}
}

// searchResultToChunk reconstructs the index.Chunk shape from a
// vectorstore.SearchResult's metadata, so index.SearchResult.Chunk carries
// the same fields regardless of which Backend produced it.
func searchResultToChunk(r SearchResult) index.Chunk {
	c := index.Chunk{ID: r.ID, Content: r.Content}
	if v, ok := r.Metadata["file_path"].(string); ok {
		c.FilePath = v
	}
	if v, ok := r.Metadata["name"].(string); ok {
		c.Name = v
	}
	if v, ok := r.Metadata["kind"].(string); ok {
		c.Kind = v
	}
	if v, ok := r.Metadata["language"].(string); ok {
		c.Language = v
	}
	if v, ok := r.Metadata["start_line"].(int64); ok {
		c.StartLine = int(v)
	}
	if v, ok := r.Metadata["checksum"].(string); ok {
		c.Checksum = v
	}
	if v, ok := r.Metadata["end_line"].(int64); ok {
		c.EndLine = int(v)
	}
	return c
}

// ChromemBackend adapts a ChromemStore collection to index.Backend, letting
// the optimizer pipeline search a persistent chromem-go database through
// the same Source.Index seam it uses for the in-memory reference Index.
type ChromemBackend struct {
	store      *ChromemStore
	collection string
}

// NewChromemBackend wires a ChromemStore to a specific collection, creating
// it if it does not already exist.
func NewChromemBackend(ctx context.Context, store *ChromemStore, collection string, vectorSize int) (*ChromemBackend, error) {
	exists, err := store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("checking collection %s: %w", collection, err)
	}
	if !exists {
		if err := store.CreateCollection(ctx, collection, vectorSize); err != nil {
			return nil, fmt.Errorf("creating collection %s: %w", collection, err)
		}
	}
	return &ChromemBackend{store: store, collection: collection}, nil
}

// Insert stores chunk's content and metadata in the backend's collection.
// chromem-go's Embedder re-embeds the content internally; the chunk's own
// Embedding field is not reused, since ChromemStore has no path to store a
// caller-supplied vector directly.
func (b *ChromemBackend) Insert(chunk index.Chunk) error {
	_, err := b.store.AddDocuments(context.Background(), []Document{chunkToDocument(chunk, b.collection)})
	return err
}

// SearchCtx searches the backend's collection by a precomputed query
// vector, observing ctx cancellation the way index.Index.SearchCtx does
// (chromem-go's own query call is itself ctx-aware).
func (b *ChromemBackend) SearchCtx(ctx context.Context, query []float32, opts index.SearchOptions) (index.SearchResults, error) {
	start := time.Now()
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	results, err := b.store.SearchEmbedding(ctx, b.collection, query, limit)
	if err != nil {
		return index.SearchResults{}, err
	}

	out := make([]index.SearchResult, 0, len(results))
	for _, r := range results {
		if float64(r.Score) < opts.MinRelevance {
			continue
		}
		out = append(out, index.SearchResult{Chunk: searchResultToChunk(r), Semantic: float64(r.Score)})
	}

	return index.SearchResults{
		Results:        out,
		TotalEvaluated: len(results),
		SearchTime:     time.Since(start),
	}, nil
}

// Stats reports the backend's collection size. Language breakdown is not
// tracked by chromem-go, so ByLanguage is always empty.
func (b *ChromemBackend) Stats() index.Stats {
	info, err := b.store.GetCollectionInfo(context.Background(), b.collection)
	if err != nil {
		return index.Stats{}
	}
	return index.Stats{Total: info.PointCount}
}

// Close closes the underlying ChromemStore.
func (b *ChromemBackend) Close() error { return b.store.Close() }

var _ index.Backend = (*ChromemBackend)(nil)

// QdrantBackend adapts a QdrantStore collection to index.Backend, mirroring
// ChromemBackend for callers that chose the Qdrant-backed deployment.
type QdrantBackend struct {
	store      *QdrantStore
	collection string
}

// NewQdrantBackend wires a QdrantStore to a specific collection, creating
// it if it does not already exist.
func NewQdrantBackend(ctx context.Context, store *QdrantStore, collection string, vectorSize int) (*QdrantBackend, error) {
	exists, err := store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("checking collection %s: %w", collection, err)
	}
	if !exists {
		if err := store.CreateCollection(ctx, collection, vectorSize); err != nil {
			return nil, fmt.Errorf("creating collection %s: %w", collection, err)
		}
	}
	return &QdrantBackend{store: store, collection: collection}, nil
}

// Insert stores chunk's content and metadata in the backend's collection.
// QdrantStore.AddDocuments re-embeds the content through its own embedder;
// chunk.Embedding is not reused for the same reason as ChromemBackend.
func (b *QdrantBackend) Insert(chunk index.Chunk) error {
	doc := chunkToDocument(chunk, b.collection)
	_, err := b.store.AddDocuments(context.Background(), []Document{doc})
	return err
}

// SearchCtx searches the backend's collection by a precomputed query
// vector. The qdrant-go client call underneath is itself ctx-aware.
func (b *QdrantBackend) SearchCtx(ctx context.Context, query []float32, opts index.SearchOptions) (index.SearchResults, error) {
	start := time.Now()
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	results, err := b.store.SearchByVector(ctx, b.collection, query, limit)
	if err != nil {
		return index.SearchResults{}, err
	}

	out := make([]index.SearchResult, 0, len(results))
	for _, r := range results {
		if float64(r.Score) < opts.MinRelevance {
			continue
		}
		out = append(out, index.SearchResult{Chunk: searchResultToChunk(r), Semantic: float64(r.Score)})
	}

	return index.SearchResults{
		Results:        out,
		TotalEvaluated: len(results),
		SearchTime:     time.Since(start),
	}, nil
}

// Stats reports the backend's collection size, via Qdrant's own collection
// info lookup.
func (b *QdrantBackend) Stats() index.Stats {
	info, err := b.store.GetCollectionInfo(context.Background(), b.collection)
	if err != nil {
		return index.Stats{}
	}
	return index.Stats{Total: info.PointCount}
}

// Close closes the underlying QdrantStore's gRPC connection.
func (b *QdrantBackend) Close() error { return b.store.Close() }

var _ index.Backend = (*QdrantBackend)(nil)
