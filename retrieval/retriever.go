// Package retrieval implements the knowledge-retriever contract Retrieve
// consumes: semantic search with MMR diversity re-ranking, falling back
// to recency ordering when no vectors exist. Grounded on the teacher's
// plugins/tavily/client.go request/response shape (SearchRequest with
// LLM-schema struct tags, SearchResponse with ranked Results), generalized
// from a web-search tool into the spec's chunk-retrieval contract.
package retrieval

import (
	"context"
	"sort"
	"time"
)

// Chunk is one retrieved piece of knowledge.
type Chunk struct {
	Text     string
	Order    int
	Source   string
	Digest   string
	Vector   []float64 // nil when the store has no embeddings for this chunk
	FetchedAt time.Time
}

// Scope narrows retrieval to an organization and a destination.
type Scope struct {
	OrgScope    string
	Destination string
}

// Retriever is the contract the engine consumes; implementations may be
// backed by a vector store, a plain full-text index, or (for tests) a
// fixed in-memory corpus.
type Retriever interface {
	// Retrieve returns up to k chunks for queryVector, diversified by MMR
	// with the given lambda if the store does not diversify internally.
	// Falls back to recency ordering when queryVector is nil or the store
	// has no embeddings.
	Retrieve(ctx context.Context, scope Scope, queryVector []float64, k int, mmrLambda float64) ([]Chunk, error)
}

// StaticRetriever is a fixed-corpus Retriever, primarily for tests and
// for deployments seeded from a small curated knowledge base rather than
// a live vector store.
type StaticRetriever struct {
	Corpus map[string][]Chunk // keyed by scope.Destination
}

func NewStaticRetriever(corpus map[string][]Chunk) *StaticRetriever {
	return &StaticRetriever{Corpus: corpus}
}

func (r *StaticRetriever) Retrieve(_ context.Context, scope Scope, queryVector []float64, k int, mmrLambda float64) ([]Chunk, error) {
	all := r.Corpus[scope.Destination]
	if len(all) == 0 {
		return nil, nil // empty knowledge base is not an error (spec §4.2)
	}

	if queryVector == nil || !hasEmbeddings(all) {
		return fallbackByRecency(all, k), nil
	}

	return MMRRerank(queryVector, all, k, mmrLambda), nil
}

func hasEmbeddings(chunks []Chunk) bool {
	for _, c := range chunks {
		if c.Vector == nil {
			return false
		}
	}
	return len(chunks) > 0
}

// fallbackByRecency orders by FetchedAt descending, capped at k — the
// retriever's degraded mode when embeddings are unavailable (spec §4.2).
func fallbackByRecency(chunks []Chunk, k int) []Chunk {
	out := append([]Chunk(nil), chunks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FetchedAt.After(out[j].FetchedAt)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
