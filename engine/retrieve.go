package engine

import (
	"context"
	"strings"

	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/log"
	"github.com/windmark/itinerary-engine/retrieval"
)

// retrieve issues a single semantic query derived from city + themes +
// kid_friendly, then extracts structured hints from the result (spec
// §4.2). Both retrieval and extraction failures are non-fatal: the run
// tolerates empty chunks and empty hints.
func (e *Engine) retrieve(ctx context.Context, state domain.PlanState) domain.PlanState {
	log.Infof(ctx, "retrieve: querying knowledge base for %s", state.Request.City)

	queryVector := e.embedQuery(state.Request)

	chunks, err := e.Retriever.Retrieve(ctx, retrieval.Scope{
		OrgScope:    "", // filled in by the caller's persistence/session wiring, not the core's concern
		Destination: state.Request.City,
	}, queryVector, e.Config.Retrieve.K, e.Config.Retrieve.MMRLambda)
	if err != nil || len(chunks) == 0 {
		log.Warnf(ctx, "retrieve: empty result for %s (err=%v)", state.Request.City, err)
		state.RetrievedChunks = nil
		state.StructuredHints = domain.StructuredHints{}
		return state
	}

	state.RetrievedChunks = make([]domain.RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		state.RetrievedChunks = append(state.RetrievedChunks, domain.RetrievedChunk{
			Text: c.Text, Order: c.Order, Source: c.Source, Digest: c.Digest,
		})
	}

	hints, err := e.HintExtractor.Extract(ctx, state.Request.City, chunks)
	if err != nil {
		log.Warnf(ctx, "retrieve: hint extraction failed, continuing with empty hints: %v", err)
		hints = domain.StructuredHints{}
	}
	state.StructuredHints = hints

	log.Debugf(ctx, "retrieve: %d chunks, %d attraction hints, %d flight hints, %d lodging hints, %d transit hints",
		len(state.RetrievedChunks), len(hints.Attractions), len(hints.Flights), len(hints.Lodgings), len(hints.Transit))

	return state
}

// embedQuery builds a deterministic, low-dimensional query vector from
// city + themes + kid_friendly. The core never accesses a real embedding
// model directly (spec §4.2: "the retriever is substitutable") — this is
// a cheap bag-of-words projection good enough to exercise MMR's cosine
// math deterministically in tests and when no real embedding service is
// configured.
func (e *Engine) embedQuery(req domain.Request) []float64 {
	terms := append([]string{strings.ToLower(req.City)}, themeList(req)...)
	if req.Prefs.KidFriendly {
		terms = append(terms, "kid_friendly")
	}
	return bagOfWordsVector(terms)
}

func themeList(req domain.Request) []string {
	out := make([]string, 0, len(req.Prefs.Themes))
	for t := range req.Prefs.Themes {
		out = append(out, strings.ToLower(t))
	}
	return out
}

// bagOfWordsVector hashes each term into one of 32 buckets, producing a
// stable-dimension vector regardless of vocabulary size.
func bagOfWordsVector(terms []string) []float64 {
	const dims = 32
	vec := make([]float64, dims)
	for _, t := range terms {
		h := fnv32(t)
		vec[h%dims] += 1
	}
	return vec
}

func fnv32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
