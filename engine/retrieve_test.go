package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windmark/itinerary-engine/config"
	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/retrieval"
)

func testRetrieveConfig() *config.Config {
	return &config.Config{Retrieve: config.RetrieveConfig{K: 5, MMRLambda: 0.5}}
}

type stubHintExtractor struct {
	hints domain.StructuredHints
	err   error
}

func (s stubHintExtractor) Extract(_ context.Context, _ string, _ []retrieval.Chunk) (domain.StructuredHints, error) {
	return s.hints, s.err
}

func TestRetrieve_EmptyCorpusIsNonFatal(t *testing.T) {
	e := &Engine{
		Config:        testRetrieveConfig(),
		Retriever:     retrieval.NewStaticRetriever(map[string][]retrieval.Chunk{}),
		HintExtractor: stubHintExtractor{},
	}
	state := domain.NewPlanState("trace-1", 1, domain.Request{City: "Paris"})

	out := e.retrieve(context.Background(), state)

	assert.Nil(t, out.RetrievedChunks)
	assert.Equal(t, domain.StructuredHints{}, out.StructuredHints)
}

func TestRetrieve_PopulatesChunksAndHints(t *testing.T) {
	corpus := map[string][]retrieval.Chunk{
		"Paris": {{Text: "The Louvre is indoors.", Order: 0, Source: "guide-1", Digest: "d1"}},
	}
	wantHints := domain.StructuredHints{Attractions: []domain.AttractionHint{{Name: "Louvre"}}}
	e := &Engine{
		Config:        testRetrieveConfig(),
		Retriever:     retrieval.NewStaticRetriever(corpus),
		HintExtractor: stubHintExtractor{hints: wantHints},
	}
	state := domain.NewPlanState("trace-1", 1, domain.Request{City: "Paris"})

	out := e.retrieve(context.Background(), state)

	require.Len(t, out.RetrievedChunks, 1)
	assert.Equal(t, "guide-1", out.RetrievedChunks[0].Source)
	assert.Equal(t, wantHints, out.StructuredHints)
}

func TestRetrieve_ExtractionFailureLeavesEmptyHintsNotError(t *testing.T) {
	corpus := map[string][]retrieval.Chunk{
		"Paris": {{Text: "some passage", Order: 0, Source: "guide-1"}},
	}
	e := &Engine{
		Config:        testRetrieveConfig(),
		Retriever:     retrieval.NewStaticRetriever(corpus),
		HintExtractor: stubHintExtractor{err: assert.AnError},
	}
	state := domain.NewPlanState("trace-1", 1, domain.Request{City: "Paris"})

	out := e.retrieve(context.Background(), state)

	require.Len(t, out.RetrievedChunks, 1)
	assert.Equal(t, domain.StructuredHints{}, out.StructuredHints)
}

func TestBagOfWordsVector_IsDeterministicAndFixedDimension(t *testing.T) {
	v1 := bagOfWordsVector([]string{"paris", "art", "kid_friendly"})
	v2 := bagOfWordsVector([]string{"paris", "art", "kid_friendly"})

	assert.Len(t, v1, 32)
	assert.Equal(t, v1, v2)
}

func TestThemeList_LowercasesKeysFromRequestPrefs(t *testing.T) {
	req := domain.Request{Prefs: domain.Prefs{Themes: map[string]bool{"Art": true, "Food": true}}}

	got := themeList(req)

	assert.ElementsMatch(t, []string{"art", "food"}, got)
}

func TestEmbedQuery_IncludesKidFriendlyTermWhenSet(t *testing.T) {
	e := &Engine{}
	withKids := e.embedQuery(domain.Request{City: "Rome", Prefs: domain.Prefs{KidFriendly: true}})
	withoutKids := e.embedQuery(domain.Request{City: "Rome", Prefs: domain.Prefs{KidFriendly: false}})

	assert.NotEqual(t, withKids, withoutKids)
}

func TestFnv32_SameInputSameHash(t *testing.T) {
	assert.Equal(t, fnv32("paris"), fnv32("paris"))
	assert.NotEqual(t, fnv32("paris"), fnv32("rome"))
}
