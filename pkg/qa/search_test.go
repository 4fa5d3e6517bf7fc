package qa_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjhuskey/copticqa/pkg/qa"
	"github.com/sjhuskey/copticqa/pkg/rdf"
)

func TestBuildSearchQueryExactShape(t *testing.T) {
	expected := "SELECT ?subject ?predicate ?object\n" +
		"WHERE {\n" +
		"  ?subject ?predicate ?object .\n" +
		"  FILTER (isLiteral(?object) && CONTAINS(LCASE(STR(?object)), \"athanasius\"))\n" +
		"}"

	assert.Equal(t, expected, qa.BuildSearchQuery("athanasius"))
}

func TestBuildSearchQueryFoldsCase(t *testing.T) {
	query := qa.BuildSearchQuery("Monastery")
	assert.Contains(t, query, `"monastery"`)
	assert.NotContains(t, query, "Monastery")
}

func TestBuildSearchQueryEscapesQuotes(t *testing.T) {
	query := qa.BuildSearchQuery(`the "white" monastery`)
	assert.Contains(t, query, `\"white\"`)

	query = qa.BuildSearchQuery(`back\slash`)
	assert.Contains(t, query, `back\\slash`)
}

func TestSearchFindsLiterals(t *testing.T) {
	gen := &fakeGenerator{}
	pipeline := newTestPipeline(t, gen)

	outcome := pipeline.Search(context.Background(), "Monastery")

	require.Equal(t, qa.OutcomeAnswered, outcome.Kind)
	require.Len(t, outcome.Result.Rows, 1)
	lit, ok := outcome.Result.Rows[0]["object"].(*rdf.Literal)
	require.True(t, ok)
	assert.Equal(t, "White Monastery Codex", lit.Value)
	assert.Equal(t, []string{"subject", "predicate", "object"}, outcome.Result.Variables)
	assert.Zero(t, gen.callCount(), "search never calls the language model")
}

func TestSearchNoMatches(t *testing.T) {
	gen := &fakeGenerator{}
	pipeline := newTestPipeline(t, gen)

	outcome := pipeline.Search(context.Background(), "ostracon")

	require.Equal(t, qa.OutcomeNoResults, outcome.Kind)
	assert.Equal(t, qa.EmptyAnswer, outcome.Answer)
	assert.Zero(t, gen.callCount())
}

func TestSearchHostileTermStaysWellFormed(t *testing.T) {
	gen := &fakeGenerator{}
	pipeline := newTestPipeline(t, gen)

	// A term full of quote characters must not break the query.
	outcome := pipeline.Search(context.Background(), `"))} . ?x ?y ?z`)

	require.Equal(t, qa.OutcomeNoResults, outcome.Kind)
}
