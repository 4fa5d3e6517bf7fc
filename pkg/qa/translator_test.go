package qa_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjhuskey/copticqa/pkg/qa"
	"github.com/sjhuskey/copticqa/pkg/schema"
)

func TestNormalizeSPARQL(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain query untouched",
			input:    "SELECT ?s WHERE { ?s ?p ?o . }",
			expected: "SELECT ?s WHERE { ?s ?p ?o . }",
		},
		{
			name:     "fenced with language tag",
			input:    "```sparql\nSELECT ?s WHERE { ?s ?p ?o . }\n```",
			expected: "SELECT ?s WHERE { ?s ?p ?o . }",
		},
		{
			name:     "fenced without language tag",
			input:    "```\nSELECT ?s WHERE { ?s ?p ?o . }\n```",
			expected: "SELECT ?s WHERE { ?s ?p ?o . }",
		},
		{
			name:     "inline backticks",
			input:    "`SELECT ?s WHERE { ?s ?p ?o . }`",
			expected: "SELECT ?s WHERE { ?s ?p ?o . }",
		},
		{
			name:     "bare where clause",
			input:    "WHERE { ?s ?p ?o . }",
			expected: "SELECT *\nWHERE { ?s ?p ?o . }",
		},
		{
			name:     "lowercase bare where",
			input:    "where { ?s ?p ?o . }",
			expected: "SELECT *\nwhere { ?s ?p ?o . }",
		},
		{
			name:     "surrounding whitespace",
			input:    "\n\n  SELECT ?s WHERE { ?s ?p ?o . }  \n",
			expected: "SELECT ?s WHERE { ?s ?p ?o . }",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, qa.NormalizeSPARQL(tc.input))
		})
	}
}

func TestTranslatePromptGrounding(t *testing.T) {
	g := newTestGraph(t)
	digest, err := schema.Build(g, testPrefixes)
	require.NoError(t, err)

	gen := &fakeGenerator{responses: []string{"SELECT ?s WHERE { ?s ?p ?o . }"}}
	translator := qa.NewTranslator(gen, digest)

	query, err := translator.Translate(context.Background(), "What manuscripts exist?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT ?s WHERE { ?s ?p ?o . }", query)

	// The prompt grounds the model in the actual vocabulary.
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "copt:Manuscript")
	assert.Contains(t, gen.prompts[0], "dcterms:title")
	assert.Contains(t, gen.prompts[0], "What manuscripts exist?")
}

func TestTranslateNormalizesOutput(t *testing.T) {
	g := newTestGraph(t)
	digest, err := schema.Build(g, testPrefixes)
	require.NoError(t, err)

	gen := &fakeGenerator{responses: []string{"```sparql\nSELECT ?s WHERE { ?s ?p ?o . }\n```"}}
	translator := qa.NewTranslator(gen, digest)

	query, err := translator.Translate(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "SELECT ?s WHERE { ?s ?p ?o . }", query)
}
