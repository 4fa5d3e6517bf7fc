package qa

import (
	"context"
	"strings"
)

// searchEscaper prepares a term for substitution into a double-quoted
// SPARQL string literal.
var searchEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// BuildSearchQuery produces the fixed literal-search query for a term.
// The term is case-folded to match the LCASE in the filter, and quote
// characters are escaped so the query stays well-formed for any input.
func BuildSearchQuery(term string) string {
	escaped := searchEscaper.Replace(strings.ToLower(term))
	return "SELECT ?subject ?predicate ?object\n" +
		"WHERE {\n" +
		"  ?subject ?predicate ?object .\n" +
		"  FILTER (isLiteral(?object) && CONTAINS(LCASE(STR(?object)), \"" + escaped + "\"))\n" +
		"}"
}

// Searcher is the deterministic fallback for when translation fails or
// a literal lookup is all the user wants. No generation call happens on
// this path.
type Searcher struct {
	executor *Executor
}

func NewSearcher(executor *Executor) *Searcher {
	return &Searcher{executor: executor}
}

// Search finds every triple whose object literal contains the term,
// case-insensitively.
func (s *Searcher) Search(ctx context.Context, term string) *ExecutionResult {
	return s.executor.Run(ctx, BuildSearchQuery(term))
}
