// Package graph exposes the loaded knowledge graph behind a small
// facade: load Turtle files at startup, execute SPARQL text, and
// distinguish malformed queries from queries that simply match nothing.
package graph

import (
	"errors"
	"fmt"
	"os"

	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/sjhuskey/copticqa/pkg/sparql/executor"
	"github.com/sjhuskey/copticqa/pkg/sparql/parser"
	"github.com/sjhuskey/copticqa/pkg/store"
)

// ErrQuerySyntax marks queries rejected by the SPARQL parser. Callers
// check it with errors.Is to decide whether a retry with a corrected
// query makes sense.
var ErrQuerySyntax = errors.New("invalid SPARQL syntax")

// Graph is a read-oriented view over the triple store. It is safe for
// concurrent query execution once loading has finished.
type Graph struct {
	store    *store.TripleStore
	executor *executor.Executor
}

// New creates a graph over the given triple store.
func New(ts *store.TripleStore) *Graph {
	return &Graph{
		store:    ts,
		executor: executor.NewExecutor(ts),
	}
}

// Result holds the outcome of one query execution. For SELECT queries
// Variables preserves the projection order and Rows the store order.
// For ASK queries only Ask is set.
type Result struct {
	Variables []string
	Rows      []map[string]rdf.Term
	Ask       *bool
}

// Empty reports whether the query matched nothing.
func (r *Result) Empty() bool {
	if r.Ask != nil {
		return false
	}
	return len(r.Rows) == 0
}

// LoadTurtle parses Turtle text and inserts its triples. It returns
// the number of parsed triples.
func (g *Graph) LoadTurtle(input string) (int, error) {
	triples, err := rdf.NewTurtleParser(input).Parse()
	if err != nil {
		return 0, fmt.Errorf("failed to parse turtle: %w", err)
	}
	if err := g.store.InsertAll(triples); err != nil {
		return 0, fmt.Errorf("failed to insert triples: %w", err)
	}
	return len(triples), nil
}

// LoadTurtleFile loads one Turtle file into the graph.
func (g *Graph) LoadTurtleFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	n, err := g.LoadTurtle(string(data))
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return n, nil
}

// Count returns the number of stored triples.
func (g *Graph) Count() (int, error) {
	return g.store.Count()
}

// Query returns an iterator over triples matching the pattern. The
// schema digest builds itself through this.
func (g *Graph) Query(pattern *store.Pattern) (store.TripleIterator, error) {
	return g.store.Query(pattern)
}

// Execute parses and runs a SPARQL query. Parse failures are wrapped
// with ErrQuerySyntax; execution failures are returned as-is. An empty
// Result is a valid outcome, not an error.
func (g *Graph) Execute(sparqlText string) (*Result, error) {
	query, err := parser.NewParser(sparqlText).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuerySyntax, err)
	}

	result, err := g.executor.Execute(query)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	switch r := result.(type) {
	case *executor.SelectResult:
		rows := make([]map[string]rdf.Term, len(r.Bindings))
		for i, binding := range r.Bindings {
			row := make(map[string]rdf.Term, len(binding.Vars))
			for name, term := range binding.Vars {
				row[name] = term
			}
			rows[i] = row
		}
		return &Result{Variables: r.Variables, Rows: rows}, nil

	case *executor.AskResult:
		value := r.Result
		return &Result{Ask: &value}, nil

	default:
		return nil, fmt.Errorf("unexpected result type %T", result)
	}
}
