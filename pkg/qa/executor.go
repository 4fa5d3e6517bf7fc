package qa

import (
	"context"

	"github.com/sjhuskey/copticqa/pkg/graph"
	"github.com/sjhuskey/copticqa/pkg/rdf"
)

// Status classifies the outcome of running a candidate query.
type Status int

const (
	// StatusEmpty means the query ran and matched nothing.
	StatusEmpty Status = iota + 1
	// StatusPopulated means the query ran and returned rows.
	StatusPopulated
	// StatusError means the query could not be run.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusPopulated:
		return "populated"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ExecutionResult is the classified result of one query run. An empty
// result set is a valid, successful outcome.
type ExecutionResult struct {
	Status    Status
	Variables []string
	Rows      []map[string]rdf.Term
	Err       error
}

// Executor runs candidate queries against the graph and classifies the
// outcome. The caller bounds wall time through the context.
type Executor struct {
	graph *graph.Graph
}

func NewExecutor(g *graph.Graph) *Executor {
	return &Executor{graph: g}
}

// Run executes the query. When the context expires before execution
// finishes, the result carries the context error; the abandoned
// execution completes in the background against the read-only graph.
func (e *Executor) Run(ctx context.Context, query string) *ExecutionResult {
	if err := ctx.Err(); err != nil {
		return &ExecutionResult{Status: StatusError, Err: err}
	}

	type outcome struct {
		result *graph.Result
		err    error
	}

	ch := make(chan outcome, 1)
	go func() {
		result, err := e.graph.Execute(query)
		ch <- outcome{result, err}
	}()

	select {
	case <-ctx.Done():
		return &ExecutionResult{Status: StatusError, Err: ctx.Err()}
	case out := <-ch:
		if out.err != nil {
			return &ExecutionResult{Status: StatusError, Err: out.err}
		}
		return classify(out.result)
	}
}

func classify(result *graph.Result) *ExecutionResult {
	if result.Ask != nil {
		return &ExecutionResult{
			Status:    StatusPopulated,
			Variables: []string{"answer"},
			Rows: []map[string]rdf.Term{
				{"answer": rdf.NewBooleanLiteral(*result.Ask)},
			},
		}
	}
	if len(result.Rows) == 0 {
		return &ExecutionResult{Status: StatusEmpty, Variables: result.Variables}
	}
	return &ExecutionResult{
		Status:    StatusPopulated,
		Variables: result.Variables,
		Rows:      result.Rows,
	}
}
